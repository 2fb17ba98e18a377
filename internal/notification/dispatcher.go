package notification

import (
	"context"
	"fmt"
	"time"

	"estate_crm_backend/internal/email"
	"estate_crm_backend/internal/notification/inapp"
	"estate_crm_backend/platform/logger"

	"github.com/google/uuid"
)

// AgentDirectory resolves the contact details of an agent for outbound email.
type AgentDirectory interface {
	AgentEmail(ctx context.Context, agentID uuid.UUID) (address, name string, err error)
}

// Dispatcher turns engine events that need human attention into in-app
// notifications, plus email where the event warrants it. Every method is
// best-effort: failures are logged and never propagate to the caller.
type Dispatcher struct {
	svc    *inapp.Service
	sender email.Sender
	agents AgentDirectory
	log    *logger.Logger
}

func NewDispatcher(svc *inapp.Service, sender email.Sender, agents AgentDirectory, log *logger.Logger) *Dispatcher {
	return &Dispatcher{svc: svc, sender: sender, agents: agents, log: log}
}

// LeadAssigned notifies the agent of a newly assigned lead, in-app and by email.
func (d *Dispatcher) LeadAssigned(ctx context.Context, agentID, leadID uuid.UUID, leadName string) {
	d.svc.Notify(ctx, inapp.NotifyParams{
		UserID:       agentID,
		Title:        "New lead assigned",
		Message:      fmt.Sprintf("New lead %q has been assigned to you.", leadName),
		Priority:     inapp.PriorityHigh,
		ResourceID:   &leadID,
		ResourceType: "lead",
	})

	d.emailAgent(ctx, agentID, "New lead assigned",
		fmt.Sprintf("A new lead %q has been assigned to you. Open the CRM to review the enquiry and the scheduled follow-ups.", leadName))
}

// LeadStatusChanged notifies the agent that a lead reached a terminal stage.
func (d *Dispatcher) LeadStatusChanged(ctx context.Context, agentID, leadID uuid.UUID, leadName, status string) {
	d.svc.Notify(ctx, inapp.NotifyParams{
		UserID:       agentID,
		Title:        "Lead status changed",
		Message:      fmt.Sprintf("Lead %q is now %s.", leadName, status),
		Priority:     inapp.PriorityNormal,
		ResourceID:   &leadID,
		ResourceType: "lead",
	})
}

// PropertyStatusChanged notifies the agent of a listing status transition.
func (d *Dispatcher) PropertyStatusChanged(ctx context.Context, agentID, propertyID uuid.UUID, title, status string) {
	d.svc.Notify(ctx, inapp.NotifyParams{
		UserID:       agentID,
		Title:        "Property status changed",
		Message:      fmt.Sprintf("Property %q is now %s.", title, status),
		Priority:     inapp.PriorityNormal,
		ResourceID:   &propertyID,
		ResourceType: "property",
	})
}

// DocumentUploaded notifies the agent that a file landed on their listing.
func (d *Dispatcher) DocumentUploaded(ctx context.Context, agentID, propertyID uuid.UUID, fileName string) {
	d.svc.Notify(ctx, inapp.NotifyParams{
		UserID:       agentID,
		Title:        "Document uploaded",
		Message:      fmt.Sprintf("Document %q was uploaded.", fileName),
		Priority:     inapp.PriorityLow,
		ResourceID:   &propertyID,
		ResourceType: "property",
	})
}

// ViewingScheduled notifies the agent of a new viewing appointment.
func (d *Dispatcher) ViewingScheduled(ctx context.Context, agentID, eventID uuid.UUID, when time.Time) {
	d.svc.Notify(ctx, inapp.NotifyParams{
		UserID:       agentID,
		Title:        "Viewing scheduled",
		Message:      "Viewing scheduled for " + when.Format("Mon, 02 Jan 2006 15:04"),
		Priority:     inapp.PriorityNormal,
		ResourceID:   &eventID,
		ResourceType: "calendar_event",
	})
}

func (d *Dispatcher) emailAgent(ctx context.Context, agentID uuid.UUID, subject, body string) {
	if d.agents == nil || d.sender == nil {
		return
	}

	address, name, err := d.agents.AgentEmail(ctx, agentID)
	if err != nil {
		d.log.DerivedWriteFailed("notification.agent_lookup", agentID.String(), err)
		return
	}
	if address == "" {
		return
	}

	text := "Hi " + name + ",\n\n" + body + "\n"
	if err := d.sender.Send(ctx, address, subject, text); err != nil {
		d.log.DerivedWriteFailed("notification.email", address, err)
	}
}
