// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"estate_crm_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// Canonical topics. Subscribers treat every event as an invalidation hint and
// re-query; payloads never carry authoritative state.
const (
	TopicLeadsChanged      = "leads:changed"
	TopicContactsUpdated   = "contacts:updated"
	TopicCalendarRefresh   = "calendar:refresh"
	TopicPropertiesRefresh = "properties:refresh"
	TopicActivitiesRefresh = "activities:refresh"
)

// LeadsChanged is published whenever a lead row is written. Every lead write
// also publishes ContactsUpdated, since the contact view of the same person
// is derived from the lead.
type LeadsChanged struct {
	BaseEvent
	LeadID  uuid.UUID `json:"leadId"`
	AgentID uuid.UUID `json:"agentId"`
	Reason  string    `json:"reason"` // "created", "merged", "status_changed", "tagged"
}

func (e LeadsChanged) EventName() string { return TopicLeadsChanged }

// ContactsUpdated is published whenever a contact row is written, and
// alongside every LeadsChanged (cross-sync).
type ContactsUpdated struct {
	BaseEvent
	ContactID uuid.UUID `json:"contactId"`
	Reason    string    `json:"reason"`
}

func (e ContactsUpdated) EventName() string { return TopicContactsUpdated }

// CalendarRefresh is published when calendar events or tasks change.
type CalendarRefresh struct {
	BaseEvent
	AgentID uuid.UUID  `json:"agentId"`
	LeadID  *uuid.UUID `json:"leadId,omitempty"`
	Reason  string     `json:"reason"`
}

func (e CalendarRefresh) EventName() string { return TopicCalendarRefresh }

// PropertiesRefresh is published when a property row is written.
type PropertiesRefresh struct {
	BaseEvent
	PropertyID uuid.UUID `json:"propertyId"`
	Reason     string    `json:"reason"`
}

func (e PropertiesRefresh) EventName() string { return TopicPropertiesRefresh }

// ActivitiesRefresh is published when an activity log entry is appended.
type ActivitiesRefresh struct {
	BaseEvent
	ActivityID uuid.UUID `json:"activityId"`
}

func (e ActivitiesRefresh) EventName() string { return TopicActivitiesRefresh }
