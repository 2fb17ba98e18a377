// Package scheduling plants derived calendar entries: the follow-up ladder
// for new leads, pending-property review tasks, and viewing appointments with
// reminders. Derived scheduling is always best-effort for the caller; the
// plan itself is deterministic given the trigger time.
package scheduling

import (
	"context"
	"fmt"
	"time"

	"estate_crm_backend/internal/activity"
	"estate_crm_backend/internal/calendar"
	"estate_crm_backend/internal/events"
	"estate_crm_backend/platform/logger"

	"github.com/google/uuid"
)

// Reminder lead time before an event's due time.
const reminderLead = 30 * time.Minute

// PendingCheckOffset is how far out the "check on pending property" task lands.
const PendingCheckOffset = 72 * time.Hour

// Planned is one entry of a deterministic schedule.
type Planned struct {
	Title       string
	Description string
	Type        string
	DueAt       time.Time
}

// PlanFollowUps returns the follow-up ladder for a lead created at the given
// time. Same input, same output: offsets are fixed, nothing is randomized.
func PlanFollowUps(createdAt time.Time) []Planned {
	return []Planned{
		{
			Title:       "Initial callback",
			Description: "Call the new lead to introduce yourself",
			Type:        calendar.TypeFollowUp,
			DueAt:       createdAt.Add(15 * time.Minute),
		},
		{
			Title:       "Send property options",
			Description: "Share matching listings with the lead",
			Type:        calendar.TypeFollowUp,
			DueAt:       createdAt.Add(2 * time.Hour),
		},
		{
			Title:       "Second follow-up",
			Description: "Check whether the lead reviewed the options",
			Type:        calendar.TypeFollowUp,
			DueAt:       createdAt.Add(24 * time.Hour),
		},
		{
			Title:       "Schedule a meeting",
			Description: "Arrange a viewing or office meeting",
			Type:        calendar.TypeTask,
			DueAt:       createdAt.Add(72 * time.Hour),
		},
	}
}

// Store is the persistence surface the scheduler needs.
type Store interface {
	Create(ctx context.Context, p calendar.CreateParams) (calendar.Event, error)
	GetByID(ctx context.Context, id uuid.UUID) (calendar.Event, error)
	List(ctx context.Context, filter calendar.ListFilter, limit, offset int) ([]calendar.Event, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) (calendar.Event, error)
	CompleteOpenForProperty(ctx context.Context, propertyID uuid.UUID) (int, error)
}

// ActivityLog is the best-effort audit sink.
type ActivityLog interface {
	Record(ctx context.Context, p activity.CreateParams)
}

// Notifier raises the viewing-scheduled notification.
type Notifier interface {
	ViewingScheduled(ctx context.Context, agentID, eventID uuid.UUID, when time.Time)
}

// ReminderEnqueuer hands a reminder to the background queue. Implemented by
// the asynq-backed scheduler client; a nil enqueuer disables reminders.
type ReminderEnqueuer interface {
	EnqueueEventReminder(ctx context.Context, eventID uuid.UUID, remindAt time.Time) error
}

type Service struct {
	store      Store
	activities ActivityLog
	notifier   Notifier
	reminders  ReminderEnqueuer
	bus        events.Bus
	log        *logger.Logger
	now        func() time.Time
}

func NewService(store Store, activities ActivityLog, notifier Notifier,
	reminders ReminderEnqueuer, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		store:      store,
		activities: activities,
		notifier:   notifier,
		reminders:  reminders,
		bus:        bus,
		log:        log,
		now:        time.Now,
	}
}

// WithClock overrides the time source. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ScheduleLeadFollowUps plants the follow-up ladder for a freshly created
// lead. Each entry is attempted independently; partial failure is logged per
// entry and never aborts the batch. One activity entry summarizes the batch.
func (s *Service) ScheduleLeadFollowUps(ctx context.Context, leadID, agentID uuid.UUID) error {
	createdAt := s.now()
	plan := PlanFollowUps(createdAt)

	created := 0
	for _, p := range plan {
		id := leadID
		event, err := s.store.Create(ctx, calendar.CreateParams{
			Title:       p.Title,
			Description: p.Description,
			Type:        p.Type,
			DueAt:       p.DueAt,
			LeadID:      &id,
			AgentID:     agentID,
		})
		if err != nil {
			if s.log != nil {
				s.log.DerivedWriteFailed("calendar.schedule_follow_ups", p.Title, err)
			}
			continue
		}
		created++
		s.enqueueReminder(ctx, event)
	}

	if created > 0 {
		id := leadID
		s.activities.Record(ctx, activity.CreateParams{
			Type:        "follow_ups_scheduled",
			Description: fmt.Sprintf("Auto-created %d follow-up tasks for new lead", created),
			LeadID:      &id,
			CreatedBy:   agentID,
		})
		s.publishRefresh(ctx, agentID, &leadID, "follow_ups_scheduled")
	}

	return nil
}

// SchedulePropertyPendingCheck plants the single "check on pending property"
// task three days out.
func (s *Service) SchedulePropertyPendingCheck(ctx context.Context, propertyID, agentID uuid.UUID) error {
	id := propertyID
	event, err := s.store.Create(ctx, calendar.CreateParams{
		Title:       "Check on pending property",
		Description: "Review whether the pending deal is progressing",
		Type:        calendar.TypeTask,
		DueAt:       s.now().Add(PendingCheckOffset),
		PropertyID:  &id,
		AgentID:     agentID,
	})
	if err != nil {
		return err
	}

	s.enqueueReminder(ctx, event)
	s.publishRefresh(ctx, agentID, nil, "pending_check_scheduled")
	return nil
}

// ViewingParams describe an agent-scheduled property viewing.
type ViewingParams struct {
	Title       string
	Description string
	DueAt       time.Time
	LeadID      *uuid.UUID
	PropertyID  *uuid.UUID
}

// ScheduleViewing creates a viewing appointment, records it on the audit
// trail, notifies the agent and queues a reminder.
func (s *Service) ScheduleViewing(ctx context.Context, actorID uuid.UUID, p ViewingParams) (calendar.Event, error) {
	title := p.Title
	if title == "" {
		title = "Property viewing"
	}

	event, err := s.store.Create(ctx, calendar.CreateParams{
		Title:       title,
		Description: p.Description,
		Type:        calendar.TypeViewing,
		DueAt:       p.DueAt,
		LeadID:      p.LeadID,
		PropertyID:  p.PropertyID,
		AgentID:     actorID,
	})
	if err != nil {
		return calendar.Event{}, err
	}

	s.activities.Record(ctx, activity.CreateParams{
		Type:        "viewing_scheduled",
		Description: "Viewing scheduled for " + event.DueAt.Format("Mon, 02 Jan 2006 15:04"),
		LeadID:      p.LeadID,
		PropertyID:  p.PropertyID,
		CreatedBy:   actorID,
	})
	s.notifier.ViewingScheduled(ctx, actorID, event.ID, event.DueAt)
	s.enqueueReminder(ctx, event)
	s.publishRefresh(ctx, actorID, p.LeadID, "viewing_scheduled")

	return event, nil
}

// CompleteEvent closes an event. Completed viewings get an audit entry.
func (s *Service) CompleteEvent(ctx context.Context, actorID, eventID uuid.UUID) (calendar.Event, error) {
	event, err := s.store.SetStatus(ctx, eventID, calendar.StatusCompleted)
	if err != nil {
		return calendar.Event{}, err
	}

	if event.Type == calendar.TypeViewing {
		s.activities.Record(ctx, activity.CreateParams{
			Type:        "viewing_completed",
			Description: "Viewing completed: " + event.Title,
			LeadID:      event.LeadID,
			PropertyID:  event.PropertyID,
			CreatedBy:   actorID,
		})
	}
	s.publishRefresh(ctx, event.AgentID, event.LeadID, "event_completed")

	return event, nil
}

// CancelEvent marks an event cancelled.
func (s *Service) CancelEvent(ctx context.Context, actorID, eventID uuid.UUID) (calendar.Event, error) {
	event, err := s.store.SetStatus(ctx, eventID, calendar.StatusCancelled)
	if err != nil {
		return calendar.Event{}, err
	}

	s.publishRefresh(ctx, event.AgentID, event.LeadID, "event_cancelled")
	return event, nil
}

// CompleteOpenForProperty closes every open event on a property. Used by the
// property closure cascade.
func (s *Service) CompleteOpenForProperty(ctx context.Context, propertyID uuid.UUID) (int, error) {
	n, err := s.store.CompleteOpenForProperty(ctx, propertyID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.publishRefresh(ctx, uuid.Nil, nil, "property_events_completed")
	}
	return n, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (calendar.Event, error) {
	return s.store.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, filter calendar.ListFilter, page, pageSize int) ([]calendar.Event, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}
	if pageSize > 200 {
		pageSize = 200
	}
	return s.store.List(ctx, filter, pageSize, (page-1)*pageSize)
}

func (s *Service) enqueueReminder(ctx context.Context, event calendar.Event) {
	if s.reminders == nil {
		return
	}
	remindAt := event.DueAt.Add(-reminderLead)
	if err := s.reminders.EnqueueEventReminder(ctx, event.ID, remindAt); err != nil && s.log != nil {
		s.log.DerivedWriteFailed("calendar.enqueue_reminder", event.Title, err)
	}
}

func (s *Service) publishRefresh(ctx context.Context, agentID uuid.UUID, leadID *uuid.UUID, reason string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, events.CalendarRefresh{
		BaseEvent: events.NewBaseEvent(),
		AgentID:   agentID,
		LeadID:    leadID,
		Reason:    reason,
	})
}
