package scheduler

import (
	"context"

	"estate_crm_backend/internal/calendar"
	"estate_crm_backend/internal/notification/inapp"
	"estate_crm_backend/platform/config"
	"estate_crm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// EventReader loads calendar events for reminder delivery.
type EventReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (calendar.Event, error)
}

// Worker consumes reminder tasks and turns them into in-app notifications.
type Worker struct {
	server *asynq.Server
	queue  string
	events EventReader
	inapp  *inapp.Service
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, events EventReader, notifications *inapp.Service, log *logger.Logger) (*Worker, error) {
	opt, err := RedisOpt(cfg)
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: 5,
		Queues:      map[string]int{queue: 1},
	})

	return &Worker{server: server, queue: queue, events: events, inapp: notifications, log: log}, nil
}

// Run blocks processing tasks until Shutdown is called.
func (w *Worker) Run() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeEventReminder, w.handleEventReminder)
	return w.server.Run(mux)
}

// Shutdown stops the worker gracefully.
func (w *Worker) Shutdown() {
	w.server.Shutdown()
}

// handleEventReminder notifies the agent about an upcoming event. Reminders
// for events that were completed or cancelled in the meantime are dropped.
func (w *Worker) handleEventReminder(ctx context.Context, t *asynq.Task) error {
	payload, err := ParseEventReminderPayload(t.Payload())
	if err != nil {
		return err
	}

	event, err := w.events.GetByID(ctx, payload.EventID)
	if err != nil {
		// The event may have been deleted; retrying will not help.
		w.log.DerivedWriteFailed("scheduler.event_reminder", payload.EventID.String(), err)
		return nil
	}
	if event.Status != calendar.StatusScheduled {
		return nil
	}

	eventID := event.ID
	w.inapp.Notify(ctx, inapp.NotifyParams{
		UserID:       event.AgentID,
		Title:        "Upcoming: " + event.Title,
		Message:      "Due " + event.DueAt.Format("Mon, 02 Jan 2006 15:04"),
		Priority:     inapp.PriorityHigh,
		ResourceID:   &eventID,
		ResourceType: "calendar_event",
	})

	return nil
}
