// Package scheduler queues and processes background reminder tasks through
// asynq on Redis. The HTTP process only enqueues; a separate worker process
// consumes the queue.
package scheduler

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// TypeEventReminder is the task type for calendar event reminders.
const TypeEventReminder = "calendar:event_reminder"

// EventReminderPayload is the JSON body of a reminder task.
type EventReminderPayload struct {
	EventID uuid.UUID `json:"eventId"`
}

// NewEventReminderTask builds the asynq task for an event reminder.
func NewEventReminderTask(eventID uuid.UUID) (*asynq.Task, error) {
	payload, err := json.Marshal(EventReminderPayload{EventID: eventID})
	if err != nil {
		return nil, fmt.Errorf("marshal reminder payload: %w", err)
	}
	return asynq.NewTask(TypeEventReminder, payload), nil
}

// ParseEventReminderPayload decodes a reminder task body.
func ParseEventReminderPayload(data []byte) (EventReminderPayload, error) {
	var p EventReminderPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return EventReminderPayload{}, fmt.Errorf("unmarshal reminder payload: %w", err)
	}
	return p, nil
}
