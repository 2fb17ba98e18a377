package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"estate_crm_backend/platform/config"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Client enqueues reminder tasks. A nil Client disables reminders, which is
// how the application runs without Redis.
type Client struct {
	client *asynq.Client
	queue  string
}

// RedisOpt builds the asynq connection options from the configured Redis URL.
func RedisOpt(cfg config.SchedulerConfig) (asynq.RedisClientOpt, error) {
	parsed, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return asynq.RedisClientOpt{}, fmt.Errorf("parse redis url: %w", err)
	}

	opt := asynq.RedisClientOpt{
		Addr:     parsed.Addr,
		Username: parsed.Username,
		Password: parsed.Password,
		DB:       parsed.DB,
	}
	if parsed.TLSConfig != nil {
		opt.TLSConfig = parsed.TLSConfig
		if cfg.GetRedisTLSInsecure() {
			opt.TLSConfig = &tls.Config{InsecureSkipVerify: true}
		}
	}

	return opt, nil
}

// NewClient connects the enqueuer. Returns nil when no Redis URL is set.
func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	if cfg.GetRedisURL() == "" {
		return nil, nil
	}

	opt, err := RedisOpt(cfg)
	if err != nil {
		return nil, err
	}

	return &Client{client: asynq.NewClient(opt), queue: cfg.GetAsynqQueueName()}, nil
}

// EnqueueEventReminder schedules a reminder task to run at remindAt.
// Satisfies the calendar scheduling service's enqueuer port.
func (c *Client) EnqueueEventReminder(ctx context.Context, eventID uuid.UUID, remindAt time.Time) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewEventReminderTask(eventID)
	if err != nil {
		return err
	}

	opts := []asynq.Option{
		asynq.Queue(c.queue),
		asynq.MaxRetry(3),
		asynq.TaskID("event-reminder-" + eventID.String()),
	}
	if remindAt.After(time.Now()) {
		opts = append(opts, asynq.ProcessAt(remindAt))
	}

	_, err = c.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return fmt.Errorf("enqueue reminder: %w", err)
	}
	return nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
