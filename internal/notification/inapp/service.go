package inapp

import (
	"context"

	"estate_crm_backend/platform/logger"

	"github.com/google/uuid"
)

// Priorities for notifications.
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

type Service struct {
	repo *Repository
	log  *logger.Logger
}

func NewService(repo *Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

type NotifyParams struct {
	UserID       uuid.UUID
	Title        string
	Message      string
	Priority     string
	ResourceID   *uuid.UUID
	ResourceType string
}

// Notify persists an in-app notification for the agent. Delivery is
// best-effort: a failure is logged and swallowed so it never fails the
// triggering operation.
func (s *Service) Notify(ctx context.Context, p NotifyParams) {
	if p.Priority == "" {
		p.Priority = PriorityNormal
	}

	var resourceType *string
	if p.ResourceType != "" {
		resourceType = &p.ResourceType
	}

	_, err := s.repo.Create(ctx, CreateParams{
		UserID:       p.UserID,
		Title:        p.Title,
		Message:      p.Message,
		Priority:     p.Priority,
		ResourceID:   p.ResourceID,
		ResourceType: resourceType,
	})
	if err != nil && s.log != nil {
		s.log.DerivedWriteFailed("notification.notify", p.Title, err)
	}
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]Notification, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	offset := (page - 1) * pageSize
	return s.repo.List(ctx, userID, pageSize, offset)
}

func (s *Service) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.MarkRead(ctx, userID, id)
}

func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllRead(ctx, userID)
}
