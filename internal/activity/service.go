package activity

import (
	"context"

	"estate_crm_backend/internal/events"
	"estate_crm_backend/platform/logger"
)

// Service appends audit entries. Record deliberately returns nothing: the log
// must never fail the caller's primary operation, so failures are swallowed
// here and surfaced through structured logging only.
type Service struct {
	repo     *Repository
	eventBus events.Bus
	log      *logger.Logger
}

func NewService(repo *Repository, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, eventBus: eventBus, log: log}
}

// Append writes an entry and broadcasts activities:refresh. Callers that
// treat the entry as evidence of a transition (conversion records) must use
// Append so its failure can abort the transition.
func (s *Service) Append(ctx context.Context, p CreateParams) (Entry, error) {
	entry, err := s.repo.Create(ctx, p)
	if err != nil {
		return Entry{}, err
	}

	s.eventBus.Publish(ctx, events.ActivitiesRefresh{
		BaseEvent:  events.NewBaseEvent(),
		ActivityID: entry.ID,
	})

	return entry, nil
}

// Record appends an entry best-effort: failures are swallowed after logging
// so the audit trail never fails the caller's primary operation.
func (s *Service) Record(ctx context.Context, p CreateParams) {
	if _, err := s.Append(ctx, p); err != nil && s.log != nil {
		s.log.DerivedWriteFailed("activity.record", p.Type, err)
	}
}

// List returns entries filtered by linked entity, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter, page, pageSize int) ([]Entry, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}
	if pageSize > 200 {
		pageSize = 200
	}
	return s.repo.List(ctx, filter, pageSize, (page-1)*pageSize)
}
