// Package leads bundles the lead bounded context: pipeline records, the
// dedup-resolving creation flow, and the status lifecycle engine.
package leads

import (
	"estate_crm_backend/internal/events"
	apphttp "estate_crm_backend/internal/http"
	"estate_crm_backend/internal/leads/handler"
	"estate_crm_backend/internal/leads/management"
	"estate_crm_backend/internal/leads/repository"
	"estate_crm_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	repo    *repository.Repository
	service *management.Service
	handler *handler.Handler
}

// NewModule wires the leads context. The cross-module collaborators (contact
// syncer, follow-up scheduler, activity log, notifier) are passed in by the
// composition root as the ports defined in the management package.
func NewModule(pool *pgxpool.Pool, syncer management.ContactSyncer, scheduler management.FollowUpScheduler,
	activities management.ActivityLog, notifier management.Notifier, bus events.Bus, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := management.NewService(repo, syncer, scheduler, activities, notifier, bus, log)

	return &Module{
		repo:    repo,
		service: svc,
		handler: handler.New(svc),
	}
}

func (m *Module) Name() string { return "leads" }

// Service exposes the lifecycle engine to other modules (property cascade,
// owner tagging).
func (m *Module) Service() *management.Service { return m.service }

// Repository exposes read access for cross-module lookups.
func (m *Module) Repository() *repository.Repository { return m.repo }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/leads")
	m.handler.RegisterRoutes(group)
}
