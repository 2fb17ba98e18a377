// Package notification wires in-app notifications and outbound email into the
// rest of the application. It owns no domain state beyond the notification
// rows themselves; everything it does is called best-effort from the
// automation sagas of other modules.
package notification

import (
	"estate_crm_backend/internal/email"
	apphttp "estate_crm_backend/internal/http"
	"estate_crm_backend/internal/notification/handler"
	"estate_crm_backend/internal/notification/inapp"
	"estate_crm_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	service    *inapp.Service
	dispatcher *Dispatcher
	handler    *handler.Handler
}

func NewModule(pool *pgxpool.Pool, sender email.Sender, agents AgentDirectory, log *logger.Logger) *Module {
	repo := inapp.NewRepository(pool)
	svc := inapp.NewService(repo, log)

	return &Module{
		service:    svc,
		dispatcher: NewDispatcher(svc, sender, agents, log),
		handler:    handler.New(svc),
	}
}

func (m *Module) Name() string { return "notification" }

// Service exposes the in-app notification service.
func (m *Module) Service() *inapp.Service { return m.service }

// Dispatcher exposes the engine-event dispatcher to other modules.
func (m *Module) Dispatcher() *Dispatcher { return m.dispatcher }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/notifications")
	m.handler.RegisterRoutes(group)
}
