package properties

import (
	"estate_crm_backend/internal/events"
	apphttp "estate_crm_backend/internal/http"
	"estate_crm_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RouteRegistrar is implemented by the handler subpackage; accepted as an
// interface to keep the package graph acyclic.
type RouteRegistrar interface {
	RegisterRoutes(group *gin.RouterGroup)
}

type Module struct {
	service *Service
	routes  RouteRegistrar
}

func NewModule(pool *pgxpool.Pool, leads LeadLifecycle, cal CalendarPort,
	activities ActivityLog, notifier Notifier, bus events.Bus, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	return &Module{service: NewService(repo, leads, cal, activities, notifier, bus, log)}
}

func (m *Module) Name() string { return "properties" }

// Service exposes the rule engine.
func (m *Module) Service() *Service { return m.service }

// AttachRoutes installs the HTTP handler built by the composition root.
func (m *Module) AttachRoutes(routes RouteRegistrar) { m.routes = routes }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	if m.routes != nil {
		m.routes.RegisterRoutes(ctx.Protected.Group("/properties"))
	}
}
