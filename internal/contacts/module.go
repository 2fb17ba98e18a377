package contacts

import (
	"estate_crm_backend/internal/events"
	apphttp "estate_crm_backend/internal/http"
	"estate_crm_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RouteRegistrar is implemented by the handler subpackage. The module accepts
// it as an interface so the package graph stays acyclic (handler imports
// contacts, never the other way around).
type RouteRegistrar interface {
	RegisterRoutes(group *gin.RouterGroup)
}

type Module struct {
	service *Service
	routes  RouteRegistrar
}

func NewModule(pool *pgxpool.Pool, bus events.Bus, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	return &Module{service: NewService(repo, bus, log)}
}

func (m *Module) Name() string { return "contacts" }

// Service exposes the synchronizer to the leads module.
func (m *Module) Service() *Service { return m.service }

// AttachRoutes installs the HTTP handler built by the composition root.
func (m *Module) AttachRoutes(routes RouteRegistrar) { m.routes = routes }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	if m.routes != nil {
		m.routes.RegisterRoutes(ctx.Protected.Group("/contacts"))
	}
}
