package calendar

import (
	apphttp "estate_crm_backend/internal/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RouteRegistrar is implemented by the handler subpackage; accepted as an
// interface to keep the package graph acyclic.
type RouteRegistrar interface {
	RegisterRoutes(group *gin.RouterGroup)
}

type Module struct {
	repo   *Repository
	routes RouteRegistrar
}

func NewModule(pool *pgxpool.Pool) *Module {
	return &Module{repo: NewRepository(pool)}
}

func (m *Module) Name() string { return "calendar" }

// Repository exposes the event store to the scheduling service.
func (m *Module) Repository() *Repository { return m.repo }

// AttachRoutes installs the HTTP handler built by the composition root.
func (m *Module) AttachRoutes(routes RouteRegistrar) { m.routes = routes }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	if m.routes != nil {
		m.routes.RegisterRoutes(ctx.Protected.Group("/calendar"))
	}
}
