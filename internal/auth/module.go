package auth

import (
	"estate_crm_backend/internal/auth/token"
	apphttp "estate_crm_backend/internal/http"
	"estate_crm_backend/platform/config"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RouteRegistrar is implemented by the handler subpackage; accepted as an
// interface to keep the package graph acyclic.
type RouteRegistrar interface {
	RegisterPublicRoutes(group *gin.RouterGroup)
	RegisterProtectedRoutes(group *gin.RouterGroup)
}

type Module struct {
	repo    *Repository
	service *Service
	routes  RouteRegistrar
}

func NewModule(pool *pgxpool.Pool, cfg config.AuthServiceConfig) *Module {
	repo := NewRepository(pool)
	issuer := token.NewIssuer(cfg.GetJWTAccessSecret(), cfg.GetAccessTokenTTL())

	return &Module{repo: repo, service: NewService(repo, issuer)}
}

func (m *Module) Name() string { return "auth" }

// Service exposes login and registration.
func (m *Module) Service() *Service { return m.service }

// Repository exposes the agent directory for the notification module.
func (m *Module) Repository() *Repository { return m.repo }

// AttachRoutes installs the HTTP handler built by the composition root.
func (m *Module) AttachRoutes(routes RouteRegistrar) { m.routes = routes }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	public := ctx.V1.Group("/auth")
	if ctx.AuthRateLimiter != nil {
		public.Use(ctx.AuthRateLimiter.RateLimit())
	}
	if m.routes != nil {
		m.routes.RegisterPublicRoutes(public)
		m.routes.RegisterProtectedRoutes(ctx.Protected.Group("/auth"))
	}
}
