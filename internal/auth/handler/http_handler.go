package handler

import (
	"net/http"

	"estate_crm_backend/internal/auth"
	"estate_crm_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *auth.Service
}

func New(svc *auth.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterPublicRoutes mounts the unauthenticated auth endpoints.
func (h *Handler) RegisterPublicRoutes(group *gin.RouterGroup) {
	group.POST("/login", h.Login)
}

// RegisterProtectedRoutes mounts the endpoints behind the auth middleware.
// Account creation is restricted to admins.
func (h *Handler) RegisterProtectedRoutes(group *gin.RouterGroup) {
	group.GET("/me", h.Me)
	group.POST("/register", httpkit.RequireRole("admin"), h.Register)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	session, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}

	httpkit.OK(c, session)
}

type registerRequest struct {
	Email    string   `json:"email" binding:"required,email"`
	Name     string   `json:"name" binding:"required"`
	Password string   `json:"password" binding:"required,min=8"`
	Roles    []string `json:"roles" binding:"omitempty,dive,oneof=agent admin"`
}

func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	user, err := h.svc.Register(c.Request.Context(), req.Email, req.Name, req.Password, req.Roles)
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}

	httpkit.JSON(c, http.StatusCreated, user)
}

func (h *Handler) Me(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	user, err := h.svc.Profile(c.Request.Context(), id.UserID())
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}

	httpkit.OK(c, user)
}
