package handler

import (
	"net/http"
	"strconv"

	"estate_crm_backend/internal/leads/domain"
	"estate_crm_backend/internal/leads/management"
	"estate_crm_backend/internal/leads/repository"
	"estate_crm_backend/internal/leads/transport"
	"estate_crm_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const msgInvalidRequest = "invalid request"

type Handler struct {
	svc *management.Service
}

func New(svc *management.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("", h.List)
	group.POST("", h.Create)
	group.GET("/:id", h.Get)
	group.PATCH("/:id", h.Update)
	group.POST("/:id/status", h.ChangeStatus)
	group.POST("/:id/tags", h.AddTag)
}

func (h *Handler) Create(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	lead, created, err := h.svc.ResolveOrCreate(c.Request.Context(), id.UserID(), req.ToParams())
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httpkit.JSON(c, status, transport.CreateLeadResponse{Lead: lead, Created: created})
}

func (h *Handler) Get(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid lead id", nil)
		return
	}

	lead, err := h.svc.Get(c.Request.Context(), leadID)
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}

	httpkit.OK(c, lead)
}

func (h *Handler) List(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	filter := repository.ListFilter{
		AgentID: id.UserID(),
		Status:  domain.Status(c.Query("status")),
		Search:  c.Query("search"),
	}

	items, total, err := h.svc.List(c.Request.Context(), filter, queryInt(c, "page", 1), queryInt(c, "pageSize", 20))
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}

	httpkit.OK(c, gin.H{"items": items, "total": total})
}

func (h *Handler) Update(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid lead id", nil)
		return
	}

	var req transport.UpdateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	lead, err := h.svc.Update(c.Request.Context(), id.UserID(), leadID, req.ToParams())
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}

	httpkit.OK(c, lead)
}

func (h *Handler) ChangeStatus(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid lead id", nil)
		return
	}

	var req transport.ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	lead, err := h.svc.ChangeStatus(c.Request.Context(), id.UserID(), leadID, domain.Status(req.Status))
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}

	httpkit.OK(c, lead)
}

func (h *Handler) AddTag(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid lead id", nil)
		return
	}

	var req transport.AddTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	lead, err := h.svc.EnsureInterestTag(c.Request.Context(), id.UserID(), leadID, req.Tag)
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}

	httpkit.OK(c, lead)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
