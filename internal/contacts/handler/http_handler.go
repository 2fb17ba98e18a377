package handler

import (
	"net/http"
	"strconv"

	"estate_crm_backend/internal/contacts"
	"estate_crm_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	svc *contacts.Service
}

func New(svc *contacts.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("", h.List)
	group.GET("/:id", h.Get)
}

func (h *Handler) List(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	filter := contacts.ListFilter{
		AgentID:         id.UserID(),
		StatusEffective: c.Query("status"),
		Search:          c.Query("search"),
	}

	items, total, err := h.svc.List(c.Request.Context(), filter, queryInt(c, "page", 1), queryInt(c, "pageSize", 20))
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}

	httpkit.OK(c, gin.H{"items": items, "total": total})
}

func (h *Handler) Get(c *gin.Context) {
	contactID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid contact id", nil)
		return
	}

	contact, err := h.svc.Get(c.Request.Context(), contactID)
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}

	httpkit.OK(c, contact)
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
