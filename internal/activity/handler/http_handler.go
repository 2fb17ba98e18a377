package handler

import (
	"net/http"
	"strconv"

	"estate_crm_backend/internal/activity"
	"estate_crm_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	svc *activity.Service
}

func New(svc *activity.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("", h.List)
}

// List returns the audit trail, optionally scoped to one linked entity.
func (h *Handler) List(c *gin.Context) {
	var filter activity.ListFilter
	if ok := bindOptionalUUID(c, "leadId", &filter.LeadID); !ok {
		return
	}
	if ok := bindOptionalUUID(c, "propertyId", &filter.PropertyID); !ok {
		return
	}
	if ok := bindOptionalUUID(c, "contactId", &filter.ContactID); !ok {
		return
	}

	items, err := h.svc.List(c.Request.Context(), filter, queryInt(c, "page", 1), queryInt(c, "pageSize", 50))
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}

	httpkit.OK(c, gin.H{"items": items})
}

func bindOptionalUUID(c *gin.Context, key string, target **uuid.UUID) bool {
	raw := c.Query(key)
	if raw == "" {
		return true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid "+key, nil)
		return false
	}
	*target = &id
	return true
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
