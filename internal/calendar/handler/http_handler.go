package handler

import (
	"net/http"
	"strconv"
	"time"

	"estate_crm_backend/internal/calendar"
	"estate_crm_backend/internal/calendar/scheduling"
	"estate_crm_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const msgInvalidRequest = "invalid request"

type Handler struct {
	svc *scheduling.Service
}

func New(svc *scheduling.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("", h.List)
	group.GET("/:id", h.Get)
	group.POST("/viewings", h.ScheduleViewing)
	group.POST("/:id/complete", h.Complete)
	group.POST("/:id/cancel", h.Cancel)
}

type scheduleViewingRequest struct {
	Title       string     `json:"title" binding:"omitempty,max=200"`
	Description string     `json:"description" binding:"omitempty,max=2000"`
	DueAt       time.Time  `json:"dueAt" binding:"required"`
	LeadID      *uuid.UUID `json:"leadId"`
	PropertyID  *uuid.UUID `json:"propertyId"`
}

func (h *Handler) ScheduleViewing(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	var req scheduleViewingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	event, err := h.svc.ScheduleViewing(c.Request.Context(), id.UserID(), scheduling.ViewingParams{
		Title:       req.Title,
		Description: req.Description,
		DueAt:       req.DueAt,
		LeadID:      req.LeadID,
		PropertyID:  req.PropertyID,
	})
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}

	httpkit.JSON(c, http.StatusCreated, event)
}

func (h *Handler) List(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	filter := calendar.ListFilter{
		AgentID: id.UserID(),
		Status:  c.Query("status"),
	}
	if raw := c.Query("leadId"); raw != "" {
		leadID, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid lead id", nil)
			return
		}
		filter.LeadID = &leadID
	}
	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid from time", nil)
			return
		}
		filter.From = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid to time", nil)
			return
		}
		filter.To = &to
	}

	items, err := h.svc.List(c.Request.Context(), filter, queryInt(c, "page", 1), queryInt(c, "pageSize", 50))
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}

	httpkit.OK(c, gin.H{"items": items})
}

func (h *Handler) Get(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid event id", nil)
		return
	}

	event, err := h.svc.Get(c.Request.Context(), eventID)
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}

	httpkit.OK(c, event)
}

func (h *Handler) Complete(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid event id", nil)
		return
	}

	event, err := h.svc.CompleteEvent(c.Request.Context(), id.UserID(), eventID)
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}

	httpkit.OK(c, event)
}

func (h *Handler) Cancel(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid event id", nil)
		return
	}

	event, err := h.svc.CancelEvent(c.Request.Context(), id.UserID(), eventID)
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}

	httpkit.OK(c, event)
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
