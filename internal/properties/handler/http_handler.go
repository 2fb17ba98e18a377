package handler

import (
	"net/http"
	"strconv"

	"estate_crm_backend/internal/properties"
	"estate_crm_backend/internal/properties/documents"
	"estate_crm_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const msgInvalidRequest = "invalid request"

type Handler struct {
	svc  *properties.Service
	docs *documents.Service
}

func New(svc *properties.Service, docs *documents.Service) *Handler {
	return &Handler{svc: svc, docs: docs}
}

func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("", h.List)
	group.POST("", h.Create)
	group.GET("/:id", h.Get)
	group.POST("/:id/status", h.ChangeStatus)
	group.POST("/:id/owner", h.LinkOwner)
	group.POST("/:id/interest", h.LinkInterest)
	group.GET("/:id/links", h.Links)
	group.GET("/:id/documents", h.ListDocuments)
	group.POST("/:id/documents", h.UploadDocument)
	group.GET("/:id/documents/:docId/url", h.DocumentURL)
	group.DELETE("/:id/documents/:docId", h.DeleteDocument)
}

type createPropertyRequest struct {
	Title     string `json:"title" binding:"required,min=1,max=300"`
	Status    string `json:"status" binding:"omitempty,oneof=available pending sold rented off_market in_development vacant"`
	OfferType string `json:"offerType" binding:"required,oneof=sale rent"`
	Segment   string `json:"segment" binding:"omitempty,max=100"`
	Subtype   string `json:"subtype" binding:"omitempty,max=100"`
	Price     *int64 `json:"price" binding:"omitempty,min=0"`
	Bedrooms  *int   `json:"bedrooms" binding:"omitempty,min=0,max=50"`
	Bathrooms *int   `json:"bathrooms" binding:"omitempty,min=0,max=50"`
	AreaSqft  *int   `json:"areaSqft" binding:"omitempty,min=0"`
	Location  string `json:"location" binding:"omitempty,max=200"`
}

func (h *Handler) Create(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	var req createPropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	prop, err := h.svc.Create(c.Request.Context(), id.UserID(), properties.CreateParams{
		Title:     req.Title,
		Status:    properties.Status(req.Status),
		OfferType: req.OfferType,
		Segment:   req.Segment,
		Subtype:   req.Subtype,
		Price:     req.Price,
		Bedrooms:  req.Bedrooms,
		Bathrooms: req.Bathrooms,
		AreaSqft:  req.AreaSqft,
		Location:  req.Location,
	})
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}

	httpkit.JSON(c, http.StatusCreated, prop)
}

func (h *Handler) Get(c *gin.Context) {
	propertyID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	prop, err := h.svc.Get(c.Request.Context(), propertyID)
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}

	httpkit.OK(c, prop)
}

func (h *Handler) List(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	filter := properties.ListFilter{
		AgentID:   id.UserID(),
		Status:    properties.Status(c.Query("status")),
		OfferType: c.Query("offerType"),
		Search:    c.Query("search"),
	}

	items, total, err := h.svc.List(c.Request.Context(), filter, queryInt(c, "page", 1), queryInt(c, "pageSize", 20))
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}

	httpkit.OK(c, gin.H{"items": items, "total": total})
}

type changeStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=available pending sold rented off_market in_development vacant"`
}

func (h *Handler) ChangeStatus(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	propertyID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req changeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	prop, err := h.svc.ChangeStatus(c.Request.Context(), id.UserID(), propertyID, properties.Status(req.Status))
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}

	httpkit.OK(c, prop)
}

type linkOwnerRequest struct {
	OwnerLeadID uuid.UUID `json:"ownerLeadId" binding:"required"`
}

func (h *Handler) LinkOwner(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	propertyID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req linkOwnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	prop, err := h.svc.LinkPropertyToOwner(c.Request.Context(), id.UserID(), propertyID, req.OwnerLeadID)
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}

	httpkit.OK(c, prop)
}

type linkInterestRequest struct {
	ContactID uuid.UUID `json:"contactId" binding:"required"`
	Role      string    `json:"role" binding:"required,oneof=buyer_interest tenant_interest"`
}

func (h *Handler) LinkInterest(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	propertyID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req linkInterestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	link, err := h.svc.LinkInterestedContact(c.Request.Context(), id.UserID(), propertyID, req.ContactID, req.Role)
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}

	httpkit.JSON(c, http.StatusCreated, link)
}

func (h *Handler) Links(c *gin.Context) {
	propertyID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	links, err := h.svc.Links(c.Request.Context(), propertyID)
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}

	httpkit.OK(c, gin.H{"items": links})
}

func (h *Handler) UploadDocument(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	propertyID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	prop, err := h.svc.Get(c.Request.Context(), propertyID)
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "file is required", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "could not read file", nil)
		return
	}
	defer file.Close()

	doc, err := h.docs.Upload(c.Request.Context(), id.UserID(), documents.UploadParams{
		PropertyID:  propertyID,
		AgentID:     prop.AgentID,
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Body:        file,
	})
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}

	httpkit.JSON(c, http.StatusCreated, doc)
}

func (h *Handler) ListDocuments(c *gin.Context) {
	propertyID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	docs, err := h.docs.List(c.Request.Context(), propertyID)
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}

	httpkit.OK(c, gin.H{"items": docs})
}

func (h *Handler) DocumentURL(c *gin.Context) {
	docID, ok := pathUUID(c, "docId")
	if !ok {
		return
	}

	url, err := h.docs.DownloadURL(c.Request.Context(), docID)
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}

	httpkit.OK(c, gin.H{"url": url})
}

func (h *Handler) DeleteDocument(c *gin.Context) {
	docID, ok := pathUUID(c, "docId")
	if !ok {
		return
	}

	if err := h.docs.Delete(c.Request.Context(), docID); err != nil {
		httpkit.DomainError(c, err)
		return
	}

	httpkit.OK(c, gin.H{"status": "ok"})
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid "+name, nil)
		return uuid.Nil, false
	}
	return id, true
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
