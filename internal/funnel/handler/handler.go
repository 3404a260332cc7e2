package handler

import (
	"net/http"
	"strconv"
	"time"

	"despacho_backend/internal/funnel"
	"despacho_backend/internal/funnel/config"
	"despacho_backend/internal/funnel/transport"
	"despacho_backend/platform/httpkit"
	"despacho_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	engine *funnel.Engine
	val    *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

func New(engine *funnel.Engine, val *validator.Validator) *Handler {
	return &Handler{engine: engine, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	stages := rg.Group("/stages")
	stages.GET("", h.ListStages)
	stages.POST("", h.CreateStage)
	stages.GET("/:id", h.GetStage)
	stages.PUT("/:id", h.UpdateStage)
	stages.DELETE("/:id", h.DeleteStage)

	contacts := rg.Group("/contacts")
	contacts.GET("", h.ListContacts)
	contacts.POST("", h.RegisterContact)
	contacts.GET("/counts", h.Counts)
	contacts.GET("/:id", h.GetContact)
	contacts.POST("/:id/message", h.InboundMessage)
	contacts.PATCH("/:id/stage", h.OverrideStage)
	contacts.POST("/:id/documents", h.SubmitDocuments)
	contacts.PATCH("/:id/flags", h.SetFlag)
	contacts.PATCH("/:id/ai", h.SetAIEnabled)
	contacts.POST("/:id/read", h.MarkRead)
	contacts.POST("/:id/convert", h.Convert)
	contacts.POST("/:id/archive", h.Archive)
	contacts.GET("/:id/suggestion", h.Suggestion)
}

// ── Stage catalog ──

func (h *Handler) ListStages(c *gin.Context) {
	httpkit.OK(c, h.engine.Registry().List())
}

func (h *Handler) GetStage(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	stage, ok := h.engine.Registry().Get(id)
	if !ok {
		httpkit.HandleError(c, config.ErrStageNotFound)
		return
	}
	httpkit.OK(c, stage)
}

func (h *Handler) CreateStage(c *gin.Context) {
	var def config.StageDefinition
	if err := c.ShouldBindJSON(&def); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	id, err := h.engine.Registry().Add(def)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.Created(c, transport.StageIDResponse{ID: id})
}

func (h *Handler) UpdateStage(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var def config.StageDefinition
	if err := c.ShouldBindJSON(&def); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	if err := h.engine.Registry().Update(id, def); err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"message": "stage updated"})
}

func (h *Handler) DeleteStage(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	if err := h.engine.Registry().Remove(id); err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"message": "stage removed"})
}

// ── Contacts ──

func (h *Handler) RegisterContact(c *gin.Context) {
	var req transport.RegisterContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	view, err := h.engine.Register(c.Request.Context(), req.Name, req.Phone, time.Now())
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.Created(c, view)
}

func (h *Handler) ListContacts(c *gin.Context) {
	filter := funnel.Filter(c.DefaultQuery("filter", string(funnel.FilterAll)))
	httpkit.OK(c, h.engine.ListContacts(filter))
}

func (h *Handler) Counts(c *gin.Context) {
	counts := h.engine.Counts()
	out := make(map[string]int, len(counts))
	for f, n := range counts {
		out[string(f)] = n
	}
	httpkit.OK(c, transport.CountsResponse{Counts: out})
}

func (h *Handler) GetContact(c *gin.Context) {
	id, ok := h.contactID(c)
	if !ok {
		return
	}

	view, err := h.engine.Contact(id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, view)
}

func (h *Handler) InboundMessage(c *gin.Context) {
	id, ok := h.contactID(c)
	if !ok {
		return
	}

	var req transport.InboundMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	intents, err := h.engine.OnInboundMessage(c.Request.Context(), id, req.Text, time.Now())
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"queued": len(intents)})
}

func (h *Handler) OverrideStage(c *gin.Context) {
	id, ok := h.contactID(c)
	if !ok {
		return
	}

	var req transport.OverrideStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	if _, err := h.engine.OnManualOverride(c.Request.Context(), id, req.StageID, time.Now()); err != nil {
		httpkit.HandleError(c, err)
		return
	}

	view, err := h.engine.Contact(id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, view)
}

func (h *Handler) SubmitDocuments(c *gin.Context) {
	id, ok := h.contactID(c)
	if !ok {
		return
	}

	var req transport.SubmitDocumentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	if _, err := h.engine.OnDocumentsSubmitted(c.Request.Context(), id, *req.Validated, time.Now()); err != nil {
		httpkit.HandleError(c, err)
		return
	}

	view, err := h.engine.Contact(id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, view)
}

func (h *Handler) SetFlag(c *gin.Context) {
	id, ok := h.contactID(c)
	if !ok {
		return
	}

	var req transport.SetFlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	if err := h.engine.SetFlag(id, req.Flag, *req.Value); err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"message": "flag updated"})
}

func (h *Handler) SetAIEnabled(c *gin.Context) {
	id, ok := h.contactID(c)
	if !ok {
		return
	}

	var req transport.SetAIEnabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	if err := h.engine.SetAIEnabled(id, *req.Enabled); err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"message": "ai toggled"})
}

func (h *Handler) MarkRead(c *gin.Context) {
	id, ok := h.contactID(c)
	if !ok {
		return
	}

	if err := h.engine.MarkRead(id); err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"message": "marked read"})
}

func (h *Handler) Convert(c *gin.Context) {
	id, ok := h.contactID(c)
	if !ok {
		return
	}

	if err := h.engine.Convert(c.Request.Context(), id, time.Now()); err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"message": "contact converted"})
}

func (h *Handler) Archive(c *gin.Context) {
	id, ok := h.contactID(c)
	if !ok {
		return
	}

	if err := h.engine.Archive(c.Request.Context(), id, time.Now()); err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"message": "contact archived"})
}

func (h *Handler) Suggestion(c *gin.Context) {
	id, ok := h.contactID(c)
	if !ok {
		return
	}

	msg, err := h.engine.SuggestMessage(id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, transport.SuggestionResponse{Message: msg})
}

func (h *Handler) contactID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.Nil, false
	}
	return id, true
}
