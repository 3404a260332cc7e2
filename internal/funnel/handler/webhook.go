package handler

import (
	"errors"
	"net/http"
	"time"

	"despacho_backend/internal/funnel"
	"despacho_backend/internal/funnel/transport"
	"despacho_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// RegisterWebhookRoutes mounts the unauthenticated gateway-facing route.
// The caller is expected to wrap the group with a rate limiter.
func (h *Handler) RegisterWebhookRoutes(rg *gin.RouterGroup) {
	rg.POST("/whatsapp", h.WebhookMessage)
}

// WebhookMessage receives an inbound chat message from the WhatsApp
// gateway. Unknown senders are registered into the entry stage first, so
// a cold inbound message starts a funnel of its own.
func (h *Handler) WebhookMessage(c *gin.Context) {
	var req transport.WebhookMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	now := time.Now()
	view, found := h.engine.FindByPhone(req.Phone)
	if !found {
		name := req.Name
		if name == "" {
			name = req.Phone
		}
		registered, err := h.engine.Register(c.Request.Context(), name, req.Phone, now)
		if err != nil {
			// Lost the race with a concurrent webhook for the same sender.
			if errors.Is(err, funnel.ErrDuplicatePhone) {
				registered, found = h.engine.FindByPhone(req.Phone)
				if !found {
					httpkit.HandleError(c, err)
					return
				}
			} else {
				httpkit.HandleError(c, err)
				return
			}
		}
		view = registered
	}

	intents, err := h.engine.OnInboundMessage(c.Request.Context(), view.ID, req.Text, now)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"contactId": view.ID, "queued": len(intents)})
}
