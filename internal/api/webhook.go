package api

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"

	"github.com/pageza/mealbyme/backend/internal/apperrors"
	"github.com/pageza/mealbyme/backend/internal/metrics"
	"github.com/pageza/mealbyme/backend/internal/service"
)

const webhookBodyLimit = 1024 * 1024 // 1 MiB

// EventHandler applies a verified billing event.
type EventHandler interface {
	Handle(ctx context.Context, event service.BillingEvent) error
}

// WebhookHandler receives billing provider events.
type WebhookHandler struct {
	secret     string
	reconciler EventHandler
	log        *zap.Logger
}

func NewWebhookHandler(secret string, reconciler EventHandler, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		secret:     secret,
		reconciler: reconciler,
		log:        log,
	}
}

func (h *WebhookHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/billing/webhook", h.Receive)
}

// Receive verifies the signature over the raw body and dispatches the
// event. Once dispatch is attempted the provider gets a 200, whatever the
// reconciliation outcome.
func (h *WebhookHandler) Receive(c *gin.Context) {
	start := time.Now()
	eventType := "unknown"
	status := http.StatusOK
	defer func() {
		metrics.WebhookRequestsTotal.WithLabelValues(eventType, strconv.Itoa(status)).Inc()
		metrics.WebhookDuration.WithLabelValues(eventType).Observe(time.Since(start).Seconds())
	}()

	if strings.TrimSpace(h.secret) == "" {
		status = http.StatusInternalServerError
		respondError(c, apperrors.Configuration([]string{"stripe_webhook_secret"}))
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, webhookBodyLimit)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		status = http.StatusBadRequest
		respondError(c, apperrors.Validation("Failed to read request body"))
		return
	}

	sigHeader := c.GetHeader("Stripe-Signature")
	if strings.TrimSpace(sigHeader) == "" {
		status = http.StatusBadRequest
		respondError(c, apperrors.Signature(nil))
		return
	}

	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, h.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		status = http.StatusBadRequest
		h.log.Warn("billing webhook signature rejected", zap.Error(err))
		respondError(c, apperrors.Signature(err))
		return
	}
	eventType = string(event.Type)

	var raw []byte
	if event.Data != nil {
		raw = event.Data.Raw
	}
	if err := h.reconciler.Handle(c.Request.Context(), service.BillingEvent{
		ID:   event.ID,
		Type: eventType,
		Raw:  raw,
	}); err != nil {
		h.log.Error("billing webhook processing failed",
			zap.String("event_id", event.ID),
			zap.String("type", eventType),
			zap.Error(err),
		)
	}

	c.JSON(http.StatusOK, gin.H{"received": true, "type": eventType})
}
