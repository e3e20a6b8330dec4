package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/softwareparlat/main/internal/http/middleware"
	"github.com/softwareparlat/main/internal/modules/mercadopago"
	"github.com/softwareparlat/main/internal/modules/payments"
)

const maxWebhookBody = 64 << 10

// WebhookSecretSource yields the current signing secret; empty disables verification.
type WebhookSecretSource interface {
	WebhookSecret(ctx context.Context) string
}

type WebhookHandler struct {
	Logger     *slog.Logger
	Reconciler *payments.Reconciler
	Events     *payments.EventLog
	Secrets    WebhookSecretSource

	// max drift of the signed ts; <= 0 accepts any age
	SignatureTolerance time.Duration
	Now                func() time.Time
}

func NewWebhookHandler(logger *slog.Logger, rec *payments.Reconciler, events *payments.EventLog, secrets WebhookSecretSource) *WebhookHandler {
	return &WebhookHandler{
		Logger:             logger,
		Reconciler:         rec,
		Events:             events,
		Secrets:            secrets,
		SignatureTolerance: mercadopago.DefaultSignatureTolerance,
		Now:                time.Now,
	}
}

type notificationBody struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Data   struct {
		ID flexID `json:"id"`
	} `json:"data"`
}

// flexID accepts "123" and 123.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

// POST /api/webhooks/mercadopago
//
// 200 once applied or known irrelevant, 400 for malformed or badly signed
// deliveries, 503/500 when the provider should retry.
func (h *WebhookHandler) Handle(c *gin.Context) {
	received := time.Now()
	ctx := c.Request.Context()

	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	n, err := parseNotification(raw, c)
	if err != nil {
		h.Logger.WarnContext(ctx, "malformed webhook", "request_id", middleware.GetRequestID(c), "err", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed notification"})
		return
	}
	n.RequestID = c.GetHeader("X-Request-Id")

	if secret := h.Secrets.WebhookSecret(ctx); secret != "" {
		if err := mercadopago.VerifySignatureAt(secret, c.GetHeader("X-Signature"), n.RequestID, n.DataID, h.Now(), h.SignatureTolerance); err != nil {
			h.Logger.WarnContext(ctx, "webhook signature rejected", "data_id", n.DataID, "request_id", n.RequestID, "err", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
			return
		}
	}

	res, procErr := h.Reconciler.HandleNotification(ctx, n)

	if h.Events != nil {
		if err := h.Events.Record(ctx, h.Reconciler.ProviderName(), n, raw, res, procErr, received); err != nil {
			h.Logger.ErrorContext(ctx, "failed to record provider event", "data_id", n.DataID, "err", err)
		}
	}

	switch {
	case procErr == nil:
		c.JSON(http.StatusOK, gin.H{"received": true})
	case errors.Is(procErr, payments.ErrMalformedNotification):
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed notification"})
	case payments.IsRetryable(procErr):
		h.Logger.WarnContext(ctx, "webhook deferred", "data_id", n.DataID, "err", procErr)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable"})
	default:
		h.Logger.ErrorContext(ctx, "webhook apply failed", "data_id", n.DataID, "type", n.Type, "err", procErr)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
	}
}

// parseNotification reads the JSON body, falling back to the query-string
// forms ?type=payment&data.id=1 and the legacy ?topic=payment&id=1.
func parseNotification(raw []byte, c *gin.Context) (payments.Notification, error) {
	var body notificationBody
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &body); err != nil && c.Query("type") == "" && c.Query("topic") == "" {
			return payments.Notification{}, err
		}
	}

	n := payments.Notification{Type: strings.TrimSpace(body.Type), DataID: strings.TrimSpace(string(body.Data.ID))}
	if n.Type == "" {
		n.Type = strings.TrimSpace(c.Query("type"))
		n.DataID = strings.TrimSpace(c.Query("data.id"))
	}
	if n.Type == "" {
		n.Type = strings.TrimSpace(c.Query("topic"))
		n.DataID = strings.TrimSpace(c.Query("id"))
	}
	if n.DataID == "" && n.Type == payments.NotificationTypePayment {
		n.DataID = strings.TrimSpace(c.Query("data.id"))
	}
	return n, nil
}
