package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yukikurage/project-management-api/internal/constants"
	"github.com/yukikurage/project-management-api/internal/dto"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/events"
	"github.com/yukikurage/project-management-api/internal/services"
)

const maxWebhookBody = 1 << 20

// IdentityEventTypes reports which provider events are synced.
type IdentityEventTypes interface {
	Supports(eventType string) bool
}

// WebhookHandler accepts identity provider events and queues them as jobs.
type WebhookHandler struct {
	secret    []byte
	types     IdentityEventTypes
	dedup     events.Deduplicator
	publisher events.Publisher
	log       *logrus.Logger
}

func NewWebhookHandler(secret string, types IdentityEventTypes, dedup events.Deduplicator, publisher events.Publisher, log *logrus.Logger) *WebhookHandler {
	return &WebhookHandler{
		secret:    []byte(secret),
		types:     types,
		dedup:     dedup,
		publisher: publisher,
		log:       log,
	}
}

// Sign returns the hex HMAC-SHA256 of body, as expected in the signature header.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (h *WebhookHandler) validSignature(body []byte, signature string) bool {
	if len(h.secret) == 0 || signature == "" {
		return false
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	want, _ := hex.DecodeString(Sign(h.secret, body))
	return hmac.Equal(got, want)
}

// IdentityEvent verifies, de-duplicates and queues one provider event.
func (h *WebhookHandler) IdentityEvent(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if !h.validSignature(body, c.GetHeader(constants.HeaderWebhookSignature)) {
		apierrors.InvalidSignature(c)
		return
	}

	var event dto.IdentityEvent
	if err := json.Unmarshal(body, &event); err != nil || event.Type == "" || len(event.Data) == 0 {
		apierrors.BadRequest(c, "Invalid event")
		return
	}

	entry := h.log.WithField("event_type", event.Type)
	if !h.types.Supports(event.Type) {
		entry.Debug("Ignoring unsupported identity event")
		c.JSON(http.StatusAccepted, gin.H{"message": "Event ignored"})
		return
	}

	ctx := c.Request.Context()
	deliveryID := c.GetHeader(constants.HeaderWebhookID)
	if deliveryID != "" {
		first, err := h.dedup.FirstSeen(ctx, deliveryID)
		if err != nil {
			// The job table dedup key still catches redeliveries.
			entry.WithError(err).Warn("Webhook de-duplication unavailable")
		} else if !first {
			c.JSON(http.StatusAccepted, gin.H{"message": "Duplicate delivery"})
			return
		}
	}

	ev := events.Event{
		Name:    services.IdentityJobName(event.Type),
		Payload: event.Data,
	}
	if deliveryID != "" {
		ev.DedupKey = "webhook:" + deliveryID
	}
	if err := h.publisher.Publish(ctx, ev); err != nil {
		if deliveryID != "" {
			h.forget(deliveryID, entry)
		}
		_ = c.Error(err)
		apierrors.InternalError(c)
		return
	}

	entry.WithField("delivery_id", deliveryID).Info("Queued identity event")
	c.JSON(http.StatusAccepted, gin.H{"message": "Event accepted"})
}

func (h *WebhookHandler) forget(deliveryID string, entry *logrus.Entry) {
	if err := h.dedup.Forget(context.Background(), deliveryID); err != nil {
		entry.WithError(err).Warn("Failed to release webhook delivery id")
	}
}
