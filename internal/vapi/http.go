package vapi

import (
	"crypto/subtle"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/OperationSweep/lynqai-voice-solutions/pkg/logger"
)

// maxWebhookBody caps the inbound payload; end-of-call reports with full
// transcripts run tens of KB, never megabytes.
const maxWebhookBody = 1 << 20

const headerWebhookSecret = "x-vapi-secret"

// WebhookHandler terminates the provider's webhook HTTP surface and hands
// bodies to the ingestion pipeline.
type WebhookHandler struct {
	ingestor *Ingestor

	// secret is compared against x-vapi-secret when non-empty.
	secret string
}

func NewWebhookHandler(ingestor *Ingestor, secret string) *WebhookHandler {
	return &WebhookHandler{ingestor: ingestor, secret: secret}
}

// Handle is the POST /webhooks/vapi endpoint.
//
// Status codes steer the provider's retry behavior: 2xx acknowledges
// (including ignored types and duplicates), 4xx marks the delivery
// permanently failed, 5xx invites a retry.
func (h *WebhookHandler) Handle(c *gin.Context) {
	log := logger.FromGin(c)

	if h.secret != "" {
		got := c.GetHeader(headerWebhookSecret)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
			log.Info("webhook rejected: bad secret")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "unauthorized"})
			return
		}
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"success": false, "error": "unreadable body"})
		return
	}

	res, err := h.ingestor.Ingest(c.Request.Context(), body)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			log.Error("webhook ingestion failed", "err", err)
		} else {
			log.Info("webhook ingestion rejected", "status", status, "err", err)
		}
		c.AbortWithStatusJSON(status, gin.H{"success": false, "error": err.Error()})
		return
	}

	out := gin.H{"success": true}
	if res.CallLogID != "" {
		out["callLogId"] = res.CallLogID
	}
	if res.Ignored {
		out["ignored"] = true
	}
	if res.Duplicate {
		out["duplicate"] = true
	}
	c.JSON(http.StatusOK, out)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrMalformedPayload):
		return http.StatusBadRequest
	case errors.Is(err, ErrAgentNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
