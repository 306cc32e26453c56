package billing

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/OperationSweep/lynqai-voice-solutions/pkg/logger"
)

const maxWebhookBody = 1 << 20

const headerStripeSignature = "Stripe-Signature"

// WebhookHandler terminates the payment processor's webhook HTTP surface.
type WebhookHandler struct {
	processor *WebhookProcessor
}

func NewWebhookHandler(processor *WebhookProcessor) *WebhookHandler {
	return &WebhookHandler{processor: processor}
}

// Handle is the POST /webhooks/stripe endpoint. Bad signatures are 400 so
// the processor stops redelivering them; transient failures are 500 so it
// retries.
func (h *WebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	err = h.processor.Process(c.Request.Context(), body, c.GetHeader(headerStripeSignature))
	if err != nil {
		log := logger.FromGin(c)
		if errors.Is(err, ErrBadSignature) {
			log.Info("billing webhook rejected", "err", err)
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
			return
		}
		log.Error("billing webhook processing failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
