package vapi

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/OperationSweep/lynqai-voice-solutions/internal/calllog"
)

func postWebhook(t *testing.T, h *WebhookHandler, secret string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/webhooks/vapi", h.Handle)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/vapi", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set("x-vapi-secret", secret)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookHandlerStatusCodes(t *testing.T) {
	in := NewIngestor(seededDirectory(), calllog.NewMemoryStore(), nil, nil)
	h := NewWebhookHandler(in, "")

	ok := []byte(`{
		"type": "end-of-call-report",
		"call": {"id": "h1", "assistantId": "a1", "startedAt": "2024-01-15T10:00:00Z"}
	}`)
	if w := postWebhook(t, h, "", ok); w.Code != http.StatusOK {
		t.Fatalf("valid report status = %d, body %s", w.Code, w.Body.String())
	}

	ignored := []byte(`{"type": "status-update"}`)
	if w := postWebhook(t, h, "", ignored); w.Code != http.StatusOK {
		t.Fatalf("ignored type status = %d", w.Code)
	}

	malformed := []byte(`{nope`)
	if w := postWebhook(t, h, "", malformed); w.Code != http.StatusBadRequest {
		t.Fatalf("malformed status = %d", w.Code)
	}

	orphan := []byte(`{
		"type": "end-of-call-report",
		"call": {"id": "h2", "assistantId": "unknown", "startedAt": "2024-01-15T10:00:00Z"}
	}`)
	if w := postWebhook(t, h, "", orphan); w.Code != http.StatusNotFound {
		t.Fatalf("unknown agent status = %d", w.Code)
	}
}

func TestWebhookHandlerSecret(t *testing.T) {
	in := NewIngestor(seededDirectory(), calllog.NewMemoryStore(), nil, nil)
	h := NewWebhookHandler(in, "shared-secret")

	body := []byte(`{
		"type": "end-of-call-report",
		"call": {"id": "h3", "assistantId": "a1", "startedAt": "2024-01-15T10:00:00Z"}
	}`)

	if w := postWebhook(t, h, "", body); w.Code != http.StatusUnauthorized {
		t.Fatalf("missing secret status = %d, want 401", w.Code)
	}
	if w := postWebhook(t, h, "wrong", body); w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong secret status = %d, want 401", w.Code)
	}
	if w := postWebhook(t, h, "shared-secret", body); w.Code != http.StatusOK {
		t.Fatalf("correct secret status = %d, body %s", w.Code, w.Body.String())
	}
}

func TestWebhookHandlerTransientFailureIsRetryable(t *testing.T) {
	store := calllog.NewMemoryStore()
	store.FailNext = errors.New("db down")
	in := NewIngestor(seededDirectory(), store, nil, nil)
	h := NewWebhookHandler(in, "")

	body := []byte(`{
		"type": "end-of-call-report",
		"call": {"id": "h4", "assistantId": "a1", "startedAt": "2024-01-15T10:00:00Z"}
	}`)
	if w := postWebhook(t, h, "", body); w.Code != http.StatusInternalServerError {
		t.Fatalf("persistence failure status = %d, want 500", w.Code)
	}
	// The provider retries 5xx; the retry must now land.
	if w := postWebhook(t, h, "", body); w.Code != http.StatusOK {
		t.Fatalf("retry status = %d", w.Code)
	}
}
