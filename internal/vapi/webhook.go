package vapi

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventTypeEndOfCallReport is the only webhook subtype that carries complete
// call data. Everything else (status updates, transcripts in flight, speech
// interruptions) is acknowledged and dropped.
const EventTypeEndOfCallReport = "end-of-call-report"

// WebhookEvent is the envelope shared by every provider event type. The call
// payload stays raw until the type filter has run: in-flight events carry
// partial or oddly typed call objects, and those must never fail decoding.
type WebhookEvent struct {
	Type string          `json:"type"`
	Call json.RawMessage `json:"call"`
}

type WebhookCall struct {
	ID          string `json:"id"`
	AssistantID string `json:"assistantId,omitempty"`

	PhoneNumber *WebhookPhoneNumber `json:"phoneNumber,omitempty"`
	Customer    *WebhookCustomer    `json:"customer,omitempty"`

	StartedAt string `json:"startedAt"`
	EndedAt   string `json:"endedAt,omitempty"`

	// Duration is in seconds.
	Duration int `json:"duration,omitempty"`

	Transcript   string `json:"transcript,omitempty"`
	RecordingURL string `json:"recordingUrl,omitempty"`
	Summary      string `json:"summary,omitempty"`

	Analysis *WebhookAnalysis `json:"analysis,omitempty"`
}

type WebhookPhoneNumber struct {
	Number string `json:"number"`
}

type WebhookCustomer struct {
	Number string `json:"number,omitempty"`
	Name   string `json:"name,omitempty"`
}

type WebhookAnalysis struct {
	SuccessEvaluation string         `json:"successEvaluation,omitempty"`
	StructuredData    map[string]any `json:"structuredData,omitempty"`
}

// ParseWebhookEvent decodes the envelope of a raw webhook body.
func ParseWebhookEvent(body []byte) (WebhookEvent, error) {
	var ev WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return WebhookEvent{}, fmt.Errorf("decode webhook envelope: %w", err)
	}
	return ev, nil
}

// DecodeCall decodes the raw call payload. Only call this after the type
// filter has selected the event for processing. A missing call object decodes
// to the zero value; validation downstream rejects it on the empty id.
func (ev WebhookEvent) DecodeCall() (WebhookCall, error) {
	if len(ev.Call) == 0 {
		return WebhookCall{}, nil
	}
	var call WebhookCall
	if err := json.Unmarshal(ev.Call, &call); err != nil {
		return WebhookCall{}, fmt.Errorf("decode call payload: %w", err)
	}
	return call, nil
}

// DialedNumber returns the tenant-provisioned number the caller dialed, if present.
func (c WebhookCall) DialedNumber() string {
	if c.PhoneNumber == nil {
		return ""
	}
	return c.PhoneNumber.Number
}

// SuccessEvaluation returns the provider's free-text evaluation, if present.
func (c WebhookCall) SuccessEvaluation() string {
	if c.Analysis == nil {
		return ""
	}
	return c.Analysis.SuccessEvaluation
}

// StructuredData returns provider-extracted fields, never nil.
func (c WebhookCall) StructuredData() map[string]any {
	if c.Analysis == nil || c.Analysis.StructuredData == nil {
		return map[string]any{}
	}
	return c.Analysis.StructuredData
}

// parseTimestamp parses the provider's ISO 8601 timestamps to UTC.
func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
