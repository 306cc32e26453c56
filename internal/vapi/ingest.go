package vapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OperationSweep/lynqai-voice-solutions/internal/agents"
	"github.com/OperationSweep/lynqai-voice-solutions/internal/calllog"
	"github.com/OperationSweep/lynqai-voice-solutions/pkg/logger"
)

// Error taxonomy for the ingestion pipeline. The webhook responder maps these
// onto HTTP classes so the provider's retry logic can tell permanent failures
// (agent not found) from transient ones (persistence).
var (
	ErrMalformedPayload    = errors.New("malformed webhook payload")
	ErrAgentNotFound       = errors.New("agent not found")
	ErrPersistenceFailure  = errors.New("call log persistence failed")
	ErrUpstreamUnavailable = errors.New("agent lookup unavailable")
)

// CallLogRecorder persists a normalized call record and applies the usage
// roll-up atomically. duplicate=true signals an already-recorded provider
// call id (webhook redelivery) and must be treated as success.
type CallLogRecorder interface {
	RecordCall(ctx context.Context, rec calllog.CallLog) (id string, duplicate bool, err error)
}

// DeliveryGuard short-circuits redelivered events before the database sees
// them. Best effort: a guard miss only costs a no-op insert.
//
// Release must undo a FirstDelivery claim when the insert fails, so the
// provider's retry of the same event is not mistaken for a duplicate.
type DeliveryGuard interface {
	FirstDelivery(ctx context.Context, callID string) (bool, error)
	Release(ctx context.Context, callID string)
}

// EventSink receives successfully recorded call logs for realtime fan-out
// to dashboard subscribers. Failures are logged, never surfaced.
type EventSink interface {
	CallLogCreated(ctx context.Context, rec calllog.CallLog) error
}

// Ingestor is the webhook ingestion pipeline: type filter, tenant resolution,
// outcome classification, normalized insert. Stateless; one invocation per
// inbound request, no coordination between concurrent invocations.
type Ingestor struct {
	directory agents.Directory
	recorder  CallLogRecorder

	// guard and sink are optional.
	guard DeliveryGuard
	sink  EventSink
}

func NewIngestor(directory agents.Directory, recorder CallLogRecorder, guard DeliveryGuard, sink EventSink) *Ingestor {
	return &Ingestor{directory: directory, recorder: recorder, guard: guard, sink: sink}
}

// Result reports what ingestion did with an event.
type Result struct {
	// Accepted is true for every non-error outcome, including ignored event
	// types and duplicate deliveries.
	Accepted bool `json:"accepted"`

	// CallLogID is set when a record exists for the call (new or duplicate).
	CallLogID string `json:"call_log_id,omitempty"`

	// Ignored is true when the event type is not an end-of-call report.
	Ignored bool `json:"ignored,omitempty"`

	// Duplicate is true when the provider redelivered a call we already hold.
	Duplicate bool `json:"duplicate,omitempty"`
}

// Ingest processes one raw webhook body.
func (in *Ingestor) Ingest(ctx context.Context, body []byte) (Result, error) {
	log := logger.From(ctx)

	ev, err := ParseWebhookEvent(body)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	// Acknowledge-and-ignore non-terminal event types so the provider does
	// not retry them forever. Runs before the call payload is decoded: an
	// ignored event is ignored whatever shape its call object is in.
	if ev.Type != EventTypeEndOfCallReport {
		log.Debug("ignoring webhook event", "type", ev.Type)
		return Result{Accepted: true, Ignored: true}, nil
	}

	call, err := ev.DecodeCall()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if call.ID == "" {
		return Result{}, fmt.Errorf("%w: call id missing", ErrMalformedPayload)
	}
	callStart, err := parseTimestamp(call.StartedAt)
	if err != nil {
		return Result{}, fmt.Errorf("%w: startedAt: %v", ErrMalformedPayload, err)
	}
	var callEnd *time.Time
	if call.EndedAt != "" {
		t, err := parseTimestamp(call.EndedAt)
		if err != nil {
			return Result{}, fmt.Errorf("%w: endedAt: %v", ErrMalformedPayload, err)
		}
		callEnd = &t
	}

	if in.guard != nil {
		first, err := in.guard.FirstDelivery(ctx, call.ID)
		if err != nil {
			// Guard outage must not block ingestion; the store constraint
			// still dedupes.
			log.Error("delivery guard unavailable", "err", err)
		} else if !first {
			log.Info("duplicate webhook delivery short-circuited", "vapi_call_id", call.ID)
			return Result{Accepted: true, Duplicate: true}, nil
		}
	}

	agent, err := in.resolveAgent(ctx, call)
	if err != nil {
		return Result{}, err
	}

	outcome := calllog.ClassifyOutcome(call.SuccessEvaluation())

	duration := call.Duration
	if duration < 0 {
		duration = 0
	}

	rec := calllog.CallLog{
		UserID:          agent.UserID,
		AgentID:         agent.ID,
		VapiCallID:      call.ID,
		CallStart:       callStart,
		CallEnd:         callEnd,
		DurationSeconds: duration,
		Outcome:         outcome,
		Transcript:      call.Transcript,
		RecordingURL:    call.RecordingURL,
		Summary:         call.Summary,
		ExtractedData:   call.StructuredData(),
	}
	if call.Customer != nil {
		rec.CallerName = call.Customer.Name
		rec.CallerPhone = call.Customer.Number
	}

	id, duplicate, err := in.recorder.RecordCall(ctx, rec)
	if err != nil {
		if in.guard != nil {
			in.guard.Release(ctx, call.ID)
		}
		return Result{}, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}

	if duplicate {
		log.Info("duplicate call log delivery", "vapi_call_id", call.ID, "call_log_id", id)
		return Result{Accepted: true, CallLogID: id, Duplicate: true}, nil
	}

	log.Info("call log created",
		"call_log_id", id,
		"user_id", agent.UserID,
		"agent_id", agent.ID,
		"outcome", string(outcome),
		"duration_seconds", duration,
	)

	if in.sink != nil {
		rec.ID = id
		if err := in.sink.CallLogCreated(ctx, rec); err != nil {
			log.Error("realtime publish failed", "call_log_id", id, "err", err)
		}
	}

	return Result{Accepted: true, CallLogID: id}, nil
}

// resolveAgent maps the event to its owning tenant. Fallback chain: assistant
// id first, then the dialed number; short-circuits on the first hit.
func (in *Ingestor) resolveAgent(ctx context.Context, call WebhookCall) (agents.Agent, error) {
	if call.AssistantID != "" {
		agent, ok, err := in.directory.FindByAssistantID(ctx, call.AssistantID)
		if err != nil {
			return agents.Agent{}, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
		}
		if ok {
			return agent, nil
		}
	}

	if number := call.DialedNumber(); number != "" {
		agent, ok, err := in.directory.FindByPhoneNumber(ctx, number)
		if err != nil {
			return agents.Agent{}, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
		}
		if ok {
			return agent, nil
		}
	}

	return agents.Agent{}, fmt.Errorf("%w: assistant %q, number %q",
		ErrAgentNotFound, call.AssistantID, call.DialedNumber())
}
