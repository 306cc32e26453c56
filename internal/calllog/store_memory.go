package calllog

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"
)

// MemoryStore is an in-memory call-log store for tests and early development.
// It mirrors Store's idempotency contract on vapi_call_id and enforces
// tenant isolation on reads.
type MemoryStore struct {
	mu   sync.Mutex
	rows []CallLog

	// RecordCalls counts RecordCall invocations (including duplicates).
	RecordCalls int

	// FailNext makes the next RecordCall fail with the given error.
	FailNext error
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) RecordCall(ctx context.Context, rec CallLog) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.RecordCalls++
	if err := m.FailNext; err != nil {
		m.FailNext = nil
		return "", false, err
	}

	if rec.UserID == "" || rec.AgentID == "" || rec.VapiCallID == "" || rec.CallStart.IsZero() {
		return "", false, ErrInvalidArgument
	}

	for _, existing := range m.rows {
		if existing.VapiCallID == rec.VapiCallID {
			return existing.ID, true, nil
		}
	}

	if rec.ID == "" {
		rec.ID = "log-" + strconv.Itoa(len(m.rows)+1)
	}
	if rec.ExtractedData == nil {
		rec.ExtractedData = map[string]any{}
	}
	rec.CreatedAt = time.Now().UTC()
	m.rows = append(m.rows, rec)
	return rec.ID, false, nil
}

func (m *MemoryStore) List(ctx context.Context, userID string, f ListFilter) ([]CallLog, error) {
	if userID == "" {
		return nil, ErrInvalidArgument
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]CallLog, 0)
	for _, r := range m.rows {
		if r.UserID != userID {
			continue
		}
		if f.Outcome != "" && r.Outcome != f.Outcome {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *MemoryStore) Get(ctx context.Context, userID, id string) (CallLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.UserID == userID && r.ID == id {
			return r, nil
		}
	}
	return CallLog{}, ErrNotFound
}

func (m *MemoryStore) ApplyUpdate(ctx context.Context, userID, id string, upd Update) (CallLog, error) {
	if upd.Outcome != nil && !ValidOutcome(*upd.Outcome) {
		return CallLog{}, ErrInvalidArgument
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.rows {
		if r.UserID != userID || r.ID != id {
			continue
		}
		if upd.IsRead != nil {
			r.IsRead = *upd.IsRead
		}
		if upd.IsStarred != nil {
			r.IsStarred = *upd.IsStarred
		}
		if upd.Outcome != nil {
			r.Outcome = *upd.Outcome
		}
		if upd.OutcomeNotes != nil {
			r.OutcomeNotes = *upd.OutcomeNotes
		}
		m.rows[i] = r
		return r, nil
	}
	return CallLog{}, ErrNotFound
}

// All returns a copy of every stored row; test helper.
func (m *MemoryStore) All() []CallLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CallLog, len(m.rows))
	copy(out, m.rows)
	return out
}
