package agents

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// MemoryDirectory is an in-memory agent store for tests. Lookup call counts
// are recorded so tests can assert the resolution fallback order.
type MemoryDirectory struct {
	mu     sync.Mutex
	agents []Agent

	FindByAssistantIDCalls int
	FindByPhoneNumberCalls int
}

func NewMemoryDirectory(seed ...Agent) *MemoryDirectory {
	return &MemoryDirectory{agents: seed}
}

func (m *MemoryDirectory) FindByAssistantID(ctx context.Context, assistantID string) (Agent, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FindByAssistantIDCalls++
	if assistantID == "" {
		return Agent{}, false, nil
	}
	for _, a := range m.agents {
		if a.VapiAssistantID == assistantID {
			return a, true, nil
		}
	}
	return Agent{}, false, nil
}

func (m *MemoryDirectory) FindByPhoneNumber(ctx context.Context, number string) (Agent, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FindByPhoneNumberCalls++
	if number == "" {
		return Agent{}, false, nil
	}
	for _, a := range m.agents {
		if a.PhoneNumber == number {
			return a, true, nil
		}
	}
	return Agent{}, false, nil
}

func (m *MemoryDirectory) GetByUser(ctx context.Context, userID string) (Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.agents {
		if a.UserID == userID {
			return a, nil
		}
	}
	return Agent{}, ErrNotFound
}

func (m *MemoryDirectory) Upsert(ctx context.Context, a Agent) (Agent, error) {
	if a.UserID == "" {
		return Agent{}, ErrInvalidArgument
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a.UpdatedAt = time.Now().UTC()
	for i, existing := range m.agents {
		if existing.UserID == a.UserID {
			a.ID = existing.ID
			a.CreatedAt = existing.CreatedAt
			m.agents[i] = a
			return a, nil
		}
	}
	if a.ID == "" {
		a.ID = "agent-" + strconv.Itoa(len(m.agents)+1)
	}
	a.CreatedAt = a.UpdatedAt
	m.agents = append(m.agents, a)
	return a, nil
}
