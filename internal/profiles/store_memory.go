package profiles

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory profile store for tests.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[string]Profile
}

func NewMemoryStore(seed ...Profile) *MemoryStore {
	m := &MemoryStore{rows: map[string]Profile{}}
	for _, p := range seed {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		m.rows[p.ID] = p
	}
	return m
}

func (m *MemoryStore) Create(ctx context.Context, p Profile) (Profile, error) {
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	if p.Email == "" || p.PasswordHash == "" {
		return Profile{}, ErrInvalidArgument
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.rows {
		if existing.Email == p.Email {
			return Profile{}, ErrEmailTaken
		}
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Role == "" {
		p.Role = "owner"
	}
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	m.rows[p.ID] = p
	return p, nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id string) (Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

func (m *MemoryStore) GetByEmail(ctx context.Context, email string) (Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.rows {
		if p.Email == email {
			return p, nil
		}
	}
	return Profile{}, ErrNotFound
}

func (m *MemoryStore) GetByStripeCustomer(ctx context.Context, customerID string) (Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.rows {
		if p.StripeCustomerID == customerID && customerID != "" {
			return p, nil
		}
	}
	return Profile{}, ErrNotFound
}

func (m *MemoryStore) VerifyCredentials(ctx context.Context, email, password string) (Profile, error) {
	p, err := m.GetByEmail(ctx, email)
	if err != nil {
		return Profile{}, ErrBadCredentials
	}
	if !CheckPassword(p.PasswordHash, password) {
		return Profile{}, ErrBadCredentials
	}
	return p, nil
}

func (m *MemoryStore) MarkOnboardingComplete(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[userID]
	if !ok {
		return ErrNotFound
	}
	p.OnboardingCompleted = true
	p.OnboardingStep = 3
	p.UpdatedAt = time.Now().UTC()
	m.rows[userID] = p
	return nil
}

func (m *MemoryStore) ApplySubscriptionUpdate(ctx context.Context, userID string, upd SubscriptionUpdate) (Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[userID]
	if !ok {
		return Profile{}, ErrNotFound
	}
	if upd.StripeCustomerID != nil {
		p.StripeCustomerID = *upd.StripeCustomerID
	}
	if upd.SubscriptionID != nil {
		p.SubscriptionID = *upd.SubscriptionID
	}
	if upd.SubscriptionTier != nil {
		p.SubscriptionTier = *upd.SubscriptionTier
	}
	if upd.SubscriptionStatus != nil {
		p.SubscriptionStatus = *upd.SubscriptionStatus
	}
	if upd.IncludedMinutes != nil {
		p.IncludedMinutes = *upd.IncludedMinutes
	}
	if upd.OverageRateCents != nil {
		p.OverageRateCents = *upd.OverageRateCents
	}
	p.UpdatedAt = time.Now().UTC()
	m.rows[userID] = p
	return p, nil
}

func (m *MemoryStore) List(ctx context.Context, limit int) ([]Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Profile, 0, len(m.rows))
	for _, p := range m.rows {
		out = append(out, p)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
