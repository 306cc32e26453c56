package agents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("agent not found")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Directory is the read side consumed by webhook ingestion: resolve the
// owning tenant from either of the two provider-visible keys. Each lookup
// returns at most one agent.
type Directory interface {
	FindByAssistantID(ctx context.Context, assistantID string) (Agent, bool, error)
	FindByPhoneNumber(ctx context.Context, number string) (Agent, bool, error)
}

// Store is the Postgres-backed agent store.
type Store struct {
	db    *sql.DB
	clock func() time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, clock: time.Now}
}

const agentColumns = `
id, user_id, agent_name, vertical,
greeting_message, after_hours_message,
vapi_assistant_id, phone_number, is_active,
timezone, open_time, close_time, open_weekends,
created_at, updated_at`

func (s *Store) FindByAssistantID(ctx context.Context, assistantID string) (Agent, bool, error) {
	if assistantID == "" {
		return Agent{}, false, nil
	}
	q := `SELECT ` + agentColumns + ` FROM agents WHERE vapi_assistant_id = $1 LIMIT 1`
	return s.findOne(ctx, q, assistantID)
}

func (s *Store) FindByPhoneNumber(ctx context.Context, number string) (Agent, bool, error) {
	if number == "" {
		return Agent{}, false, nil
	}
	q := `SELECT ` + agentColumns + ` FROM agents WHERE phone_number = $1 LIMIT 1`
	return s.findOne(ctx, q, number)
}

// GetByUser returns the tenant's agent, if provisioned.
func (s *Store) GetByUser(ctx context.Context, userID string) (Agent, error) {
	if userID == "" {
		return Agent{}, ErrInvalidArgument
	}
	q := `SELECT ` + agentColumns + ` FROM agents WHERE user_id = $1 LIMIT 1`
	a, ok, err := s.findOne(ctx, q, userID)
	if err != nil {
		return Agent{}, err
	}
	if !ok {
		return Agent{}, ErrNotFound
	}
	return a, nil
}

// Upsert creates or replaces the tenant's agent row. Provisioning is
// re-runnable: a second onboarding pass overwrites assistant id and number.
func (s *Store) Upsert(ctx context.Context, a Agent) (Agent, error) {
	if a.UserID == "" {
		return Agent{}, ErrInvalidArgument
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := s.clock().UTC()

	const q = `
INSERT INTO agents (
	id, user_id, agent_name, vertical,
	greeting_message, after_hours_message,
	vapi_assistant_id, phone_number, is_active,
	timezone, open_time, close_time, open_weekends,
	created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
ON CONFLICT (user_id) DO UPDATE SET
	agent_name = EXCLUDED.agent_name,
	vertical = EXCLUDED.vertical,
	greeting_message = EXCLUDED.greeting_message,
	after_hours_message = EXCLUDED.after_hours_message,
	vapi_assistant_id = EXCLUDED.vapi_assistant_id,
	phone_number = EXCLUDED.phone_number,
	is_active = EXCLUDED.is_active,
	timezone = EXCLUDED.timezone,
	open_time = EXCLUDED.open_time,
	close_time = EXCLUDED.close_time,
	open_weekends = EXCLUDED.open_weekends,
	updated_at = EXCLUDED.updated_at
RETURNING ` + agentColumns

	row := s.db.QueryRowContext(ctx, q,
		a.ID, a.UserID, a.AgentName, string(a.Vertical),
		nullString(a.GreetingMessage), nullString(a.AfterHoursMessage),
		nullString(a.VapiAssistantID), nullString(a.PhoneNumber), a.IsActive,
		nullString(a.Timezone), nullString(a.OpenTime), nullString(a.CloseTime), a.OpenWeekends,
		now,
	)
	return scanAgent(row)
}

// ApplyConfigUpdate mutates dashboard-editable settings.
func (s *Store) ApplyConfigUpdate(ctx context.Context, userID string, upd ConfigUpdate) (Agent, error) {
	if userID == "" {
		return Agent{}, ErrInvalidArgument
	}

	set := ""
	args := []any{userID}
	n := 2
	add := func(col string, v any) {
		if set != "" {
			set += ", "
		}
		set += fmt.Sprintf("%s = $%d", col, n)
		args = append(args, v)
		n++
	}
	if upd.AgentName != nil {
		add("agent_name", *upd.AgentName)
	}
	if upd.GreetingMessage != nil {
		add("greeting_message", nullString(*upd.GreetingMessage))
	}
	if upd.AfterHoursMessage != nil {
		add("after_hours_message", nullString(*upd.AfterHoursMessage))
	}
	if upd.IsActive != nil {
		add("is_active", *upd.IsActive)
	}
	if upd.Timezone != nil {
		add("timezone", nullString(*upd.Timezone))
	}
	if upd.OpenTime != nil {
		add("open_time", nullString(*upd.OpenTime))
	}
	if upd.CloseTime != nil {
		add("close_time", nullString(*upd.CloseTime))
	}
	if upd.OpenWeekends != nil {
		add("open_weekends", *upd.OpenWeekends)
	}
	if set == "" {
		return s.GetByUser(ctx, userID)
	}
	add("updated_at", s.clock().UTC())

	q := `UPDATE agents SET ` + set + ` WHERE user_id = $1 RETURNING ` + agentColumns
	a, err := scanAgent(s.db.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Agent{}, ErrNotFound
	}
	return a, err
}

func (s *Store) findOne(ctx context.Context, q string, arg any) (Agent, bool, error) {
	a, err := scanAgent(s.db.QueryRowContext(ctx, q, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return Agent{}, false, nil
	}
	if err != nil {
		return Agent{}, false, err
	}
	return a, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(r rowScanner) (Agent, error) {
	var a Agent
	var greeting, afterHours, assistantID, phone, tz, openT, closeT sql.NullString
	var vertical string

	err := r.Scan(
		&a.ID, &a.UserID, &a.AgentName, &vertical,
		&greeting, &afterHours,
		&assistantID, &phone, &a.IsActive,
		&tz, &openT, &closeT, &a.OpenWeekends,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return Agent{}, err
	}
	a.Vertical = Vertical(vertical)
	a.GreetingMessage = greeting.String
	a.AfterHoursMessage = afterHours.String
	a.VapiAssistantID = assistantID.String
	a.PhoneNumber = phone.String
	a.Timezone = tz.String
	a.OpenTime = openT.String
	a.CloseTime = closeT.String
	return a, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
