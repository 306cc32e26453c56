package calllog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/OperationSweep/lynqai-voice-solutions/internal/usage"
	"github.com/OperationSweep/lynqai-voice-solutions/pkg/utils"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("call log not found")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Store is the Postgres-backed call-log store.
//
// Idempotency: call_logs carries UNIQUE (vapi_call_id). A redelivered webhook
// inserts nothing and RecordCall reports duplicate=true; the usage roll-up is
// applied only for first deliveries, inside the same transaction as the insert.
type Store struct {
	db    *sql.DB
	usage *usage.Aggregator
	clock func() time.Time
}

func NewStore(db *sql.DB, agg *usage.Aggregator) *Store {
	return &Store{db: db, usage: agg, clock: time.Now}
}

// RecordCall persists rec and folds it into the owner's usage roll-up in one
// transaction. Returns the stored row id; duplicate=true means the provider
// redelivered a call we already hold and nothing was written.
func (s *Store) RecordCall(ctx context.Context, rec CallLog) (string, bool, error) {
	if rec.UserID == "" || rec.AgentID == "" || rec.VapiCallID == "" {
		return "", false, ErrInvalidArgument
	}
	if rec.CallStart.IsZero() {
		return "", false, ErrInvalidArgument
	}
	if rec.ExtractedData == nil {
		rec.ExtractedData = map[string]any{}
	}

	extracted, err := json.Marshal(rec.ExtractedData)
	if err != nil {
		return "", false, fmt.Errorf("marshal extracted_data: %w", err)
	}

	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}
	now := s.clock().UTC()

	var outID string
	var duplicate bool

	err = utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		const q = `
INSERT INTO call_logs (
	id, user_id, agent_id, vapi_call_id,
	caller_name, caller_phone, caller_email,
	call_start, call_end, duration_seconds,
	outcome, outcome_notes, transcript, recording_url, summary,
	extracted_data, appointment_time, appointment_confirmed,
	is_read, is_starred, created_at
) VALUES (
	$1, $2, $3, $4,
	$5, $6, $7,
	$8, $9, $10,
	$11, $12, $13, $14, $15,
	$16, $17, $18,
	FALSE, FALSE, $19
)
ON CONFLICT (vapi_call_id) DO NOTHING
RETURNING id
`
		err := tx.QueryRowContext(ctx, q,
			id, rec.UserID, rec.AgentID, rec.VapiCallID,
			nullString(rec.CallerName), nullString(rec.CallerPhone), nullString(rec.CallerEmail),
			rec.CallStart.UTC(), nullTime(rec.CallEnd), rec.DurationSeconds,
			string(rec.Outcome), nullString(rec.OutcomeNotes), nullString(rec.Transcript),
			nullString(rec.RecordingURL), nullString(rec.Summary),
			extracted, nullTime(rec.AppointmentTime), rec.AppointmentConfirmed,
			now,
		).Scan(&outID)

		if errors.Is(err, sql.ErrNoRows) {
			// Conflict path: the row already exists from a prior delivery.
			duplicate = true
			const lookup = `SELECT id FROM call_logs WHERE vapi_call_id = $1`
			return tx.QueryRowContext(ctx, lookup, rec.VapiCallID).Scan(&outID)
		}
		if err != nil {
			return err
		}

		return s.usage.ApplyTx(ctx, tx, usage.CallStats{
			UserID:            rec.UserID,
			DurationSeconds:   rec.DurationSeconds,
			AppointmentBooked: rec.Outcome == OutcomeAppointmentBooked,
			LeadQualified:     rec.Outcome == OutcomeLeadQualified,
			OccurredAt:        rec.CallStart,
		})
	})
	if err != nil {
		return "", false, err
	}
	return outID, duplicate, nil
}

const callLogColumns = `
id, user_id, agent_id, vapi_call_id,
caller_name, caller_phone, caller_email,
call_start, call_end, duration_seconds,
outcome, outcome_notes, transcript, recording_url, summary,
extracted_data, appointment_time, appointment_confirmed,
is_read, is_starred, created_at`

// List returns the tenant's call logs, newest first.
func (s *Store) List(ctx context.Context, userID string, f ListFilter) ([]CallLog, error) {
	if userID == "" {
		return nil, ErrInvalidArgument
	}

	q := `SELECT ` + callLogColumns + ` FROM call_logs WHERE user_id = $1`
	args := []any{userID}
	if f.Outcome != "" {
		q += ` AND outcome = $2`
		args = append(args, string(f.Outcome))
	}
	q += ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		q += fmt.Sprintf(` LIMIT %d`, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]CallLog, 0)
	for rows.Next() {
		rec, err := scanCallLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Get returns one call log owned by userID.
func (s *Store) Get(ctx context.Context, userID, id string) (CallLog, error) {
	if userID == "" || id == "" {
		return CallLog{}, ErrInvalidArgument
	}
	q := `SELECT ` + callLogColumns + ` FROM call_logs WHERE user_id = $1 AND id = $2`
	rec, err := scanCallLog(s.db.QueryRowContext(ctx, q, userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return CallLog{}, ErrNotFound
	}
	return rec, err
}

// ApplyUpdate mutates dashboard-owned fields on a single record.
func (s *Store) ApplyUpdate(ctx context.Context, userID, id string, upd Update) (CallLog, error) {
	if userID == "" || id == "" {
		return CallLog{}, ErrInvalidArgument
	}
	if upd.Outcome != nil && !ValidOutcome(*upd.Outcome) {
		return CallLog{}, ErrInvalidArgument
	}

	set := ""
	args := []any{userID, id}
	n := 3
	add := func(col string, v any) {
		if set != "" {
			set += ", "
		}
		set += fmt.Sprintf("%s = $%d", col, n)
		args = append(args, v)
		n++
	}
	if upd.IsRead != nil {
		add("is_read", *upd.IsRead)
	}
	if upd.IsStarred != nil {
		add("is_starred", *upd.IsStarred)
	}
	if upd.Outcome != nil {
		add("outcome", string(*upd.Outcome))
	}
	if upd.OutcomeNotes != nil {
		add("outcome_notes", nullString(*upd.OutcomeNotes))
	}
	if set == "" {
		return s.Get(ctx, userID, id)
	}

	q := `UPDATE call_logs SET ` + set + ` WHERE user_id = $1 AND id = $2 RETURNING ` + callLogColumns
	rec, err := scanCallLog(s.db.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return CallLog{}, ErrNotFound
	}
	return rec, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCallLog(r rowScanner) (CallLog, error) {
	var rec CallLog
	var callerName, callerPhone, callerEmail sql.NullString
	var outcomeNotes, transcript, recordingURL, summary sql.NullString
	var callEnd, appointmentTime sql.NullTime
	var outcome string
	var extracted []byte

	err := r.Scan(
		&rec.ID, &rec.UserID, &rec.AgentID, &rec.VapiCallID,
		&callerName, &callerPhone, &callerEmail,
		&rec.CallStart, &callEnd, &rec.DurationSeconds,
		&outcome, &outcomeNotes, &transcript, &recordingURL, &summary,
		&extracted, &appointmentTime, &rec.AppointmentConfirmed,
		&rec.IsRead, &rec.IsStarred, &rec.CreatedAt,
	)
	if err != nil {
		return CallLog{}, err
	}

	rec.CallerName = callerName.String
	rec.CallerPhone = callerPhone.String
	rec.CallerEmail = callerEmail.String
	rec.OutcomeNotes = outcomeNotes.String
	rec.Transcript = transcript.String
	rec.RecordingURL = recordingURL.String
	rec.Summary = summary.String
	rec.Outcome = Outcome(outcome)
	if callEnd.Valid {
		t := callEnd.Time
		rec.CallEnd = &t
	}
	if appointmentTime.Valid {
		t := appointmentTime.Time
		rec.AppointmentTime = &t
	}
	rec.ExtractedData = map[string]any{}
	if len(extracted) > 0 {
		if err := json.Unmarshal(extracted, &rec.ExtractedData); err != nil {
			return CallLog{}, fmt.Errorf("unmarshal extracted_data: %w", err)
		}
	}
	return rec, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
