package usage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidStats = errors.New("usage: invalid call stats")

// Aggregator maintains the per-period usage roll-up.
//
// The roll-up is applied inside the same transaction as the call-log insert
// (see calllog.Store), so a call is either fully recorded — log row plus
// usage delta — or not at all.
type Aggregator struct {
	db    *sql.DB
	clock func() time.Time
}

func NewAggregator(db *sql.DB) *Aggregator {
	return &Aggregator{db: db, clock: time.Now}
}

// PeriodBounds returns the calendar-month billing period containing at (UTC)
// as a half-open interval: start is the first instant of the month, end the
// first instant of the next. Roll-up rows key on start; end is stored so the
// row states the interval it covers.
func PeriodBounds(at time.Time) (start, end time.Time) {
	at = at.UTC()
	start = time.Date(at.Year(), at.Month(), 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 1, 0)
	return start, end
}

// BillableMinutes rounds call duration up to whole minutes.
// Zero-duration calls still count as calls but bill no minutes.
func BillableMinutes(seconds int) int {
	if seconds <= 0 {
		return 0
	}
	return (seconds + 59) / 60
}

// OverageSplit distributes total minutes into included vs overage given the
// plan entitlement, and prices the overage.
func OverageSplit(totalMinutes, includedMinutes int, rateCents int64) (used, overage int, chargesCents int64) {
	if includedMinutes < 0 {
		includedMinutes = 0
	}
	used = totalMinutes
	if used > includedMinutes {
		used = includedMinutes
	}
	overage = totalMinutes - includedMinutes
	if overage < 0 {
		overage = 0
	}
	chargesCents = int64(overage) * rateCents
	return used, overage, chargesCents
}

// ApplyTx folds one call into the tenant's current-period roll-up.
// Must be called inside the transaction that inserted the call log.
func (a *Aggregator) ApplyTx(ctx context.Context, tx *sql.Tx, stats CallStats) error {
	if stats.UserID == "" {
		return ErrInvalidStats
	}

	at := stats.OccurredAt
	if at.IsZero() {
		at = a.clock().UTC()
	}
	start, end := PeriodBounds(at)
	minutes := BillableMinutes(stats.DurationSeconds)

	appt := 0
	if stats.AppointmentBooked {
		appt = 1
	}
	lead := 0
	if stats.LeadQualified {
		lead = 1
	}

	now := a.clock().UTC()

	const upsert = `
INSERT INTO usage_tracking (
	id, user_id, billing_period_start, billing_period_end,
	total_calls, total_minutes, included_minutes_used, overage_minutes,
	overage_charges_cents, appointments_booked, leads_qualified,
	created_at, updated_at
) VALUES ($1, $2, $3, $4, 1, $5, 0, 0, 0, $6, $7, $8, $8)
ON CONFLICT (user_id, billing_period_start) DO UPDATE SET
	total_calls = usage_tracking.total_calls + 1,
	total_minutes = usage_tracking.total_minutes + EXCLUDED.total_minutes,
	appointments_booked = usage_tracking.appointments_booked + EXCLUDED.appointments_booked,
	leads_qualified = usage_tracking.leads_qualified + EXCLUDED.leads_qualified,
	updated_at = EXCLUDED.updated_at
`
	if _, err := tx.ExecContext(ctx, upsert,
		uuid.NewString(), stats.UserID, start, end,
		minutes, appt, lead, now,
	); err != nil {
		return err
	}

	// Plan entitlements come from the profile; tenants without an active
	// subscription have zero included minutes and accrue overage immediately.
	var included int
	var rateCents int64
	const entitlements = `
SELECT COALESCE(included_minutes, 0), COALESCE(overage_rate_cents, 0)
FROM profiles
WHERE id = $1
`
	if err := tx.QueryRowContext(ctx, entitlements, stats.UserID).Scan(&included, &rateCents); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			included, rateCents = 0, 0
		} else {
			return err
		}
	}

	const reprice = `
UPDATE usage_tracking SET
	included_minutes_used = LEAST(total_minutes, $3),
	overage_minutes = GREATEST(total_minutes - $3, 0),
	overage_charges_cents = GREATEST(total_minutes - $3, 0) * $4
WHERE user_id = $1 AND billing_period_start = $2
`
	_, err := tx.ExecContext(ctx, reprice, stats.UserID, start, included, rateCents)
	return err
}

// Current returns the tenant's roll-up for the period containing at.
// Missing row yields a zero-valued summary, not an error.
func (a *Aggregator) Current(ctx context.Context, userID string, at time.Time) (Summary, error) {
	if userID == "" {
		return Summary{}, ErrInvalidStats
	}
	if at.IsZero() {
		at = a.clock().UTC()
	}
	start, end := PeriodBounds(at)

	const q = `
SELECT id, user_id, billing_period_start, billing_period_end,
	total_calls, total_minutes, included_minutes_used, overage_minutes,
	overage_charges_cents, appointments_booked, leads_qualified,
	created_at, updated_at
FROM usage_tracking
WHERE user_id = $1 AND billing_period_start = $2
`
	var s Summary
	err := a.db.QueryRowContext(ctx, q, userID, start).Scan(
		&s.ID,
		&s.UserID,
		&s.BillingPeriodStart,
		&s.BillingPeriodEnd,
		&s.TotalCalls,
		&s.TotalMinutes,
		&s.IncludedMinutesUsed,
		&s.OverageMinutes,
		&s.OverageChargesCents,
		&s.AppointmentsBooked,
		&s.LeadsQualified,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Summary{UserID: userID, BillingPeriodStart: start, BillingPeriodEnd: end}, nil
	}
	if err != nil {
		return Summary{}, err
	}
	return s, nil
}
