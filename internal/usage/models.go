package usage

import "time"

// Summary is one tenant's usage roll-up for a single billing period
// (a calendar month). Mutated only by the ingestion path; the dashboard
// reads it to render the usage page and the overage banner.
type Summary struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`

	BillingPeriodStart time.Time `json:"billing_period_start" db:"billing_period_start"`
	BillingPeriodEnd   time.Time `json:"billing_period_end" db:"billing_period_end"`

	TotalCalls   int `json:"total_calls" db:"total_calls"`
	TotalMinutes int `json:"total_minutes" db:"total_minutes"`

	IncludedMinutesUsed int `json:"included_minutes_used" db:"included_minutes_used"`
	OverageMinutes      int `json:"overage_minutes" db:"overage_minutes"`

	// OverageChargesCents is in minor units (cents).
	OverageChargesCents int64 `json:"overage_charges_cents" db:"overage_charges_cents"`

	AppointmentsBooked int `json:"appointments_booked" db:"appointments_booked"`
	LeadsQualified     int `json:"leads_qualified" db:"leads_qualified"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CallStats is the per-call contribution applied to the roll-up.
type CallStats struct {
	UserID          string
	DurationSeconds int

	AppointmentBooked bool
	LeadQualified     bool

	OccurredAt time.Time
}
