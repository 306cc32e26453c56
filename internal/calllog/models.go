package calllog

import "time"

// CallLog is the normalized, durable record of one completed call.
//
// Multi-tenant invariant: UserID (the owning account) is required on every row.
//
// Lifecycle: created exactly once by webhook ingestion; afterwards only the
// dashboard mutates it (read/star flags, manual outcome correction). Ingestion
// never updates an existing record.
type CallLog struct {
	ID      string `json:"id" db:"id"`
	UserID  string `json:"user_id" db:"user_id"`
	AgentID string `json:"agent_id" db:"agent_id"`

	// VapiCallID is the provider's unique call identifier and the
	// idempotency key for webhook redelivery.
	VapiCallID string `json:"vapi_call_id" db:"vapi_call_id"`

	CallerName  string `json:"caller_name,omitempty" db:"caller_name"`
	CallerPhone string `json:"caller_phone,omitempty" db:"caller_phone"`
	CallerEmail string `json:"caller_email,omitempty" db:"caller_email"`

	CallStart       time.Time  `json:"call_start" db:"call_start"`
	CallEnd         *time.Time `json:"call_end,omitempty" db:"call_end"`
	DurationSeconds int        `json:"duration_seconds" db:"duration_seconds"`

	Outcome      Outcome `json:"outcome" db:"outcome"`
	OutcomeNotes string  `json:"outcome_notes,omitempty" db:"outcome_notes"`

	Transcript   string `json:"transcript,omitempty" db:"transcript"`
	RecordingURL string `json:"recording_url,omitempty" db:"recording_url"`
	Summary      string `json:"summary,omitempty" db:"summary"`

	// ExtractedData is provider-extracted structured data (JSONB in Postgres).
	// Never nil on a persisted row; defaults to an empty object.
	ExtractedData map[string]any `json:"extracted_data" db:"extracted_data"`

	AppointmentTime      *time.Time `json:"appointment_time,omitempty" db:"appointment_time"`
	AppointmentConfirmed bool       `json:"appointment_confirmed" db:"appointment_confirmed"`

	// Engagement flags are owned by the dashboard; ingestion creates them false.
	IsRead    bool `json:"is_read" db:"is_read"`
	IsStarred bool `json:"is_starred" db:"is_starred"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Outcome classifies how a call concluded. Closed enumeration; drives the
// dashboard display and the usage roll-up.
//
// Webhook ingestion only ever produces the first four values plus "other".
// missed/voicemail/transferred are reserved for call paths that do not emit
// an end-of-call report; keep them for forward compatibility.
type Outcome string

const (
	OutcomeAppointmentBooked   Outcome = "appointment_booked"
	OutcomeLeadQualified       Outcome = "lead_qualified"
	OutcomeInformationProvided Outcome = "information_provided"
	OutcomeCallbackScheduled   Outcome = "callback_scheduled"
	OutcomeMissed              Outcome = "missed"
	OutcomeVoicemail           Outcome = "voicemail"
	OutcomeTransferred         Outcome = "transferred"
	OutcomeOther               Outcome = "other"
)

// ValidOutcome reports whether v is a member of the enumeration.
// Used to validate manual outcome corrections from the dashboard.
func ValidOutcome(v Outcome) bool {
	switch v {
	case OutcomeAppointmentBooked, OutcomeLeadQualified, OutcomeInformationProvided,
		OutcomeCallbackScheduled, OutcomeMissed, OutcomeVoicemail, OutcomeTransferred, OutcomeOther:
		return true
	default:
		return false
	}
}

// ListFilter narrows dashboard call-log queries. Zero value lists everything
// for the user, newest first.
type ListFilter struct {
	Outcome Outcome
	Limit   int
}

// Update carries dashboard-owned mutations. Nil fields are left untouched.
type Update struct {
	IsRead       *bool
	IsStarred    *bool
	Outcome      *Outcome
	OutcomeNotes *string
}
