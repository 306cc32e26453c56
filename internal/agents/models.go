package agents

import "time"

// Agent is a tenant's configured AI receptionist. One row per tenant in this
// flow: provisioning upserts by user_id rather than inserting a second agent.
//
// VapiAssistantID and PhoneNumber are the two lookup keys webhook ingestion
// uses to resolve the owning tenant.
type Agent struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`

	AgentName string   `json:"agent_name" db:"agent_name"`
	Vertical  Vertical `json:"vertical" db:"vertical"`

	GreetingMessage   string `json:"greeting_message,omitempty" db:"greeting_message"`
	AfterHoursMessage string `json:"after_hours_message,omitempty" db:"after_hours_message"`

	VapiAssistantID string `json:"vapi_assistant_id,omitempty" db:"vapi_assistant_id"`
	PhoneNumber     string `json:"phone_number,omitempty" db:"phone_number"`

	IsActive bool `json:"is_active" db:"is_active"`

	Timezone     string `json:"timezone,omitempty" db:"timezone"`
	OpenTime     string `json:"open_time,omitempty" db:"open_time"`
	CloseTime    string `json:"close_time,omitempty" db:"close_time"`
	OpenWeekends bool   `json:"open_weekends" db:"open_weekends"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Vertical selects the assistant template used at provisioning time.
type Vertical string

const (
	VerticalRealEstate Vertical = "real_estate"
	VerticalBeauty     Vertical = "beauty_aesthetics"
	VerticalDental     Vertical = "dental"
)

func ValidVertical(v Vertical) bool {
	switch v {
	case VerticalRealEstate, VerticalBeauty, VerticalDental:
		return true
	default:
		return false
	}
}

// ConfigUpdate carries dashboard-editable agent settings. Nil fields are
// left untouched.
type ConfigUpdate struct {
	AgentName         *string
	GreetingMessage   *string
	AfterHoursMessage *string
	IsActive          *bool
	Timezone          *string
	OpenTime          *string
	CloseTime         *string
	OpenWeekends      *bool
}
