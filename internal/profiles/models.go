package profiles

import (
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("profile not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrEmailTaken      = errors.New("email already registered")
	ErrBadCredentials  = errors.New("invalid email or password")
)

// SubscriptionTier is the purchased plan; it maps to a Stripe price and an
// included-minutes entitlement in billing.Catalog.
type SubscriptionTier string

const (
	TierStarter      SubscriptionTier = "starter"
	TierProfessional SubscriptionTier = "professional"
	TierGrowth       SubscriptionTier = "growth"
)

func ValidTier(t SubscriptionTier) bool {
	switch t {
	case TierStarter, TierProfessional, TierGrowth:
		return true
	default:
		return false
	}
}

// SubscriptionStatus tracks the payment-processor side of the subscription.
type SubscriptionStatus string

const (
	StatusActive   SubscriptionStatus = "active"
	StatusInactive SubscriptionStatus = "inactive"
	StatusPastDue  SubscriptionStatus = "past_due"
	StatusCanceled SubscriptionStatus = "canceled"
)

// Profile is the tenant account record. ID doubles as the tenant key on
// agents, call_logs and usage_tracking.
type Profile struct {
	ID    string `json:"id" db:"id"`
	Email string `json:"email" db:"email"`

	FullName        string `json:"full_name,omitempty" db:"full_name"`
	BusinessName    string `json:"business_name,omitempty" db:"business_name"`
	BusinessPhone   string `json:"business_phone,omitempty" db:"business_phone"`
	BusinessAddress string `json:"business_address,omitempty" db:"business_address"`
	Phone           string `json:"phone,omitempty" db:"phone"`

	// PasswordHash is bcrypt; never serialized.
	PasswordHash string `json:"-" db:"password_hash"`

	Role string `json:"role" db:"role"`

	OnboardingCompleted bool `json:"onboarding_completed" db:"onboarding_completed"`
	OnboardingStep      int  `json:"onboarding_step" db:"onboarding_step"`

	StripeCustomerID   string             `json:"stripe_customer_id,omitempty" db:"stripe_customer_id"`
	SubscriptionID     string             `json:"subscription_id,omitempty" db:"subscription_id"`
	SubscriptionTier   SubscriptionTier   `json:"subscription_tier,omitempty" db:"subscription_tier"`
	SubscriptionStatus SubscriptionStatus `json:"subscription_status,omitempty" db:"subscription_status"`

	// Entitlements; denormalized from the tier so usage repricing needs no
	// catalog lookup inside the transaction.
	IncludedMinutes  int `json:"included_minutes" db:"included_minutes"`
	OverageRateCents int `json:"overage_rate_cents" db:"overage_rate_cents"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// SubscriptionUpdate carries the billing webhook's writes. Nil fields are
// left untouched.
type SubscriptionUpdate struct {
	StripeCustomerID   *string
	SubscriptionID     *string
	SubscriptionTier   *SubscriptionTier
	SubscriptionStatus *SubscriptionStatus
	IncludedMinutes    *int
	OverageRateCents   *int
}
