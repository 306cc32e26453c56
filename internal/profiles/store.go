package profiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store is the Postgres-backed profile store.
type Store struct {
	db    *sql.DB
	clock func() time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, clock: time.Now}
}

const profileColumns = `
id, email, full_name, business_name, business_phone, business_address, phone,
password_hash, role,
onboarding_completed, onboarding_step,
stripe_customer_id, subscription_id, subscription_tier, subscription_status,
included_minutes, overage_rate_cents,
created_at, updated_at`

// Create registers a new tenant account. Email uniqueness is enforced by the
// database; a conflict surfaces as ErrEmailTaken.
func (s *Store) Create(ctx context.Context, p Profile) (Profile, error) {
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	if p.Email == "" || p.PasswordHash == "" {
		return Profile{}, fmt.Errorf("%w: email and password required", ErrInvalidArgument)
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Role == "" {
		p.Role = "owner"
	}
	now := s.clock().UTC()

	const q = `
INSERT INTO profiles (
	id, email, full_name, business_name, business_phone, business_address, phone,
	password_hash, role,
	onboarding_completed, onboarding_step,
	included_minutes, overage_rate_cents,
	created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
ON CONFLICT (email) DO NOTHING
RETURNING ` + profileColumns

	row := s.db.QueryRowContext(ctx, q,
		p.ID, p.Email, nullString(p.FullName), nullString(p.BusinessName),
		nullString(p.BusinessPhone), nullString(p.BusinessAddress), nullString(p.Phone),
		p.PasswordHash, p.Role,
		p.OnboardingCompleted, p.OnboardingStep,
		p.IncludedMinutes, p.OverageRateCents,
		now,
	)
	out, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, ErrEmailTaken
	}
	return out, err
}

func (s *Store) GetByID(ctx context.Context, id string) (Profile, error) {
	if id == "" {
		return Profile{}, ErrInvalidArgument
	}
	q := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`
	return s.getOne(ctx, q, id)
}

func (s *Store) GetByEmail(ctx context.Context, email string) (Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return Profile{}, ErrInvalidArgument
	}
	q := `SELECT ` + profileColumns + ` FROM profiles WHERE email = $1`
	return s.getOne(ctx, q, email)
}

// GetByStripeCustomer resolves the tenant from the payment processor's
// customer id; used by the billing webhook.
func (s *Store) GetByStripeCustomer(ctx context.Context, customerID string) (Profile, error) {
	if customerID == "" {
		return Profile{}, ErrInvalidArgument
	}
	q := `SELECT ` + profileColumns + ` FROM profiles WHERE stripe_customer_id = $1`
	return s.getOne(ctx, q, customerID)
}

// VerifyCredentials checks email+password for login. Both unknown email and
// wrong password collapse to ErrBadCredentials.
func (s *Store) VerifyCredentials(ctx context.Context, email, password string) (Profile, error) {
	p, err := s.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return Profile{}, ErrBadCredentials
	}
	if err != nil {
		return Profile{}, err
	}
	if !CheckPassword(p.PasswordHash, password) {
		return Profile{}, ErrBadCredentials
	}
	return p, nil
}

// MarkOnboardingComplete advances the account past setup after provisioning.
func (s *Store) MarkOnboardingComplete(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrInvalidArgument
	}
	const q = `
UPDATE profiles
SET onboarding_completed = TRUE, onboarding_step = 3, updated_at = $2
WHERE id = $1`
	res, err := s.db.ExecContext(ctx, q, userID, s.clock().UTC())
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ApplySubscriptionUpdate mutates the payment-processor-owned fields.
func (s *Store) ApplySubscriptionUpdate(ctx context.Context, userID string, upd SubscriptionUpdate) (Profile, error) {
	if userID == "" {
		return Profile{}, ErrInvalidArgument
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
	if upd.StripeCustomerID != nil {
		add("stripe_customer_id", nullString(*upd.StripeCustomerID))
	}
	if upd.SubscriptionID != nil {
		add("subscription_id", nullString(*upd.SubscriptionID))
	}
	if upd.SubscriptionTier != nil {
		add("subscription_tier", nullString(string(*upd.SubscriptionTier)))
	}
	if upd.SubscriptionStatus != nil {
		add("subscription_status", nullString(string(*upd.SubscriptionStatus)))
	}
	if upd.IncludedMinutes != nil {
		add("included_minutes", *upd.IncludedMinutes)
	}
	if upd.OverageRateCents != nil {
		add("overage_rate_cents", *upd.OverageRateCents)
	}
	if set == "" {
		return s.GetByID(ctx, userID)
	}
	add("updated_at", s.clock().UTC())

	q := `UPDATE profiles SET ` + set + ` WHERE id = $1 RETURNING ` + profileColumns
	p, err := scanProfile(s.db.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	return p, err
}

// List returns all profiles, newest first; admin surface.
func (s *Store) List(ctx context.Context, limit int) ([]Profile, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := `SELECT ` + profileColumns + ` FROM profiles ORDER BY created_at DESC LIMIT $1`
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) getOne(ctx context.Context, q string, arg any) (Profile, error) {
	p, err := scanProfile(s.db.QueryRowContext(ctx, q, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	return p, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(r rowScanner) (Profile, error) {
	var p Profile
	var fullName, bizName, bizPhone, bizAddr, phone sql.NullString
	var custID, subID, tier, status sql.NullString

	err := r.Scan(
		&p.ID, &p.Email, &fullName, &bizName, &bizPhone, &bizAddr, &phone,
		&p.PasswordHash, &p.Role,
		&p.OnboardingCompleted, &p.OnboardingStep,
		&custID, &subID, &tier, &status,
		&p.IncludedMinutes, &p.OverageRateCents,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return Profile{}, err
	}
	p.FullName = fullName.String
	p.BusinessName = bizName.String
	p.BusinessPhone = bizPhone.String
	p.BusinessAddress = bizAddr.String
	p.Phone = phone.String
	p.StripeCustomerID = custID.String
	p.SubscriptionID = subID.String
	p.SubscriptionTier = SubscriptionTier(tier.String)
	p.SubscriptionStatus = SubscriptionStatus(status.String)
	return p, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
