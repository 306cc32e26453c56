package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	portalsession "github.com/stripe/stripe-go/v76/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/customer"
	"github.com/stripe/stripe-go/v76/subscription"

	"github.com/OperationSweep/lynqai-voice-solutions/internal/config"
	"github.com/OperationSweep/lynqai-voice-solutions/internal/profiles"
	"github.com/OperationSweep/lynqai-voice-solutions/pkg/logger"
)

var (
	ErrInvalidTier = errors.New("invalid subscription tier")
	ErrNoCustomer  = errors.New("no billing customer for account")
)

// ProfileStore is the slice of the profile store billing needs.
type ProfileStore interface {
	GetByID(ctx context.Context, id string) (profiles.Profile, error)
	GetByStripeCustomer(ctx context.Context, customerID string) (profiles.Profile, error)
	ApplySubscriptionUpdate(ctx context.Context, userID string, upd profiles.SubscriptionUpdate) (profiles.Profile, error)
}

// SubscriptionResolver fetches the price and status behind a subscription id.
// Split out so webhook processing is testable without processor calls.
type SubscriptionResolver interface {
	ResolveSubscription(ctx context.Context, subscriptionID string) (priceID, status string, err error)
}

// Service owns the payment-processor boundary: checkout, portal, and the
// customer create-or-reuse dance.
type Service struct {
	catalog Catalog
	store   ProfileStore
}

func NewService(cfg config.StripeConfig, store ProfileStore) *Service {
	// stripe-go uses a package-level key; set once at construction.
	stripe.Key = cfg.SecretKey
	return &Service{catalog: NewCatalog(cfg), store: store}
}

func (s *Service) Catalog() Catalog { return s.catalog }

// CheckoutSession is what the dashboard needs to redirect into checkout.
type CheckoutSession struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// CreateCheckoutSession starts a subscription checkout for the tier. The
// tenant's processor customer is created on first use and persisted so later
// webhook events resolve back to the account.
func (s *Service) CreateCheckoutSession(ctx context.Context, userID string, tier profiles.SubscriptionTier, successURL, cancelURL string) (CheckoutSession, error) {
	plan, err := s.catalog.ByTier(tier)
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("%w: %q", ErrInvalidTier, tier)
	}

	profile, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("load profile: %w", err)
	}

	customerID := profile.StripeCustomerID
	if customerID == "" {
		cust, err := customer.New(&stripe.CustomerParams{
			Params: stripe.Params{Context: ctx},
			Email:  stripe.String(profile.Email),
			Metadata: map[string]string{
				"user_id": userID,
			},
		})
		if err != nil {
			return CheckoutSession{}, fmt.Errorf("create customer: %w", err)
		}
		customerID = cust.ID
		if _, err := s.store.ApplySubscriptionUpdate(ctx, userID, profiles.SubscriptionUpdate{
			StripeCustomerID: &customerID,
		}); err != nil {
			return CheckoutSession{}, fmt.Errorf("persist customer id: %w", err)
		}
		logger.From(ctx).Info("billing customer created", "user_id", userID, "customer_id", customerID)
	}

	sess, err := checkoutsession.New(&stripe.CheckoutSessionParams{
		Params:            stripe.Params{Context: ctx},
		Customer:          stripe.String(customerID),
		ClientReferenceID: stripe.String(userID),
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(plan.PriceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				"user_id": userID,
				"tier":    string(tier),
			},
		},
	})
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("create checkout session: %w", err)
	}

	return CheckoutSession{SessionID: sess.ID, URL: sess.URL}, nil
}

// CreatePortalSession opens the processor's self-serve billing portal.
func (s *Service) CreatePortalSession(ctx context.Context, userID, returnURL string) (string, error) {
	profile, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load profile: %w", err)
	}
	if profile.StripeCustomerID == "" {
		return "", ErrNoCustomer
	}

	sess, err := portalsession.New(&stripe.BillingPortalSessionParams{
		Params:    stripe.Params{Context: ctx},
		Customer:  stripe.String(profile.StripeCustomerID),
		ReturnURL: stripe.String(returnURL),
	})
	if err != nil {
		return "", fmt.Errorf("create portal session: %w", err)
	}
	return sess.URL, nil
}

// ResolveSubscription implements SubscriptionResolver against the live API.
func (s *Service) ResolveSubscription(ctx context.Context, subscriptionID string) (string, string, error) {
	sub, err := subscription.Get(subscriptionID, &stripe.SubscriptionParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return "", "", fmt.Errorf("retrieve subscription: %w", err)
	}
	priceID := ""
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		priceID = sub.Items.Data[0].Price.ID
	}
	return priceID, string(sub.Status), nil
}
