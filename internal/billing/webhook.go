package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/OperationSweep/lynqai-voice-solutions/internal/profiles"
	"github.com/OperationSweep/lynqai-voice-solutions/pkg/logger"
)

var ErrBadSignature = errors.New("webhook signature verification failed")

// WebhookProcessor applies the payment processor's subscription lifecycle
// events to profile state. Unknown event types and unknown prices are
// acknowledged and skipped; redeliveries are harmless because every handler
// writes absolute state, not increments.
type WebhookProcessor struct {
	catalog  Catalog
	store    ProfileStore
	resolver SubscriptionResolver

	// secret enables signature verification; empty means parse-only
	// (local/test environments).
	secret string
}

func NewWebhookProcessor(catalog Catalog, store ProfileStore, resolver SubscriptionResolver, secret string) *WebhookProcessor {
	return &WebhookProcessor{catalog: catalog, store: store, resolver: resolver, secret: secret}
}

// Process verifies and dispatches one webhook delivery.
func (p *WebhookProcessor) Process(ctx context.Context, payload []byte, sigHeader string) error {
	var event stripe.Event
	if p.secret != "" {
		ev, err := webhook.ConstructEvent(payload, sigHeader, p.secret)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrBadSignature, err)
		}
		event = ev
	} else if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}

	log := logger.From(ctx)
	log.Info("billing event received", "type", string(event.Type), "event_id", event.ID)

	switch string(event.Type) {
	case "checkout.session.completed":
		return p.handleCheckoutCompleted(ctx, event)
	case "invoice.paid":
		return p.setStatusByCustomer(ctx, event, profiles.StatusActive)
	case "invoice.payment_failed":
		return p.setStatusByCustomer(ctx, event, profiles.StatusPastDue)
	case "customer.subscription.updated":
		return p.handleSubscriptionUpdated(ctx, event)
	case "customer.subscription.deleted":
		return p.handleSubscriptionDeleted(ctx, event)
	default:
		log.Debug("unhandled billing event type", "type", string(event.Type))
		return nil
	}
}

// Raw-payload views of the event objects; only the fields we act on.

type checkoutSessionData struct {
	ID                string `json:"id"`
	Mode              string `json:"mode"`
	Customer          string `json:"customer"`
	Subscription      string `json:"subscription"`
	ClientReferenceID string `json:"client_reference_id"`
}

type invoiceData struct {
	Customer string `json:"customer"`
}

type subscriptionData struct {
	ID       string `json:"id"`
	Customer string `json:"customer"`
	Status   string `json:"status"`
	Items    struct {
		Data []struct {
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

func (p *WebhookProcessor) handleCheckoutCompleted(ctx context.Context, event stripe.Event) error {
	log := logger.From(ctx)

	var sess checkoutSessionData
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return fmt.Errorf("decode checkout session: %w", err)
	}
	if sess.Mode != "subscription" {
		log.Debug("non-subscription checkout, skipping", "session_id", sess.ID)
		return nil
	}
	if sess.ClientReferenceID == "" {
		log.Error("checkout session missing client_reference_id", "session_id", sess.ID)
		return nil
	}

	priceID, _, err := p.resolver.ResolveSubscription(ctx, sess.Subscription)
	if err != nil {
		return fmt.Errorf("resolve subscription %s: %w", sess.Subscription, err)
	}
	plan, ok := p.catalog.ByPriceID(priceID)
	if !ok {
		log.Error("unknown price on subscription", "price_id", priceID, "subscription_id", sess.Subscription)
		return nil
	}

	status := profiles.StatusActive
	overage := p.catalog.OverageRateCents()
	_, err = p.store.ApplySubscriptionUpdate(ctx, sess.ClientReferenceID, profiles.SubscriptionUpdate{
		StripeCustomerID:   &sess.Customer,
		SubscriptionID:     &sess.Subscription,
		SubscriptionTier:   &plan.Tier,
		SubscriptionStatus: &status,
		IncludedMinutes:    &plan.IncludedMinutes,
		OverageRateCents:   &overage,
	})
	if err != nil {
		return fmt.Errorf("activate subscription for %s: %w", sess.ClientReferenceID, err)
	}
	log.Info("subscription activated",
		"user_id", sess.ClientReferenceID, "tier", string(plan.Tier), "subscription_id", sess.Subscription)
	return nil
}

func (p *WebhookProcessor) setStatusByCustomer(ctx context.Context, event stripe.Event, status profiles.SubscriptionStatus) error {
	var inv invoiceData
	if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
		return fmt.Errorf("decode invoice: %w", err)
	}
	profile, err := p.store.GetByStripeCustomer(ctx, inv.Customer)
	if errors.Is(err, profiles.ErrNotFound) {
		logger.From(ctx).Error("invoice for unknown customer", "customer_id", inv.Customer)
		return nil
	}
	if err != nil {
		return err
	}
	_, err = p.store.ApplySubscriptionUpdate(ctx, profile.ID, profiles.SubscriptionUpdate{
		SubscriptionStatus: &status,
	})
	return err
}

func (p *WebhookProcessor) handleSubscriptionUpdated(ctx context.Context, event stripe.Event) error {
	log := logger.From(ctx)

	var sub subscriptionData
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("decode subscription: %w", err)
	}
	profile, err := p.store.GetByStripeCustomer(ctx, sub.Customer)
	if errors.Is(err, profiles.ErrNotFound) {
		log.Error("subscription update for unknown customer", "customer_id", sub.Customer)
		return nil
	}
	if err != nil {
		return err
	}

	priceID := ""
	if len(sub.Items.Data) > 0 {
		priceID = sub.Items.Data[0].Price.ID
	}
	plan, ok := p.catalog.ByPriceID(priceID)
	if !ok {
		log.Error("subscription update with unknown price", "price_id", priceID, "customer_id", sub.Customer)
		return nil
	}

	status := mapSubscriptionStatus(sub.Status)
	_, err = p.store.ApplySubscriptionUpdate(ctx, profile.ID, profiles.SubscriptionUpdate{
		SubscriptionTier:   &plan.Tier,
		SubscriptionStatus: &status,
		IncludedMinutes:    &plan.IncludedMinutes,
	})
	if err != nil {
		return fmt.Errorf("apply subscription update for %s: %w", profile.ID, err)
	}
	log.Info("subscription updated", "user_id", profile.ID, "tier", string(plan.Tier), "status", string(status))
	return nil
}

func (p *WebhookProcessor) handleSubscriptionDeleted(ctx context.Context, event stripe.Event) error {
	var sub subscriptionData
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("decode subscription: %w", err)
	}
	profile, err := p.store.GetByStripeCustomer(ctx, sub.Customer)
	if errors.Is(err, profiles.ErrNotFound) {
		logger.From(ctx).Error("subscription delete for unknown customer", "customer_id", sub.Customer)
		return nil
	}
	if err != nil {
		return err
	}

	status := profiles.StatusCanceled
	emptySub := ""
	_, err = p.store.ApplySubscriptionUpdate(ctx, profile.ID, profiles.SubscriptionUpdate{
		SubscriptionID:     &emptySub,
		SubscriptionStatus: &status,
	})
	if err != nil {
		return fmt.Errorf("cancel subscription for %s: %w", profile.ID, err)
	}
	logger.From(ctx).Info("subscription canceled", "user_id", profile.ID)
	return nil
}

// mapSubscriptionStatus folds the processor's status vocabulary into ours.
func mapSubscriptionStatus(s string) profiles.SubscriptionStatus {
	switch s {
	case "past_due", "unpaid":
		return profiles.StatusPastDue
	case "canceled":
		return profiles.StatusCanceled
	default:
		return profiles.StatusActive
	}
}
