package billing

import (
	"context"
	"fmt"
	"testing"

	"github.com/OperationSweep/lynqai-voice-solutions/internal/config"
	"github.com/OperationSweep/lynqai-voice-solutions/internal/profiles"
)

func testCatalog() Catalog {
	return NewCatalog(config.StripeConfig{
		StarterPriceID:      "price_starter",
		ProfessionalPriceID: "price_professional",
		GrowthPriceID:       "price_growth",
		OverageRateCents:    35,
	})
}

type stubResolver struct {
	priceID string
	status  string
	err     error
}

func (s stubResolver) ResolveSubscription(ctx context.Context, subscriptionID string) (string, string, error) {
	return s.priceID, s.status, s.err
}

func seedProfile(t *testing.T, store *profiles.MemoryStore, customerID string) profiles.Profile {
	t.Helper()
	hash, err := profiles.HashPassword("hunter2hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	p, err := store.Create(context.Background(), profiles.Profile{
		Email:            "owner@example.com",
		PasswordHash:     hash,
		StripeCustomerID: customerID,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return p
}

func TestCheckoutCompletedActivatesSubscription(t *testing.T) {
	store := profiles.NewMemoryStore()
	p := seedProfile(t, store, "")
	proc := NewWebhookProcessor(testCatalog(), store, stubResolver{priceID: "price_professional", status: "active"}, "")

	payload := []byte(fmt.Sprintf(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_1",
			"mode": "subscription",
			"customer": "cus_123",
			"subscription": "sub_123",
			"client_reference_id": %q
		}}
	}`, p.ID))

	if err := proc.Process(context.Background(), payload, ""); err != nil {
		t.Fatalf("Process: %v", err)
	}

	got, err := store.GetByID(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.SubscriptionTier != profiles.TierProfessional {
		t.Fatalf("tier = %q, want professional", got.SubscriptionTier)
	}
	if got.SubscriptionStatus != profiles.StatusActive {
		t.Fatalf("status = %q, want active", got.SubscriptionStatus)
	}
	if got.StripeCustomerID != "cus_123" || got.SubscriptionID != "sub_123" {
		t.Fatalf("processor ids not persisted: %q / %q", got.StripeCustomerID, got.SubscriptionID)
	}
	if got.IncludedMinutes != 600 {
		t.Fatalf("included minutes = %d, want 600", got.IncludedMinutes)
	}
	if got.OverageRateCents != 35 {
		t.Fatalf("overage rate = %d, want 35", got.OverageRateCents)
	}
}

func TestCheckoutCompletedUnknownPriceIsSkipped(t *testing.T) {
	store := profiles.NewMemoryStore()
	p := seedProfile(t, store, "")
	proc := NewWebhookProcessor(testCatalog(), store, stubResolver{priceID: "price_mystery"}, "")

	payload := []byte(fmt.Sprintf(`{
		"type": "checkout.session.completed",
		"data": {"object": {
			"mode": "subscription",
			"customer": "cus_123",
			"subscription": "sub_123",
			"client_reference_id": %q
		}}
	}`, p.ID))

	if err := proc.Process(context.Background(), payload, ""); err != nil {
		t.Fatalf("Process: %v", err)
	}
	got, _ := store.GetByID(context.Background(), p.ID)
	if got.SubscriptionTier != "" {
		t.Fatalf("tier = %q, want unchanged", got.SubscriptionTier)
	}
}

func TestInvoiceEventsDriveStatus(t *testing.T) {
	store := profiles.NewMemoryStore()
	p := seedProfile(t, store, "cus_abc")
	proc := NewWebhookProcessor(testCatalog(), store, stubResolver{}, "")

	failed := []byte(`{"type": "invoice.payment_failed", "data": {"object": {"customer": "cus_abc"}}}`)
	if err := proc.Process(context.Background(), failed, ""); err != nil {
		t.Fatalf("Process(payment_failed): %v", err)
	}
	got, _ := store.GetByID(context.Background(), p.ID)
	if got.SubscriptionStatus != profiles.StatusPastDue {
		t.Fatalf("status = %q, want past_due", got.SubscriptionStatus)
	}

	paid := []byte(`{"type": "invoice.paid", "data": {"object": {"customer": "cus_abc"}}}`)
	if err := proc.Process(context.Background(), paid, ""); err != nil {
		t.Fatalf("Process(paid): %v", err)
	}
	got, _ = store.GetByID(context.Background(), p.ID)
	if got.SubscriptionStatus != profiles.StatusActive {
		t.Fatalf("status = %q, want active", got.SubscriptionStatus)
	}
}

func TestSubscriptionUpdatedChangesTier(t *testing.T) {
	store := profiles.NewMemoryStore()
	p := seedProfile(t, store, "cus_abc")
	proc := NewWebhookProcessor(testCatalog(), store, stubResolver{}, "")

	payload := []byte(`{
		"type": "customer.subscription.updated",
		"data": {"object": {
			"customer": "cus_abc",
			"status": "unpaid",
			"items": {"data": [{"price": {"id": "price_growth"}}]}
		}}
	}`)
	if err := proc.Process(context.Background(), payload, ""); err != nil {
		t.Fatalf("Process: %v", err)
	}
	got, _ := store.GetByID(context.Background(), p.ID)
	if got.SubscriptionTier != profiles.TierGrowth {
		t.Fatalf("tier = %q, want growth", got.SubscriptionTier)
	}
	if got.SubscriptionStatus != profiles.StatusPastDue {
		t.Fatalf("status = %q, want past_due (unpaid folds to past_due)", got.SubscriptionStatus)
	}
	if got.IncludedMinutes != 1500 {
		t.Fatalf("included minutes = %d, want 1500", got.IncludedMinutes)
	}
}

func TestSubscriptionDeletedCancels(t *testing.T) {
	store := profiles.NewMemoryStore()
	p := seedProfile(t, store, "cus_abc")
	sub := "sub_old"
	if _, err := store.ApplySubscriptionUpdate(context.Background(), p.ID, profiles.SubscriptionUpdate{SubscriptionID: &sub}); err != nil {
		t.Fatalf("seed subscription: %v", err)
	}
	proc := NewWebhookProcessor(testCatalog(), store, stubResolver{}, "")

	payload := []byte(`{"type": "customer.subscription.deleted", "data": {"object": {"customer": "cus_abc"}}}`)
	if err := proc.Process(context.Background(), payload, ""); err != nil {
		t.Fatalf("Process: %v", err)
	}
	got, _ := store.GetByID(context.Background(), p.ID)
	if got.SubscriptionStatus != profiles.StatusCanceled {
		t.Fatalf("status = %q, want canceled", got.SubscriptionStatus)
	}
	if got.SubscriptionID != "" {
		t.Fatalf("subscription id = %q, want cleared", got.SubscriptionID)
	}
}

func TestUnknownEventTypeIsAcknowledged(t *testing.T) {
	store := profiles.NewMemoryStore()
	proc := NewWebhookProcessor(testCatalog(), store, stubResolver{}, "")

	payload := []byte(`{"type": "charge.refunded", "data": {"object": {}}}`)
	if err := proc.Process(context.Background(), payload, ""); err != nil {
		t.Fatalf("Process: %v", err)
	}
}

func TestCatalogByPriceID(t *testing.T) {
	cat := testCatalog()
	plan, ok := cat.ByPriceID("price_starter")
	if !ok || plan.Tier != profiles.TierStarter || plan.IncludedMinutes != 200 {
		t.Fatalf("plan = %+v ok=%v", plan, ok)
	}
	if _, ok := cat.ByPriceID(""); ok {
		t.Fatal("empty price id must not resolve")
	}
}
