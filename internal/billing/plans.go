package billing

import (
	"fmt"

	"github.com/OperationSweep/lynqai-voice-solutions/internal/config"
	"github.com/OperationSweep/lynqai-voice-solutions/internal/profiles"
)

// Plan binds a subscription tier to its payment-processor price and the
// entitlements it buys.
type Plan struct {
	Tier              profiles.SubscriptionTier `json:"tier"`
	PriceID           string                    `json:"price_id"`
	MonthlyPriceCents int64                     `json:"monthly_price_cents"`
	IncludedMinutes   int                       `json:"included_minutes"`
}

// Catalog is the closed plan list. Price IDs come from config; the tier
// ladder and entitlements are product constants.
type Catalog struct {
	plans            []Plan
	overageRateCents int
}

func NewCatalog(cfg config.StripeConfig) Catalog {
	return Catalog{
		plans: []Plan{
			{Tier: profiles.TierStarter, PriceID: cfg.StarterPriceID, MonthlyPriceCents: 9700, IncludedMinutes: 200},
			{Tier: profiles.TierProfessional, PriceID: cfg.ProfessionalPriceID, MonthlyPriceCents: 29700, IncludedMinutes: 600},
			{Tier: profiles.TierGrowth, PriceID: cfg.GrowthPriceID, MonthlyPriceCents: 59700, IncludedMinutes: 1500},
		},
		overageRateCents: cfg.OverageRateCents,
	}
}

func (c Catalog) Plans() []Plan { return c.plans }

func (c Catalog) OverageRateCents() int { return c.overageRateCents }

func (c Catalog) ByTier(tier profiles.SubscriptionTier) (Plan, error) {
	for _, p := range c.plans {
		if p.Tier == tier {
			return p, nil
		}
	}
	return Plan{}, fmt.Errorf("unknown tier %q", tier)
}

// ByPriceID maps a processor price back to its plan; used by the webhook to
// recover the tier from a subscription.
func (c Catalog) ByPriceID(priceID string) (Plan, bool) {
	if priceID == "" {
		return Plan{}, false
	}
	for _, p := range c.plans {
		if p.PriceID == priceID {
			return p, true
		}
	}
	return Plan{}, false
}
