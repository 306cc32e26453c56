package realtime

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/OperationSweep/lynqai-voice-solutions/pkg/logger"
	"github.com/OperationSweep/lynqai-voice-solutions/pkg/utils"
)

const (
	deliveryKeyPrefix = "webhook:vapi:call:"

	// defaultDeliveryTTL outlives the provider's redelivery window. Expiry
	// only costs a no-op insert against the uniqueness constraint.
	defaultDeliveryTTL = 24 * time.Hour
)

// DeliveryGuard dedupes webhook redeliveries in Redis before they reach the
// database. Advisory only; the call-log store's uniqueness constraint remains
// the source of truth.
type DeliveryGuard struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewDeliveryGuard(rdb *redis.Client) *DeliveryGuard {
	return &DeliveryGuard{rdb: rdb, ttl: defaultDeliveryTTL}
}

func (g *DeliveryGuard) FirstDelivery(ctx context.Context, callID string) (bool, error) {
	return utils.MarkFirstSeen(ctx, g.rdb, deliveryKeyPrefix+callID, g.ttl)
}

// Release drops the claim so a retried delivery after a failed insert is not
// mistaken for a duplicate. Best effort: on Redis failure the key expires on
// its own and the retry falls through to the DB constraint.
func (g *DeliveryGuard) Release(ctx context.Context, callID string) {
	if err := g.rdb.Del(ctx, deliveryKeyPrefix+callID).Err(); err != nil {
		logger.From(ctx).Error("delivery guard release failed", "vapi_call_id", callID, "err", err)
	}
}
