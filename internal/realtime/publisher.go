package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/OperationSweep/lynqai-voice-solutions/internal/calllog"
)

// Event is the envelope pushed to dashboard subscribers over Redis pub/sub.
type Event struct {
	Kind       string           `json:"kind"`
	OccurredAt time.Time        `json:"occurred_at"`
	CallLog    *calllog.CallLog `json:"call_log,omitempty"`
}

const KindCallLogCreated = "call_log.created"

// ChannelFor returns the per-tenant pub/sub channel name.
func ChannelFor(userID string) string {
	return "realtime:call_logs:" + userID
}

// Publisher fans out freshly recorded call logs to the owning tenant's
// channel. Delivery is fire-and-forget; a dashboard that misses an event
// reconciles on its next list fetch.
type Publisher struct {
	rdb   *redis.Client
	clock func() time.Time
}

func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb, clock: time.Now}
}

func (p *Publisher) CallLogCreated(ctx context.Context, rec calllog.CallLog) error {
	if rec.UserID == "" {
		return fmt.Errorf("call log missing user id")
	}
	payload, err := json.Marshal(Event{
		Kind:       KindCallLogCreated,
		OccurredAt: p.clock().UTC(),
		CallLog:    &rec,
	})
	if err != nil {
		return fmt.Errorf("encode realtime event: %w", err)
	}
	if err := p.rdb.Publish(ctx, ChannelFor(rec.UserID), payload).Err(); err != nil {
		return fmt.Errorf("publish realtime event: %w", err)
	}
	return nil
}

// Subscribe opens the tenant's channel and decodes events until ctx ends.
// The returned channel is closed when the subscription terminates.
func Subscribe(ctx context.Context, rdb *redis.Client, userID string) (<-chan Event, error) {
	sub := rdb.Subscribe(ctx, ChannelFor(userID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", ChannelFor(userID), err)
	}

	out := make(chan Event)
	go func() {
		defer close(out)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
