package utils

import (
	"context"
	"testing"
	"time"
)

func TestMarkFirstSeen_RejectsBadArgs(t *testing.T) {
	if _, err := MarkFirstSeen(context.Background(), nil, "k", time.Minute); err == nil {
		t.Fatalf("expected error for nil client")
	}
}

func TestRedisConfigDefaults(t *testing.T) {
	c := RedisConfig{}.withDefaults()
	if c.DialTimeout <= 0 || c.PoolSize <= 0 || c.PingTimeout <= 0 {
		t.Fatalf("expected defaults applied, got %+v", c)
	}
}
