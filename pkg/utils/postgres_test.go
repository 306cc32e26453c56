package utils

import (
	"context"
	"database/sql"
	"testing"
)

func TestWithTx_SignatureSmoke(t *testing.T) {
	// This test can't run without a real *sql.DB; keep it as a compile-time smoke test
	// for the helper signature.
	var _ func(context.Context, *sql.DB, *sql.TxOptions, TxFunc) error = WithTx
}

func TestPoolConfigDefaults(t *testing.T) {
	c := PostgresPoolConfig{}.withDefaults()
	if c.MaxOpenConns <= 0 || c.ConnMaxLifetime <= 0 || c.PingTimeout <= 0 {
		t.Fatalf("expected defaults applied, got %+v", c)
	}
	if c.MaxIdleConns != c.MaxOpenConns {
		t.Fatalf("idle conns default %d, want %d", c.MaxIdleConns, c.MaxOpenConns)
	}

	// The idle default follows an explicit open-conns setting.
	c = PostgresPoolConfig{MaxOpenConns: 10}.withDefaults()
	if c.MaxIdleConns != 10 {
		t.Fatalf("idle conns %d, want 10", c.MaxIdleConns)
	}
}
