// Package schema embeds the database schema so the service can
// self-bootstrap on startup.
package schema

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// Ensure applies schema.sql. Every statement is idempotent, so running it on
// every boot is safe.
func Ensure(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
