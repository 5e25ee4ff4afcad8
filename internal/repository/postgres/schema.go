package postgres

import (
	"context"
	"fmt"
)

// schema is applied in order on every startup; each statement is idempotent.
// NULL short codes (pending mappings) never collide under the unique index.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS url_mappings (
		id           BIGSERIAL PRIMARY KEY,
		original_url TEXT        NOT NULL,
		short_code   TEXT        NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS url_mappings_short_code_key ON url_mappings (short_code)`,
}

// Migrate creates the url_mappings table and its unique short_code index.
func Migrate(ctx context.Context, db DBTX) error {
	for i, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
