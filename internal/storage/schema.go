package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// InitSchema creates all necessary tables and indexes.
func InitSchema(ctx context.Context, db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS neis_responses (
		cache_key TEXT PRIMARY KEY,
		endpoint TEXT NOT NULL,
		body BLOB NOT NULL,
		cached_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_neis_responses_cached_at ON neis_responses(cached_at);
	CREATE INDEX IF NOT EXISTS idx_neis_responses_endpoint ON neis_responses(endpoint);
	`

	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create neis_responses table: %w", err)
	}
	return nil
}
