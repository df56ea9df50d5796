package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetResponse returns the cached body for key if it is younger than the TTL.
func (db *DB) GetResponse(ctx context.Context, key string) ([]byte, bool, error) {
	query := `SELECT body FROM neis_responses WHERE cache_key = ? AND cached_at > ?`

	var body []byte
	err := db.conn.QueryRowContext(ctx, query, key, db.ttlCutoff()).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get cached response: %w", err)
	}
	return body, true, nil
}

// SaveResponse inserts or replaces the cached body for key.
func (db *DB) SaveResponse(ctx context.Context, key, endpoint string, body []byte) error {
	query := `
		INSERT INTO neis_responses (cache_key, endpoint, body, cached_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			endpoint = excluded.endpoint,
			body = excluded.body,
			cached_at = excluded.cached_at
	`
	if _, err := db.conn.ExecContext(ctx, query, key, endpoint, body, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to save response: %w", err)
	}
	return nil
}

// DeleteExpired removes responses older than the TTL.
// Returns the number of deleted entries
func (db *DB) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM neis_responses WHERE cached_at <= ?`, db.ttlCutoff())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired responses: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected for responses: %w", err)
	}
	return rowsAffected, nil
}

// CountResponses returns the number of unexpired responses per endpoint.
func (db *DB) CountResponses(ctx context.Context) (map[string]int, error) {
	query := `SELECT endpoint, COUNT(*) FROM neis_responses WHERE cached_at > ? GROUP BY endpoint`

	rows, err := db.conn.QueryContext(ctx, query, db.ttlCutoff())
	if err != nil {
		return nil, fmt.Errorf("failed to count responses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var endpoint string
		var n int
		if err := rows.Scan(&endpoint, &n); err != nil {
			return nil, fmt.Errorf("failed to scan response count: %w", err)
		}
		counts[endpoint] = n
	}
	return counts, rows.Err()
}
