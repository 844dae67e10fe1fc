package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const sectionSchema = `
CREATE TABLE IF NOT EXISTS edinet_sections (
	doc_id       TEXT NOT NULL,
	section_id   TEXT NOT NULL,
	edinet_code  TEXT NOT NULL DEFAULT '',
	period_end   TEXT NOT NULL DEFAULT '',
	matched_tag  TEXT NOT NULL DEFAULT '',
	body         TEXT NOT NULL,
	extracted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (doc_id, section_id)
)`

// OpenPool connects to Postgres and makes sure the section table exists.
func OpenPool(ctx context.Context, dbURL string) (*pgxpool.Pool, error) {
	if dbURL == "" {
		return nil, fmt.Errorf("database url not set")
	}
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := pool.Exec(ctx, sectionSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create edinet_sections: %w", err)
	}
	return pool, nil
}
