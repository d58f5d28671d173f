package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore is the local fallback when no Postgres DSN is configured, so
// freshness survives restarts on a laptop run. Unlike the Postgres table,
// this file belongs to the pipeline, so the schema is created on open.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS crawl_state (
	domain TEXT PRIMARY KEY,
	last_crawled_at TIMESTAMP NOT NULL,
	leads_found INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'completed',
	crawl_duration_ms INTEGER NOT NULL DEFAULT 0
)`

// NewSQLiteStore opens (creating if needed) the crawl-state database at path.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create crawl_state table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database file.
func (s *SQLiteStore) Close() {
	if s != nil && s.db != nil {
		s.db.Close()
	}
}

// Load reads every crawl-state row.
func (s *SQLiteStore) Load(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT domain, last_crawled_at, leads_found, status, crawl_duration_ms FROM crawl_state`)
	if err != nil {
		return nil, fmt.Errorf("load crawl state: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var durMs int64
		if err := rows.Scan(&rec.Domain, &rec.LastCrawled, &rec.LeadsFound, &rec.Status, &durMs); err != nil {
			return nil, fmt.Errorf("scan crawl state: %w", err)
		}
		rec.Duration = time.Duration(durMs) * time.Millisecond
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Upsert inserts or updates one domain's crawl state.
func (s *SQLiteStore) Upsert(ctx context.Context, rec Record) error {
	if rec.Domain == "" {
		return fmt.Errorf("record domain is required")
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO crawl_state (domain, last_crawled_at, leads_found, status, crawl_duration_ms)
VALUES (?,?,?,?,?)
ON CONFLICT (domain) DO UPDATE SET
	last_crawled_at = excluded.last_crawled_at,
	leads_found = excluded.leads_found,
	status = excluded.status,
	crawl_duration_ms = excluded.crawl_duration_ms`,
		rec.Domain, rec.LastCrawled, rec.LeadsFound, rec.Status, rec.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("upsert crawl state: %w", err)
	}
	return nil
}
