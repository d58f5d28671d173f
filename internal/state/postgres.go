package state

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresConfig controls the Postgres connection pool behind the shared
// crawl-state table.
type PostgresConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type pgPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// PostgresStore reads and appends crawl state in the control-plane's table.
// It never creates or migrates the schema.
type PostgresStore struct {
	pool  pgPool
	table string
}

// NewPostgresStore connects a store using the provided config.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("state.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return NewPostgresStoreWithPool(pool, cfg.Table)
}

// NewPostgresStoreWithPool constructs a store from an existing pool
// (primarily for testing).
func NewPostgresStoreWithPool(pool pgPool, table string) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "crawl_state"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PostgresStore{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *PostgresStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Load reads every crawl-state row.
func (s *PostgresStore) Load(ctx context.Context) ([]Record, error) {
	query := fmt.Sprintf(
		`SELECT domain, last_crawled_at, leads_found, status, crawl_duration_ms FROM %s`, s.table)
	rows, err := s.pool.Query(ctx, query)
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate crawl state: %w", err)
	}
	return out, nil
}

// Upsert inserts or updates one domain's crawl state.
func (s *PostgresStore) Upsert(ctx context.Context, rec Record) error {
	if rec.Domain == "" {
		return fmt.Errorf("record domain is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (domain, last_crawled_at, leads_found, status, crawl_duration_ms)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (domain) DO UPDATE SET
	last_crawled_at = EXCLUDED.last_crawled_at,
	leads_found = EXCLUDED.leads_found,
	status = EXCLUDED.status,
	crawl_duration_ms = EXCLUDED.crawl_duration_ms`, s.table)

	args := []any{rec.Domain, rec.LastCrawled, rec.LeadsFound, rec.Status, rec.Duration.Milliseconds()}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert crawl state: %w", err)
	}
	return nil
}
