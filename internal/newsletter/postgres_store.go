package newsletter

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresStoreConfig controls the Postgres connection pool used for the
// corpus table.
type PostgresStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

// pgPool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it
// in tests.
type pgPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// PostgresStore is an alternative corpus Store for deployments that keep
// the corpus in Postgres instead of a local JSONL file. Insertion order is
// preserved by an ordered serial key.
type PostgresStore struct {
	pool  pgPool
	table string
}

// NewPostgresStore connects a pgx pool and returns a corpus store writing
// to cfg.Table (default "newsletters").
func NewPostgresStore(ctx context.Context, cfg PostgresStoreConfig) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("corpus.postgres.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "newsletters"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
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
	return &PostgresStore{pool: pool, table: table}, nil
}

// newPostgresStoreWithPool wires an explicit pool, used by tests.
func newPostgresStoreWithPool(pool pgPool, table string) *PostgresStore {
	return &PostgresStore{pool: pool, table: table}
}

// Append inserts rec as a JSONB payload keyed by its source URL.
//
// Expected schema:
//
//	CREATE TABLE newsletters (
//	    id BIGSERIAL PRIMARY KEY,
//	    source_url TEXT NOT NULL,
//	    payload JSONB NOT NULL,
//	    created_at TIMESTAMPTZ DEFAULT NOW()
//	);
func (s *PostgresStore) Append(ctx context.Context, rec Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	query := fmt.Sprintf(
		"INSERT INTO %s (source_url, payload) VALUES ($1, $2)", s.table)
	if _, err := s.pool.Exec(ctx, query, rec.SourceURL, payload); err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// LoadAll returns every record in insertion order.
func (s *PostgresStore) LoadAll(ctx context.Context) ([]Record, error) {
	query := fmt.Sprintf("SELECT payload FROM %s ORDER BY id", s.table)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query corpus: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan corpus row: %w", err)
		}
		var rec Record
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("decode corpus row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read corpus rows: %w", err)
	}
	return records, nil
}

// Close releases the underlying pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
