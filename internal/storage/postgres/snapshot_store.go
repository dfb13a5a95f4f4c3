// Package postgres persists precomputed report summaries in Postgres.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/crawl-reports/internal/dashboard"
)

const defaultTable = "report_snapshots"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for snapshot rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Begin(context.Context) (pgx.Tx, error)
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	Close()
}

// SnapshotStore writes and reads per-bucket report snapshots.
type SnapshotStore struct {
	pool  pool
	table string
	now   func() time.Time
}

// NewSnapshotStore connects to Postgres using cfg.
func NewSnapshotStore(ctx context.Context, cfg Config) (*SnapshotStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &SnapshotStore{pool: p, table: table, now: time.Now}, nil
}

// NewSnapshotStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewSnapshotStoreWithPool(p pool, table string) (*SnapshotStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &SnapshotStore{pool: p, table: name, now: time.Now}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the underlying pool resources.
func (s *SnapshotStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the snapshot table when it does not exist.
func (s *SnapshotStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	id            uuid PRIMARY KEY,
	category      text NOT NULL,
	period        text NOT NULL,
	dimension     text NOT NULL,
	bucket        text NOT NULL,
	count         integer NOT NULL,
	total_rows    integer NOT NULL,
	excluded_rows integer NOT NULL,
	computed_at   timestamptz NOT NULL,
	UNIQUE (category, period, dimension, bucket)
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create %s: %w", s.table, err)
	}
	return nil
}

// SaveSnapshot stores a single snapshot row.
func (s *SnapshotStore) SaveSnapshot(ctx context.Context, snap dashboard.Snapshot) error {
	return s.SaveSnapshots(ctx, []dashboard.Snapshot{snap})
}

// SaveSnapshots upserts snaps in one transaction. A row for an existing
// (category, period, dimension, bucket) replaces the previous one.
func (s *SnapshotStore) SaveSnapshots(ctx context.Context, snaps []dashboard.Snapshot) (err error) {
	if s == nil || s.pool == nil {
		return fmt.Errorf("snapshot store is not configured")
	}
	if len(snaps) == 0 {
		return nil
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	category,
	period,
	dimension,
	bucket,
	count,
	total_rows,
	excluded_rows,
	computed_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9
)
ON CONFLICT (category, period, dimension, bucket) DO UPDATE
SET count = EXCLUDED.count,
	total_rows = EXCLUDED.total_rows,
	excluded_rows = EXCLUDED.excluded_rows,
	computed_at = EXCLUDED.computed_at`, s.table)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = fmt.Errorf("%w (rollback: %v)", err, rbErr)
			}
		}
	}()

	for _, snap := range snaps {
		if snap.ID == "" {
			snap.ID = uuid.NewString()
		}
		if snap.ComputedAt.IsZero() {
			snap.ComputedAt = s.now().UTC()
		}
		if _, err = tx.Exec(ctx, query,
			snap.ID,
			snap.Category,
			snap.Period,
			snap.Dimension,
			snap.Bucket,
			snap.Count,
			snap.TotalRows,
			snap.ExcludedRows,
			snap.ComputedAt,
		); err != nil {
			return fmt.Errorf("insert snapshot %s/%s/%s: %w", snap.Category, snap.Period, snap.Bucket, err)
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit snapshot tx: %w", err)
	}
	return nil
}

// ListSnapshots returns every snapshot of category ordered by period,
// dimension and bucket.
func (s *SnapshotStore) ListSnapshots(ctx context.Context, category string) ([]dashboard.Snapshot, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("snapshot store is not configured")
	}
	query := fmt.Sprintf(`
SELECT id::text, category, period, dimension, bucket, count, total_rows, excluded_rows, computed_at
FROM %s
WHERE category = $1
ORDER BY period, dimension, bucket`, s.table)

	rows, err := s.pool.Query(ctx, query, category)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []dashboard.Snapshot
	for rows.Next() {
		var snap dashboard.Snapshot
		if err := rows.Scan(
			&snap.ID,
			&snap.Category,
			&snap.Period,
			&snap.Dimension,
			&snap.Bucket,
			&snap.Count,
			&snap.TotalRows,
			&snap.ExcludedRows,
			&snap.ComputedAt,
		); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return out, nil
}
