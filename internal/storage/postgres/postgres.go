// Package postgres registers the Postgres result store backend (storage kind
// "postgres") on pgx v5. Check rows are sent with a single pgx.Batch inside
// the run's transaction.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dqcheck/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pool is the subset of *pgxpool.Pool the repository uses.
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// Repository is a Postgres-backed storage.Repository.
type Repository struct {
	pool   pool
	tables storage.Tables
}

// NewRepository connects to Postgres and returns a result store.
func NewRepository(ctx context.Context, cfg storage.Config) (*Repository, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("postgres: DSN must not be empty")
	}
	tables, err := storage.ResolveTables(cfg.Table)
	if err != nil {
		return nil, err
	}
	p, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Repository{pool: p, tables: tables}, nil
}

func (r *Repository) Close() { r.pool.Close() }

func schemaSQL(t storage.Tables) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	run_id TEXT PRIMARY KEY,
	suite TEXT NOT NULL,
	success BOOLEAN NOT NULL,
	result_format TEXT NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL,
	dataset_location TEXT,
	dataset_fingerprint TEXT,
	row_count BIGINT NOT NULL,
	column_count INTEGER NOT NULL,
	evaluated INTEGER NOT NULL,
	successful INTEGER NOT NULL,
	success_percent DOUBLE PRECISION NOT NULL
)`, pgFQN(t.Runs)),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	run_id TEXT NOT NULL REFERENCES %s (run_id) ON DELETE CASCADE,
	idx INTEGER NOT NULL,
	expectation_type TEXT NOT NULL,
	target TEXT NOT NULL,
	description TEXT,
	success BOOLEAN NOT NULL,
	reason TEXT,
	message TEXT,
	kwargs JSONB,
	observed TEXT,
	PRIMARY KEY (run_id, idx)
)`, pgFQN(t.Checks), pgFQN(t.Runs)),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (suite, started_at DESC)`,
			pgIdent(strings.ReplaceAll(t.Runs, ".", "_")+"_suite_started"), pgFQN(t.Runs)),
	}
}

func (r *Repository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaSQL(r.tables) {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: ensure schema: %w", err)
		}
	}
	return nil
}

var runColumns = []string{
	"run_id", "suite", "success", "result_format", "started_at", "finished_at",
	"dataset_location", "dataset_fingerprint", "row_count", "column_count",
	"evaluated", "successful", "success_percent",
}

var checkColumns = []string{
	"run_id", "idx", "expectation_type", "target", "description",
	"success", "reason", "message", "kwargs", "observed",
}

func insertSQL(table string, cols []string) string {
	marks := make([]string, len(cols))
	for i := range marks {
		marks[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		pgFQN(table), strings.Join(mapIdent(cols), ", "), strings.Join(marks, ", "))
}

func (r *Repository) SaveRun(ctx context.Context, run storage.RunRecord, checks []storage.CheckRecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, insertSQL(r.tables.Runs, runColumns),
		run.RunID, run.Suite, run.Success, run.ResultFormat, run.StartedAt, run.FinishedAt,
		run.DatasetLocation, run.DatasetFingerprint, run.RowCount, run.ColumnCount,
		run.Evaluated, run.Successful, run.SuccessPercent,
	); err != nil {
		return fmt.Errorf("postgres: insert run: %w", err)
	}

	if len(checks) > 0 {
		q := insertSQL(r.tables.Checks, checkColumns)
		batch := &pgx.Batch{}
		for _, c := range checks {
			batch.Queue(q, run.RunID, c.Index, c.ExpectationType, c.Target, c.Description,
				c.Success, c.Reason, c.Message, jsonOrNil(c.Kwargs), c.Observed)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("postgres: insert checks: %w", describe(err))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

func (r *Repository) Runs(ctx context.Context, suite string, limit int) ([]storage.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	q := fmt.Sprintf("SELECT %s FROM %s WHERE suite = $1 ORDER BY started_at DESC LIMIT $2",
		strings.Join(mapIdent(runColumns), ", "), pgFQN(r.tables.Runs))
	rows, err := r.pool.Query(ctx, q, suite, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: select runs: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (storage.RunRecord, error) {
		var (
			rec        storage.RunRecord
			loc, fp    *string
			rowCount   int64
			colCount   int32
			evaluated  int32
			successful int32
		)
		err := row.Scan(&rec.RunID, &rec.Suite, &rec.Success, &rec.ResultFormat, &rec.StartedAt, &rec.FinishedAt,
			&loc, &fp, &rowCount, &colCount, &evaluated, &successful, &rec.SuccessPercent)
		if loc != nil {
			rec.DatasetLocation = *loc
		}
		if fp != nil {
			rec.DatasetFingerprint = *fp
		}
		rec.RowCount, rec.ColumnCount = int(rowCount), int(colCount)
		rec.Evaluated, rec.Successful = int(evaluated), int(successful)
		rec.StartedAt, rec.FinishedAt = rec.StartedAt.UTC(), rec.FinishedAt.UTC()
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: scan runs: %w", err)
	}
	return out, nil
}

func jsonOrNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// describe adds the server detail of a PgError when present.
func describe(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Detail != "" {
		return fmt.Errorf("%w (detail: %s)", err, pgErr.Detail)
	}
	return err
}

func pgIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func pgFQN(name string) string {
	parts := strings.Split(name, ".")
	return strings.Join(mapIdent(parts), ".")
}

func mapIdent(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = pgIdent(s)
	}
	return out
}

func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return NewRepository(ctx, cfg)
	})
}
