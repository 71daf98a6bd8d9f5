// Package sqlite is the default result store backend, on the pure-Go
// modernc.org/sqlite driver. It registers itself as storage kind "sqlite".
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"dqcheck/internal/storage"
	"dqcheck/internal/storage/sqldb"

	_ "modernc.org/sqlite"
)

// Dialect is the SQLite flavour of the result schema.
var Dialect = sqldb.Dialect{
	Name:        "sqlite",
	Placeholder: sqldb.Question,
	Schema: func(t storage.Tables) []string {
		return []string{
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	run_id TEXT PRIMARY KEY,
	suite TEXT NOT NULL,
	success INTEGER NOT NULL,
	result_format TEXT NOT NULL,
	started_at TIMESTAMP NOT NULL,
	finished_at TIMESTAMP NOT NULL,
	dataset_location TEXT,
	dataset_fingerprint TEXT,
	row_count INTEGER NOT NULL,
	column_count INTEGER NOT NULL,
	evaluated INTEGER NOT NULL,
	successful INTEGER NOT NULL,
	success_percent REAL NOT NULL
)`, t.Runs),
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	run_id TEXT NOT NULL REFERENCES %s(run_id),
	idx INTEGER NOT NULL,
	expectation_type TEXT NOT NULL,
	target TEXT NOT NULL,
	description TEXT,
	success INTEGER NOT NULL,
	reason TEXT,
	message TEXT,
	kwargs TEXT,
	observed TEXT,
	PRIMARY KEY (run_id, idx)
)`, t.Checks, t.Runs),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_suite_started ON %s (suite, started_at)`, strings.ReplaceAll(t.Runs, ".", "_"), t.Runs),
		}
	},
	SelectRuns: func(t storage.Tables, cols string) string {
		return fmt.Sprintf("SELECT %s FROM %s WHERE suite = ? ORDER BY started_at DESC LIMIT ?", cols, t.Runs)
	},
}

// Open opens a SQLite database. SQLite allows one writer, so the pool is
// limited to a single connection; this also keeps ":memory:" databases
// shared across calls.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	_, _ = db.ExecContext(ctx, "PRAGMA foreign_keys = ON;")
	return db, nil
}

// NewRepository opens dsn and returns a result store on it.
func NewRepository(ctx context.Context, cfg storage.Config) (*sqldb.Repository, error) {
	tables, err := storage.ResolveTables(cfg.Table)
	if err != nil {
		return nil, err
	}
	db, err := Open(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	return sqldb.New(db, Dialect, tables), nil
}

func init() {
	storage.Register("sqlite", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return NewRepository(ctx, cfg)
	})
}
