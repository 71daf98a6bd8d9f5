// Package mysql registers the MySQL result store backend (storage kind
// "mysql") on github.com/go-sql-driver/mysql.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"dqcheck/internal/storage"
	"dqcheck/internal/storage/sqldb"

	"github.com/go-sql-driver/mysql"
)

// Dialect is the MySQL flavour of the result schema.
var Dialect = sqldb.Dialect{
	Name:        "mysql",
	Placeholder: sqldb.Question,
	Schema: func(t storage.Tables) []string {
		return []string{
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	run_id VARCHAR(64) NOT NULL PRIMARY KEY,
	suite VARCHAR(255) NOT NULL,
	success BOOLEAN NOT NULL,
	result_format VARCHAR(16) NOT NULL,
	started_at DATETIME(6) NOT NULL,
	finished_at DATETIME(6) NOT NULL,
	dataset_location TEXT,
	dataset_fingerprint VARCHAR(64),
	row_count BIGINT NOT NULL,
	column_count INT NOT NULL,
	evaluated INT NOT NULL,
	successful INT NOT NULL,
	success_percent DOUBLE NOT NULL,
	INDEX idx_suite_started (suite, started_at)
)`, t.Runs),
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	run_id VARCHAR(64) NOT NULL,
	idx INT NOT NULL,
	expectation_type VARCHAR(128) NOT NULL,
	target VARCHAR(255) NOT NULL,
	description TEXT,
	success BOOLEAN NOT NULL,
	reason VARCHAR(64),
	message TEXT,
	kwargs JSON,
	observed TEXT,
	PRIMARY KEY (run_id, idx)
)`, t.Checks),
		}
	},
	SelectRuns: func(t storage.Tables, cols string) string {
		return fmt.Sprintf("SELECT %s FROM %s WHERE suite = ? ORDER BY started_at DESC LIMIT ?", cols, t.Runs)
	},
}

// normalizeDSN makes DATETIME columns scan as time.Time in UTC.
func normalizeDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("mysql: parse DSN: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

// NewRepository connects to MySQL and returns a result store.
func NewRepository(ctx context.Context, cfg storage.Config) (*sqldb.Repository, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("mysql: DSN must not be empty")
	}
	tables, err := storage.ResolveTables(cfg.Table)
	if err != nil {
		return nil, err
	}
	dsn, err := normalizeDSN(cfg.DSN)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql: open: %w", err)
	}
	db.SetConnMaxLifetime(3 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("mysql: ping: %w", err)
	}
	return sqldb.New(db, Dialect, tables), nil
}

func init() {
	storage.Register("mysql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return NewRepository(ctx, cfg)
	})
}
