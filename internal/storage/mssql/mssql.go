// Package mssql registers the SQL Server result store backend (storage kind
// "mssql") on github.com/microsoft/go-mssqldb.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"dqcheck/internal/storage"
	"dqcheck/internal/storage/sqldb"

	_ "github.com/microsoft/go-mssqldb"
)

// Dialect is the SQL Server flavour of the result schema. SQL Server has no
// CREATE TABLE IF NOT EXISTS, so creation is guarded by OBJECT_ID.
var Dialect = sqldb.Dialect{
	Name:        "mssql",
	Placeholder: sqldb.AtP,
	Schema: func(t storage.Tables) []string {
		return []string{
			fmt.Sprintf(`IF OBJECT_ID(N'%s', N'U') IS NULL
CREATE TABLE %s (
	run_id NVARCHAR(64) NOT NULL PRIMARY KEY,
	suite NVARCHAR(255) NOT NULL,
	success BIT NOT NULL,
	result_format NVARCHAR(16) NOT NULL,
	started_at DATETIME2 NOT NULL,
	finished_at DATETIME2 NOT NULL,
	dataset_location NVARCHAR(MAX) NULL,
	dataset_fingerprint NVARCHAR(64) NULL,
	row_count BIGINT NOT NULL,
	column_count INT NOT NULL,
	evaluated INT NOT NULL,
	successful INT NOT NULL,
	success_percent FLOAT NOT NULL
)`, t.Runs, t.Runs),
			fmt.Sprintf(`IF OBJECT_ID(N'%s', N'U') IS NULL
CREATE TABLE %s (
	run_id NVARCHAR(64) NOT NULL,
	idx INT NOT NULL,
	expectation_type NVARCHAR(128) NOT NULL,
	target NVARCHAR(255) NOT NULL,
	description NVARCHAR(MAX) NULL,
	success BIT NOT NULL,
	reason NVARCHAR(64) NULL,
	message NVARCHAR(MAX) NULL,
	kwargs NVARCHAR(MAX) NULL,
	observed NVARCHAR(MAX) NULL,
	CONSTRAINT PK_%s PRIMARY KEY (run_id, idx)
)`, t.Checks, t.Checks, strings.ReplaceAll(t.Checks, ".", "_")),
		}
	},
	SelectRuns: func(t storage.Tables, cols string) string {
		return fmt.Sprintf("SELECT TOP (@p2) %s FROM %s WHERE suite = @p1 ORDER BY started_at DESC", cols, t.Runs)
	},
}

// NewRepository connects to SQL Server and returns a result store.
func NewRepository(ctx context.Context, cfg storage.Config) (*sqldb.Repository, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("mssql: DSN must not be empty")
	}
	tables, err := storage.ResolveTables(cfg.Table)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("mssql: open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("mssql: ping: %w", err)
	}
	return sqldb.New(db, Dialect, tables), nil
}

func init() {
	storage.Register("mssql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return NewRepository(ctx, cfg)
	})
}
