// Package sqldb is the database/sql implementation of storage.Repository
// shared by the sqlite, mysql and mssql backends. Each backend supplies a
// Dialect with its DDL, placeholder style and row-limit syntax.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"dqcheck/internal/storage"
)

// Dialect describes the SQL differences between backends.
type Dialect struct {
	// Name prefixes error messages, e.g. "sqlite".
	Name string
	// Placeholder returns the bind marker for the n-th (1-based) argument.
	Placeholder func(n int) string
	// Schema returns the CREATE statements for t, executed in order.
	Schema func(t storage.Tables) []string
	// SelectRuns returns a query taking (suite, limit) and yielding the run
	// columns in RunColumns order, newest first.
	SelectRuns func(t storage.Tables, cols string) string
}

// RunColumns is the column order used for run inserts and selects.
var RunColumns = []string{
	"run_id", "suite", "success", "result_format", "started_at", "finished_at",
	"dataset_location", "dataset_fingerprint", "row_count", "column_count",
	"evaluated", "successful", "success_percent",
}

// CheckColumns is the column order used for check inserts.
var CheckColumns = []string{
	"run_id", "idx", "expectation_type", "target", "description",
	"success", "reason", "message", "kwargs", "observed",
}

// Question is the "?" placeholder style.
func Question(int) string { return "?" }

// AtP is the "@pN" placeholder style.
func AtP(n int) string { return fmt.Sprintf("@p%d", n) }

// Repository stores runs through database/sql.
type Repository struct {
	db      *sql.DB
	dialect Dialect
	tables  storage.Tables
}

// New wraps an open db. The caller keeps ownership of db until Close.
func New(db *sql.DB, d Dialect, tables storage.Tables) *Repository {
	return &Repository{db: db, dialect: d, tables: tables}
}

// DB exposes the underlying pool.
func (r *Repository) DB() *sql.DB { return r.db }

// Close closes the underlying pool.
func (r *Repository) Close() { _ = r.db.Close() }

func (r *Repository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range r.dialect.Schema(r.tables) {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: ensure schema: %w", r.dialect.Name, err)
		}
	}
	return nil
}

// InsertSQL builds "INSERT INTO table (cols) VALUES (marks)".
func InsertSQL(d Dialect, table string, cols []string) string {
	marks := make([]string, len(cols))
	for i := range marks {
		marks[i] = d.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), strings.Join(marks, ", "))
}

func (r *Repository) SaveRun(ctx context.Context, run storage.RunRecord, checks []storage.CheckRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin tx: %w", r.dialect.Name, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, InsertSQL(r.dialect, r.tables.Runs, RunColumns), runArgs(run)...); err != nil {
		return fmt.Errorf("%s: insert run: %w", r.dialect.Name, err)
	}

	if len(checks) > 0 {
		stmt, err := tx.PrepareContext(ctx, InsertSQL(r.dialect, r.tables.Checks, CheckColumns))
		if err != nil {
			return fmt.Errorf("%s: prepare check insert: %w", r.dialect.Name, err)
		}
		defer stmt.Close()
		for _, c := range checks {
			if _, err := stmt.ExecContext(ctx, checkArgs(run.RunID, c)...); err != nil {
				return fmt.Errorf("%s: insert check %d: %w", r.dialect.Name, c.Index, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", r.dialect.Name, err)
	}
	return nil
}

func (r *Repository) Runs(ctx context.Context, suite string, limit int) ([]storage.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	q := r.dialect.SelectRuns(r.tables, strings.Join(RunColumns, ", "))
	rows, err := r.db.QueryContext(ctx, q, suite, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: select runs: %w", r.dialect.Name, err)
	}
	defer rows.Close()

	var out []storage.RunRecord
	for rows.Next() {
		var (
			rec                 storage.RunRecord
			started, finished   timeValue
			location, fingerpnt sql.NullString
		)
		if err := rows.Scan(
			&rec.RunID, &rec.Suite, &rec.Success, &rec.ResultFormat, &started, &finished,
			&location, &fingerpnt, &rec.RowCount, &rec.ColumnCount,
			&rec.Evaluated, &rec.Successful, &rec.SuccessPercent,
		); err != nil {
			return nil, fmt.Errorf("%s: scan run: %w", r.dialect.Name, err)
		}
		rec.StartedAt, rec.FinishedAt = started.t, finished.t
		rec.DatasetLocation, rec.DatasetFingerprint = location.String, fingerpnt.String
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: select runs: %w", r.dialect.Name, err)
	}
	return out, nil
}

func runArgs(r storage.RunRecord) []any {
	return []any{
		r.RunID, r.Suite, r.Success, r.ResultFormat, r.StartedAt.UTC(), r.FinishedAt.UTC(),
		r.DatasetLocation, r.DatasetFingerprint, r.RowCount, r.ColumnCount,
		r.Evaluated, r.Successful, r.SuccessPercent,
	}
}

func checkArgs(runID string, c storage.CheckRecord) []any {
	return []any{
		runID, c.Index, c.ExpectationType, c.Target, c.Description,
		c.Success, c.Reason, c.Message, c.Kwargs, c.Observed,
	}
}

// timeValue scans timestamps that drivers return either as time.Time or as
// text (sqlite stores them as strings).
type timeValue struct{ t time.Time }

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func (v *timeValue) Scan(src any) error {
	switch x := src.(type) {
	case nil:
		v.t = time.Time{}
		return nil
	case time.Time:
		v.t = x.UTC()
		return nil
	case []byte:
		return v.parse(string(x))
	case string:
		return v.parse(x)
	default:
		return fmt.Errorf("cannot scan %T into timestamp", src)
	}
}

func (v *timeValue) parse(s string) error {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			v.t = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", s)
}
