// Package storage persists validation runs into a SQL result store.
//
// Backends register a Factory for their kind in init; callers open a
// Repository through New without importing the backend. Import
// dqcheck/internal/storage/all to enable every built-in backend.
package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync"
	"time"
)

// DefaultTablePrefix names the result tables when Config.Table is empty.
const DefaultTablePrefix = "dqcheck"

// Config selects and configures a backend.
type Config struct {
	// Kind is the registered backend name, e.g. "sqlite" or "postgres".
	Kind string
	// DSN is passed to the backend's driver.
	DSN string
	// Table is the prefix of the result tables: <Table>_runs and <Table>_checks.
	Table string
}

// RunRecord is one validation run.
type RunRecord struct {
	RunID              string    `json:"run_id"`
	Suite              string    `json:"suite"`
	Success            bool      `json:"success"`
	ResultFormat       string    `json:"result_format"`
	StartedAt          time.Time `json:"started_at"`
	FinishedAt         time.Time `json:"finished_at"`
	DatasetLocation    string    `json:"dataset_location"`
	DatasetFingerprint string    `json:"dataset_fingerprint"`
	RowCount           int       `json:"row_count"`
	ColumnCount        int       `json:"column_count"`
	Evaluated          int       `json:"evaluated"`
	Successful         int       `json:"successful"`
	SuccessPercent     float64   `json:"success_percent"`
}

// CheckRecord is one evaluated expectation of a run. Kwargs and Observed
// hold JSON text.
type CheckRecord struct {
	RunID           string
	Index           int
	ExpectationType string
	Target          string
	Description     string
	Success         bool
	Reason          string
	Message         string
	Kwargs          string
	Observed        string
}

// Repository is a result store.
type Repository interface {
	// EnsureSchema creates the result tables if they do not exist.
	EnsureSchema(ctx context.Context) error
	// SaveRun writes run and its checks atomically.
	SaveRun(ctx context.Context, run RunRecord, checks []CheckRecord) error
	// Runs returns up to limit runs of suite, newest first.
	Runs(ctx context.Context, suite string, limit int) ([]RunRecord, error)
	Close()
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register adds or replaces the factory for kind.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens a Repository of cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds, sorted.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Tables are the resolved result table names.
type Tables struct {
	Runs   string
	Checks string
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ErrBadTableName is returned for a table prefix that is not a plain
// (optionally schema-qualified) identifier.
var ErrBadTableName = errors.New("storage: table prefix must be an identifier like dqcheck or schema.dqcheck")

// ResolveTables derives table names from prefix. Names are interpolated into
// SQL, so only identifiers are accepted.
func ResolveTables(prefix string) (Tables, error) {
	if prefix == "" {
		prefix = DefaultTablePrefix
	}
	if !identRe.MatchString(prefix) {
		return Tables{}, fmt.Errorf("%w: %q", ErrBadTableName, prefix)
	}
	return Tables{Runs: prefix + "_runs", Checks: prefix + "_checks"}, nil
}
