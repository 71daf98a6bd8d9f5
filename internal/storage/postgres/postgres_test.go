package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"

	"dqcheck/internal/storage"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestPgIdentAndFQN(t *testing.T) {
	tests := []struct{ in, want string }{
		{"runs", `"runs"`},
		{`we"ird`, `"we""ird"`},
	}
	for _, tt := range tests {
		if got := pgIdent(tt.in); got != tt.want {
			t.Errorf("pgIdent(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
	if got := pgFQN("audit.dq_runs"); got != `"audit"."dq_runs"` {
		t.Errorf("pgFQN = %s", got)
	}
}

func TestInsertSQL(t *testing.T) {
	got := insertSQL("audit.dq_checks", []string{"run_id", "idx"})
	want := `INSERT INTO "audit"."dq_checks" ("run_id", "idx") VALUES ($1, $2)`
	if got != want {
		t.Fatalf("insertSQL = %s, want %s", got, want)
	}
}

func TestSchemaSQL(t *testing.T) {
	tables, err := storage.ResolveTables("audit.dq")
	if err != nil {
		t.Fatal(err)
	}
	stmts := schemaSQL(tables)
	if len(stmts) != 3 {
		t.Fatalf("schemaSQL returned %d statements, want 3", len(stmts))
	}
	if !strings.Contains(stmts[1], `REFERENCES "audit"."dq_runs"`) {
		t.Errorf("checks table lacks FK: %s", stmts[1])
	}
	if !strings.Contains(stmts[2], `"audit_dq_runs_suite_started"`) {
		t.Errorf("index name: %s", stmts[2])
	}
}

func TestDescribeAddsDetail(t *testing.T) {
	base := &pgconn.PgError{Message: "duplicate key", Detail: "Key (run_id, idx)=(r, 0) already exists."}
	err := describe(base)
	if !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("describe = %v", err)
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		t.Fatalf("describe lost the PgError")
	}
	plain := errors.New("x")
	if describe(plain) != plain {
		t.Fatalf("describe changed a non-Pg error")
	}
}

func TestJSONOrNil(t *testing.T) {
	if jsonOrNil("") != nil {
		t.Fatal(`jsonOrNil("") != nil`)
	}
	if jsonOrNil(`{"a":1}`) != `{"a":1}` {
		t.Fatal("jsonOrNil dropped value")
	}
}

func TestRegistered(t *testing.T) {
	_, err := storage.New(context.Background(), storage.Config{Kind: "postgres"})
	if err == nil || !strings.Contains(err.Error(), "DSN must not be empty") {
		t.Fatalf("storage.New(postgres, empty DSN) = %v", err)
	}
}
