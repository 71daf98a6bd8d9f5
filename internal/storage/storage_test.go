package storage

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type fakeRepo struct{ closed bool }

func (f *fakeRepo) EnsureSchema(context.Context) error                       { return nil }
func (f *fakeRepo) SaveRun(context.Context, RunRecord, []CheckRecord) error { return nil }
func (f *fakeRepo) Runs(context.Context, string, int) ([]RunRecord, error)  { return nil, nil }
func (f *fakeRepo) Close()                                                   { f.closed = true }

func TestRegisterAndNew_Success(t *testing.T) {
	t.Parallel()

	kind := "fake"
	Register(kind, func(ctx context.Context, cfg Config) (Repository, error) {
		return &fakeRepo{}, nil
	})

	repo, err := New(context.Background(), Config{Kind: kind})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if repo == nil {
		t.Fatalf("New returned nil repo")
	}

	found := false
	for _, k := range ListKinds() {
		if k == kind {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("registered kind %q not present in ListKinds: %v", kind, ListKinds())
	}
}

func TestNew_Unsupported(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{Kind: "does-not-exist"})
	if err == nil {
		t.Fatalf("expected error for unsupported kind")
	}
	if got, want := err.Error(), "unsupported storage.kind=does-not-exist"; got != want {
		t.Fatalf("error = %q, want %q", got, want)
	}
}

func TestRegister_Override(t *testing.T) {
	t.Parallel()

	kind := "override"
	calls := 0
	Register(kind, func(ctx context.Context, cfg Config) (Repository, error) {
		calls++
		return &fakeRepo{}, nil
	})
	Register(kind, func(ctx context.Context, cfg Config) (Repository, error) {
		calls += 10
		return &fakeRepo{}, nil
	})

	if _, err := New(context.Background(), Config{Kind: kind}); err != nil {
		t.Fatalf("New error: %v", err)
	}
	if calls != 10 {
		t.Fatalf("factory call count = %d, want 10", calls)
	}
}

func TestListKinds_Snapshot(t *testing.T) {
	t.Parallel()

	Register("snap", func(ctx context.Context, cfg Config) (Repository, error) { return &fakeRepo{}, nil })

	a := ListKinds()
	if len(a) == 0 {
		t.Fatalf("ListKinds empty after registration")
	}
	a[0] = "mutated"

	if b := ListKinds(); reflect.DeepEqual(a, b) {
		t.Fatalf("ListKinds returned same slice; want snapshot copy")
	}
}

func TestRegister_AllowsErrors(t *testing.T) {
	t.Parallel()

	want := errors.New("boom")
	Register("errkind", func(ctx context.Context, cfg Config) (Repository, error) {
		return nil, want
	})

	if _, err := New(context.Background(), Config{Kind: "errkind"}); !errors.Is(err, want) {
		t.Fatalf("want %v, got %v", want, err)
	}
}

func TestResolveTables(t *testing.T) {
	t.Parallel()

	tests := []struct {
		prefix  string
		want    Tables
		wantErr bool
	}{
		{"", Tables{Runs: "dqcheck_runs", Checks: "dqcheck_checks"}, false},
		{"dq", Tables{Runs: "dq_runs", Checks: "dq_checks"}, false},
		{"audit.dq", Tables{Runs: "audit.dq_runs", Checks: "audit.dq_checks"}, false},
		{"dq; DROP TABLE x", Tables{}, true},
		{"1dq", Tables{}, true},
	}
	for _, tt := range tests {
		got, err := ResolveTables(tt.prefix)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ResolveTables(%q) err = %v, wantErr %v", tt.prefix, err, tt.wantErr)
		}
		if tt.wantErr {
			if !errors.Is(err, ErrBadTableName) {
				t.Fatalf("ResolveTables(%q) err = %v, want ErrBadTableName", tt.prefix, err)
			}
			continue
		}
		if got != tt.want {
			t.Fatalf("ResolveTables(%q) = %+v, want %+v", tt.prefix, got, tt.want)
		}
	}
}
