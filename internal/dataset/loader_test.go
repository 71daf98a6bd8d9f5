package dataset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"dqcheck/internal/datasource/file"
)

const moviesPath = "../../testdata/movies.csv"

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "in.csv")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return p
}

func TestLoad_Movies(t *testing.T) {
	l := NewLoader(LoaderOptions{}, nil)
	d, err := l.Load(context.Background(), file.NewLocal(moviesPath), map[string]Type{"age": TypeInt})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if d.NumRows() != 15 {
		t.Fatalf("rows = %d; want 15", d.NumRows())
	}
	want := []Column{
		{Name: "movieId", Type: TypeString},
		{Name: "title", Type: TypeString},
		{Name: "genres", Type: TypeString},
		{Name: "age", Type: TypeInt},
	}
	got := d.Columns()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("column %d = %+v; want %+v", i, got[i], want[i])
		}
	}
	ages, _ := d.Values("age")
	var max int64
	for _, v := range ages {
		if n := v.(int64); n > max {
			max = n
		}
	}
	if max != 20 {
		t.Fatalf("max(age) = %d; want 20", max)
	}
	if d.Location() != moviesPath {
		t.Fatalf("Location = %q", d.Location())
	}
}

func TestLoad_NullsStayNullUnderHint(t *testing.T) {
	p := writeCSV(t, "id,age\n1,\n2,30\n")
	d, err := NewLoader(LoaderOptions{}, nil).Load(context.Background(), file.NewLocal(p), map[string]Type{"age": TypeInt})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	ages, _ := d.Values("age")
	if ages[0] != nil || ages[1] != int64(30) {
		t.Fatalf("ages = %#v", ages)
	}
}

func TestLoad_Errors(t *testing.T) {
	ctx := context.Background()
	l := NewLoader(LoaderOptions{}, nil)

	t.Run("source_not_found", func(t *testing.T) {
		_, err := l.Load(ctx, file.NewLocal(filepath.Join(t.TempDir(), "nope.csv")), nil)
		var snf *SourceNotFoundError
		if !errors.As(err, &snf) {
			t.Fatalf("err = %v; want *SourceNotFoundError", err)
		}
		if !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("err = %v; want to wrap os.ErrNotExist", err)
		}
	})

	t.Run("bad_value", func(t *testing.T) {
		p := writeCSV(t, "id,age\n1,18\n2,eighteen\n")
		_, err := l.Load(ctx, file.NewLocal(p), map[string]Type{"age": TypeInt})
		var tce *TypeCoercionError
		if !errors.As(err, &tce) {
			t.Fatalf("err = %v; want *TypeCoercionError", err)
		}
		if tce.Column != "age" || tce.Row != 1 || tce.Value != "eighteen" {
			t.Fatalf("TypeCoercionError = %+v", tce)
		}
	})

	t.Run("hint_for_missing_column", func(t *testing.T) {
		p := writeCSV(t, "id\n1\n")
		_, err := l.Load(ctx, file.NewLocal(p), map[string]Type{"age": TypeInt})
		var tce *TypeCoercionError
		if !errors.As(err, &tce) || tce.Row != -1 {
			t.Fatalf("err = %v; want missing-column TypeCoercionError", err)
		}
	})

	t.Run("ragged_rows", func(t *testing.T) {
		p := writeCSV(t, "id,age\n1\n")
		_, err := l.Load(ctx, file.NewLocal(p), nil)
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("err = %v; want *ParseError", err)
		}
	})

	t.Run("canceled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := l.Load(cctx, file.NewLocal(moviesPath), nil)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v; want context.Canceled", err)
		}
	})
}

func TestParseHints(t *testing.T) {
	h, err := ParseHints(map[string]string{"age": "integer", "score": "double"})
	if err != nil {
		t.Fatalf("ParseHints: %v", err)
	}
	if h["age"] != TypeInt || h["score"] != TypeFloat {
		t.Fatalf("hints = %v", h)
	}
	if _, err := ParseHints(map[string]string{"x": "geometry"}); err == nil {
		t.Fatal("expected error for unknown type")
	}
	if h, err := ParseHints(nil); err != nil || h != nil {
		t.Fatalf("ParseHints(nil) = %v, %v", h, err)
	}
}
