package report

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestConsole_Emit(t *testing.T) {
	var buf bytes.Buffer
	if err := NewConsole(&buf, false).Emit(context.Background(), sampleResult("movies", false)); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"row count = 15",
		"FAIL",
		"UnknownColumnError",
		`FAILED suite "movies": 1 of 2 expectations met (50.0%) on 15 rows in 42ms`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("console output missing %q:\n%s", want, out)
		}
	}
}

func TestConsole_Markdown(t *testing.T) {
	var buf bytes.Buffer
	if err := NewConsole(&buf, true).Emit(context.Background(), sampleResult("movies", true)); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if !strings.Contains(buf.String(), "row count = 15 |") {
		t.Fatalf("markdown table not rendered:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "PASSED") {
		t.Fatalf("verdict missing:\n%s", buf.String())
	}
}

func TestFormatObserved(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{15, "15"},
		{int64(1234567), "1,234,567"},
		{20.5, "20.5"},
		{21.0, "21"},
		{0.0, "0"},
		{"x", "x"},
	}
	for _, tt := range tests {
		if got := FormatObserved(tt.in); got != tt.want {
			t.Errorf("FormatObserved(%#v) = %q; want %q", tt.in, got, tt.want)
		}
	}
}
