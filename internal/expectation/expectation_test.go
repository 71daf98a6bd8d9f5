package expectation

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestValidate(t *testing.T) {
	lo, hi := 21.0, 18.0
	nan := math.NaN()

	cases := []struct {
		name    string
		e       Expectation
		wantErr string
	}{
		{name: "not_null_ok", e: ColumnNotNull("movieId")},
		{name: "not_null_no_column", e: ColumnNotNull(""), wantErr: "column is required"},
		{name: "row_count_ok", e: RowCountEquals(15)},
		{name: "row_count_zero_ok", e: RowCountEquals(0)},
		{name: "row_count_negative", e: RowCountEquals(-1), wantErr: "must be >= 0"},
		{name: "max_between_ok", e: ColumnMaxBetween("age", 18, 21)},
		{name: "max_between_equal_bounds_ok", e: ColumnMaxBetween("age", 18, 18)},
		{name: "max_between_inverted", e: Expectation{Kind: KindColumnMaxBetween, Column: "age", Min: &lo, Max: &hi}, wantErr: "greater than"},
		{name: "max_between_no_bounds", e: Expectation{Kind: KindColumnMaxBetween, Column: "age"}, wantErr: "at least one"},
		{name: "max_between_nan", e: ColumnMaxAtMost("age", nan), wantErr: "finite"},
		{name: "max_at_least_ok", e: ColumnMaxAtLeast("age", 1)},
		{name: "zero_value", e: Expectation{}, wantErr: "kind is required"},
		{name: "unknown_kind", e: Expectation{Kind: "expect_magic"}, wantErr: "unsupported kind"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.e.Validate()
			if c.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			var iee *InvalidExpectationError
			if !errors.As(err, &iee) {
				t.Fatalf("err = %v; want *InvalidExpectationError", err)
			}
			if !strings.Contains(err.Error(), c.wantErr) {
				t.Fatalf("err = %q; want substring %q", err, c.wantErr)
			}
		})
	}
}

func TestTargetAndParameters(t *testing.T) {
	if got := RowCountEquals(3).Target(); got != TableTarget {
		t.Errorf("RowCountEquals target = %q", got)
	}
	if got := ColumnNotNull("title").Target(); got != "title" {
		t.Errorf("ColumnNotNull target = %q", got)
	}
	want := map[string]any{"column": "age", "min_value": 18.0, "max_value": 21.0}
	if diff := cmp.Diff(want, ColumnMaxBetween("age", 18, 21).Parameters()); diff != "" {
		t.Errorf("Parameters mismatch:\n%s", diff)
	}
	if diff := cmp.Diff(map[string]any{"column": "age", "max_value": 5.0}, ColumnMaxAtMost("age", 5).Parameters()); diff != "" {
		t.Errorf("open-bound Parameters mismatch:\n%s", diff)
	}
}

func TestString(t *testing.T) {
	cases := map[string]Expectation{
		"title is not null":     ColumnNotNull("title"),
		"row count = 15":        RowCountEquals(15),
		"max(age) in [18, 21]":  ColumnMaxBetween("age", 18, 21),
		"max(x) in [-inf, 2.5]": ColumnMaxAtMost("x", 2.5),
	}
	for want, e := range cases {
		if got := e.String(); got != want {
			t.Errorf("String() = %q; want %q", got, want)
		}
	}
}
