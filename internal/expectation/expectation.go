// Package expectation defines declarative data-quality checks and the named,
// ordered suites that group them.
//
// Kinds form a closed set. Each Expectation is validated when it is added to
// a Suite, never against a dataset: whether a target column exists is only
// known at run time.
package expectation

import (
	"fmt"
	"math"
	"strconv"
)

// Kind identifies a check. The string values are the names used in persisted
// suites.
type Kind string

const (
	KindColumnNotNull    Kind = "expect_column_values_to_not_be_null"
	KindRowCountEquals   Kind = "expect_table_row_count_to_equal"
	KindColumnMaxBetween Kind = "expect_column_max_to_be_between"
)

// Kinds lists every supported kind in a fixed order.
func Kinds() []Kind {
	return []Kind{KindColumnNotNull, KindRowCountEquals, KindColumnMaxBetween}
}

// TableTarget is the Target of table-level expectations.
const TableTarget = "table"

// Expectation is one declarative check. Build values with the constructors;
// the zero value is not valid.
type Expectation struct {
	Kind Kind
	// Column is the target column; empty for table-level kinds.
	Column string
	// Value is the expected row count for KindRowCountEquals.
	Value int64
	// Min and Max bound KindColumnMaxBetween. Either may be nil (open side),
	// but not both.
	Min, Max *float64
}

// ColumnNotNull expects no null values in column.
func ColumnNotNull(column string) Expectation {
	return Expectation{Kind: KindColumnNotNull, Column: column}
}

// RowCountEquals expects exactly n rows.
func RowCountEquals(n int64) Expectation {
	return Expectation{Kind: KindRowCountEquals, Value: n}
}

// ColumnMaxBetween expects min <= max(column) <= max, both inclusive.
func ColumnMaxBetween(column string, min, max float64) Expectation {
	return Expectation{Kind: KindColumnMaxBetween, Column: column, Min: &min, Max: &max}
}

// ColumnMaxAtLeast expects max(column) >= min, with no upper bound.
func ColumnMaxAtLeast(column string, min float64) Expectation {
	return Expectation{Kind: KindColumnMaxBetween, Column: column, Min: &min}
}

// ColumnMaxAtMost expects max(column) <= max, with no lower bound.
func ColumnMaxAtMost(column string, max float64) Expectation {
	return Expectation{Kind: KindColumnMaxBetween, Column: column, Max: &max}
}

// Target is the column name, or TableTarget for table-level kinds.
func (e Expectation) Target() string {
	if e.Kind == KindRowCountEquals {
		return TableTarget
	}
	return e.Column
}

// Parameters returns the check's arguments keyed by their persisted names.
func (e Expectation) Parameters() map[string]any {
	p := map[string]any{}
	switch e.Kind {
	case KindColumnNotNull:
		p["column"] = e.Column
	case KindRowCountEquals:
		p["value"] = e.Value
	case KindColumnMaxBetween:
		p["column"] = e.Column
		if e.Min != nil {
			p["min_value"] = *e.Min
		}
		if e.Max != nil {
			p["max_value"] = *e.Max
		}
	}
	return p
}

// Validate reports why e can never be evaluated meaningfully.
func (e Expectation) Validate() error {
	invalid := func(format string, a ...any) error {
		return &InvalidExpectationError{Index: -1, Kind: e.Kind, Reason: fmt.Sprintf(format, a...)}
	}
	switch e.Kind {
	case KindColumnNotNull:
		if e.Column == "" {
			return invalid("column is required")
		}
	case KindRowCountEquals:
		if e.Value < 0 {
			return invalid("value must be >= 0, got %d", e.Value)
		}
	case KindColumnMaxBetween:
		if e.Column == "" {
			return invalid("column is required")
		}
		if e.Min == nil && e.Max == nil {
			return invalid("at least one of min_value or max_value is required")
		}
		for _, b := range []*float64{e.Min, e.Max} {
			if b != nil && (math.IsNaN(*b) || math.IsInf(*b, 0)) {
				return invalid("bounds must be finite numbers")
			}
		}
		if e.Min != nil && e.Max != nil && *e.Min > *e.Max {
			return invalid("min_value %s is greater than max_value %s", formatNum(*e.Min), formatNum(*e.Max))
		}
	case "":
		return invalid("kind is required")
	default:
		return invalid("unsupported kind")
	}
	return nil
}

// String renders a short human description, e.g. "max(age) in [18, 21]".
func (e Expectation) String() string {
	switch e.Kind {
	case KindColumnNotNull:
		return fmt.Sprintf("%s is not null", e.Column)
	case KindRowCountEquals:
		return fmt.Sprintf("row count = %d", e.Value)
	case KindColumnMaxBetween:
		lo, hi := "-inf", "+inf"
		if e.Min != nil {
			lo = formatNum(*e.Min)
		}
		if e.Max != nil {
			hi = formatNum(*e.Max)
		}
		return fmt.Sprintf("max(%s) in [%s, %s]", e.Column, lo, hi)
	}
	return string(e.Kind)
}

// clone deep-copies the bound pointers so a Suite never shares them with the
// caller.
func (e Expectation) clone() Expectation {
	if e.Min != nil {
		v := *e.Min
		e.Min = &v
	}
	if e.Max != nil {
		v := *e.Max
		e.Max = &v
	}
	return e
}

func formatNum(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
