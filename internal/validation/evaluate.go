package validation

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"dqcheck/internal/dataset"
	"dqcheck/internal/expectation"
)

// DefaultPartialUnexpectedLimit caps the row indexes listed for a failed
// not-null check.
const DefaultPartialUnexpectedLimit = 20

type evalOptions struct {
	format       Format
	partialLimit int
}

// evaluate runs one expectation against ds. It never fails: problems with the
// target become an unsuccessful CheckResult with a Reason.
func evaluate(ds *dataset.Dataset, idx int, e expectation.Expectation, opt evalOptions) CheckResult {
	res := CheckResult{
		Index:       idx,
		Expectation: e,
		Type:        e.Kind,
		Target:      e.Target(),
		Kwargs:      e.Parameters(),
		Description: e.String(),
	}

	var ev evidence
	switch e.Kind {
	case expectation.KindColumnNotNull:
		ev = evalNotNull(ds, e.Column, opt.partialLimit)
	case expectation.KindRowCountEquals:
		ev = evalRowCount(ds, e.Value)
	case expectation.KindColumnMaxBetween:
		ev = evalMaxBetween(ds, e.Column, e.Min, e.Max)
	default:
		// Suites only hold validated kinds; keep the result well-formed anyway.
		ev = evidence{message: fmt.Sprintf("unsupported expectation kind %q", e.Kind)}
	}

	res.Success = ev.success
	res.Reason = ev.reason
	res.Message = ev.brief
	if opt.format == FormatComplete {
		res.ObservedValue = ev.observed
		res.Details = ev.details
		res.Message = ev.message
	}
	return res
}

// evidence is the outcome of one check. message may quote observed data;
// brief never does and is what summary results carry.
type evidence struct {
	success  bool
	observed any
	details  map[string]any
	reason   Reason
	message  string
	brief    string
}

func unknownColumn(ds *dataset.Dataset, column string) evidence {
	names := make([]string, 0, ds.NumColumns())
	for _, c := range ds.Columns() {
		names = append(names, c.Name)
	}
	msg := fmt.Sprintf("column %q not found (have %s)", column, strings.Join(names, ", "))
	return evidence{reason: ReasonUnknownColumn, message: msg, brief: msg}
}

func evalNotNull(ds *dataset.Dataset, column string, limit int) evidence {
	vals, ok := ds.Values(column)
	if !ok {
		return unknownColumn(ds, column)
	}

	unexpected := 0
	var partial []int
	for i, v := range vals {
		if v != nil {
			continue
		}
		unexpected++
		if len(partial) < limit {
			partial = append(partial, i)
		}
	}

	pct := 0.0
	if len(vals) > 0 {
		pct = float64(unexpected) * 100 / float64(len(vals))
	}
	details := map[string]any{
		"element_count":      len(vals),
		"unexpected_count":   unexpected,
		"unexpected_percent": pct,
	}
	if len(partial) > 0 {
		details["partial_unexpected_index_list"] = partial
	}

	ev := evidence{success: unexpected == 0, observed: unexpected, details: details}
	if !ev.success {
		ev.message = fmt.Sprintf("%d of %d values are null", unexpected, len(vals))
		ev.brief = "column has null values"
	}
	return ev
}

func evalRowCount(ds *dataset.Dataset, want int64) evidence {
	got := ds.NumRows()
	ev := evidence{success: int64(got) == want, observed: got}
	if !ev.success {
		ev.message = fmt.Sprintf("row count %d, expected %d", got, want)
		ev.brief = fmt.Sprintf("row count is not %d", want)
	}
	return ev
}

func evalMaxBetween(ds *dataset.Dataset, column string, lo, hi *float64) evidence {
	col, ok := ds.Column(column)
	if !ok {
		return unknownColumn(ds, column)
	}
	vals, _ := ds.Values(column)

	var (
		max      float64
		maxInt   int64
		allInt   = true
		observed any
		nonNull  int
	)
	for i, v := range vals {
		if v == nil {
			continue
		}
		f, ok := numeric(v)
		if !ok {
			return evidence{
				reason:  ReasonNonNumericColumn,
				message: fmt.Sprintf("column %q (%s) has non-numeric value %v at row %d", column, col.Type, v, i),
				brief:   fmt.Sprintf("column %q (%s) is not numeric", column, col.Type),
			}
		}
		n, isInt := v.(int64)
		allInt = allInt && isInt
		switch {
		case nonNull == 0:
			max, maxInt, observed = f, n, v
		case isInt && allInt:
			if n > maxInt {
				max, maxInt, observed = f, n, v
			}
		case f > max:
			max, observed = f, v
		}
		nonNull++
	}

	details := map[string]any{
		"element_count": len(vals),
		"missing_count": len(vals) - nonNull,
	}
	if nonNull == 0 {
		msg := fmt.Sprintf("column %q has no non-null values", column)
		return evidence{details: details, reason: ReasonEmptyColumn, message: msg, brief: msg}
	}
	if s, isText := observed.(string); isText {
		observed = parsedText(s)
	}

	// cmpBound orders the maximum against a bound. Integer columns compare
	// exactly; float64 cannot represent every int64 above 2^53.
	cmpBound := func(b float64) int {
		if allInt {
			return cmpIntFloat(maxInt, b)
		}
		switch {
		case max < b:
			return -1
		case max > b:
			return 1
		}
		return 0
	}

	ev := evidence{success: true, observed: observed, details: details}
	switch {
	case lo != nil && cmpBound(*lo) < 0:
		ev.success = false
		ev.message = fmt.Sprintf("max %v is below %v", observed, *lo)
	case hi != nil && cmpBound(*hi) > 0:
		ev.success = false
		ev.message = fmt.Sprintf("max %v is above %v", observed, *hi)
	}
	if !ev.success {
		ev.brief = "max out of " + boundsText(lo, hi)
	}
	return ev
}

// cmpIntFloat compares x with b without rounding x to float64.
func cmpIntFloat(x int64, b float64) int {
	switch {
	case b >= 0x1p63:
		return -1
	case b < -0x1p63:
		return 1
	}
	fl := math.Floor(b)
	n := int64(fl)
	switch {
	case x < n:
		return -1
	case x > n:
		return 1
	case fl == b:
		return 0
	}
	return -1
}

func boundsText(lo, hi *float64) string {
	l, h := "-inf", "+inf"
	if lo != nil {
		l = strconv.FormatFloat(*lo, 'f', -1, 64)
	}
	if hi != nil {
		h = strconv.FormatFloat(*hi, 'f', -1, 64)
	}
	return "[" + l + ", " + h + "]"
}

// numeric reports v as a float. Text is accepted when it parses as a finite
// number, so unhinted numeric columns still work.
func numeric(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, !math.IsNaN(x)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// parsedText reports a text maximum as int64 or float64 so observed values
// render as numbers.
func parsedText(s string) any {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
