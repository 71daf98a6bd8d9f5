package validation

import (
	"fmt"
	"strings"
	"time"

	"dqcheck/internal/expectation"
)

// Format controls how much of each check's evidence a Result carries.
type Format string

const (
	// FormatSummary keeps only pass/fail and, for failures, the reason.
	FormatSummary Format = "summary"
	// FormatComplete adds observed values and details.
	FormatComplete Format = "complete"
)

// ParseFormat accepts "summary" or "complete" in any case. Empty means
// FormatSummary.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(FormatSummary):
		return FormatSummary, nil
	case string(FormatComplete):
		return FormatComplete, nil
	default:
		return "", fmt.Errorf("validation: unknown result format %q (want summary or complete)", s)
	}
}

// Reason explains why a check failed for a reason other than its condition
// being false. It is recorded in the result; it never aborts a run.
type Reason string

const (
	ReasonUnknownColumn    Reason = "UnknownColumnError"
	ReasonEmptyColumn      Reason = "EmptyColumn"
	ReasonNonNumericColumn Reason = "NonNumericColumn"
)

// CheckResult is the outcome of one expectation.
type CheckResult struct {
	// Index is the expectation's position in its suite.
	Index       int                     `json:"index"`
	Expectation expectation.Expectation `json:"-"`
	Type        expectation.Kind        `json:"expectation_type"`
	Target      string                  `json:"target"`
	Kwargs      map[string]any          `json:"kwargs"`
	Description string                  `json:"description"`
	Success     bool                    `json:"success"`

	// ObservedValue and Details are only set for FormatComplete.
	ObservedValue any            `json:"observed_value,omitempty"`
	Details       map[string]any `json:"details,omitempty"`

	Reason  Reason `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

// Statistics summarises a run the way the results page shows it.
type Statistics struct {
	Evaluated      int     `json:"evaluated_expectations"`
	Successful     int     `json:"successful_expectations"`
	Unsuccessful   int     `json:"unsuccessful_expectations"`
	SuccessPercent float64 `json:"success_percent"`
}

// DatasetInfo identifies the dataset a run validated.
type DatasetInfo struct {
	Location    string `json:"location"`
	Fingerprint string `json:"fingerprint"`
	Rows        int    `json:"rows"`
	Columns     int    `json:"columns"`
}

// Result is the outcome of one run: one Dataset against one Suite.
type Result struct {
	RunID      string        `json:"run_id"`
	Suite      string        `json:"suite"`
	Success    bool          `json:"success"`
	Format     Format        `json:"result_format"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Dataset    DatasetInfo   `json:"dataset"`
	Statistics Statistics    `json:"statistics"`
	Results    []CheckResult `json:"results"`
}

// Duration is the wall time of the run.
func (r *Result) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// Failed returns the unsuccessful checks in suite order.
func (r *Result) Failed() []CheckResult {
	var out []CheckResult
	for _, c := range r.Results {
		if !c.Success {
			out = append(out, c)
		}
	}
	return out
}

func computeStatistics(results []CheckResult) Statistics {
	s := Statistics{Evaluated: len(results), SuccessPercent: 100}
	for _, c := range results {
		if c.Success {
			s.Successful++
		} else {
			s.Unsuccessful++
		}
	}
	if s.Evaluated > 0 {
		s.SuccessPercent = float64(s.Successful) * 100 / float64(s.Evaluated)
	}
	return s
}
