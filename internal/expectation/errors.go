package expectation

import "fmt"

// InvalidExpectationError rejects a malformed or self-contradictory check at
// registration time. Index is the position it would have taken in the suite,
// or -1 when validated outside a suite.
type InvalidExpectationError struct {
	Suite  string
	Index  int
	Kind   Kind
	Reason string
}

func (e *InvalidExpectationError) Error() string {
	kind := string(e.Kind)
	if kind == "" {
		kind = "<none>"
	}
	if e.Suite == "" {
		return fmt.Sprintf("invalid expectation %s: %s", kind, e.Reason)
	}
	return fmt.Sprintf("suite %q: invalid expectation #%d %s: %s", e.Suite, e.Index, kind, e.Reason)
}
