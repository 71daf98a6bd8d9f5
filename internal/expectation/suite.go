package expectation

import (
	"errors"
	"fmt"
	"strings"
)

// Suite is a named, append-only, ordered list of expectations. Insertion
// order is report order. Duplicates are allowed and evaluated separately.
type Suite struct {
	name  string
	items []Expectation
}

// NewSuite returns an empty suite.
func NewSuite(name string) *Suite {
	return &Suite{name: strings.TrimSpace(name)}
}

// Name returns the suite name.
func (s *Suite) Name() string { return s.name }

// Len returns the number of expectations.
func (s *Suite) Len() int { return len(s.items) }

// Add validates e and appends a private copy. An invalid expectation leaves
// the suite unchanged and returns *InvalidExpectationError.
func (s *Suite) Add(e Expectation) error {
	if err := e.Validate(); err != nil {
		var iee *InvalidExpectationError
		if errors.As(err, &iee) {
			iee.Suite = s.name
			iee.Index = len(s.items)
		}
		return err
	}
	s.items = append(s.items, e.clone())
	return nil
}

// AddAll adds each expectation in order, stopping at the first invalid one.
func (s *Suite) AddAll(es ...Expectation) error {
	for _, e := range es {
		if err := s.Add(e); err != nil {
			return err
		}
	}
	return nil
}

// Expectations returns copies of the expectations in suite order.
func (s *Suite) Expectations() []Expectation {
	out := make([]Expectation, len(s.items))
	for i, e := range s.items {
		out[i] = e.clone()
	}
	return out
}

// At returns a copy of the i-th expectation.
func (s *Suite) At(i int) Expectation { return s.items[i].clone() }

func (s *Suite) String() string {
	return fmt.Sprintf("suite %q (%d expectations)", s.name, len(s.items))
}
