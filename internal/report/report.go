// Package report delivers a validation Result to its configured sinks:
// console, html_site, notification, store and object_store.
package report

import (
	"context"
	"errors"
	"fmt"

	"dqcheck/internal/validation"
)

// Sink receives a finished Result.
type Sink interface {
	// Name identifies the sink in errors and logs, e.g. "console".
	Name() string
	Emit(ctx context.Context, res *validation.Result) error
}

// SinkError attributes a failure to the sink that produced it.
type SinkError struct {
	Sink string
	Err  error
}

func (e *SinkError) Error() string { return fmt.Sprintf("report sink %s: %v", e.Sink, e.Err) }
func (e *SinkError) Unwrap() error { return e.Err }

// Emit invokes every sink in order. A failing sink does not stop the
// following ones; all failures are joined into the returned error.
func Emit(ctx context.Context, res *validation.Result, sinks ...Sink) error {
	if res == nil {
		return errors.New("report: nil result")
	}
	var errs []error
	for _, s := range sinks {
		if err := s.Emit(ctx, res); err != nil {
			errs = append(errs, &SinkError{Sink: s.Name(), Err: err})
		}
	}
	return errors.Join(errs...)
}
