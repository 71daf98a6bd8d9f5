package report

import (
	"context"
	"errors"
	"testing"

	"dqcheck/internal/validation"
)

type recordingSink struct {
	name  string
	err   error
	calls int
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Emit(context.Context, *validation.Result) error {
	s.calls++
	return s.err
}

func TestEmit_AllSinksRunAndErrorsJoin(t *testing.T) {
	boomA, boomB := errors.New("disk full"), errors.New("timeout")
	a := &recordingSink{name: "a", err: boomA}
	b := &recordingSink{name: "b"}
	c := &recordingSink{name: "c", err: boomB}

	err := Emit(context.Background(), sampleResult("movies", true), a, b, c)
	if a.calls != 1 || b.calls != 1 || c.calls != 1 {
		t.Fatalf("calls = %d,%d,%d; every sink must run once", a.calls, b.calls, c.calls)
	}
	if !errors.Is(err, boomA) || !errors.Is(err, boomB) {
		t.Fatalf("err = %v; want both sink errors", err)
	}
	var se *SinkError
	if !errors.As(err, &se) || se.Sink != "a" {
		t.Fatalf("errors.As SinkError = %+v", se)
	}
}

func TestEmit_NoErrors(t *testing.T) {
	if err := Emit(context.Background(), sampleResult("movies", true), &recordingSink{name: "ok"}); err != nil {
		t.Fatalf("Emit = %v", err)
	}
	if err := Emit(context.Background(), sampleResult("movies", true)); err != nil {
		t.Fatalf("Emit with no sinks = %v", err)
	}
}

func TestEmit_NilResult(t *testing.T) {
	s := &recordingSink{name: "x"}
	if err := Emit(context.Background(), nil, s); err == nil {
		t.Fatal("Emit(nil) succeeded")
	}
	if s.calls != 0 {
		t.Fatal("sink called with nil result")
	}
}
