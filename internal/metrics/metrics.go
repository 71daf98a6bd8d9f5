// Package metrics is a small, backend-agnostic facade for recording what a
// validation run did. The default backend is a no-op, so instrumentation is
// always safe to call; concrete systems live in subpackages (prompush,
// datadog) and are installed with SetBackend.
package metrics

import (
	"sync"
	"time"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Metric names emitted by this package.
const (
	StepTotal       = "dqcheck_step_total"
	StepDuration    = "dqcheck_step_duration_seconds"
	CheckTotal      = "dqcheck_checks_total"
	RunTotal        = "dqcheck_runs_total"
	DatasetRowsLast = "dqcheck_dataset_rows"
)

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a latency/duration style value.
	ObserveHistogram(name string, value float64, labels Labels)
	// SetGauge records the latest value of a gauge.
	SetGauge(name string, value float64, labels Labels)
	// Flush pushes buffered metrics, for backends that need it.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) SetGauge(string, float64, Labels)         {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs b. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush delegates to the current backend.
func Flush() error { return current().Flush() }

func status(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// RecordStep counts one pipeline step (load, validate, report) and its
// duration, labeled by outcome.
func RecordStep(job, step string, err error, d time.Duration) {
	lbls := Labels{"job": job, "step": step, "status": status(err == nil)}
	b := current()
	b.IncCounter(StepTotal, 1, lbls)
	b.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordCheck counts one evaluated expectation.
func RecordCheck(suite, kind string, success bool) {
	current().IncCounter(CheckTotal, 1, Labels{"suite": suite, "kind": kind, "status": status(success)})
}

// RecordRun counts one completed validation run.
func RecordRun(suite string, success bool) {
	current().IncCounter(RunTotal, 1, Labels{"suite": suite, "status": status(success)})
}

// RecordDatasetRows sets the row count of the last dataset validated by suite.
func RecordDatasetRows(suite string, rows int) {
	if rows < 0 {
		return
	}
	current().SetGauge(DatasetRowsLast, float64(rows), Labels{"suite": suite})
}
