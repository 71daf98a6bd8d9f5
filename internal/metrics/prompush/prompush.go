// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// A validation run is a short-lived batch job, so instead of exposing a
// scrape endpoint the collected registry is pushed to a Pushgateway when the
// run finishes (Flush). The job name is the Pushgateway grouping key.
package prompush

import (
	"fmt"

	"dqcheck/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string
	reg        *prometheus.Registry

	stepCounter  *prometheus.CounterVec // dqcheck_step_total
	stepDuration *prometheus.SummaryVec // dqcheck_step_duration_seconds
	checkCounter *prometheus.CounterVec // dqcheck_checks_total
	runCounter   *prometheus.CounterVec // dqcheck_runs_total
	rowsGauge    *prometheus.GaugeVec   // dqcheck_dataset_rows
}

// NewBackend constructs a Prometheus Pushgateway backend.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "dqcheck"
	}

	reg := prometheus.NewRegistry()

	stepCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.StepTotal,
			Help: "Pipeline step executions, partitioned by step and status.",
		},
		[]string{"step", "status"},
	)
	stepDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       metrics.StepDuration,
			Help:       "Duration of pipeline steps in seconds.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"step", "status"},
	)
	checkCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.CheckTotal,
			Help: "Evaluated expectations, partitioned by suite, kind and status.",
		},
		[]string{"suite", "kind", "status"},
	)
	runCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.RunTotal,
			Help: "Completed validation runs, partitioned by suite and status.",
		},
		[]string{"suite", "status"},
	)
	rowsGauge := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: metrics.DatasetRowsLast,
			Help: "Row count of the last dataset validated by a suite.",
		},
		[]string{"suite"},
	)

	for name, c := range map[string]prometheus.Collector{
		"step counter":  stepCounter,
		"step summary":  stepDuration,
		"check counter": checkCounter,
		"run counter":   runCounter,
		"rows gauge":    rowsGauge,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", name, err)
		}
	}

	return &Backend{
		gatewayURL:   gatewayURL,
		jobName:      jobName,
		reg:          reg,
		stepCounter:  stepCounter,
		stepDuration: stepDuration,
		checkCounter: checkCounter,
		runCounter:   runCounter,
		rowsGauge:    rowsGauge,
	}, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.StepTotal:
		if b.stepCounter == nil {
			return
		}
		b.stepCounter.WithLabelValues(labels["step"], labels["status"]).Add(delta)

	case metrics.CheckTotal:
		if b.checkCounter == nil {
			return
		}
		b.checkCounter.WithLabelValues(labels["suite"], labels["kind"], labels["status"]).Add(delta)

	case metrics.RunTotal:
		if b.runCounter == nil {
			return
		}
		b.runCounter.WithLabelValues(labels["suite"], labels["status"]).Add(delta)

	default:
		// unknown metric name: ignore
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.StepDuration || b.stepDuration == nil {
		return
	}
	b.stepDuration.WithLabelValues(labels["step"], labels["status"]).Observe(value)
}

func (b *Backend) SetGauge(name string, value float64, labels metrics.Labels) {
	if name != metrics.DatasetRowsLast || b.rowsGauge == nil {
		return
	}
	b.rowsGauge.WithLabelValues(labels["suite"]).Set(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
