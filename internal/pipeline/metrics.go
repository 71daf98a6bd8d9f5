package pipeline

import (
	"fmt"

	"dqcheck/internal/config"
	"dqcheck/internal/metrics"
	"dqcheck/internal/metrics/datadog"
	"dqcheck/internal/metrics/prompush"

	"go.uber.org/zap"
)

// InstallMetrics makes the configured backend the process metrics backend.
// The returned func flushes it and should run once the job is done. Backend
// "none" keeps the no-op backend.
func InstallMetrics(m config.Metrics, job string, log *zap.Logger) (func(), error) {
	if log == nil {
		log = zap.NewNop()
	}
	switch m.Backend {
	case "", "none":
		return func() {}, nil

	case "prometheus":
		b, err := prompush.NewBackend(job, m.URL)
		if err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		metrics.SetBackend(b)
		log.Info("metrics enabled", zap.String("backend", m.Backend), zap.String("url", m.URL), zap.String("job", job))
		return func() {
			if err := metrics.Flush(); err != nil {
				log.Warn("metrics flush failed", zap.Error(err))
			}
		}, nil

	case "datadog":
		var tags []string
		if job != "" {
			tags = append(tags, "job:"+job)
		}
		b, err := datadog.NewBackend(datadog.Config{Addr: m.Addr, Namespace: m.Namespace, GlobalTags: tags})
		if err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		metrics.SetBackend(b)
		log.Info("metrics enabled", zap.String("backend", m.Backend), zap.String("addr", m.Addr))
		return func() {
			if err := metrics.Flush(); err != nil {
				log.Warn("metrics flush failed", zap.Error(err))
			}
			if err := b.Close(); err != nil {
				log.Warn("metrics close failed", zap.Error(err))
			}
		}, nil
	}
	return nil, fmt.Errorf("metrics: unknown backend %q", m.Backend)
}
