package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dqcheck/internal/datasource/httpds"
	"dqcheck/internal/logging"
	"dqcheck/internal/report"
	"dqcheck/internal/storage"

	"go.uber.org/zap"
)

// sinkOrder is the emit order. object_store follows html_site because it
// uploads the rendered site; notification goes last so it can link to it.
var sinkOrder = []string{"console", "html_site", "object_store", "store", "notification"}

// sinks builds the configured sinks. A sink that cannot be built is reported
// as a *report.SinkError in the returned error and the rest are still built.
// The returned func releases the resources they hold and must be called after
// emitting.
func (p *Pipeline) sinks(ctx context.Context) ([]report.Sink, func(), error) {
	var (
		out     []report.Sink
		closers []func()
		errs    []error
	)
	failed := func(name string, err error) {
		p.log.Warn("report sink unavailable", zap.String("sink", name), zap.Error(err))
		errs = append(errs, &report.SinkError{Sink: name, Err: err})
	}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	rc := p.cfg.Report

	for _, name := range sinkOrder {
		if !p.cfg.HasDestination(name) {
			continue
		}
		switch name {
		case "console":
			out = append(out, report.NewConsole(p.deps.Stdout, false))

		case "html_site":
			out = append(out, report.NewHTMLSite(rc.SiteDir))

		case "object_store":
			o, err := report.NewObjectStore(report.ObjectStoreConfig{
				Endpoint:  rc.ObjectStore.Endpoint,
				Bucket:    rc.ObjectStore.Bucket,
				Prefix:    rc.ObjectStore.Prefix,
				Region:    rc.ObjectStore.Region,
				AccessKey: rc.ObjectStore.AccessKey,
				SecretKey: rc.ObjectStore.SecretKey,
				UseSSL:    rc.ObjectStore.UseSSL,
			}, rc.SiteDir, logging.Component(p.deps.Logger, "object_store"))
			if err != nil {
				failed(name, err)
				continue
			}
			out = append(out, o)

		case "store":
			repo, err := storage.New(ctx, storage.Config{Kind: rc.Store.Kind, DSN: rc.Store.DSN, Table: rc.Store.Table})
			if err != nil {
				failed(name, fmt.Errorf("open result store: %w", err))
				continue
			}
			closers = append(closers, repo.Close)
			if err := repo.EnsureSchema(ctx); err != nil {
				failed(name, fmt.Errorf("result store schema: %w", err))
				continue
			}
			out = append(out, report.NewStore(repo))

		case "notification":
			n := rc.Notification
			policy, err := report.ParseNotifyOn(n.NotifyOn)
			if err != nil {
				failed(name, err)
				continue
			}
			notifier := p.deps.Notifier
			if notifier == nil {
				notifier = report.NewSlack(n.WebhookURL, httpds.NewClient(httpds.Config{
					Timeout:    10 * time.Second,
					MaxRetries: 2,
					Logger:     logging.Component(p.deps.Logger, "httpds"),
				}))
			}
			out = append(out, report.NewNotification(notifier, policy, n.SiteURL))
		}
	}
	return out, closeAll, errors.Join(errs...)
}
