// Package pipeline wires one validation run from a config.Pipeline: load the
// dataset, build the suite, evaluate it and emit the result to every
// configured sink. Each Pipeline owns its configuration; nothing is read from
// process-wide state.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"dqcheck/internal/config"
	"dqcheck/internal/dataset"
	"dqcheck/internal/datasource"
	"dqcheck/internal/datasource/httpds"
	"dqcheck/internal/expectation"
	"dqcheck/internal/logging"
	"dqcheck/internal/metrics"
	pcsv "dqcheck/internal/parser/csv"
	"dqcheck/internal/report"
	"dqcheck/internal/validation"

	"go.uber.org/zap"
)

// Step names used in logs and the dqcheck_step_total metric.
const (
	StepLoad  = "load"
	StepSuite = "suite"
	StepRun   = "run"
	StepEmit  = "emit"
)

// Deps are the process resources a Pipeline uses. Zero values get defaults.
type Deps struct {
	Logger *zap.Logger
	// Stdout receives the console sink. Nil means os.Stdout.
	Stdout io.Writer
	// SourceClient fetches http sources. Nil builds one from source.options.
	SourceClient *httpds.Client
	// Notifier replaces the configured webhook notifier.
	Notifier report.Notifier
}

// Pipeline runs one configured validation.
type Pipeline struct {
	cfg  config.Pipeline
	deps Deps
	log  *zap.Logger
}

// New applies defaults to cfg and rejects it when linting finds errors.
// Warnings are logged.
func New(cfg config.Pipeline, deps Deps) (*Pipeline, error) {
	cfg.ApplyDefaults()
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	log := logging.Component(deps.Logger, "pipeline").With(zap.String("job", cfg.Job))

	var errs []error
	for _, iss := range config.ValidatePipeline(cfg) {
		if iss.Severity == config.SeverityError {
			errs = append(errs, iss)
			continue
		}
		log.Warn("config warning", zap.String("path", iss.Path), zap.String("message", iss.Message))
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid pipeline config: %w", errors.Join(errs...))
	}
	return &Pipeline{cfg: cfg, deps: deps, log: log}, nil
}

// Config returns the effective configuration, defaults included.
func (p *Pipeline) Config() config.Pipeline { return p.cfg }

// Run loads, validates and reports. Loading and suite errors abort before any
// check runs and return a nil Result. Sink failures are returned together
// with the Result, which is complete regardless.
func (p *Pipeline) Run(ctx context.Context) (*validation.Result, error) {
	start := time.Now()

	var ds *dataset.Dataset
	err := p.step(StepLoad, func() error {
		var err error
		ds, err = p.load(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	var suite *expectation.Suite
	err = p.step(StepSuite, func() error {
		var err error
		suite, err = p.cfg.Suite.BuildSuite()
		return err
	})
	if err != nil {
		return nil, err
	}

	format, err := validation.ParseFormat(p.cfg.ResultFormat)
	if err != nil {
		return nil, err
	}
	runner := validation.NewRunner(validation.Options{
		Workers:                p.cfg.Runtime.Workers,
		PartialUnexpectedLimit: p.cfg.Runtime.PartialUnexpectedLimit,
	}, logging.Component(p.deps.Logger, "validation"))

	var res *validation.Result
	err = p.step(StepRun, func() error {
		var err error
		res, err = runner.Run(ctx, ds, suite, format)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = p.step(StepEmit, func() error { return p.emit(ctx, res) })

	p.log.Info("pipeline finished",
		zap.String("suite", res.Suite),
		zap.Bool("success", res.Success),
		zap.Duration("elapsed", time.Since(start)))
	return res, err
}

// step times fn and records it under name.
func (p *Pipeline) step(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	d := time.Since(start)
	metrics.RecordStep(p.cfg.Job, name, err, d)
	if err != nil {
		p.log.Error("step failed", zap.String("step", name), zap.Duration("elapsed", d), zap.Error(err))
		return fmt.Errorf("%s: %w", name, err)
	}
	p.log.Debug("step done", zap.String("step", name), zap.Duration("elapsed", d))
	return nil
}

func (p *Pipeline) load(ctx context.Context) (*dataset.Dataset, error) {
	s := p.cfg.Source
	hints, err := dataset.ParseHints(s.SchemaHints)
	if err != nil {
		return nil, err
	}

	location := s.Path
	if s.Kind == "http" {
		location = s.URL
	}
	client := p.deps.SourceClient
	if client == nil && s.Kind == "http" {
		client = sourceClient(s.Options, p.deps.Logger)
	}
	src := datasource.Resolve(location, client)

	loader := dataset.NewLoader(dataset.LoaderOptions{CSV: pcsv.Options{
		Comma:     []rune(s.Delimiter)[0],
		TrimSpace: s.TrimSpace,
		Encoding:  s.Encoding,
		HeaderMap: s.HeaderMap,
	}}, logging.Component(p.deps.Logger, "loader"))
	return loader.Load(ctx, src, hints)
}

// sourceClient builds the http source client from source.options.
func sourceClient(opt config.Options, log *zap.Logger) *httpds.Client {
	headers := make(map[string][]string)
	for k, v := range opt.StringMap("headers") {
		headers[k] = []string{v}
	}
	return httpds.NewClient(httpds.Config{
		Timeout:            time.Duration(opt.Int("timeout_seconds", 30)) * time.Second,
		MaxRetries:         opt.Int("max_retries", 2),
		InsecureSkipVerify: opt.Bool("insecure_skip_verify", false),
		BaseHeaders:        headers,
		Logger:             logging.Component(log, "httpds"),
	})
}

func (p *Pipeline) emit(ctx context.Context, res *validation.Result) error {
	sinks, closeSinks, buildErr := p.sinks(ctx)
	defer closeSinks()
	return errors.Join(buildErr, report.Emit(ctx, res, sinks...))
}
