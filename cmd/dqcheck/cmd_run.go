package main

import (
	"errors"
	"fmt"

	"dqcheck/internal/config"
	"dqcheck/internal/logging"
	"dqcheck/internal/pipeline"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var errChecksFailed = errors.New("validation failed")

type runFlags struct {
	configPath     string
	siteDir        string
	resultFormat   string
	metricsBackend string
	pushgatewayURL string
	logLevel       string
	logFormat      string
}

func newRunCmd(getenv func(string) string) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a pipeline: load the dataset, evaluate the suite, emit the report",
		Long: `Runs the pipeline described by --config.

Settings resolve flag → environment → config file → default. The command exits
with status 2 when the run completed but at least one expectation failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd, f, getenv)
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.configPath, "config", "c", "configs/movies.yaml", "pipeline config path (.json, .yaml or .yml)")
	fl.StringVar(&f.siteDir, "site-dir", "", "html site directory (overrides env "+config.EnvSiteDir+")")
	fl.StringVar(&f.resultFormat, "format", "", "result format: summary or complete")
	fl.StringVar(&f.metricsBackend, "metrics-backend", "", "metrics backend: none, prometheus or datadog (overrides env "+config.EnvMetricsBackend+")")
	fl.StringVar(&f.pushgatewayURL, "pushgateway-url", "", "Pushgateway base URL (overrides env "+config.EnvPushgatewayURL+")")
	fl.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn or error")
	fl.StringVar(&f.logFormat, "log-format", "", "log format: console or json")
	return cmd
}

// loadConfig reads the file and layers environment then flag overrides.
func loadConfig(f runFlags, getenv func(string) string) (config.Pipeline, error) {
	p, err := config.Load(f.configPath)
	if err != nil {
		return config.Pipeline{}, err
	}
	config.ApplyEnv(&p, getenv)
	if f.siteDir != "" {
		p.Report.SiteDir = f.siteDir
	}
	if f.resultFormat != "" {
		p.ResultFormat = f.resultFormat
	}
	if f.pushgatewayURL != "" {
		p.Metrics.URL = f.pushgatewayURL
		if p.Metrics.Backend == "" || p.Metrics.Backend == "none" {
			p.Metrics.Backend = "prometheus"
		}
	}
	if f.metricsBackend != "" {
		p.Metrics.Backend = f.metricsBackend
	}
	if f.logLevel != "" {
		p.Logging.Level = f.logLevel
	}
	if f.logFormat != "" {
		p.Logging.Format = f.logFormat
	}
	p.ApplyDefaults()
	return p, nil
}

func runPipeline(cmd *cobra.Command, f runFlags, getenv func(string) string) error {
	cfg, err := loadConfig(f, getenv)
	if err != nil {
		return err
	}
	log, err := logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	p, err := pipeline.New(cfg, pipeline.Deps{Logger: log, Stdout: cmd.OutOrStdout()})
	if err != nil {
		return err
	}

	flush, err := pipeline.InstallMetrics(cfg.Metrics, cfg.Job, log)
	if err != nil {
		log.Warn("metrics disabled", zap.Error(err))
		flush = func() {}
	}
	defer flush()

	res, err := p.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("run %s: %w", f.configPath, err)
	}
	if !res.Success {
		return errChecksFailed
	}
	return nil
}
