package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables that override file values. Flags override both.
const (
	EnvSiteDir        = "DQCHECK_SITE_DIR"
	EnvPushgatewayURL = "PUSHGATEWAY_URL"
	EnvMetricsBackend = "METRICS_BACKEND"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultSiteDir      = "dqcheck-site"
	DefaultResultFormat = "summary"
	DefaultStoreKind    = "sqlite"
	DefaultNotifyOn     = "all"
)

// Load reads a pipeline file. The format follows the extension: .json, or
// .yaml/.yml.
func Load(path string) (Pipeline, error) {
	f, err := os.Open(path)
	if err != nil {
		return Pipeline{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	p, err := Decode(f, format)
	if err != nil {
		return Pipeline{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return p, nil
}

// Decode reads a pipeline in format "json", "yaml" or "yml". Unknown fields
// are rejected so typos surface early.
func Decode(r io.Reader, format string) (Pipeline, error) {
	var p Pipeline
	switch format {
	case "json":
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return Pipeline{}, err
		}
	case "yaml", "yml":
		b, err := io.ReadAll(r)
		if err != nil {
			return Pipeline{}, err
		}
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err := dec.Decode(&p); err != nil && err != io.EOF {
			return Pipeline{}, err
		}
	default:
		return Pipeline{}, fmt.Errorf("unsupported config format %q (want json, yaml or yml)", format)
	}
	return p, nil
}

// ApplyEnv overrides p from the environment. getenv is usually os.Getenv.
func ApplyEnv(p *Pipeline, getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvSiteDir)); v != "" {
		p.Report.SiteDir = v
	}
	if v := strings.TrimSpace(getenv(EnvPushgatewayURL)); v != "" {
		p.Metrics.URL = v
		if p.Metrics.Backend == "" {
			p.Metrics.Backend = "prometheus"
		}
	}
	if v := strings.TrimSpace(getenv(EnvMetricsBackend)); v != "" {
		p.Metrics.Backend = strings.ToLower(v)
	}
}

// ApplyDefaults fills unset fields.
func (p *Pipeline) ApplyDefaults() {
	if p.Job == "" {
		p.Job = p.Suite.Name
	}
	if p.Source.Kind == "" {
		if p.Source.URL != "" {
			p.Source.Kind = "http"
		} else {
			p.Source.Kind = "file"
		}
	}
	if p.Source.Delimiter == "" {
		p.Source.Delimiter = ","
	}
	if p.ResultFormat == "" {
		p.ResultFormat = DefaultResultFormat
	}
	if p.Runtime.Workers <= 0 {
		p.Runtime.Workers = 1
	}
	if len(p.Report.Destinations) == 0 {
		p.Report.Destinations = []string{"console"}
	}
	if p.Report.SiteDir == "" {
		p.Report.SiteDir = DefaultSiteDir
	}
	if p.Report.Store.Kind == "" {
		p.Report.Store.Kind = DefaultStoreKind
	}
	if p.Report.Notification.Kind == "" && p.Report.Notification.WebhookURL != "" {
		p.Report.Notification.Kind = "slack"
	}
	if p.Report.Notification.NotifyOn == "" {
		p.Report.Notification.NotifyOn = DefaultNotifyOn
	}
	if p.Metrics.Backend == "" {
		p.Metrics.Backend = "none"
	}
	if p.Logging.Level == "" {
		p.Logging.Level = "info"
	}
	if p.Logging.Format == "" {
		p.Logging.Format = "console"
	}
}

// HasDestination reports whether name is one of the report destinations.
func (p Pipeline) HasDestination(name string) bool {
	for _, d := range p.Report.Destinations {
		if strings.EqualFold(strings.TrimSpace(d), name) {
			return true
		}
	}
	return false
}
