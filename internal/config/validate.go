package config

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"unicode/utf8"

	"dqcheck/internal/dataset"
	"dqcheck/internal/expectation"
	"dqcheck/internal/validation"

	"golang.org/x/text/encoding/htmlindex"
)

// IssueSeverity is the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue is one lint finding. Path is a dotted path into the config, e.g.
// "suite.expectations[1].kwargs".
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidatePipeline lints p without mutating it. Call ApplyDefaults first to
// lint the effective configuration.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "job",
			Message:  "job is empty; metrics will be grouped under the default job name",
		})
	}
	issues = append(issues, validateSource(p.Source)...)
	issues = append(issues, validateSuite(p.Suite)...)
	if _, err := validation.ParseFormat(p.ResultFormat); err != nil {
		issues = append(issues, Issue{Severity: SeverityError, Path: "result_format", Message: err.Error()})
	}
	issues = append(issues, validateRuntime(p.Runtime)...)
	issues = append(issues, validateReport(p.Report)...)
	issues = append(issues, validateMetrics(p.Metrics)...)

	return issues
}

func validateSource(s Source) []Issue {
	var issues []Issue

	switch s.Kind {
	case "file":
		if strings.TrimSpace(s.Path) == "" {
			issues = append(issues, Issue{SeverityError, "source.path", "file source requires a non-empty path"})
		}
	case "http":
		if u, err := url.Parse(s.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			issues = append(issues, Issue{SeverityError, "source.url", fmt.Sprintf("http source requires an absolute http(s) URL, got %q", s.URL)})
		}
	case "":
		issues = append(issues, Issue{SeverityError, "source.kind", "source.kind must not be empty"})
	default:
		issues = append(issues, Issue{SeverityError, "source.kind", fmt.Sprintf("unknown source kind %q (want file or http)", s.Kind)})
	}

	if s.Delimiter != "" && utf8.RuneCountInString(s.Delimiter) != 1 {
		issues = append(issues, Issue{SeverityError, "source.delimiter", fmt.Sprintf("delimiter must be a single character, got %q", s.Delimiter)})
	}
	if s.Encoding != "" {
		if _, err := htmlindex.Get(s.Encoding); err != nil {
			issues = append(issues, Issue{SeverityError, "source.encoding", fmt.Sprintf("unknown encoding %q", s.Encoding)})
		}
	}
	cols := make([]string, 0, len(s.SchemaHints))
	for col := range s.SchemaHints {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	for _, col := range cols {
		if _, err := dataset.ParseType(s.SchemaHints[col]); err != nil {
			issues = append(issues, Issue{SeverityError, "source.schema_hints." + col, err.Error()})
		}
	}
	if s.Kind == "file" && len(s.Options) > 0 {
		issues = append(issues, Issue{SeverityWarning, "source.options", "options are only used by the http source"})
	}
	return issues
}

func validateSuite(s Suite) []Issue {
	var issues []Issue

	hasPath := strings.TrimSpace(s.Path) != ""
	switch {
	case hasPath && len(s.Expectations) > 0:
		issues = append(issues, Issue{SeverityError, "suite", "set either suite.path or suite.expectations, not both"})
		return issues
	case hasPath:
		return issues
	}

	if strings.TrimSpace(s.Name) == "" {
		issues = append(issues, Issue{SeverityError, "suite.name", "inline suite requires a name"})
	}
	if len(s.Expectations) == 0 {
		issues = append(issues, Issue{SeverityWarning, "suite.expectations", "suite has no expectations; every run will trivially succeed"})
	}
	for i, ed := range s.Expectations {
		path := fmt.Sprintf("suite.expectations[%d]", i)
		e, err := ed.Expectation()
		if err == nil {
			err = e.Validate()
		}
		if err != nil {
			issues = append(issues, Issue{SeverityError, path, err.Error()})
		}
	}
	return issues
}

func validateRuntime(r RuntimeConfig) []Issue {
	var issues []Issue
	if r.Workers < 0 {
		issues = append(issues, Issue{SeverityError, "runtime.workers", "workers must be >= 0"})
	}
	if r.Workers > 64 {
		issues = append(issues, Issue{SeverityWarning, "runtime.workers", fmt.Sprintf("workers=%d is far more than checks usually need", r.Workers)})
	}
	if r.PartialUnexpectedLimit < 0 {
		issues = append(issues, Issue{SeverityError, "runtime.partial_unexpected_limit", "must be >= 0"})
	}
	return issues
}

var knownDestinations = map[string]struct{}{
	"console":      {},
	"html_site":    {},
	"notification": {},
	"store":        {},
	"object_store": {},
}

func validateReport(r Report) []Issue {
	var issues []Issue

	seen := map[string]bool{}
	for i, d := range r.Destinations {
		d = strings.ToLower(strings.TrimSpace(d))
		path := fmt.Sprintf("report.destinations[%d]", i)
		if _, ok := knownDestinations[d]; !ok {
			issues = append(issues, Issue{SeverityError, path, fmt.Sprintf("unknown destination %q", d)})
			continue
		}
		if seen[d] {
			issues = append(issues, Issue{SeverityWarning, path, fmt.Sprintf("destination %q listed twice", d)})
		}
		seen[d] = true
	}

	if seen["html_site"] && strings.TrimSpace(r.SiteDir) == "" {
		issues = append(issues, Issue{SeverityError, "report.site_dir", "html_site requires site_dir"})
	}
	if seen["object_store"] {
		if !seen["html_site"] {
			issues = append(issues, Issue{SeverityError, "report.destinations", "object_store publishes the html site; add html_site before it"})
		}
		if r.ObjectStore.Endpoint == "" {
			issues = append(issues, Issue{SeverityError, "report.object_store.endpoint", "endpoint is required"})
		}
		if r.ObjectStore.Bucket == "" {
			issues = append(issues, Issue{SeverityError, "report.object_store.bucket", "bucket is required"})
		}
	}
	if seen["notification"] {
		n := r.Notification
		if n.Kind != "slack" {
			issues = append(issues, Issue{SeverityError, "report.notification.kind", fmt.Sprintf("unsupported notifier %q (want slack)", n.Kind)})
		}
		if u, err := url.Parse(n.WebhookURL); err != nil || u.Scheme == "" || u.Host == "" {
			issues = append(issues, Issue{SeverityError, "report.notification.webhook_url", "webhook_url must be an absolute URL"})
		}
		switch n.NotifyOn {
		case "all", "failure", "success":
		default:
			issues = append(issues, Issue{SeverityError, "report.notification.notify_on", fmt.Sprintf("notify_on must be all, failure or success, got %q", n.NotifyOn)})
		}
	}
	if seen["store"] {
		switch r.Store.Kind {
		case "sqlite", "postgres", "mssql", "mysql":
		default:
			issues = append(issues, Issue{SeverityError, "report.store.kind", fmt.Sprintf("unknown store kind %q", r.Store.Kind)})
		}
		if strings.TrimSpace(r.Store.DSN) == "" {
			issues = append(issues, Issue{SeverityError, "report.store.dsn", "dsn is required"})
		}
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue
	switch m.Backend {
	case "", "none":
	case "prometheus":
		if m.URL == "" {
			issues = append(issues, Issue{SeverityError, "metrics.url", "prometheus backend requires the Pushgateway url"})
		}
	case "datadog":
		if m.Addr == "" {
			issues = append(issues, Issue{SeverityError, "metrics.addr", "datadog backend requires the DogStatsD addr"})
		}
	default:
		issues = append(issues, Issue{SeverityError, "metrics.backend", fmt.Sprintf("unknown metrics backend %q (want none, prometheus or datadog)", m.Backend)})
	}
	return issues
}

// BuildSuite returns the configured suite, loading it from Path when set.
func (s Suite) BuildSuite() (*expectation.Suite, error) {
	if strings.TrimSpace(s.Path) != "" {
		return expectation.LoadSuite(s.Path)
	}
	return expectation.SuiteDefinition{Name: s.Name, Expectations: s.Expectations}.Build()
}
