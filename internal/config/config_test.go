package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dqcheck/internal/expectation"

	"github.com/google/go-cmp/cmp"
)

const yamlPipeline = `
job: movies-nightly
source:
  path: testdata/movies.csv
  delimiter: ";"
  encoding: windows-1250
  schema_hints:
    age: int
suite:
  name: movies
  expectations:
    - type: expect_column_values_to_not_be_null
      kwargs: { column: movieId }
    - type: expect_table_row_count_to_equal
      kwargs: { value: 15 }
    - type: expect_column_max_to_be_between
      kwargs: { column: age, min_value: 18, max_value: 21 }
result_format: complete
runtime:
  workers: 4
report:
  destinations: [console, html_site]
  site_dir: out/site
metrics:
  backend: prometheus
  url: http://pushgateway:9091
`

const jsonPipeline = `{
  "job": "movies-nightly",
  "source": {"kind": "http", "url": "https://example.com/movies.csv",
             "options": {"timeout_seconds": 10, "headers": {"Authorization": "Bearer x"}}},
  "suite": {"path": "suites/movies.yaml"},
  "report": {"destinations": ["store"], "store": {"kind": "postgres", "dsn": "postgres://u@db/q"}}
}`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoad_YAML(t *testing.T) {
	p, err := Load(writeFile(t, "pipeline.yaml", yamlPipeline))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Job != "movies-nightly" || p.Source.Path != "testdata/movies.csv" || p.Source.Delimiter != ";" {
		t.Fatalf("source decoded wrong: %+v", p.Source)
	}
	if diff := cmp.Diff(map[string]string{"age": "int"}, p.Source.SchemaHints); diff != "" {
		t.Fatalf("schema hints (-want +got):\n%s", diff)
	}
	if len(p.Suite.Expectations) != 3 || p.Suite.Expectations[2].Type != expectation.KindColumnMaxBetween {
		t.Fatalf("suite decoded wrong: %+v", p.Suite)
	}
	if p.Runtime.Workers != 4 || p.ResultFormat != "complete" || p.Report.SiteDir != "out/site" {
		t.Fatalf("pipeline decoded wrong: %+v", p)
	}

	s, err := p.Suite.BuildSuite()
	if err != nil {
		t.Fatalf("BuildSuite: %v", err)
	}
	if s.Name() != "movies" || s.Len() != 3 {
		t.Fatalf("suite = %v", s)
	}
	if got := s.At(2).String(); got != "max(age) in [18, 21]" {
		t.Fatalf("third expectation = %q", got)
	}
}

func TestLoad_JSON(t *testing.T) {
	p, err := Load(writeFile(t, "pipeline.json", jsonPipeline))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Source.Kind != "http" || p.Source.Options.Int("timeout_seconds", 0) != 10 {
		t.Fatalf("source = %+v", p.Source)
	}
	if got := p.Source.Options.StringMap("headers")["Authorization"]; got != "Bearer x" {
		t.Fatalf("headers[Authorization] = %q", got)
	}
	if p.Report.Store.Kind != "postgres" || !p.HasDestination("store") || p.HasDestination("console") {
		t.Fatalf("report = %+v", p.Report)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name, file, body, wantSub string
	}{
		{"unknown extension", "p.toml", "job = 1", "unsupported config format"},
		{"unknown json field", "p.json", `{"jobb": "x"}`, "unknown field"},
		{"unknown yaml field", "p.yaml", "jobb: x\n", "not found"},
		{"bad json", "p.json", `{`, "decode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.wantSub) {
				t.Fatalf("Load err = %v; want containing %q", err, tt.wantSub)
			}
		})
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("Load of missing file succeeded")
	}
}

func TestLoad_EmptyYAML(t *testing.T) {
	p, err := Load(writeFile(t, "empty.yml", ""))
	if err != nil {
		t.Fatalf("Load(empty): %v", err)
	}
	if p.Job != "" {
		t.Fatalf("empty file decoded to %+v", p)
	}
}

func TestApplyDefaults(t *testing.T) {
	var p Pipeline
	p.Suite.Name = "movies"
	p.Source.URL = "https://example.com/x.csv"
	p.Report.Notification.WebhookURL = "https://hooks.slack.com/services/x"
	p.ApplyDefaults()

	if p.Job != "movies" || p.Source.Kind != "http" || p.Source.Delimiter != "," {
		t.Fatalf("source defaults: job=%q %+v", p.Job, p.Source)
	}
	if p.ResultFormat != DefaultResultFormat || p.Runtime.Workers != 1 {
		t.Fatalf("run defaults: %q %d", p.ResultFormat, p.Runtime.Workers)
	}
	if diff := cmp.Diff([]string{"console"}, p.Report.Destinations); diff != "" {
		t.Fatalf("destinations (-want +got):\n%s", diff)
	}
	if p.Report.SiteDir != DefaultSiteDir || p.Report.Store.Kind != "sqlite" {
		t.Fatalf("report defaults: %+v", p.Report)
	}
	if p.Report.Notification.Kind != "slack" || p.Report.Notification.NotifyOn != "all" {
		t.Fatalf("notification defaults: %+v", p.Report.Notification)
	}
	if p.Metrics.Backend != "none" || p.Logging.Level != "info" {
		t.Fatalf("metrics/logging defaults: %+v %+v", p.Metrics, p.Logging)
	}

	var f Pipeline
	f.ApplyDefaults()
	if f.Source.Kind != "file" {
		t.Fatalf("default kind = %q; want file", f.Source.Kind)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvSiteDir:        "/srv/site",
		EnvPushgatewayURL: "http://pg:9091",
	}
	p := Pipeline{Report: Report{SiteDir: "from-file"}}
	ApplyEnv(&p, func(k string) string { return env[k] })

	if p.Report.SiteDir != "/srv/site" {
		t.Fatalf("site dir = %q", p.Report.SiteDir)
	}
	if p.Metrics.URL != "http://pg:9091" || p.Metrics.Backend != "prometheus" {
		t.Fatalf("metrics = %+v", p.Metrics)
	}

	env[EnvMetricsBackend] = "DataDog"
	ApplyEnv(&p, func(k string) string { return env[k] })
	if p.Metrics.Backend != "datadog" {
		t.Fatalf("backend = %q; want datadog", p.Metrics.Backend)
	}

	q := Pipeline{Report: Report{SiteDir: "kept"}}
	ApplyEnv(&q, func(string) string { return "" })
	if q.Report.SiteDir != "kept" {
		t.Fatalf("empty env overrode site dir: %q", q.Report.SiteDir)
	}
}

func TestOptions(t *testing.T) {
	o := Options{
		"s":   "x",
		"b":   true,
		"f":   float64(3),
		"i":   7,
		"m":   map[string]any{"a": "1", "b": 2},
		"bad": []any{1},
	}
	if o.String("s", "d") != "x" || o.String("b", "d") != "d" || o.String("nope", "d") != "d" {
		t.Error("String")
	}
	if !o.Bool("b", false) || o.Bool("s", false) {
		t.Error("Bool")
	}
	if o.Int("f", 0) != 3 || o.Int("i", 0) != 7 || o.Int("s", 9) != 9 {
		t.Error("Int")
	}
	if diff := cmp.Diff(map[string]string{"a": "1"}, o.StringMap("m")); diff != "" {
		t.Errorf("StringMap (-want +got):\n%s", diff)
	}
	if len(o.StringMap("bad")) != 0 {
		t.Error("StringMap of a non-object is not empty")
	}

	var nilOpts Options
	if nilOpts.Int("x", 5) != 5 {
		t.Error("nil Options should return defaults")
	}
}

func TestOptions_UnmarshalJSONNull(t *testing.T) {
	var o Options
	if err := o.UnmarshalJSON([]byte("null")); err != nil {
		t.Fatal(err)
	}
	if o == nil || len(o) != 0 {
		t.Fatalf("null decoded to %#v; want empty map", o)
	}
}
