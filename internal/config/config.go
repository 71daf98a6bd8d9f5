// Package config defines the pipeline file model: where the dataset comes
// from, which suite to run, and where the results go. Files are JSON or YAML,
// chosen by extension; both decode into the same Pipeline.
//
// Example (trimmed):
//
//	job: movies-nightly
//	source: { kind: file, path: testdata/movies.csv, schema_hints: { age: int } }
//	suite:
//	  name: movies
//	  expectations:
//	    - { type: expect_table_row_count_to_equal, kwargs: { value: 15 } }
//	result_format: complete
//	report: { destinations: [console, html_site], site_dir: site }
package config

import (
	"encoding/json"

	"dqcheck/internal/expectation"
)

// Pipeline is the top-level object decoded from a pipeline file.
type Pipeline struct {
	// Job names the pipeline in metrics and logs.
	Job string `json:"job" yaml:"job"`

	Source       Source        `json:"source" yaml:"source"`
	Suite        Suite         `json:"suite" yaml:"suite"`
	ResultFormat string        `json:"result_format" yaml:"result_format"`
	Runtime      RuntimeConfig `json:"runtime" yaml:"runtime"`
	Report       Report        `json:"report" yaml:"report"`
	Metrics      Metrics       `json:"metrics" yaml:"metrics"`
	Logging      Logging       `json:"logging" yaml:"logging"`
}

// Source identifies the dataset and how to parse it.
type Source struct {
	// Kind is "file" or "http". Empty is inferred from Path/URL.
	Kind string `json:"kind" yaml:"kind"`
	Path string `json:"path" yaml:"path"`
	URL  string `json:"url" yaml:"url"`

	// Delimiter is a single character; default ",".
	Delimiter string `json:"delimiter" yaml:"delimiter"`
	// Encoding names the source text encoding, e.g. "windows-1250".
	Encoding  string            `json:"encoding" yaml:"encoding"`
	TrimSpace bool              `json:"trim_space" yaml:"trim_space"`
	HeaderMap map[string]string `json:"header_map" yaml:"header_map"`
	// SchemaHints maps column name to int, float, bool or string.
	SchemaHints map[string]string `json:"schema_hints" yaml:"schema_hints"`

	// Options carries transport settings for the http kind:
	//   timeout_seconds (int), max_retries (int), insecure_skip_verify (bool),
	//   headers (object)
	Options Options `json:"options" yaml:"options"`
}

// Suite is either inline expectations or a path to a persisted suite.
type Suite struct {
	Name         string                              `json:"name" yaml:"name"`
	Path         string                              `json:"path" yaml:"path"`
	Expectations []expectation.ExpectationDefinition `json:"expectations" yaml:"expectations"`
}

// RuntimeConfig controls check evaluation.
type RuntimeConfig struct {
	Workers                int `json:"workers" yaml:"workers"`
	PartialUnexpectedLimit int `json:"partial_unexpected_limit" yaml:"partial_unexpected_limit"`
}

// Report lists the sinks a Result is emitted to.
type Report struct {
	// Destinations: console, html_site, notification, store, object_store.
	Destinations []string     `json:"destinations" yaml:"destinations"`
	SiteDir      string       `json:"site_dir" yaml:"site_dir"`
	ObjectStore  ObjectStore  `json:"object_store" yaml:"object_store"`
	Notification Notification `json:"notification" yaml:"notification"`
	Store        Store        `json:"store" yaml:"store"`
}

// ObjectStore publishes the site to an S3-compatible bucket.
type ObjectStore struct {
	Endpoint  string `json:"endpoint" yaml:"endpoint"`
	Bucket    string `json:"bucket" yaml:"bucket"`
	Prefix    string `json:"prefix" yaml:"prefix"`
	Region    string `json:"region" yaml:"region"`
	AccessKey string `json:"access_key" yaml:"access_key"`
	SecretKey string `json:"secret_key" yaml:"secret_key"`
	UseSSL    bool   `json:"use_ssl" yaml:"use_ssl"`
}

// Notification configures the chat notifier.
type Notification struct {
	// Kind is "slack".
	Kind       string `json:"kind" yaml:"kind"`
	WebhookURL string `json:"webhook_url" yaml:"webhook_url"`
	// NotifyOn is all, failure or success.
	NotifyOn string `json:"notify_on" yaml:"notify_on"`
	// SiteURL is linked from the message when set.
	SiteURL string `json:"site_url" yaml:"site_url"`
}

// Store configures the SQL result store.
type Store struct {
	Kind  string `json:"kind" yaml:"kind"`
	DSN   string `json:"dsn" yaml:"dsn"`
	Table string `json:"table" yaml:"table"`
}

// Metrics selects a metrics backend.
type Metrics struct {
	// Backend is none, prometheus or datadog.
	Backend string `json:"backend" yaml:"backend"`
	// URL is the Pushgateway base URL.
	URL string `json:"url" yaml:"url"`
	// Addr is the DogStatsD address.
	Addr      string `json:"addr" yaml:"addr"`
	Namespace string `json:"namespace" yaml:"namespace"`
}

// Logging configures the process logger.
type Logging struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// Options fetches typed values from a free-form map. Missing keys or values
// of an unexpected type yield the supplied default.
type Options map[string]any

// String returns the string value for key or def.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers arrive as float64,
// YAML integers as int.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		case int64:
			return int(n)
		}
	}
	return def
}

// StringMap returns the string-valued entries of an object value. Non-string
// values are ignored.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	if v, ok := o[key]; ok {
		if m, ok := v.(map[string]any); ok {
			for k, vv := range m {
				if s, ok := vv.(string); ok {
					res[k] = s
				}
			}
		}
	}
	return res
}

// UnmarshalJSON decodes a missing or null object to an empty map.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
