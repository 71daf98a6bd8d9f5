package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"dqcheck/internal/config"
	"dqcheck/internal/dataset"
	"dqcheck/internal/expectation"
	"dqcheck/internal/report"
	"dqcheck/internal/storage"
	_ "dqcheck/internal/storage/sqlite"
	"dqcheck/internal/validation"

	"github.com/stretchr/testify/require"
)

const moviesPath = "../../testdata/movies.csv"

type captureNotifier struct{ got []report.Summary }

func (c *captureNotifier) Notify(_ context.Context, s report.Summary) error {
	c.got = append(c.got, s)
	return nil
}

func def(kind expectation.Kind, kwargs map[string]any) expectation.ExpectationDefinition {
	return expectation.ExpectationDefinition{Type: kind, Kwargs: kwargs}
}

func moviesConfig(t *testing.T) config.Pipeline {
	t.Helper()
	dir := t.TempDir()
	return config.Pipeline{
		Job: "movies-nightly",
		Source: config.Source{
			Path:        moviesPath,
			SchemaHints: map[string]string{"age": "int"},
		},
		Suite: config.Suite{
			Name: "movies",
			Expectations: []expectation.ExpectationDefinition{
				def(expectation.KindColumnNotNull, map[string]any{"column": "movieId"}),
				def(expectation.KindColumnNotNull, map[string]any{"column": "title"}),
				def(expectation.KindColumnNotNull, map[string]any{"column": "genres"}),
				def(expectation.KindRowCountEquals, map[string]any{"value": 15}),
				def(expectation.KindColumnMaxBetween, map[string]any{"column": "age", "min_value": 18, "max_value": 21}),
			},
		},
		ResultFormat: "complete",
		Report: config.Report{
			Destinations: []string{"notification", "store", "html_site", "console"},
			SiteDir:      filepath.Join(dir, "site"),
			Store:        config.Store{Kind: "sqlite", DSN: filepath.Join(dir, "results.db")},
			Notification: config.Notification{
				WebhookURL: "https://hooks.example.com/T000/B000",
				NotifyOn:   "all",
				SiteURL:    "https://dq.example.com",
			},
		},
	}
}

func TestRun_MoviesEndToEnd(t *testing.T) {
	cfg := moviesConfig(t)
	var out bytes.Buffer
	notifier := &captureNotifier{}

	p, err := New(cfg, Deps{Stdout: &out, Notifier: notifier})
	require.NoError(t, err)

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, "movies", res.Suite)
	require.Equal(t, validation.FormatComplete, res.Format)
	require.Len(t, res.Results, 5)
	require.Equal(t, 15, res.Dataset.Rows)
	require.Equal(t, int64(20), res.Results[4].ObservedValue)

	require.Contains(t, out.String(), `PASSED suite "movies": 5 of 5 expectations met`)

	require.FileExists(t, filepath.Join(cfg.Report.SiteDir, report.IndexPage))
	require.FileExists(t, filepath.Join(cfg.Report.SiteDir, "validations", "movies.html"))
	saved, err := report.ReadResult(filepath.Join(cfg.Report.SiteDir, "validations", "movies.json"))
	require.NoError(t, err)
	require.Equal(t, res.RunID, saved.RunID)

	repo, err := storage.New(context.Background(), storage.Config{Kind: "sqlite", DSN: cfg.Report.Store.DSN})
	require.NoError(t, err)
	defer repo.Close()
	runs, err := repo.Runs(context.Background(), "movies", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, res.RunID, runs[0].RunID)
	require.Equal(t, 5, runs[0].Successful)

	require.Len(t, notifier.got, 1)
	require.True(t, notifier.got[0].Success)
	require.Equal(t, "https://dq.example.com/validations/movies.html", notifier.got[0].SiteURL)
}

func TestRun_Idempotent(t *testing.T) {
	cfg := moviesConfig(t)
	cfg.Report.Destinations = []string{"html_site"}
	p, err := New(cfg, Deps{})
	require.NoError(t, err)

	first, err := p.Run(context.Background())
	require.NoError(t, err)
	second, err := p.Run(context.Background())
	require.NoError(t, err)

	require.NotEqual(t, first.RunID, second.RunID)
	require.Equal(t, first.Success, second.Success)
	require.Equal(t, len(first.Results), len(second.Results))
	for i := range first.Results {
		require.Equal(t, first.Results[i].Success, second.Results[i].Success)
		require.Equal(t, first.Results[i].ObservedValue, second.Results[i].ObservedValue)
	}

	entries, err := report.Index(cfg.Report.SiteDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, second.RunID, entries[0].RunID)
}

func TestRun_FailingChecksAreData(t *testing.T) {
	cfg := moviesConfig(t)
	cfg.Report.Destinations = []string{"console"}
	cfg.Suite.Expectations = append(cfg.Suite.Expectations,
		def(expectation.KindColumnNotNull, map[string]any{"column": "rating"}),
		def(expectation.KindRowCountEquals, map[string]any{"value": 16}),
	)
	var out bytes.Buffer
	p, err := New(cfg, Deps{Stdout: &out})
	require.NoError(t, err)

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	require.False(t, res.Success)
	require.Len(t, res.Results, 7)
	require.Equal(t, validation.ReasonUnknownColumn, res.Results[5].Reason)
	require.False(t, res.Results[6].Success)
	require.Equal(t, 5, res.Statistics.Successful)
	require.Contains(t, out.String(), "FAILED")
}

func TestRun_LoadErrorsAbort(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Pipeline)
		check  func(t *testing.T, err error)
	}{
		{
			name:   "missing source",
			mutate: func(c *config.Pipeline) { c.Source.Path = "does-not-exist.csv" },
			check: func(t *testing.T, err error) {
				var nf *dataset.SourceNotFoundError
				require.ErrorAs(t, err, &nf)
				require.ErrorIs(t, err, os.ErrNotExist)
			},
		},
		{
			name:   "bad coercion",
			mutate: func(c *config.Pipeline) { c.Source.SchemaHints = map[string]string{"title": "int"} },
			check: func(t *testing.T, err error) {
				var tc *dataset.TypeCoercionError
				require.ErrorAs(t, err, &tc)
				require.Equal(t, "title", tc.Column)
			},
		},
		{
			name:   "hint for absent column",
			mutate: func(c *config.Pipeline) { c.Source.SchemaHints = map[string]string{"rating": "float"} },
			check: func(t *testing.T, err error) {
				var tc *dataset.TypeCoercionError
				require.ErrorAs(t, err, &tc)
			},
		},
		{
			name: "suite file missing",
			mutate: func(c *config.Pipeline) {
				c.Suite = config.Suite{Path: filepath.Join(t.TempDir(), "missing.yaml")}
			},
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, os.ErrNotExist)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := moviesConfig(t)
			cfg.Report.Destinations = []string{"html_site"}
			tt.mutate(&cfg)
			p, err := New(cfg, Deps{})
			require.NoError(t, err)

			res, err := p.Run(context.Background())
			require.Error(t, err)
			require.Nil(t, res)
			tt.check(t, err)
			require.NoFileExists(t, filepath.Join(cfg.Report.SiteDir, report.IndexPage))
		})
	}
}

func TestRun_SinkFailureKeepsResult(t *testing.T) {
	cfg := moviesConfig(t)
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	cfg.Report.Destinations = []string{"html_site", "console"}
	cfg.Report.SiteDir = blocker

	var out bytes.Buffer
	p, err := New(cfg, Deps{Stdout: &out})
	require.NoError(t, err)

	res, err := p.Run(context.Background())
	require.Error(t, err)
	require.NotNil(t, res)
	require.True(t, res.Success)

	var se *report.SinkError
	require.True(t, errors.As(err, &se))
	require.Equal(t, "html_site", se.Sink)
	require.Contains(t, out.String(), "PASSED", "console still runs after html_site fails")
}

func TestRun_UnbuildableSinkKeepsOthers(t *testing.T) {
	cfg := moviesConfig(t)
	cfg.Report.Destinations = []string{"console", "html_site", "store"}
	cfg.Report.Store.DSN = filepath.Join(t.TempDir(), "missing", "results.db")

	var out bytes.Buffer
	p, err := New(cfg, Deps{Stdout: &out})
	require.NoError(t, err)

	res, err := p.Run(context.Background())
	require.Error(t, err)
	require.NotNil(t, res)
	require.True(t, res.Success)

	var se *report.SinkError
	require.True(t, errors.As(err, &se))
	require.Equal(t, "store", se.Sink)
	require.Contains(t, out.String(), "PASSED", "console still runs when the store cannot be opened")
	require.FileExists(t, filepath.Join(cfg.Report.SiteDir, report.IndexPage))
}

func TestRun_Canceled(t *testing.T) {
	p, err := New(moviesConfig(t), Deps{})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := p.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Nil(t, res)
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := moviesConfig(t)
	cfg.Suite.Expectations = append(cfg.Suite.Expectations,
		def(expectation.KindColumnMaxBetween, map[string]any{"column": "age", "min_value": 30, "max_value": 10}))
	cfg.Report.Destinations = []string{"fax"}

	_, err := New(cfg, Deps{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "suite.expectations[5]")
	require.Contains(t, err.Error(), `unknown destination "fax"`)
}

func TestNew_AppliesDefaults(t *testing.T) {
	p, err := New(config.Pipeline{
		Source: config.Source{Path: moviesPath},
		Suite:  config.Suite{Name: "movies"},
	}, Deps{})
	require.NoError(t, err)

	cfg := p.Config()
	require.Equal(t, "movies", cfg.Job)
	require.Equal(t, "file", cfg.Source.Kind)
	require.Equal(t, ",", cfg.Source.Delimiter)
	require.Equal(t, []string{"console"}, cfg.Report.Destinations)
}

func TestInstallMetrics(t *testing.T) {
	done, err := InstallMetrics(config.Metrics{Backend: "none"}, "job", nil)
	require.NoError(t, err)
	done()

	_, err = InstallMetrics(config.Metrics{Backend: "prometheus"}, "job", nil)
	require.Error(t, err, "prometheus without a gateway url")

	_, err = InstallMetrics(config.Metrics{Backend: "graphite"}, "job", nil)
	require.ErrorContains(t, err, "graphite")
}
