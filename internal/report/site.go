package report

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"dqcheck/internal/validation"

	"github.com/dustin/go-humanize"
)

//go:embed templates/*
var templateFS embed.FS

// Layout of the generated site, relative to its directory.
const (
	IndexPage      = "index.html"
	StyleSheet     = "style.css"
	ValidationsDir = "validations"
)

var funcs = template.FuncMap{
	"inc":      func(i int) int { return i + 1 },
	"comma":    func(n int) string { return humanize.Comma(int64(n)) },
	"ago":      func(t time.Time) string { return humanize.Time(t) },
	"observed": FormatObserved,
	"duration": func(r *validation.Result) string { return r.Duration().Round(time.Millisecond).String() },
}

var (
	suiteTmpl = template.Must(template.New("suite.html.tmpl").Funcs(funcs).ParseFS(templateFS, "templates/suite.html.tmpl"))
	indexTmpl = template.Must(template.New("index.html.tmpl").Funcs(funcs).ParseFS(templateFS, "templates/index.html.tmpl"))
)

// HTMLSite renders results into a static site:
//
//	<dir>/index.html                 latest run of every suite
//	<dir>/validations/<suite>.html   latest run of one suite
//	<dir>/validations/<suite>.json   the same run as JSON
//
// Re-running a suite overwrites its pages. Every file is replaced atomically.
type HTMLSite struct {
	dir string
}

// NewHTMLSite renders into dir.
func NewHTMLSite(dir string) *HTMLSite { return &HTMLSite{dir: dir} }

func (s *HTMLSite) Name() string { return "html_site" }

// Dir is the site root.
func (s *HTMLSite) Dir() string { return s.dir }

// SuitePath returns the page of suite relative to the site root.
func SuitePath(suite, ext string) string {
	return ValidationsDir + "/" + Slug(suite) + ext
}

func (s *HTMLSite) Emit(ctx context.Context, res *validation.Result) error {
	if err := os.MkdirAll(filepath.Join(s.dir, ValidationsDir), 0o755); err != nil {
		return fmt.Errorf("create site dir: %w", err)
	}

	js, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(s.dir, filepath.FromSlash(SuitePath(res.Suite, ".json"))), js); err != nil {
		return err
	}

	var page bytes.Buffer
	if err := suiteTmpl.Execute(&page, res); err != nil {
		return fmt.Errorf("render suite page: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(s.dir, filepath.FromSlash(SuitePath(res.Suite, ".html"))), page.Bytes()); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	return s.writeIndex()
}

// IndexEntry is one row of the site index.
type IndexEntry struct {
	Suite      string    `json:"suite"`
	Page       string    `json:"page"`
	Success    bool      `json:"success"`
	Evaluated  int       `json:"evaluated"`
	Successful int       `json:"successful"`
	Rows       int       `json:"rows"`
	RunID      string    `json:"run_id"`
	FinishedAt time.Time `json:"finished_at"`
}

// Index reads the latest result of every suite in dir, sorted by suite name.
func Index(dir string) ([]IndexEntry, error) {
	files, err := filepath.Glob(filepath.Join(dir, ValidationsDir, "*.json"))
	if err != nil {
		return nil, err
	}
	entries := make([]IndexEntry, 0, len(files))
	for _, f := range files {
		res, err := ReadResult(f)
		if err != nil {
			return nil, err
		}
		entries = append(entries, IndexEntry{
			Suite:      res.Suite,
			Page:       SuitePath(res.Suite, ".html"),
			Success:    res.Success,
			Evaluated:  res.Statistics.Evaluated,
			Successful: res.Statistics.Successful,
			Rows:       res.Dataset.Rows,
			RunID:      res.RunID,
			FinishedAt: res.FinishedAt,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Suite < entries[j].Suite })
	return entries, nil
}

// ReadResult decodes a result JSON file written by HTMLSite.
func ReadResult(path string) (*validation.Result, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var res validation.Result
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &res, nil
}

func (s *HTMLSite) writeIndex() error {
	entries, err := Index(s.dir)
	if err != nil {
		return fmt.Errorf("scan site: %w", err)
	}
	var page bytes.Buffer
	if err := indexTmpl.Execute(&page, entries); err != nil {
		return fmt.Errorf("render index: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(s.dir, IndexPage), page.Bytes()); err != nil {
		return err
	}
	css, err := templateFS.ReadFile("templates/" + StyleSheet)
	if err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(s.dir, StyleSheet), css)
}

// Slug maps a suite name to a file name: letters, digits, '.', '-' and '_'
// are kept, anything else becomes '_'.
func Slug(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == '.' && b.Len() > 0:
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "suite"
	}
	return b.String()
}

// writeFileAtomic replaces path with data via a temp file in the same
// directory.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
