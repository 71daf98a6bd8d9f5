package dataset

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"dqcheck/internal/datasource"
	pcsv "dqcheck/internal/parser/csv"
)

// LoaderOptions configures how raw bytes become a Dataset.
type LoaderOptions struct {
	// CSV controls delimiter, trimming, encoding and header renames.
	CSV pcsv.Options
}

// Loader reads a delimited source into a Dataset, applying schema hints.
type Loader struct {
	opt LoaderOptions
	log *zap.Logger
}

// NewLoader returns a Loader. A nil logger is replaced with a no-op one.
func NewLoader(opt LoaderOptions, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{opt: opt, log: log}
}

// Load opens src, parses it and coerces hinted columns. Columns without a
// hint stay TypeString.
//
// Errors:
//   - *SourceNotFoundError when src cannot be opened.
//   - *ParseError when the content is not a delimited file with a header.
//   - *TypeCoercionError when a hinted column is missing or holds a value
//     that does not convert. Coercion is strict: one bad cell fails the load
//     rather than silently becoming null.
func (l *Loader) Load(ctx context.Context, src datasource.Source, hints map[string]Type) (*Dataset, error) {
	start := time.Now()
	loc := src.Location()

	rc, err := src.Open(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &SourceNotFoundError{Location: loc, Err: err}
	}
	defer rc.Close()

	tbl, err := pcsv.NewParser(l.opt.CSV).Parse(rc)
	if err != nil {
		return nil, &ParseError{Location: loc, Err: err}
	}

	columns := make([]Column, len(tbl.Header))
	for i, name := range tbl.Header {
		columns[i] = Column{Name: name, Type: TypeString}
	}
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c.Name] = i
	}

	// Sorted so the first reported missing column is deterministic.
	hinted := make([]string, 0, len(hints))
	for name := range hints {
		hinted = append(hinted, name)
	}
	sort.Strings(hinted)
	for _, name := range hinted {
		i, ok := index[name]
		if !ok {
			return nil, &TypeCoercionError{Column: name, Row: -1, Type: hints[name], Err: errMissingColumn}
		}
		columns[i].Type = hints[name]
	}

	rows := make([][]any, len(tbl.Rows))
	for r, cells := range tbl.Rows {
		row := make([]any, len(cells))
		for i, cell := range cells {
			if cell == nil {
				continue
			}
			v, err := coerce(*cell, columns[i].Type)
			if err != nil {
				return nil, &TypeCoercionError{
					Column: columns[i].Name,
					Row:    r,
					Value:  *cell,
					Type:   columns[i].Type,
					Err:    err,
				}
			}
			row[i] = v
		}
		rows[r] = row
	}

	d, err := New(columns, rows)
	if err != nil {
		return nil, fmt.Errorf("build dataset from %s: %w", loc, err)
	}
	d.location = loc

	l.log.Info("dataset loaded",
		zap.String("source", loc),
		zap.Int("rows", d.NumRows()),
		zap.Int("columns", d.NumColumns()),
		zap.String("fingerprint", d.Fingerprint()),
		zap.Duration("elapsed", time.Since(start)))
	return d, nil
}

// ParseHints converts a column→type-name map from configuration into typed
// hints.
func ParseHints(raw map[string]string) (map[string]Type, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]Type, len(raw))
	for col, name := range raw {
		t, err := ParseType(name)
		if err != nil {
			return nil, fmt.Errorf("schema hint for %q: %w", col, err)
		}
		out[col] = t
	}
	return out, nil
}
