// Package csv reads a delimited file with a header row into a column-ordered
// table of text cells. Typing happens later, in the dataset package; this
// layer only deals with bytes, encodings and shape.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Options configures the parser. The zero value reads UTF-8, comma-separated
// input without trimming.
type Options struct {
	// Comma is the field delimiter. Zero means ','.
	Comma rune

	// TrimSpace trims leading and trailing white space from every cell.
	TrimSpace bool

	// Encoding names the source character set (e.g. "windows-1250",
	// "iso-8859-2"). Empty or "utf-8" reads the bytes as-is.
	Encoding string

	// HeaderMap renames source headers (after BOM stripping and trimming).
	HeaderMap map[string]string
}

// Table is the parsed content: one header and rows of equal width. A nil
// cell is an empty field.
type Table struct {
	Header []string
	Rows   [][]*string
}

// ShapeError reports a row whose width differs from the header. Line is the
// 1-based physical record number, counting the header as line 1.
type ShapeError struct {
	Line     int
	Expected int
	Got      int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("line %d: incorrect number of fields (expected %d, got %d)", e.Line, e.Expected, e.Got)
}

// ErrNoHeader is returned when the input has no header row at all.
var ErrNoHeader = errors.New("csv: missing header row")

// Parser parses CSV input according to Options. It is safe to reuse across
// inputs but not for concurrent use.
type Parser struct{ opt Options }

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser { return &Parser{opt: opt} }

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\uFEFF"

// Parse reads the whole input. Unlike a streaming ETL reader it never skips
// bad rows: a malformed record or a width mismatch aborts the parse, because
// a dataset with silently missing rows would make row-count checks lie.
func (p *Parser) Parse(r io.Reader) (*Table, error) {
	r, err := decodeReader(r, p.opt.Encoding)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(r)
	if p.opt.Comma != 0 {
		cr.Comma = p.opt.Comma
	}
	// Width is enforced below so the error carries our line numbering.
	cr.FieldsPerRecord = -1

	h, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	header := normalizeHeaders(h, p.opt.HeaderMap)
	if err := checkDuplicateHeaders(header); err != nil {
		return nil, err
	}

	t := &Table{Header: header}
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		if len(row) != len(header) {
			return nil, &ShapeError{Line: line, Expected: len(header), Got: len(row)}
		}
		cells := make([]*string, len(row))
		for i, val := range row {
			if p.opt.TrimSpace {
				val = strings.TrimSpace(val)
			}
			cells[i] = emptyToNil(val)
		}
		t.Rows = append(t.Rows, cells)
	}
	return t, nil
}

// decodeReader wraps r with a decoder for the named encoding.
func decodeReader(r io.Reader, name string) (io.Reader, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "utf-8") || strings.EqualFold(name, "utf8") {
		return r, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("csv: unsupported encoding %q: %w", name, err)
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}

// emptyToNil converts an empty string to nil.
func emptyToNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// normalizeHeaders trims, strips a leading BOM, composes to NFC (so "é"
// typed two ways maps to one column) and applies headerMap. Case is kept:
// column names are matched exactly by expectations.
func normalizeHeaders(h []string, headerMap map[string]string) []string {
	res := make([]string, len(h))
	for i, col := range h {
		c := strings.TrimSpace(col)
		if i == 0 {
			c = strings.TrimSpace(strings.TrimPrefix(c, utf8BOM))
		}
		c = norm.NFC.String(c)
		if m, ok := headerMap[c]; ok && m != "" {
			c = m
		}
		res[i] = c
	}
	return res
}

func checkDuplicateHeaders(h []string) error {
	seen := make(map[string]int, len(h))
	for i, c := range h {
		if c == "" {
			return fmt.Errorf("csv: header column %d is empty", i+1)
		}
		if j, ok := seen[c]; ok {
			return fmt.Errorf("csv: duplicate header %q at columns %d and %d", c, j+1, i+1)
		}
		seen[c] = i
	}
	return nil
}
