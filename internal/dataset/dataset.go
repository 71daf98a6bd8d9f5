// Package dataset holds the typed, in-memory table a validation run works on,
// and the loader that builds one from a delimited source.
//
// A Dataset is immutable after construction: accessors hand out copies, so any
// number of goroutines may read it while checks are evaluated.
package dataset

import (
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/zeebo/xxh3"
)

// Type is a column's value type.
type Type string

const (
	TypeString Type = "string"
	TypeInt    Type = "int"
	TypeFloat  Type = "float"
	TypeBool   Type = "bool"
)

// ParseType accepts the spellings found in pipeline configs ("integer",
// "text", ...) and returns the canonical Type.
func ParseType(s string) (Type, error) {
	switch s {
	case "string", "str", "text", "":
		return TypeString, nil
	case "int", "integer", "int64", "long":
		return TypeInt, nil
	case "float", "double", "real", "float64", "number":
		return TypeFloat, nil
	case "bool", "boolean":
		return TypeBool, nil
	}
	return "", fmt.Errorf("dataset: unknown column type %q", s)
}

// Column is a named, typed column.
type Column struct {
	Name string `json:"name"`
	Type Type   `json:"type"`
}

// Dataset is an ordered set of typed columns and rows. Cell values are nil
// (null), string, int64, float64 or bool, matching the column type.
type Dataset struct {
	columns     []Column
	index       map[string]int
	rows        [][]any
	fingerprint string
	loadedAt    time.Time
	location    string
}

// New builds a Dataset from columns and rows. Every row must have exactly one
// value per column and each non-nil value must match its column's type.
func New(columns []Column, rows [][]any) (*Dataset, error) {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if c.Name == "" {
			return nil, fmt.Errorf("dataset: column %d has no name", i)
		}
		if _, dup := index[c.Name]; dup {
			return nil, fmt.Errorf("dataset: duplicate column %q", c.Name)
		}
		index[c.Name] = i
	}
	for r, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("dataset: row %d has %d values, want %d", r, len(row), len(columns))
		}
		for i, v := range row {
			if v != nil && !typeMatches(columns[i].Type, v) {
				return nil, fmt.Errorf("dataset: row %d column %q: %T does not match type %s", r, columns[i].Name, v, columns[i].Type)
			}
		}
	}
	owned := make([][]any, len(rows))
	for i, row := range rows {
		owned[i] = append([]any(nil), row...)
	}
	d := &Dataset{
		columns:  append([]Column(nil), columns...),
		index:    index,
		rows:     owned,
		loadedAt: time.Now().UTC(),
	}
	d.fingerprint = d.computeFingerprint()
	return d, nil
}

func typeMatches(t Type, v any) bool {
	switch t {
	case TypeInt:
		_, ok := v.(int64)
		return ok
	case TypeFloat:
		_, ok := v.(float64)
		return ok
	case TypeBool:
		_, ok := v.(bool)
		return ok
	default:
		_, ok := v.(string)
		return ok
	}
}

// Columns returns a copy of the schema.
func (d *Dataset) Columns() []Column { return append([]Column(nil), d.columns...) }

// NumRows returns the row count.
func (d *Dataset) NumRows() int { return len(d.rows) }

// NumColumns returns the column count.
func (d *Dataset) NumColumns() int { return len(d.columns) }

// HasColumn reports whether name is part of the schema.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Column returns the column definition for name.
func (d *Dataset) Column(name string) (Column, bool) {
	i, ok := d.index[name]
	if !ok {
		return Column{}, false
	}
	return d.columns[i], true
}

// Values returns a copy of every value in column name, in row order.
func (d *Dataset) Values(name string) ([]any, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	out := make([]any, len(d.rows))
	for r, row := range d.rows {
		out[r] = row[i]
	}
	return out, true
}

// Row returns a copy of row r.
func (d *Dataset) Row(r int) []any { return append([]any(nil), d.rows[r]...) }

// Fingerprint is a stable hex digest of schema and content. Two datasets with
// equal fingerprints hold the same typed values.
func (d *Dataset) Fingerprint() string { return d.fingerprint }

// Location is where the dataset was loaded from, if known.
func (d *Dataset) Location() string { return d.location }

// LoadedAt is when the dataset was built.
func (d *Dataset) LoadedAt() time.Time { return d.loadedAt }

// computeFingerprint hashes type-tagged cells so that the string "1" and the
// integer 1 do not collide.
func (d *Dataset) computeFingerprint() string {
	h := xxh3.New()
	var buf []byte
	for _, c := range d.columns {
		buf = append(buf[:0], c.Name...)
		buf = append(buf, 0x1f)
		buf = append(buf, string(c.Type)...)
		buf = append(buf, 0x1e)
		_, _ = h.Write(buf)
	}
	for _, row := range d.rows {
		for _, v := range row {
			buf = appendCell(buf[:0], v)
			buf = append(buf, 0x1f)
			_, _ = h.Write(buf)
		}
		_, _ = h.Write([]byte{0x1e})
	}
	sum := h.Sum128().Bytes()
	return hex.EncodeToString(sum[:])
}

func appendCell(b []byte, v any) []byte {
	switch x := v.(type) {
	case nil:
		return append(b, 'N')
	case string:
		b = append(b, 'S')
		return append(b, x...)
	case int64:
		b = append(b, 'I')
		return strconv.AppendInt(b, x, 10)
	case float64:
		b = append(b, 'F')
		return strconv.AppendUint(b, math.Float64bits(x), 16)
	case bool:
		b = append(b, 'B')
		return strconv.AppendBool(b, x)
	}
	return append(b, '?')
}
