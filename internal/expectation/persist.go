package expectation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SuiteDefinition is the persisted form of a Suite, shared by JSON and YAML.
type SuiteDefinition struct {
	Name         string                  `json:"name" yaml:"name"`
	Expectations []ExpectationDefinition `json:"expectations" yaml:"expectations"`
}

// ExpectationDefinition is the persisted form of one Expectation.
type ExpectationDefinition struct {
	Type   Kind           `json:"type" yaml:"type"`
	Kwargs map[string]any `json:"kwargs" yaml:"kwargs"`
}

// Definition returns the persisted form of s.
func (s *Suite) Definition() SuiteDefinition {
	def := SuiteDefinition{Name: s.name, Expectations: make([]ExpectationDefinition, 0, len(s.items))}
	for _, e := range s.items {
		def.Expectations = append(def.Expectations, ExpectationDefinition{Type: e.Kind, Kwargs: e.Parameters()})
	}
	return def
}

// Build turns a definition into a Suite. Every expectation goes through
// Suite.Add, so a stored suite cannot bypass validation.
func (d SuiteDefinition) Build() (*Suite, error) {
	s := NewSuite(d.Name)
	if s.name == "" {
		return nil, fmt.Errorf("suite definition has no name")
	}
	for i, ed := range d.Expectations {
		e, err := ed.Expectation()
		if err != nil {
			var iee *InvalidExpectationError
			if errors.As(err, &iee) {
				iee.Suite, iee.Index = s.name, i
			}
			return nil, err
		}
		if err := s.Add(e); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Expectation decodes kwargs for the definition's kind.
func (d ExpectationDefinition) Expectation() (Expectation, error) {
	bad := func(format string, a ...any) (Expectation, error) {
		return Expectation{}, &InvalidExpectationError{Index: -1, Kind: d.Type, Reason: fmt.Sprintf(format, a...)}
	}
	kw := d.Kwargs
	switch d.Type {
	case KindColumnNotNull:
		col, err := stringArg(kw, "column")
		if err != nil {
			return bad("%v", err)
		}
		return ColumnNotNull(col), nil

	case KindRowCountEquals:
		raw, ok := kw["value"]
		if !ok {
			return bad("kwarg \"value\" is required")
		}
		f, ok := toFloat(raw)
		if !ok || f != math.Trunc(f) {
			return bad("kwarg \"value\" must be an integer, got %v", raw)
		}
		return RowCountEquals(int64(f)), nil

	case KindColumnMaxBetween:
		col, err := stringArg(kw, "column")
		if err != nil {
			return bad("%v", err)
		}
		e := Expectation{Kind: KindColumnMaxBetween, Column: col}
		for key, dst := range map[string]**float64{"min_value": &e.Min, "max_value": &e.Max} {
			raw, ok := kw[key]
			if !ok || raw == nil {
				continue
			}
			f, ok := toFloat(raw)
			if !ok {
				return bad("kwarg %q must be a number, got %v", key, raw)
			}
			*dst = &f
		}
		return e, nil
	}
	return bad("unsupported kind")
}

// LoadSuite reads a suite definition from a .json, .yaml or .yml file.
func LoadSuite(path string) (*Suite, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read suite: %w", err)
	}
	var def SuiteDefinition
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &def)
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.UseNumber()
		err = dec.Decode(&def)
	default:
		return nil, fmt.Errorf("read suite %s: unsupported extension", path)
	}
	if err != nil {
		return nil, fmt.Errorf("decode suite %s: %w", path, err)
	}
	return def.Build()
}

// Save writes the suite definition to path, choosing the encoding from the
// extension. The file is replaced atomically.
func (s *Suite) Save(path string) error {
	def := s.Definition()
	var (
		b   []byte
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		b, err = yaml.Marshal(def)
	case ".json":
		b, err = json.MarshalIndent(def, "", "  ")
		b = append(b, '\n')
	default:
		return fmt.Errorf("save suite %s: unsupported extension", path)
	}
	if err != nil {
		return fmt.Errorf("encode suite: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".suite-*")
	if err != nil {
		return fmt.Errorf("save suite: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("save suite: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save suite: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("save suite: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

func stringArg(kw map[string]any, key string) (string, error) {
	raw, ok := kw[key]
	if !ok {
		return "", fmt.Errorf("kwarg %q is required", key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("kwarg %q must be a string, got %T", key, raw)
	}
	return s, nil
}

// toFloat accepts the numeric shapes produced by encoding/json (with
// UseNumber), yaml.v3 and Go callers.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
