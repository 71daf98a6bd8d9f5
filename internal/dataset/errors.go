package dataset

import "fmt"

// SourceNotFoundError means the dataset source could not be opened. It is
// fatal: no check runs without data.
type SourceNotFoundError struct {
	Location string
	Err      error
}

func (e *SourceNotFoundError) Error() string {
	return fmt.Sprintf("source not found: %s: %v", e.Location, e.Err)
}

func (e *SourceNotFoundError) Unwrap() error { return e.Err }

// TypeCoercionError means a schema hint could not be applied: either a value
// did not convert to the hinted type, or the hinted column does not exist.
// Row is the 0-based data row index, or -1 when the column is missing.
type TypeCoercionError struct {
	Column string
	Row    int
	Value  string
	Type   Type
	Err    error
}

func (e *TypeCoercionError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("type coercion: column %q: %v", e.Column, e.Err)
	}
	return fmt.Sprintf("type coercion: column %q row %d: cannot convert %q to %s: %v", e.Column, e.Row, e.Value, e.Type, e.Err)
}

func (e *TypeCoercionError) Unwrap() error { return e.Err }

// ParseError means the source was readable but not a well-formed delimited
// file with a header row.
type ParseError struct {
	Location string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Location, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
