// Package datasource abstracts where raw dataset bytes come from. The loader
// only needs an io.ReadCloser; the concrete source decides how to get one.
package datasource

import (
	"context"
	"io"
)

// Source opens the raw bytes of a dataset.
type Source interface {
	// Open returns a reader positioned at the start of the data. The caller
	// closes it.
	Open(ctx context.Context) (io.ReadCloser, error)
	// Location describes the source for logs and reports (a path or URL).
	Location() string
}
