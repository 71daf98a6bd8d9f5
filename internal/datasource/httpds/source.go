package httpds

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Source fetches a dataset over HTTP(S) with the client's retry policy.
type Source struct {
	client *Client
	url    string
}

// NewSource returns a datasource reading url through client.
func NewSource(client *Client, url string) *Source {
	return &Source{client: client, url: url}
}

// Location returns the URL.
func (s *Source) Location() string { return s.url }

// Open issues the GET and returns the body. 404 and 410 wrap
// ErrNotFound so the loader can report the source as missing.
func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := s.client.Get(ctx, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.url, err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		_ = resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: %s: %w", s.url, resp.Status, ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		_ = resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: %s", s.url, resp.Status)
	}
	return resp.Body, nil
}

// ErrNotFound reports that the remote dataset does not exist.
var ErrNotFound = errors.New("httpds: resource not found")
