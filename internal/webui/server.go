// Package webui serves a generated validation site over HTTP, plus a small
// JSON API for scripts.
//
// Routes:
//
//	GET /                  → the static site (index.html, validations/…)
//	GET /api/latest        → latest run of every suite
//	GET /api/latest?suite= → latest full result of one suite
//	GET /api/runs?suite=   → run history from the result store, when configured
//	GET /healthz           → liveness
package webui

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"dqcheck/internal/report"
	"dqcheck/internal/storage"

	"go.uber.org/zap"
)

// Config controls server startup.
type Config struct {
	Addr string
	// SiteDir is the directory the html_site sink renders into.
	SiteDir string
	// Runs backs /api/runs. Nil disables the route.
	Runs storage.Repository
	// RunsLimit caps /api/runs when the request gives no limit.
	RunsLimit int
	Logger    *zap.Logger
}

// Server wraps http.Server for convenience.
type Server struct {
	cfg Config
	mux *http.ServeMux
	log *zap.Logger
}

// NewServer constructs a Server with its routes.
func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.RunsLimit <= 0 {
		cfg.RunsLimit = 50
	}
	s := &Server{cfg: cfg, mux: http.NewServeMux(), log: cfg.Logger}
	s.routes()
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.logRequests(s.mux) }

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("serving site", zap.String("addr", s.cfg.Addr), zap.String("dir", s.cfg.SiteDir))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) routes() {
	s.mux.Handle("GET /", http.FileServer(http.Dir(s.cfg.SiteDir)))
	s.mux.HandleFunc("GET /api/latest", s.handleLatest)
	if s.cfg.Runs != nil {
		s.mux.HandleFunc("GET /api/runs", s.handleRuns)
	}
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
}

// handleLatest returns the site index, or one suite's result with ?suite=.
func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	suite := strings.TrimSpace(r.URL.Query().Get("suite"))
	if suite == "" {
		entries, err := report.Index(s.cfg.SiteDir)
		if err != nil {
			s.fail(w, "read site index", err, http.StatusInternalServerError)
			return
		}
		s.writeJSON(w, entries)
		return
	}

	res, err := report.ReadResult(filepath.Join(s.cfg.SiteDir, filepath.FromSlash(report.SuitePath(suite, ".json"))))
	switch {
	case errors.Is(err, os.ErrNotExist):
		http.Error(w, "no result for suite "+strconv.Quote(suite), http.StatusNotFound)
	case err != nil:
		s.fail(w, "read result", err, http.StatusInternalServerError)
	default:
		s.writeJSON(w, res)
	}
}

// handleRuns lists stored runs of a suite, newest first.
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	suite := strings.TrimSpace(q.Get("suite"))
	if suite == "" {
		http.Error(w, "suite is required", http.StatusBadRequest)
		return
	}
	limit := s.cfg.RunsLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	runs, err := s.cfg.Runs.Runs(r.Context(), suite, limit)
	if err != nil {
		s.fail(w, "list runs", err, http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []storage.RunRecord{}
	}
	s.writeJSON(w, runs)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		s.log.Warn("write response", zap.Error(err))
	}
}

func (s *Server) fail(w http.ResponseWriter, what string, err error, code int) {
	s.log.Error(what, zap.Error(err))
	http.Error(w, what+" failed", code)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)))
	})
}
