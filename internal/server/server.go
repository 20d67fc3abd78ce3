// Package server serves the explorer over HTTP: a JSON API for the built
// tree plus a small embedded page that renders it in the browser.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/tensorview/tensorview/internal/format"
	"github.com/tensorview/tensorview/internal/loader"
	"github.com/tensorview/tensorview/internal/tree"
)

// Server holds the decoded snapshot and rebuilds trees per request. With
// watch mode enabled, the snapshot is re-decoded and swapped when an input
// file changes; handlers always read a consistent snapshot through the
// mutex.
type Server struct {
	paths  []string
	logger *slog.Logger

	mu   sync.RWMutex
	snap *loader.Snapshot
}

// New creates a server for the given snapshot. paths are the decoded input
// files, kept for watch-mode reloads.
func New(snap *loader.Snapshot, paths []string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{paths: paths, snap: snap, logger: logger}
}

// snapshot returns the current snapshot.
func (s *Server) snapshot() *loader.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Reload re-decodes the input files and swaps the served snapshot.
func (s *Server) Reload(ctx context.Context) error {
	snap, err := loader.Load(ctx, s.paths, s.logger)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
	s.logger.Info("snapshot reloaded",
		slog.Int("tensors", len(snap.Tensors)),
		slog.Int("metadata", len(snap.Metadata)))
	return nil
}

// Router builds the chi router with logging and panic recovery.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/api/tree", s.handleTree)
	r.Get("/api/summary", s.handleSummary)
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}

// treeResponse is the /api/tree payload.
type treeResponse struct {
	Query string       `json:"query,omitempty"`
	Roots []*tree.Node `json:"roots"`
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	snap := s.snapshot()

	tensors, metadata := tree.Filter(snap.Tensors, snap.Metadata, query)
	roots := tree.BuildMixed(tensors, metadata)
	if roots == nil {
		roots = []*tree.Node{}
	}

	writeJSON(w, http.StatusOK, treeResponse{Query: query, Roots: roots})
}

// summaryResponse is the /api/summary payload.
type summaryResponse struct {
	Files           int    `json:"files"`
	Failed          int    `json:"failed"`
	Tensors         int    `json:"tensors"`
	Metadata        int    `json:"metadata"`
	TotalParameters int64    `json:"total_parameters"`
	TotalSize       int64    `json:"total_size"`
	ParametersHuman string   `json:"parameters_human"`
	SizeHuman       string   `json:"size_human"`
	Models          []string `json:"models,omitempty"`
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	snap := s.snapshot()
	writeJSON(w, http.StatusOK, summaryResponse{
		Files:           snap.Files(),
		Failed:          len(snap.Reports) - snap.Files(),
		Tensors:         len(snap.Tensors),
		Metadata:        len(snap.Metadata),
		TotalParameters: snap.TotalParameters,
		TotalSize:       snap.TotalSize,
		ParametersHuman: format.Parameters(snap.TotalParameters),
		SizeHuman:       format.Size(snap.TotalSize),
		Models:          snap.Models(),
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(indexHTML))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

// Run serves the explorer until ctx is cancelled or a shutdown signal
// arrives. With watch enabled, input files are watched for changes.
func (s *Server) Run(ctx context.Context, addr string, watch bool) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	if watch {
		g.Go(func() error {
			return s.Watch(gCtx)
		})
	}

	g.Go(func() error {
		s.logger.Info("explorer listening", slog.String("address", addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			s.logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return nil
	})

	return g.Wait()
}
