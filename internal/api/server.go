package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/derbyviz/internal/config"
	"github.com/banshee-data/derbyviz/internal/db"
	"github.com/banshee-data/derbyviz/internal/metrics"
	"github.com/banshee-data/derbyviz/internal/scene"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Server exposes the scene controller over HTTP.
type Server struct {
	ctrl *scene.Controller
	cfg  *config.DerbyConfig
	db   *db.DB
}

// NewServer creates a Server. store may be nil when the dataset was loaded
// from JSON; the /debug/ SQL routes are then not mounted.
func NewServer(ctrl *scene.Controller, cfg *config.DerbyConfig, store *db.DB) *Server {
	if cfg == nil {
		cfg = config.DefaultDerbyConfig()
	}
	return &Server{
		ctrl: ctrl,
		cfg:  cfg,
		db:   store,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// ServeMux returns the API routes. Frame polling endpoints are cheap; the
// snapshot and debug chart render on demand.
func (s *Server) ServeMux() (*http.ServeMux, error) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/hits", s.handleHits)
	mux.HandleFunc("/api/players", s.handlePlayers)
	mux.HandleFunc("/api/rounds", s.handleRounds)
	mux.HandleFunc("/api/frame", s.handleFrame)
	mux.HandleFunc("/api/bounds", s.handleBounds)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/filter", s.handleFilter)
	mux.HandleFunc("/api/slice", s.handleSlice)
	mux.HandleFunc("/api/mode", s.handleMode)
	mux.HandleFunc("/api/playback", s.handlePlayback)
	mux.HandleFunc("/api/replay", s.handleReplay)
	mux.HandleFunc("/api/visibility", s.handleVisibility)
	mux.HandleFunc("/api/snapshot", s.handleSnapshot)
	mux.HandleFunc("/debug/arcs", s.handleArcsChart)
	mux.Handle("/metrics", metrics.Handler())

	if s.db != nil {
		if err := s.db.AttachAdminRoutes(mux); err != nil {
			return nil, fmt.Errorf("failed to attach admin routes: %w", err)
		}
	}
	return mux, nil
}

// ListenAndServe serves the API on addr until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	mux, err := s.ServeMux()
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           LoggingMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[api] listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown failed: %w", err)
	}
	log.Printf("[api] server stopped")
	return nil
}
