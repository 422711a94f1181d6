// Package server exposes the analysis pipeline over HTTP: POST a YAML
// program description to /analyze and get the diagnostic list as JSON.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Config holds server parameters.
type Config struct {
	Port    int
	Workers int // analysis workers per request; <=0 means GOMAXPROCS
}

// Handler builds the HTTP handler. Split out from Serve so tests can
// drive it through httptest without binding a port.
func Handler(cfg Config, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintln(w, "ok")
	})

	mux.HandleFunc("POST /analyze", func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		reqLogger := logger.With("request_id", reqID)
		reqLogger.Debug("request received", "method", r.Method, "path", r.URL.Path)
		handleAnalyze(w, r, cfg, reqLogger)
	})

	return mux
}

// Serve runs the HTTP server until ctx is cancelled or the listener
// fails, then shuts down gracefully.
func Serve(ctx context.Context, cfg Config, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: Handler(cfg, logger),
	}

	logger.Info("starting HTTP server", "addr", fmt.Sprintf("http://localhost:%d", cfg.Port))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
		close(errCh)
	}()

	// Block until the context is cancelled or the server fails.
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP server shutdown error: %w", err)
		}
		return nil
	}
}
