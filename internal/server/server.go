// Package server provides the HTTP observability surface for frametrics.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/solarblue/frametrics/internal/config"
	"github.com/solarblue/frametrics/internal/health"
)

// createHTTPServer creates a configured HTTP server with standard timeouts.
func createHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// SetupRoutes configures the HTTP routes: Prometheus metrics plus health
// endpoints.
func SetupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", HealthHandler)
	mux.HandleFunc("/livez", LivenessHandler)
	mux.HandleFunc("/readyz", ReadinessHandler)
	return mux
}

// Run serves the observability endpoints until ctx is cancelled, then
// shuts down gracefully.
func Run(ctx context.Context, cfg config.Config, hc *health.HealthChecker) error {
	SetHealthChecker(hc)

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := createHTTPServer(addr, SetupRoutes())

	errCh := make(chan error, 1)
	go func() {
		slog.Info("observability server ready", "bind", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
		return srv.Close()
	}
	slog.Info("HTTP server shutdown complete")
	return nil
}
