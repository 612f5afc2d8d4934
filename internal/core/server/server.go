package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/droneroute/flightcore/internal/assess"
	"github.com/droneroute/flightcore/internal/core/config"
	"github.com/droneroute/flightcore/internal/core/health"
	middleware "github.com/droneroute/flightcore/internal/core/middleware"
	"github.com/droneroute/flightcore/internal/httpapi"
	"github.com/droneroute/flightcore/internal/optimizesvc"
	"github.com/droneroute/flightcore/internal/viewport"
)

// Run wires the HTTP API, health and metrics endpoints onto a chi router
// and serves until ctx is cancelled.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, viewportSvc *viewport.Service, assessSvc *assess.Service, submitSvc *optimizesvc.Service, readiness health.ReadinessReporter) error {
	r := chi.NewRouter()
	r.Use(middleware.Recover())
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS())

	r.Get("/healthz", health.Liveness())
	if readiness != nil {
		r.Get("/readyz", health.Readiness(readiness))
	}
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	httpapi.Mount(r, viewportSvc, assessSvc, submitSvc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
