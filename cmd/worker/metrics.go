package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/BnB-Initivatives/stox-prod-test/internal/observability"
)

// serveMetrics exposes the worker's job collectors until ctx is done. An
// empty addr disables the listener.
func serveMetrics(ctx context.Context, addr string, metrics *observability.Metrics, logger *slog.Logger) error {
	if addr == "" {
		<-ctx.Done()
		return ctx.Err()
	}
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	server := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving worker metrics", slog.String("addr", addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics shutdown", slog.Any("error", err))
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
