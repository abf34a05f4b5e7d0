// v0
// internal/app/serve.go
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	httpserver "github.com/josecookai/clawdmetrics/internal/http"
)

// Serve runs server until ctx is cancelled or the listener fails. The
// health state is ready while the listener is up and flips back before
// shutdown starts so probes drain traffic first.
func Serve(ctx context.Context, server *http.Server, health *httpserver.HealthState, shutdownTimeout time.Duration, logger *slog.Logger) error {
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", server.Addr, err)
	}
	return serveListener(ctx, server, ln, health, shutdownTimeout, logger)
}

func serveListener(ctx context.Context, server *http.Server, ln net.Listener, health *httpserver.HealthState, shutdownTimeout time.Duration, logger *slog.Logger) error {
	httpCh := make(chan error, 1)
	go func() {
		health.SetReady(true)
		logger.Info("http_server_listen", slog.String("address", ln.Addr().String()))
		httpCh <- server.Serve(ln)
	}()

	select {
	case err := <-httpCh:
		health.SetReady(false)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_error", slog.Any("err", err))
			return err
		}
		logger.Info("server_closed")
		return nil
	case <-ctx.Done():
		logger.Info("shutdown_signal")
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var shutdownErr error
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("server_shutdown_failed", slog.Any("err", err))
			shutdownErr = fmt.Errorf("shutdown: %w", err)
		}
		if err := <-httpCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server_shutdown_error", slog.Any("err", err))
			if shutdownErr == nil {
				shutdownErr = err
			}
		}
		if shutdownErr != nil {
			return shutdownErr
		}
		logger.Info("shutdown_complete")
		return nil
	}
}
