// v0
// cmd/get-leaderboard/main.go
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/josecookai/clawdmetrics/internal/app"
	"github.com/josecookai/clawdmetrics/internal/config"
	"github.com/josecookai/clawdmetrics/internal/functions"
	httpserver "github.com/josecookai/clawdmetrics/internal/http"
	"github.com/josecookai/clawdmetrics/internal/logging"
	"github.com/josecookai/clawdmetrics/internal/metrics"
)

func main() {
	bootstrap := logging.Bootstrap()

	cfg, err := config.Load()
	if err != nil {
		bootstrap.Error("config_load_failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.RequireConnection(); err != nil {
		bootstrap.Error("function_config_invalid", slog.Any("err", err))
		os.Exit(1)
	}

	sink, err := logging.Open(cfg.LogFilePath, slog.LevelInfo)
	if err != nil {
		bootstrap.Error("log_open_failed", slog.Any("err", err))
		os.Exit(1)
	}
	logger := sink.Logger.With(slog.String("component", "get_leaderboard"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source, closeSource, err := functions.BuildSource(ctx, cfg, logger)
	if err != nil {
		logger.Error("leaderboard_source_failed", slog.Any("err", err))
		_ = sink.Close()
		os.Exit(1)
	}

	health := httpserver.NewHealthState()
	server := &http.Server{
		Addr:              cfg.FunctionListenAddress,
		Handler:           functions.NewRouter(logger, source, metrics.New("clawdmetrics_function"), health),
		ReadTimeout:       cfg.HTTPReadTimeout,
		ReadHeaderTimeout: cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPWriteTimeout,
	}

	logger.Info("service_boot",
		slog.String("listen_address", cfg.FunctionListenAddress),
		slog.String("source", source.Name()),
		slog.String("supabase_url", cfg.SupabaseURL),
	)

	runErr := app.Serve(ctx, server, health, cfg.ShutdownTimeout, logger)
	if err := closeSource(); err != nil {
		logger.Error("leaderboard_source_close_failed", slog.Any("err", err))
	}
	if runErr != nil {
		logger.Error("service_terminated", slog.Any("err", runErr))
		_ = sink.Close()
		os.Exit(1)
	}
	logger.Info("service_stopped")
	_ = sink.Close()
}
