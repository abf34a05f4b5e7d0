// v4
// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/josecookai/clawdmetrics/internal/config"
	"github.com/josecookai/clawdmetrics/internal/dashboard"
	"github.com/josecookai/clawdmetrics/internal/diagnose"
	"github.com/josecookai/clawdmetrics/internal/fetch"
	httpserver "github.com/josecookai/clawdmetrics/internal/http"
	"github.com/josecookai/clawdmetrics/internal/logging"
	"github.com/josecookai/clawdmetrics/internal/metrics"
	"github.com/josecookai/clawdmetrics/internal/supabase"
)

// Application wires configuration, logging, routing, and graceful
// shutdown handling for the dashboard server.
type Application struct {
	cfg    config.Config
	logger *slog.Logger
	sink   *logging.Sink
	server *http.Server
	health *httpserver.HealthState
}

// New prepares a fully wired dashboard using the supplied configuration.
// Missing connection values are logged but do not stop the server; the
// first load surfaces them as a diagnostic.
func New(cfg config.Config) (*Application, error) {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		return nil, errors.New("listen address cannot be empty")
	}
	sink, err := logging.Open(cfg.LogFilePath, slog.LevelInfo)
	if err != nil {
		return nil, err
	}
	logger := sink.Logger

	handler, health, err := buildHandler(cfg, logger, nil)
	if err != nil {
		_ = sink.Close()
		return nil, err
	}

	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		ReadHeaderTimeout: cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPWriteTimeout,
	}

	return &Application{
		cfg:    cfg,
		logger: logger,
		sink:   sink,
		server: server,
		health: health,
	}, nil
}

// buildHandler assembles the router behind the server. httpClient is
// passed to the backend client, nil meaning http.DefaultClient.
func buildHandler(cfg config.Config, logger *slog.Logger, httpClient *http.Client) (http.Handler, *httpserver.HealthState, error) {
	if missing := cfg.MissingConnection(); len(missing) > 0 {
		logger.Warn("supabase_connection_missing",
			slog.String("missing", strings.Join(missing, ",")),
			slog.String("hint", "the dashboard will show a configuration diagnostic on load"),
		)
	}

	client := supabase.NewClient(cfg.SupabaseURL, cfg.AnonKey, httpClient)
	fetcher, err := fetch.New(cfg.Transport, client)
	if err != nil {
		return nil, nil, fmt.Errorf("fetcher init: %w", err)
	}

	apiCfg := httpserver.LoadAPIConfig()
	windows := make([]string, 0, len(apiCfg.Windows))
	for _, w := range apiCfg.Windows {
		windows = append(windows, w.Name)
	}
	logger.Info("http_api_config_loaded",
		slog.Any("windows", windows),
		slog.Int("default_days_ago", cfg.DaysAgo),
	)

	m := metrics.New("clawdmetrics")
	classifier := diagnose.New(cfg.Locale)
	loaderLogger := logger.With(slog.String("component", "leaderboard_loader"))
	loader := dashboard.NewLoader(fetcher, classifier, m, loaderLogger)
	loaderLogger.Info("leaderboard_loader_configured",
		slog.String("transport", string(fetcher.Transport())),
		slog.String("locale", classifier.Locale().String()),
		slog.String("supabase_url", cfg.SupabaseURL),
	)

	health := httpserver.NewHealthState()
	router := httpserver.NewRouter(logger, health, loader, m, apiCfg.Windows, cfg.DaysAgo)
	return httpserver.WrapWithLogging(logger, m, httpserver.Routes, router), health, nil
}

// Logger exposes the configured slog logger so callers (such as main)
// can emit structured logs after initialization.
func (a *Application) Logger() *slog.Logger {
	return a.logger
}

// Run blocks until the context is cancelled or the HTTP server
// terminates unexpectedly. It manages readiness probes and graceful
// shutdown behaviour.
func (a *Application) Run(ctx context.Context) error {
	return Serve(ctx, a.server, a.health, a.cfg.ShutdownTimeout, a.logger)
}

// Close flushes and closes resources owned by the application instance.
func (a *Application) Close() error {
	return a.sink.Close()
}
