// v0
// internal/functions/build.go
package functions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/josecookai/clawdmetrics/internal/config"
)

// BuildSource creates the source selected by cfg. The returned close
// function releases database handles and is never nil.
func BuildSource(ctx context.Context, cfg config.Config, logger *slog.Logger) (Source, func() error, error) {
	noop := func() error { return nil }

	switch cfg.LeaderboardSource {
	case config.SourcePostgres:
		if cfg.DatabaseURL == "" {
			return nil, noop, errors.New("DATABASE_URL is required for the postgres source")
		}
		src, err := OpenPostgres(ctx, cfg.DatabaseURL, cfg.LeaderboardLimit)
		if err != nil {
			return nil, noop, err
		}
		logger.Info("leaderboard_source_ready", slog.String("source", src.Name()), slog.Int("limit", cfg.LeaderboardLimit))
		return src, src.Close, nil

	case config.SourceSQLite:
		if cfg.DatabaseURL == "" {
			return nil, noop, errors.New("DATABASE_URL is required for the sqlite source")
		}
		src, err := OpenSQLite(cfg.DatabaseURL, cfg.LeaderboardLimit)
		if err != nil {
			return nil, noop, err
		}
		logger.Info("leaderboard_source_ready", slog.String("source", src.Name()), slog.Int("limit", cfg.LeaderboardLimit))
		return src, src.Close, nil

	case config.SourceMock, "":
		src := NewMockSource(cfg.MockShape == config.MockShapeEnvelope)
		if cfg.MockFixture != "" {
			fixture, err := LoadFixture(cfg.MockFixture)
			if err != nil {
				return nil, noop, err
			}
			if fixture.Shape != "" {
				src.Envelope = fixture.Shape == config.MockShapeEnvelope
			}
			src.Rows = fixture.Rows
			logger.Info("mock_fixture_loaded",
				slog.String("path", cfg.MockFixture),
				slog.Int("rows", len(fixture.Rows)),
			)
		}
		logger.Info("leaderboard_source_ready", slog.String("source", src.Name()), slog.Int("rows", len(src.Rows)))
		return src, noop, nil

	default:
		return nil, noop, fmt.Errorf("unsupported leaderboard source %q", cfg.LeaderboardSource)
	}
}
