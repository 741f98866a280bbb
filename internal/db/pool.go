package db

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Pool is an alias for pgxpool.Pool
type Pool = pgxpool.Pool

// NewPool builds the shared Postgres pool. pgx connects lazily, so the
// start hook pings the database and bootstraps the schema before any
// consumer or handler takes a session.
func NewPool(lc fx.Lifecycle, logger *zap.Logger, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("build pool: %w", err)
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := pool.Ping(ctx); err != nil {
				logger.Error("database unreachable",
					zap.String("url", redactURL(databaseURL)),
					zap.Error(err))
				return fmt.Errorf("ping database: %w", err)
			}
			if err := EnsureSchema(ctx, pool); err != nil {
				return fmt.Errorf("bootstrap schema: %w", err)
			}
			logger.Info("database ready", zap.String("url", redactURL(databaseURL)))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			pool.Close()
			logger.Info("database pool closed")
			return nil
		},
	})

	return pool, nil
}

// redactURL strips the password from a connection URL for log output
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparsable url>"
	}
	return u.Redacted()
}
