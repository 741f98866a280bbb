package main

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/cityops/traffic-light-monitor/internal/config"
	"github.com/cityops/traffic-light-monitor/internal/db"
	"github.com/cityops/traffic-light-monitor/internal/logging"
	"github.com/cityops/traffic-light-monitor/internal/metric"
	"github.com/cityops/traffic-light-monitor/internal/mq"
	"github.com/cityops/traffic-light-monitor/internal/query"
	"github.com/cityops/traffic-light-monitor/internal/repository"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.NewLogger(cfg.ServiceName)
}

// ProvideDBPool creates the shared database pool
func ProvideDBPool(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*db.Pool, error) {
	return db.NewPool(lc, logger, cfg.Database.URL)
}

// ProvideSessionProvider creates the per-operation session provider
func ProvideSessionProvider(pool *db.Pool, logger *zap.Logger) *db.Provider {
	return db.NewProvider(pool, logger)
}

// ProvideRepository creates the repository with the auto-registration
// defaults
func ProvideRepository(cfg *config.Config) *repository.Repository {
	return repository.NewRepository(cfg.Registry.DefaultSensorType, cfg.Registry.DefaultStreetID)
}

// ProvideMQConnection creates the shared RabbitMQ connection
func ProvideMQConnection(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*mq.Connection, error) {
	return mq.NewConnection(lc, logger, cfg.RabbitMQ.URL)
}

// ProvideMetrics registers the service metrics
func ProvideMetrics() *metric.Metrics {
	return metric.NewMetrics()
}

// ProvideQueryService creates the read-side query service
func ProvideQueryService(provider *db.Provider, repo *repository.Repository, metrics *metric.Metrics, logger *zap.Logger) *query.Service {
	return query.NewService(provider, repo, metrics, logger)
}
