package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/cityops/traffic-light-monitor/internal/api"
	"github.com/cityops/traffic-light-monitor/internal/config"
	"github.com/cityops/traffic-light-monitor/internal/db"
	"github.com/cityops/traffic-light-monitor/internal/ingest"
	"github.com/cityops/traffic-light-monitor/internal/metric"
	"github.com/cityops/traffic-light-monitor/internal/mq"
	"github.com/cityops/traffic-light-monitor/internal/repository"
)

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the telemetry ingestion worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(
				fx.Provide(
					config.Load,
					newLogger,
					ProvideDBPool,
					ProvideSessionProvider,
					ProvideRepository,
					ProvideMQConnection,
					ProvideMetrics,
					ProvideIngestService,
				),
				fx.Invoke(startWorker, startOpsServer),
			)
			return runApp(app)
		},
	}
}

// ProvideIngestService wires the recorder and the ingest service
func ProvideIngestService(
	provider *db.Provider,
	repo *repository.Repository,
	metrics *metric.Metrics,
	cfg *config.Config,
	logger *zap.Logger,
) *ingest.Service {
	recorder := ingest.NewStorageRecorder(provider, repo, cfg.Ingest.AutoCommit, logger)
	return ingest.NewService(recorder, metrics, logger)
}

func startWorker(
	lc fx.Lifecycle,
	conn *mq.Connection,
	cfg *config.Config,
	logger *zap.Logger,
	service *ingest.Service,
) (*mq.Consumer, error) {
	// Create context for consumer that will be cancelled on shutdown
	ctx, cancel := context.WithCancel(context.Background())

	consumer, err := mq.NewConsumer(mq.ConsumerConfig{
		Connection:    conn,
		Queue:         cfg.RabbitMQ.StateQueue,
		DLQQueue:      cfg.RabbitMQ.DLQQueue,
		Exchange:      cfg.RabbitMQ.StateExchange,
		BindingKey:    cfg.RabbitMQ.StateBindKey,
		PrefetchCount: cfg.RabbitMQ.PrefetchCount,
		Logger:        logger,
		Handler:       service.HandleMessage,
	})
	if err != nil {
		cancel()
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			logger.Info("starting telemetry consumer",
				zap.String("queue", cfg.RabbitMQ.StateQueue),
				zap.String("binding_key", cfg.RabbitMQ.StateBindKey),
				zap.Int("prefetch", cfg.RabbitMQ.PrefetchCount))
			return consumer.Start(ctx)
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			if err := consumer.Close(); err != nil {
				logger.Error("failed to close consumer", zap.Error(err))
				return err
			}
			logger.Info("worker stopped gracefully")
			return nil
		},
	})

	return consumer, nil
}

// startOpsServer exposes the worker's health and metrics endpoints. The
// ingest counters are registered in this process, so the scrape must be
// served here rather than by the api binary.
func startOpsServer(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) {
	server := &http.Server{
		Addr:    cfg.HTTP.OpsAddr,
		Handler: api.NewOpsHandler(),
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("starting ops server", zap.String("addr", cfg.HTTP.OpsAddr))
			go func() {
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("ops server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping ops server")
			return server.Shutdown(ctx)
		},
	})
}
