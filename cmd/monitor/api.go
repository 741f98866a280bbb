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
	"github.com/cityops/traffic-light-monitor/internal/mq"
	"github.com/cityops/traffic-light-monitor/internal/query"
)

func newAPICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "api",
		Short: "Run the HTTP read API",
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
					ProvideQueryService,
					ProvideCommandPublisher,
					ProvideAPIServer,
				),
				fx.Invoke(startHTTPServer),
			)
			return runApp(app)
		},
	}
}

// ProvideCommandPublisher creates the outbound command publisher
func ProvideCommandPublisher(conn *mq.Connection, cfg *config.Config, logger *zap.Logger) (*mq.CommandPublisher, error) {
	return mq.NewCommandPublisher(conn, cfg.RabbitMQ.CmdExchange, logger)
}

// ProvideAPIServer wires the API server to the query service and the
// command publisher
func ProvideAPIServer(service *query.Service, publisher *mq.CommandPublisher, logger *zap.Logger) *api.Server {
	return api.NewServer(service, publisher, logger)
}

func startHTTPServer(lc fx.Lifecycle, server *api.Server, cfg *config.Config, logger *zap.Logger) {
	httpServer := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: server.Router(),
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("starting HTTP server", zap.String("addr", cfg.HTTP.Addr))
			go func() {
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("HTTP server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping HTTP server")
			return httpServer.Shutdown(ctx)
		},
	})
}
