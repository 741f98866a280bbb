// Package ingest implements the parse-register-persist path triggered by
// one inbound telemetry message.
package ingest

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cityops/traffic-light-monitor/internal/logging"
	"github.com/cityops/traffic-light-monitor/internal/metric"
	"github.com/cityops/traffic-light-monitor/internal/telemetry"
)

// Service handles inbound telemetry messages. Every failure is absorbed
// here: the message is logged and dropped, and the bus consumer keeps
// processing. The returned error only signals the consumer to dead-letter
// the delivery instead of acknowledging it.
type Service struct {
	recorder Recorder
	metrics  *metric.Metrics
	logger   *zap.Logger
}

// NewService creates a new ingest service
func NewService(recorder Recorder, metrics *metric.Metrics, logger *zap.Logger) *Service {
	return &Service{
		recorder: recorder,
		metrics:  metrics,
		logger:   logger,
	}
}

// HandleMessage processes one telemetry payload to completion
func (s *Service) HandleMessage(ctx context.Context, body []byte) error {
	msgLogger := logging.WithMessageID(s.logger, uuid.NewString())

	parsed, err := telemetry.Parse(body)
	if err != nil {
		s.countDrop(metric.DropMalformed)
		msgLogger.Error("dropping malformed telemetry message", zap.Error(err))
		return err
	}

	msgLogger.Info("processing telemetry message",
		zap.Int("sensor_id", parsed.Reading.DeviceID),
		zap.String("street_id", parsed.StreetID),
		zap.Time("timestamp", parsed.Reading.Timestamp),
	)

	if err := s.recorder.Record(ctx, &parsed.Reading); err != nil {
		s.countDrop(metric.DropStorage)
		msgLogger.Error("dropping telemetry message after storage failure",
			zap.Int("sensor_id", parsed.Reading.DeviceID),
			zap.Error(err),
		)
		return err
	}

	if s.metrics != nil {
		s.metrics.ReadingsIngested.Inc()
	}
	msgLogger.Info("reading persisted",
		zap.Int("sensor_id", parsed.Reading.DeviceID),
		zap.String("current_state", parsed.Reading.CurrentState),
	)
	return nil
}

func (s *Service) countDrop(reason string) {
	if s.metrics != nil {
		s.metrics.MessagesDropped.WithLabelValues(reason).Inc()
	}
}
