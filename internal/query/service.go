package query

import (
	"context"

	"go.uber.org/zap"

	"github.com/cityops/traffic-light-monitor/internal/db"
	"github.com/cityops/traffic-light-monitor/internal/metric"
	"github.com/cityops/traffic-light-monitor/internal/repository"
)

// SessionProvider yields one database session per query
type SessionProvider interface {
	Acquire(ctx context.Context, autoCommit bool) (*db.Session, error)
}

// Service runs read-only queries. Failures never reach the caller: an
// invalid filter or a storage failure degrades to an empty result with
// the error logged, so the endpoints stay available. Callers cannot tell
// "no matching data" from "backend failure"; that is a known limitation
// of this contract, surfaced through logs and the query outcome counter.
type Service struct {
	provider SessionProvider
	repo     *repository.Repository
	metrics  *metric.Metrics
	logger   *zap.Logger
}

// NewService creates a new query service
func NewService(provider SessionProvider, repo *repository.Repository, metrics *metric.Metrics, logger *zap.Logger) *Service {
	return &Service{
		provider: provider,
		repo:     repo,
		metrics:  metrics,
		logger:   logger,
	}
}

// Readings returns the filtered history, newest first. Never nil.
func (s *Service) Readings(ctx context.Context, p Params) []db.Reading {
	filter, err := ParseFilter(p)
	if err != nil {
		s.countQuery(metric.QueryInvalidFilter)
		s.logger.Error("rejecting history query", zap.Error(err))
		return []db.Reading{}
	}

	sess, err := s.provider.Acquire(ctx, true)
	if err != nil {
		s.countQuery(metric.QueryStorageError)
		s.logger.Error("history query connection failed", zap.Error(err))
		return []db.Reading{}
	}
	defer sess.Release(ctx)

	readings, err := s.repo.QueryReadings(ctx, sess, filter)
	if err != nil {
		s.countQuery(metric.QueryStorageError)
		s.logger.Error("history query failed", zap.Error(err))
		return []db.Reading{}
	}

	s.countQuery(metric.QueryOK)
	if readings == nil {
		readings = []db.Reading{}
	}
	return readings
}

// ReadingsFiltered runs the history query without absorbing failures,
// for callers that need to distinguish them
func (s *Service) ReadingsFiltered(ctx context.Context, filter repository.Filter) ([]db.Reading, error) {
	sess, err := s.provider.Acquire(ctx, true)
	if err != nil {
		s.countQuery(metric.QueryStorageError)
		return nil, err
	}
	defer sess.Release(ctx)

	readings, err := s.repo.QueryReadings(ctx, sess, filter)
	if err != nil {
		s.countQuery(metric.QueryStorageError)
		return nil, err
	}

	s.countQuery(metric.QueryOK)
	return readings, nil
}

// Streets returns all known street identifiers. Never nil.
func (s *Service) Streets(ctx context.Context) []string {
	sess, err := s.provider.Acquire(ctx, true)
	if err != nil {
		s.logger.Error("streets query connection failed", zap.Error(err))
		return []string{}
	}
	defer sess.Release(ctx)

	streets, err := s.repo.ListStreets(ctx, sess)
	if err != nil {
		s.logger.Error("streets query failed", zap.Error(err))
		return []string{}
	}
	if streets == nil {
		streets = []string{}
	}
	return streets
}

// DevicesByStreet returns the sensor ids on one street. Never nil.
func (s *Service) DevicesByStreet(ctx context.Context, streetID string) []int {
	sess, err := s.provider.Acquire(ctx, true)
	if err != nil {
		s.logger.Error("devices query connection failed", zap.Error(err))
		return []int{}
	}
	defer sess.Release(ctx)

	devices, err := s.repo.ListDevicesByStreet(ctx, sess, streetID)
	if err != nil {
		s.logger.Error("devices query failed", zap.Error(err))
		return []int{}
	}
	if devices == nil {
		devices = []int{}
	}
	return devices
}

func (s *Service) countQuery(outcome string) {
	if s.metrics != nil {
		s.metrics.QueriesServed.WithLabelValues(outcome).Inc()
	}
}
