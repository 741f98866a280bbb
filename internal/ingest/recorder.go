package ingest

import (
	"context"

	"go.uber.org/zap"

	"github.com/cityops/traffic-light-monitor/internal/db"
	"github.com/cityops/traffic-light-monitor/internal/repository"
)

// Recorder persists one parsed reading, device bookkeeping included
type Recorder interface {
	Record(ctx context.Context, reading *db.Reading) error
}

// StorageRecorder records readings through a session scoped to the single
// ingest operation
type StorageRecorder struct {
	provider   *db.Provider
	repo       *repository.Repository
	autoCommit bool
	logger     *zap.Logger
}

// NewStorageRecorder creates a recorder over the session provider
func NewStorageRecorder(provider *db.Provider, repo *repository.Repository, autoCommit bool, logger *zap.Logger) *StorageRecorder {
	return &StorageRecorder{
		provider:   provider,
		repo:       repo,
		autoCommit: autoCommit,
		logger:     logger,
	}
}

// Record ensures the originating device row exists, then inserts the
// reading. A registration failure is logged but does not abort the
// insert: the reading is still informative, and a genuine foreign-key
// violation fails the insert as the backstop. The session is released
// unconditionally.
func (r *StorageRecorder) Record(ctx context.Context, reading *db.Reading) error {
	sess, err := r.provider.Acquire(ctx, r.autoCommit)
	if err != nil {
		return err
	}
	defer sess.Release(ctx)

	if err := r.repo.EnsureDeviceExists(ctx, sess, reading.DeviceID); err != nil {
		r.logger.Error("error ensuring device exists",
			zap.Int("sensor_id", reading.DeviceID),
			zap.Error(err),
		)
	}

	if err := r.repo.InsertReading(ctx, sess, reading); err != nil {
		return err
	}

	return sess.Commit(ctx)
}
