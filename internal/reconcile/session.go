// Package reconcile merges a one-shot historical query result with the
// live push stream for one (street, device) subscription.
package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cityops/traffic-light-monitor/internal/db"
	"github.com/cityops/traffic-light-monitor/internal/repository"
	"github.com/cityops/traffic-light-monitor/internal/telemetry"
)

// Rejection reasons for live messages, evaluated in order: the street
// guard wins over the device guard.
var (
	ErrStreetMismatch = errors.New("message street does not match subscription")
	ErrDeviceMismatch = errors.New("message device does not match subscription")
)

// HistoryLoader is the one-shot historical query behind LoadHistory
type HistoryLoader interface {
	ReadingsFiltered(ctx context.Context, filter repository.Filter) ([]db.Reading, error)
}

// Session is the caller-owned view for one (street, device) pair. Live
// handling and historical reloads may run from different goroutines; they
// stay consistent because a reload replaces the view wholesale rather
// than merging into it.
type Session struct {
	streetID string
	deviceID int
	loader   HistoryLoader
	logger   *zap.Logger

	mu   sync.Mutex
	view []db.Reading
}

// NewSession creates a session subscribed to one street and device
func NewSession(streetID string, deviceID int, loader HistoryLoader, logger *zap.Logger) *Session {
	return &Session{
		streetID: streetID,
		deviceID: deviceID,
		loader:   loader,
		logger:   logger,
	}
}

// LoadHistory replaces the view with a fresh historical result, newest
// first. Live readings accepted before the reload are discarded unless
// the historical query returns them; the store is the source of truth.
// On failure the previous view is kept and the error returned.
func (s *Session) LoadHistory(ctx context.Context, start, end *time.Time) error {
	deviceID := s.deviceID
	filter := repository.Filter{
		StreetID: s.streetID,
		DeviceID: &deviceID,
		Start:    start,
		End:      end,
	}

	readings, err := s.loader.ReadingsFiltered(ctx, filter)
	if err != nil {
		return fmt.Errorf("load history for street %s device %d: %w", s.streetID, s.deviceID, err)
	}

	s.mu.Lock()
	s.view = readings
	s.mu.Unlock()

	s.logger.Info("history reloaded",
		zap.String("street_id", s.streetID),
		zap.Int("device_id", s.deviceID),
		zap.Int("count", len(readings)),
	)
	return nil
}

// liveEnvelope is the part of a push message checked before full parsing
type liveEnvelope struct {
	StreetID string `json:"street_id"`
}

// OnLiveMessage handles one push message for the subscribed topic. A
// message carrying an explicit street id for another street is rejected
// before anything else; a parsed reading for another device is rejected
// next. Accepted readings become the newest element of the view; push
// delivery order is trusted as chronological, so the view is never
// re-sorted.
func (s *Session) OnLiveMessage(payload []byte) (*db.Reading, error) {
	var envelope liveEnvelope
	if err := json.Unmarshal(payload, &envelope); err == nil {
		if envelope.StreetID != "" && envelope.StreetID != s.streetID {
			s.logger.Warn("ignoring live message from other street",
				zap.String("message_street", envelope.StreetID),
				zap.String("subscribed_street", s.streetID),
			)
			return nil, ErrStreetMismatch
		}
	}

	parsed, err := telemetry.Parse(payload)
	if err != nil {
		s.logger.Error("ignoring unparsable live message", zap.Error(err))
		return nil, err
	}

	if parsed.Reading.DeviceID != s.deviceID {
		s.logger.Warn("ignoring live message from other device",
			zap.Int("message_device", parsed.Reading.DeviceID),
			zap.Int("subscribed_device", s.deviceID),
		)
		return nil, ErrDeviceMismatch
	}

	reading := parsed.Reading

	s.mu.Lock()
	s.view = append([]db.Reading{reading}, s.view...)
	s.mu.Unlock()

	return &reading, nil
}

// View returns a copy of the current merged view, newest first
func (s *Session) View() []db.Reading {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := make([]db.Reading, len(s.view))
	copy(view, s.view)
	return view
}

// Latest returns the newest reading in the view, or nil when empty
func (s *Session) Latest() *db.Reading {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.view) == 0 {
		return nil
	}
	latest := s.view[0]
	return &latest
}
