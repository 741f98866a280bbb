package ingest_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/cityops/traffic-light-monitor/internal/db"
	"github.com/cityops/traffic-light-monitor/internal/errs"
	"github.com/cityops/traffic-light-monitor/internal/ingest"
)

type fakeRecorder struct {
	err      error
	recorded []db.Reading
}

func (f *fakeRecorder) Record(ctx context.Context, reading *db.Reading) error {
	if f.err != nil {
		return f.err
	}
	f.recorded = append(f.recorded, *reading)
	return nil
}

const validPayload = `{
	"sensor_id": "7",
	"street_id": "ST_1",
	"timestamp": "2025-01-01T10:00:00Z",
	"data": {"current_state": "green", "state_changed": true}
}`

func TestHandleMessage_PersistsReading(t *testing.T) {
	recorder := &fakeRecorder{}
	service := ingest.NewService(recorder, nil, zap.NewNop())

	if err := service.HandleMessage(context.Background(), []byte(validPayload)); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(recorder.recorded) != 1 {
		t.Fatalf("Expected 1 recorded reading, got %d", len(recorder.recorded))
	}
	if recorder.recorded[0].DeviceID != 7 {
		t.Errorf("Expected device 7, got %d", recorder.recorded[0].DeviceID)
	}
	if recorder.recorded[0].CurrentState != "green" {
		t.Errorf("Expected state green, got %q", recorder.recorded[0].CurrentState)
	}
}

func TestHandleMessage_MalformedPayloadPersistsNothing(t *testing.T) {
	recorder := &fakeRecorder{}
	service := ingest.NewService(recorder, nil, zap.NewNop())

	payload := `{"sensor_id": "7", "timestamp": "2025-01-01T10:00:00Z", "data": {"cycle_count": 3}}`
	err := service.HandleMessage(context.Background(), []byte(payload))
	if !errors.Is(err, errs.ErrMalformedPayload) {
		t.Errorf("Expected ErrMalformedPayload, got %v", err)
	}

	if len(recorder.recorded) != 0 {
		t.Errorf("Expected zero persisted rows, got %d", len(recorder.recorded))
	}
}

func TestHandleMessage_MalformedDoesNotBlockNextMessage(t *testing.T) {
	recorder := &fakeRecorder{}
	service := ingest.NewService(recorder, nil, zap.NewNop())

	if err := service.HandleMessage(context.Background(), []byte("garbage")); err == nil {
		t.Fatal("Expected error for malformed message")
	}

	// The next message on the subscription still processes
	if err := service.HandleMessage(context.Background(), []byte(validPayload)); err != nil {
		t.Fatalf("Expected next message to process, got %v", err)
	}
	if len(recorder.recorded) != 1 {
		t.Errorf("Expected 1 recorded reading, got %d", len(recorder.recorded))
	}
}

func TestHandleMessage_StorageFailureAbsorbedPerMessage(t *testing.T) {
	recorder := &fakeRecorder{err: fmt.Errorf("%w: insert failed", errs.ErrStorage)}
	service := ingest.NewService(recorder, nil, zap.NewNop())

	err := service.HandleMessage(context.Background(), []byte(validPayload))
	if !errors.Is(err, errs.ErrStorage) {
		t.Errorf("Expected ErrStorage, got %v", err)
	}

	recorder.err = nil
	if err := service.HandleMessage(context.Background(), []byte(validPayload)); err != nil {
		t.Fatalf("Expected recovery on next message, got %v", err)
	}
}
