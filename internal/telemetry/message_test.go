package telemetry_test

import (
	"errors"
	"testing"
	"time"

	"github.com/cityops/traffic-light-monitor/internal/errs"
	"github.com/cityops/traffic-light-monitor/internal/telemetry"
)

const fullPayload = `{
	"sensor_id": "7",
	"street_id": "ST_1",
	"timestamp": "2025-01-01T10:00:00Z",
	"data": {
		"current_state": "green",
		"cycle_position_seconds": 5,
		"time_remaining_seconds": 25,
		"cycle_duration_seconds": 60,
		"traffic_light_type": "vehicular",
		"circulation_direction": "N-S",
		"pedestrian_waiting": false,
		"pedestrian_button_pressed": false,
		"malfunction_detected": false,
		"cycle_count": 3,
		"state_changed": true,
		"last_state_change": "2025-01-01T09:59:00Z"
	}
}`

func TestParse_FullPayload(t *testing.T) {
	parsed, err := telemetry.Parse([]byte(fullPayload))
	if err != nil {
		t.Fatalf("Failed to parse payload: %v", err)
	}

	if parsed.StreetID != "ST_1" {
		t.Errorf("Expected street ST_1, got %q", parsed.StreetID)
	}

	r := parsed.Reading
	if r.DeviceID != 7 {
		t.Errorf("Expected device 7, got %d", r.DeviceID)
	}
	if r.CurrentState != "green" {
		t.Errorf("Expected state green, got %q", r.CurrentState)
	}
	expectedTs := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	if !r.Timestamp.Equal(expectedTs) {
		t.Errorf("Expected timestamp %v, got %v", expectedTs, r.Timestamp)
	}
	if r.CyclePositionSeconds == nil || *r.CyclePositionSeconds != 5 {
		t.Errorf("Expected cycle position 5, got %v", r.CyclePositionSeconds)
	}
	if r.PedestrianWaiting == nil || *r.PedestrianWaiting {
		t.Errorf("Expected pedestrian_waiting false, got %v", r.PedestrianWaiting)
	}
	if r.StateChanged == nil || !*r.StateChanged {
		t.Errorf("Expected state_changed true, got %v", r.StateChanged)
	}
	// A non-empty change time collapses to a present marker
	if r.LastStateChange == nil || !*r.LastStateChange {
		t.Errorf("Expected last_state_change marker true, got %v", r.LastStateChange)
	}
}

func TestParse_OmittedFlagStaysUnknown(t *testing.T) {
	payload := `{
		"sensor_id": "7",
		"timestamp": "2025-01-01T10:00:00Z",
		"data": {"current_state": "red"}
	}`

	parsed, err := telemetry.Parse([]byte(payload))
	if err != nil {
		t.Fatalf("Failed to parse payload: %v", err)
	}

	// Omitted must stay distinguishable from explicit false
	if parsed.Reading.PedestrianWaiting != nil {
		t.Errorf("Expected unknown pedestrian_waiting, got %v", *parsed.Reading.PedestrianWaiting)
	}
	if parsed.Reading.LastStateChange != nil {
		t.Errorf("Expected unknown last_state_change, got %v", *parsed.Reading.LastStateChange)
	}
}

func TestParse_ExplicitFalseFlag(t *testing.T) {
	payload := `{
		"sensor_id": "7",
		"timestamp": "2025-01-01T10:00:00Z",
		"data": {"current_state": "red", "pedestrian_waiting": false}
	}`

	parsed, err := telemetry.Parse([]byte(payload))
	if err != nil {
		t.Fatalf("Failed to parse payload: %v", err)
	}

	if parsed.Reading.PedestrianWaiting == nil || *parsed.Reading.PedestrianWaiting {
		t.Errorf("Expected explicit false, got %v", parsed.Reading.PedestrianWaiting)
	}
}

func TestParse_EmptyLastStateChange(t *testing.T) {
	payload := `{
		"sensor_id": "7",
		"timestamp": "2025-01-01T10:00:00Z",
		"data": {"current_state": "red", "last_state_change": ""}
	}`

	parsed, err := telemetry.Parse([]byte(payload))
	if err != nil {
		t.Fatalf("Failed to parse payload: %v", err)
	}

	if parsed.Reading.LastStateChange == nil || *parsed.Reading.LastStateChange {
		t.Errorf("Expected empty change time to map to false marker, got %v", parsed.Reading.LastStateChange)
	}
}

func TestParse_MissingCurrentState(t *testing.T) {
	payload := `{
		"sensor_id": "7",
		"timestamp": "2025-01-01T10:00:00Z",
		"data": {"cycle_count": 3}
	}`

	_, err := telemetry.Parse([]byte(payload))
	if !errors.Is(err, errs.ErrMalformedPayload) {
		t.Errorf("Expected ErrMalformedPayload, got %v", err)
	}
}

func TestParse_MissingSensorID(t *testing.T) {
	payload := `{
		"timestamp": "2025-01-01T10:00:00Z",
		"data": {"current_state": "red"}
	}`

	_, err := telemetry.Parse([]byte(payload))
	if !errors.Is(err, errs.ErrMalformedPayload) {
		t.Errorf("Expected ErrMalformedPayload, got %v", err)
	}
}

func TestParse_SensorIDNotInteger(t *testing.T) {
	payload := `{
		"sensor_id": "TL_007",
		"timestamp": "2025-01-01T10:00:00Z",
		"data": {"current_state": "red"}
	}`

	_, err := telemetry.Parse([]byte(payload))
	if !errors.Is(err, errs.ErrMalformedPayload) {
		t.Errorf("Expected ErrMalformedPayload, got %v", err)
	}
}

func TestParse_BadTimestamp(t *testing.T) {
	payload := `{
		"sensor_id": "7",
		"timestamp": "yesterday",
		"data": {"current_state": "red"}
	}`

	_, err := telemetry.Parse([]byte(payload))
	if !errors.Is(err, errs.ErrMalformedPayload) {
		t.Errorf("Expected ErrMalformedPayload, got %v", err)
	}
}

func TestParse_NegativeSeconds(t *testing.T) {
	payload := `{
		"sensor_id": "7",
		"timestamp": "2025-01-01T10:00:00Z",
		"data": {"current_state": "red", "cycle_duration_seconds": -1}
	}`

	_, err := telemetry.Parse([]byte(payload))
	if !errors.Is(err, errs.ErrMalformedPayload) {
		t.Errorf("Expected ErrMalformedPayload, got %v", err)
	}
}

func TestParse_MistypedField(t *testing.T) {
	payload := `{
		"sensor_id": "7",
		"timestamp": "2025-01-01T10:00:00Z",
		"data": {"current_state": "red", "cycle_count": "three"}
	}`

	_, err := telemetry.Parse([]byte(payload))
	if !errors.Is(err, errs.ErrMalformedPayload) {
		t.Errorf("Expected ErrMalformedPayload, got %v", err)
	}
}

func TestParse_NotJSON(t *testing.T) {
	_, err := telemetry.Parse([]byte("not json at all"))
	if !errors.Is(err, errs.ErrMalformedPayload) {
		t.Errorf("Expected ErrMalformedPayload, got %v", err)
	}
}
