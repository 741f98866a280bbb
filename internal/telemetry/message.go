// Package telemetry defines the wire schema published by traffic-light
// controllers and its mapping into stored readings.
package telemetry

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cityops/traffic-light-monitor/internal/db"
	"github.com/cityops/traffic-light-monitor/internal/errs"
	"github.com/cityops/traffic-light-monitor/tools/timeparse"
)

// Message is the JSON body published on the per-device state topic
type Message struct {
	SensorID  string `json:"sensor_id"`
	StreetID  string `json:"street_id"`
	Timestamp string `json:"timestamp"`
	Data      *Data  `json:"data"`
}

// Data carries the sampled controller state. Pointer fields keep an
// absent value distinguishable from a zero one.
type Data struct {
	CurrentState            *string `json:"current_state"`
	CyclePositionSeconds    *int    `json:"cycle_position_seconds"`
	TimeRemainingSeconds    *int    `json:"time_remaining_seconds"`
	CycleDurationSeconds    *int    `json:"cycle_duration_seconds"`
	TrafficLightType        *string `json:"traffic_light_type"`
	CirculationDirection    *string `json:"circulation_direction"`
	PedestrianWaiting       *bool   `json:"pedestrian_waiting"`
	PedestrianButtonPressed *bool   `json:"pedestrian_button_pressed"`
	MalfunctionDetected     *bool   `json:"malfunction_detected"`
	CycleCount              *int    `json:"cycle_count"`
	StateChanged            *bool   `json:"state_changed"`
	LastStateChange         *string `json:"last_state_change"`
}

// Parsed is one decoded telemetry message ready for persistence
type Parsed struct {
	StreetID string
	Reading  db.Reading
}

// Parse decodes and validates a telemetry payload. Required fields are
// sensor_id (integer as string), timestamp (ISO-8601 instant) and
// data.current_state; everything else is optional and maps to a nullable
// column. The boolean flags keep their tri-state semantics: an absent
// flag stays unknown rather than becoming false. The last_state_change
// wire value is collapsed to a marker of whether a change time was
// present.
func Parse(payload []byte) (*Parsed, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrMalformedPayload, err)
	}

	if msg.SensorID == "" {
		return nil, fmt.Errorf("%w: missing sensor_id", errs.ErrMalformedPayload)
	}
	sensorID, err := strconv.Atoi(msg.SensorID)
	if err != nil {
		return nil, fmt.Errorf("%w: sensor_id %q is not an integer", errs.ErrMalformedPayload, msg.SensorID)
	}

	if msg.Timestamp == "" {
		return nil, fmt.Errorf("%w: missing timestamp", errs.ErrMalformedPayload)
	}
	ts, err := timeparse.ParseInstant(msg.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrMalformedPayload, err)
	}

	if msg.Data == nil {
		return nil, fmt.Errorf("%w: missing data object", errs.ErrMalformedPayload)
	}
	if msg.Data.CurrentState == nil || *msg.Data.CurrentState == "" {
		return nil, fmt.Errorf("%w: missing data.current_state", errs.ErrMalformedPayload)
	}

	for _, field := range []struct {
		name  string
		value *int
	}{
		{"cycle_position_seconds", msg.Data.CyclePositionSeconds},
		{"time_remaining_seconds", msg.Data.TimeRemainingSeconds},
		{"cycle_duration_seconds", msg.Data.CycleDurationSeconds},
	} {
		if field.value != nil && *field.value < 0 {
			return nil, fmt.Errorf("%w: %s is negative", errs.ErrMalformedPayload, field.name)
		}
	}

	reading := db.Reading{
		Timestamp:               ts,
		CurrentState:            *msg.Data.CurrentState,
		CyclePositionSeconds:    msg.Data.CyclePositionSeconds,
		TimeRemainingSeconds:    msg.Data.TimeRemainingSeconds,
		CycleDurationSeconds:    msg.Data.CycleDurationSeconds,
		TrafficLightType:        msg.Data.TrafficLightType,
		CirculationDirection:    msg.Data.CirculationDirection,
		PedestrianWaiting:       msg.Data.PedestrianWaiting,
		PedestrianButtonPressed: msg.Data.PedestrianButtonPressed,
		MalfunctionDetected:     msg.Data.MalfunctionDetected,
		CycleCount:              msg.Data.CycleCount,
		StateChanged:            msg.Data.StateChanged,
		LastStateChange:         changeMarker(msg.Data.LastStateChange),
		DeviceID:                sensorID,
	}

	return &Parsed{StreetID: msg.StreetID, Reading: reading}, nil
}

// changeMarker reduces the timestamp-like last_state_change wire string
// to present / empty / unknown
func changeMarker(value *string) *bool {
	if value == nil {
		return nil
	}
	present := *value != ""
	return &present
}
