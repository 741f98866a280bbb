package db

import (
	"time"
)

// Reading is one immutable telemetry sample for a device. Nullable columns
// map to pointer fields; the boolean flags are tri-state (true / false /
// unknown) and must never collapse an absent wire value to false.
type Reading struct {
	Timestamp               time.Time `json:"timestamp"`
	CurrentState            string    `json:"currentState"`
	CyclePositionSeconds    *int      `json:"cyclePositionSeconds"`
	TimeRemainingSeconds    *int      `json:"timeRemainingSeconds"`
	CycleDurationSeconds    *int      `json:"cycleDurationSeconds"`
	TrafficLightType        *string   `json:"trafficLightType"`
	CirculationDirection    *string   `json:"circulationDirection"`
	PedestrianWaiting       *bool     `json:"pedestrianWaiting"`
	PedestrianButtonPressed *bool     `json:"pedestrianButtonPressed"`
	MalfunctionDetected     *bool     `json:"malfunctionDetected"`
	CycleCount              *int      `json:"cycleCount"`
	StateChanged            *bool     `json:"stateChanged"`
	LastStateChange         *bool     `json:"lastStateChange"`
	DeviceID                int       `json:"deviceId"`
}

// Device is one registered physical controller
type Device struct {
	SensorID   int    `json:"sensorId"`
	SensorType string `json:"sensorType"`
	StreetID   string `json:"streetId"`
}

// Street is a named grouping of devices, populated externally
type Street struct {
	StreetID string `json:"streetId"`
	Name     string `json:"name"`
}

// FlagToChar maps a tri-state boolean to its CHAR(1) storage form:
// '1', '0', or NULL for unknown.
func FlagToChar(b *bool) *string {
	if b == nil {
		return nil
	}
	s := "0"
	if *b {
		s = "1"
	}
	return &s
}

// CharToFlag maps a CHAR(1) column back to a tri-state boolean. Truthy
// markers follow the legacy convention ('1', 'Y', 'T', 'S'); an empty or
// NULL column is unknown.
func CharToFlag(c *string) *bool {
	if c == nil {
		return nil
	}
	switch *c {
	case "":
		return nil
	case "1", "Y", "y", "T", "t", "S", "s":
		v := true
		return &v
	default:
		v := false
		return &v
	}
}
