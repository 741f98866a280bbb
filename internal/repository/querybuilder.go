package repository

import (
	"fmt"
	"strings"
	"time"
)

// Filter holds the optional predicates for the history query. Zero-value
// fields are omitted from the WHERE clause entirely.
type Filter struct {
	StreetID string
	DeviceID *int
	Start    *time.Time
	End      *time.Time
}

// readingColumns is the select list in scanReading order
const readingColumns = `r.timestamp, r.current_state, r.cycle_position_seconds, r.time_remaining_seconds,
	r.cycle_duration_seconds, r.traffic_light_type, r.circulation_direction,
	r.pedestrian_waiting, r.pedestrian_button_pressed, r.malfunction_detected,
	r.cycle_count, r.state_changed, r.last_state_change, r.device_sensor_id`

// BuildReadingsQuery assembles the filtered history query. Predicate
// fragments and their bound parameters are appended in lockstep, never
// interpolated, and the ordering is always newest first regardless of the
// filter combination. Time bounds are inclusive.
func BuildReadingsQuery(f Filter) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + readingColumns + `
	FROM readings r
	JOIN devices d ON d.sensor_id = r.device_sensor_id
	WHERE 1=1`)

	var args []any

	if f.StreetID != "" {
		args = append(args, f.StreetID)
		fmt.Fprintf(&sb, " AND d.street_id = $%d", len(args))
	}
	if f.DeviceID != nil {
		args = append(args, *f.DeviceID)
		fmt.Fprintf(&sb, " AND r.device_sensor_id = $%d", len(args))
	}
	if f.Start != nil {
		args = append(args, *f.Start)
		fmt.Fprintf(&sb, " AND r.timestamp >= $%d", len(args))
	}
	if f.End != nil {
		args = append(args, *f.End)
		fmt.Fprintf(&sb, " AND r.timestamp <= $%d", len(args))
	}

	sb.WriteString(" ORDER BY r.timestamp DESC")
	return sb.String(), args
}
