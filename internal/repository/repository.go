package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cityops/traffic-light-monitor/internal/db"
	"github.com/cityops/traffic-light-monitor/internal/errs"
)

// uniqueViolation is the Postgres error code for duplicate-key inserts
const uniqueViolation = "23505"

// Repository handles database operations. Statements run against the
// caller's session so connection and transaction lifetime stay with the
// operation that opened them.
type Repository struct {
	defaultSensorType string
	defaultStreetID   string
}

// NewRepository creates a new repository with the defaults used when a
// device is auto-registered on first sighting
func NewRepository(defaultSensorType, defaultStreetID string) *Repository {
	return &Repository{
		defaultSensorType: defaultSensorType,
		defaultStreetID:   defaultStreetID,
	}
}

// EnsureDeviceExists guarantees a devices row for sensorID. Existing rows
// are a no-op; absent rows are inserted with the registry defaults. A
// duplicate-key failure on the insert means a concurrent subscription won
// the race, which is success: the device now exists.
func (r *Repository) EnsureDeviceExists(ctx context.Context, ex db.Executor, sensorID int) error {
	var existing int
	err := ex.QueryRow(ctx, `SELECT sensor_id FROM devices WHERE sensor_id = $1`, sensorID).Scan(&existing)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: check device %d: %v", errs.ErrStorage, sensorID, err)
	}

	_, err = ex.Exec(ctx,
		`INSERT INTO devices (sensor_id, sensor_type, street_id) VALUES ($1, $2, $3)`,
		sensorID, r.defaultSensorType, r.defaultStreetID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil
		}
		return fmt.Errorf("%w: create device %d: %v", errs.ErrStorage, sensorID, err)
	}
	return nil
}

// InsertReading inserts one reading row. Readings are insert-only; rows
// are never updated.
func (r *Repository) InsertReading(ctx context.Context, ex db.Executor, reading *db.Reading) error {
	_, err := ex.Exec(ctx, `
		INSERT INTO readings (
			timestamp, current_state, cycle_position_seconds, time_remaining_seconds,
			cycle_duration_seconds, traffic_light_type, circulation_direction,
			pedestrian_waiting, pedestrian_button_pressed, malfunction_detected,
			cycle_count, state_changed, last_state_change, device_sensor_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		reading.Timestamp,
		reading.CurrentState,
		reading.CyclePositionSeconds,
		reading.TimeRemainingSeconds,
		reading.CycleDurationSeconds,
		reading.TrafficLightType,
		reading.CirculationDirection,
		db.FlagToChar(reading.PedestrianWaiting),
		db.FlagToChar(reading.PedestrianButtonPressed),
		db.FlagToChar(reading.MalfunctionDetected),
		reading.CycleCount,
		db.FlagToChar(reading.StateChanged),
		db.FlagToChar(reading.LastStateChange),
		reading.DeviceID,
	)
	if err != nil {
		return fmt.Errorf("%w: insert reading: %v", errs.ErrStorage, err)
	}
	return nil
}

// QueryReadings runs the filtered history query and maps rows back into
// readings, newest first
func (r *Repository) QueryReadings(ctx context.Context, ex db.Executor, f Filter) ([]db.Reading, error) {
	sql, args := BuildReadingsQuery(f)

	rows, err := ex.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query readings: %v", errs.ErrStorage, err)
	}
	defer rows.Close()

	var readings []db.Reading
	for rows.Next() {
		reading, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan reading: %v", errs.ErrStorage, err)
		}
		readings = append(readings, reading)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows iteration: %v", errs.ErrStorage, err)
	}

	return readings, nil
}

// ListStreets returns all known street identifiers
func (r *Repository) ListStreets(ctx context.Context, ex db.Executor) ([]string, error) {
	rows, err := ex.Query(ctx, `SELECT street_id FROM streets ORDER BY street_id`)
	if err != nil {
		return nil, fmt.Errorf("%w: query streets: %v", errs.ErrStorage, err)
	}
	defer rows.Close()

	var streets []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: scan street: %v", errs.ErrStorage, err)
		}
		if id != "" {
			streets = append(streets, id)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows iteration: %v", errs.ErrStorage, err)
	}

	return streets, nil
}

// ListDevicesByStreet returns the sensor ids registered on one street
func (r *Repository) ListDevicesByStreet(ctx context.Context, ex db.Executor, streetID string) ([]int, error) {
	rows, err := ex.Query(ctx, `SELECT sensor_id FROM devices WHERE street_id = $1 ORDER BY sensor_id`, streetID)
	if err != nil {
		return nil, fmt.Errorf("%w: query devices: %v", errs.ErrStorage, err)
	}
	defer rows.Close()

	var devices []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: scan device: %v", errs.ErrStorage, err)
		}
		devices = append(devices, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows iteration: %v", errs.ErrStorage, err)
	}

	return devices, nil
}

func scanReading(rows pgx.Rows) (db.Reading, error) {
	var (
		reading                db.Reading
		pedWaiting, pedButton  *string
		malfunction, stChanged *string
		lastChange             *string
	)
	err := rows.Scan(
		&reading.Timestamp,
		&reading.CurrentState,
		&reading.CyclePositionSeconds,
		&reading.TimeRemainingSeconds,
		&reading.CycleDurationSeconds,
		&reading.TrafficLightType,
		&reading.CirculationDirection,
		&pedWaiting,
		&pedButton,
		&malfunction,
		&reading.CycleCount,
		&stChanged,
		&lastChange,
		&reading.DeviceID,
	)
	if err != nil {
		return db.Reading{}, err
	}

	reading.PedestrianWaiting = db.CharToFlag(trimFlag(pedWaiting))
	reading.PedestrianButtonPressed = db.CharToFlag(trimFlag(pedButton))
	reading.MalfunctionDetected = db.CharToFlag(trimFlag(malfunction))
	reading.StateChanged = db.CharToFlag(trimFlag(stChanged))
	reading.LastStateChange = db.CharToFlag(trimFlag(lastChange))
	return reading, nil
}

// trimFlag strips the blank padding CHAR(1) columns can carry
func trimFlag(c *string) *string {
	if c == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*c)
	return &trimmed
}
