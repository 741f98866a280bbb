package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema creates the reference and telemetry tables. The primary key on
// devices(sensor_id) is the authoritative guard against concurrent
// first-sightings of the same device; the readings indexes serve the
// filtered history query.
const schema = `
CREATE TABLE IF NOT EXISTS streets (
	street_id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS devices (
	sensor_id INTEGER PRIMARY KEY,
	sensor_type TEXT NOT NULL,
	street_id TEXT NOT NULL REFERENCES streets(street_id)
);

CREATE TABLE IF NOT EXISTS readings (
	id BIGSERIAL PRIMARY KEY,
	timestamp TIMESTAMPTZ NOT NULL,
	current_state TEXT NOT NULL,
	cycle_position_seconds INTEGER,
	time_remaining_seconds INTEGER,
	cycle_duration_seconds INTEGER,
	traffic_light_type TEXT,
	circulation_direction TEXT,
	pedestrian_waiting CHAR(1),
	pedestrian_button_pressed CHAR(1),
	malfunction_detected CHAR(1),
	cycle_count INTEGER,
	state_changed CHAR(1),
	last_state_change CHAR(1),
	device_sensor_id INTEGER NOT NULL REFERENCES devices(sensor_id)
);

CREATE INDEX IF NOT EXISTS idx_readings_timestamp ON readings(timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_readings_device ON readings(device_sensor_id);
CREATE INDEX IF NOT EXISTS idx_readings_device_timestamp ON readings(device_sensor_id, timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_devices_street ON devices(street_id);
`

// seedDefaultStreet keeps the auto-registration default street resolvable
// on a fresh database. Street rows are otherwise maintained externally.
const seedDefaultStreet = `
INSERT INTO streets (street_id, name) VALUES ('ST_2245', 'default')
ON CONFLICT (street_id) DO NOTHING;
`

// EnsureSchema creates tables and indexes if they do not exist
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return err
	}
	_, err := pool.Exec(ctx, seedDefaultStreet)
	return err
}
