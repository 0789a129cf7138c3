package sqlstore

import "strings"

// Timestamps are stored as unix nanoseconds so both drivers agree on them.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS training_samples (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	feature1 DOUBLE PRECISION NOT NULL,
	feature2 DOUBLE PRECISION NOT NULL,
	target DOUBLE PRECISION NOT NULL,
	created_at BIGINT NOT NULL
);
CREATE TABLE IF NOT EXISTS predictions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at BIGINT NOT NULL,
	model_name TEXT NOT NULL,
	input_summary TEXT NOT NULL,
	prediction_value DOUBLE PRECISION NOT NULL,
	meta TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS sensors (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	equipment_id TEXT NOT NULL,
	sensor_name TEXT NOT NULL,
	sensor_type TEXT NOT NULL,
	location TEXT NOT NULL DEFAULT '',
	unit TEXT NOT NULL DEFAULT '',
	normal_min DOUBLE PRECISION NULL,
	normal_max DOUBLE PRECISION NULL
);
CREATE TABLE IF NOT EXISTS sensor_telemetry (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	sensor_id BIGINT NOT NULL REFERENCES sensors(id),
	recorded_at BIGINT NOT NULL,
	value DOUBLE PRECISION NOT NULL,
	label TEXT NOT NULL,
	meta TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS sensor_telemetry_recorded_at ON sensor_telemetry (recorded_at);
`

func schema(driver string) string {
	if driver == DriverPostgres {
		return strings.ReplaceAll(sqliteSchema, "INTEGER PRIMARY KEY AUTOINCREMENT", "BIGSERIAL PRIMARY KEY")
	}
	return sqliteSchema
}
