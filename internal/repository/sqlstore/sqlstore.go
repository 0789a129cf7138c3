// Package sqlstore implements the repository over PostgreSQL or SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-sod/pqm/internal/logging"
	predictionModel "github.com/go-sod/pqm/internal/prediction/model"
	"github.com/go-sod/pqm/internal/repository"
	sampleModel "github.com/go-sod/pqm/internal/sample/model"
	telemetryModel "github.com/go-sod/pqm/internal/telemetry/model"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

var _ repository.Repository = (*Store)(nil)

type Store struct {
	driver string
	db     *sqlx.DB
}

// Open connects with driver and creates the schema when missing.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}
	switch driver {
	case DriverSQLite:
		// one writer; also keeps ":memory:" a single database
		db.SetMaxOpenConns(1)
	default:
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}
	s := &Store{driver: driver, db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	logging.FromContext(ctx).Infof("sql repository opened with driver %s", driver)
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema(s.driver), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema migration: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) q(query string) string {
	return s.db.Rebind(query)
}

func limitClause(limit int) string {
	if limit <= 0 {
		return ""
	}
	return fmt.Sprintf(" LIMIT %d", limit)
}

type sampleRow struct {
	ID        uint64  `db:"id"`
	Feature1  float64 `db:"feature1"`
	Feature2  float64 `db:"feature2"`
	Target    float64 `db:"target"`
	CreatedAt int64   `db:"created_at"`
}

func (r sampleRow) model() sampleModel.Sample {
	return sampleModel.Sample{
		ID:        r.ID,
		Feature1:  r.Feature1,
		Feature2:  r.Feature2,
		Target:    r.Target,
		CreatedAt: time.Unix(0, r.CreatedAt).UTC(),
	}
}

func (s *Store) ReadRecentTrainingSamples(ctx context.Context, limit int) ([]sampleModel.Sample, error) {
	var rows []sampleRow
	query := "SELECT id, feature1, feature2, target, created_at FROM training_samples ORDER BY id DESC" + limitClause(limit)
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("select training samples: %w", err)
	}
	out := make([]sampleModel.Sample, len(rows))
	for i := range rows {
		out[i] = rows[i].model()
	}
	return out, nil
}

func (s *Store) WriteTrainingSample(ctx context.Context, feature1, feature2, target float64) (uint64, error) {
	ids, err := s.WriteTrainingSamples(ctx, []sampleModel.Sample{sampleModel.NewSample(feature1, feature2, target)})
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

func (s *Store) WriteTrainingSamples(ctx context.Context, samples []sampleModel.Sample) ([]uint64, error) {
	ids := make([]uint64, 0, len(samples))
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		query := s.q("INSERT INTO training_samples (feature1, feature2, target, created_at) VALUES (?, ?, ?, ?) RETURNING id")
		for _, sm := range samples {
			if sm.CreatedAt.IsZero() {
				sm.CreatedAt = time.Now().UTC()
			}
			var id uint64
			if err := tx.GetContext(ctx, &id, query, sm.Feature1, sm.Feature2, sm.Target, sm.CreatedAt.UnixNano()); err != nil {
				return fmt.Errorf("insert training sample: %w", err)
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

type predictionRow struct {
	ID           uint64  `db:"id"`
	CreatedAt    int64   `db:"created_at"`
	ModelName    string  `db:"model_name"`
	InputSummary string  `db:"input_summary"`
	Value        float64 `db:"prediction_value"`
	Meta         string  `db:"meta"`
}

func (r predictionRow) model() (predictionModel.Prediction, error) {
	p := predictionModel.Prediction{
		ID:        r.ID,
		CreatedAt: time.Unix(0, r.CreatedAt).UTC(),
		ModelName: r.ModelName,
		Value:     r.Value,
	}
	if err := json.Unmarshal([]byte(r.InputSummary), &p.InputSummary); err != nil {
		return p, fmt.Errorf("prediction %d input summary: %w", r.ID, err)
	}
	if r.Meta != "" {
		if err := json.Unmarshal([]byte(r.Meta), &p.Meta); err != nil {
			return p, fmt.Errorf("prediction %d meta: %w", r.ID, err)
		}
	}
	return p, nil
}

func (s *Store) ReadRecentPredictions(ctx context.Context, limit int) ([]predictionModel.Prediction, error) {
	var rows []predictionRow
	query := "SELECT id, created_at, model_name, input_summary, prediction_value, meta FROM predictions ORDER BY id DESC" + limitClause(limit)
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("select predictions: %w", err)
	}
	out := make([]predictionModel.Prediction, len(rows))
	for i := range rows {
		p, err := rows[i].model()
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

func (s *Store) WritePrediction(ctx context.Context, modelName string, inputSummary map[string]float64, value float64, meta map[string]interface{}) (uint64, error) {
	p := predictionModel.NewPrediction(modelName, inputSummary, value, meta)
	summary, err := json.Marshal(p.InputSummary)
	if err != nil {
		return 0, err
	}
	var metaText string
	if len(p.Meta) > 0 {
		b, err := json.Marshal(p.Meta)
		if err != nil {
			return 0, err
		}
		metaText = string(b)
	}
	var id uint64
	query := s.q("INSERT INTO predictions (created_at, model_name, input_summary, prediction_value, meta) VALUES (?, ?, ?, ?, ?) RETURNING id")
	if err := s.db.GetContext(ctx, &id, query, p.CreatedAt.UnixNano(), p.ModelName, string(summary), p.Value, metaText); err != nil {
		return 0, fmt.Errorf("insert prediction: %w", err)
	}
	return id, nil
}

type telemetryRow struct {
	ID          uint64          `db:"id"`
	SensorID    int64           `db:"sensor_id"`
	RecordedAt  int64           `db:"recorded_at"`
	Value       float64         `db:"value"`
	Label       string          `db:"label"`
	Meta        string          `db:"meta"`
	EquipmentID string          `db:"equipment_id"`
	SensorName  string          `db:"sensor_name"`
	SensorType  string          `db:"sensor_type"`
	Unit        string          `db:"unit"`
	NormalMin   sql.NullFloat64 `db:"normal_min"`
	NormalMax   sql.NullFloat64 `db:"normal_max"`
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func (r telemetryRow) model() (telemetryModel.JoinedReading, error) {
	j := telemetryModel.JoinedReading{
		Reading: telemetryModel.Reading{
			ID:         r.ID,
			SensorID:   r.SensorID,
			RecordedAt: time.Unix(0, r.RecordedAt).UTC(),
			Value:      r.Value,
			Label:      telemetryModel.Label(r.Label),
		},
		EquipmentID: r.EquipmentID,
		SensorName:  r.SensorName,
		SensorType:  r.SensorType,
		Unit:        r.Unit,
		NormalMin:   nullable(r.NormalMin),
		NormalMax:   nullable(r.NormalMax),
	}
	if r.Meta != "" {
		if err := json.Unmarshal([]byte(r.Meta), &j.Meta); err != nil {
			return j, fmt.Errorf("reading %d meta: %w", r.ID, err)
		}
	}
	return j, nil
}

func (s *Store) ReadTelemetry(ctx context.Context, q repository.TelemetryQuery) ([]telemetryModel.JoinedReading, error) {
	query := `SELECT t.id, t.sensor_id, t.recorded_at, t.value, t.label, t.meta,
		s.equipment_id, s.sensor_name, s.sensor_type, s.unit, s.normal_min, s.normal_max
		FROM sensor_telemetry t JOIN sensors s ON s.id = t.sensor_id`
	var args []interface{}
	switch {
	case q.EquipmentID != "":
		query += " WHERE s.equipment_id = ?"
		args = append(args, q.EquipmentID)
	case q.SensorID != 0:
		query += " WHERE t.sensor_id = ?"
		args = append(args, q.SensorID)
	}
	query += " ORDER BY t.recorded_at DESC, t.id DESC" + limitClause(q.Limit)

	var rows []telemetryRow
	if err := s.db.SelectContext(ctx, &rows, s.q(query), args...); err != nil {
		return nil, fmt.Errorf("select telemetry: %w", err)
	}
	out := make([]telemetryModel.JoinedReading, len(rows))
	for i := range rows {
		j, err := rows[i].model()
		if err != nil {
			return nil, err
		}
		out[i] = j
	}
	return out, nil
}

// UpsertSensor inserts s, or replaces the sensor with the same non-zero id.
func (s *Store) UpsertSensor(ctx context.Context, sensor telemetryModel.Sensor) (int64, error) {
	args := []interface{}{sensor.EquipmentID, sensor.Name, sensor.Type, sensor.Location, sensor.Unit, sensor.NormalMin, sensor.NormalMax}
	if sensor.ID == 0 {
		var id int64
		query := s.q(`INSERT INTO sensors (equipment_id, sensor_name, sensor_type, location, unit, normal_min, normal_max)
			VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`)
		if err := s.db.GetContext(ctx, &id, query, args...); err != nil {
			return 0, fmt.Errorf("insert sensor: %w", err)
		}
		return id, nil
	}
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		query := s.q(`INSERT INTO sensors (id, equipment_id, sensor_name, sensor_type, location, unit, normal_min, normal_max)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET equipment_id = excluded.equipment_id, sensor_name = excluded.sensor_name,
			sensor_type = excluded.sensor_type, location = excluded.location, unit = excluded.unit,
			normal_min = excluded.normal_min, normal_max = excluded.normal_max`)
		if _, err := tx.ExecContext(ctx, query, append([]interface{}{sensor.ID}, args...)...); err != nil {
			return fmt.Errorf("upsert sensor: %w", err)
		}
		if s.driver == DriverPostgres {
			// explicit ids do not advance the serial
			if _, err := tx.ExecContext(ctx, `SELECT setval(pg_get_serial_sequence('sensors', 'id'), (SELECT MAX(id) FROM sensors))`); err != nil {
				return fmt.Errorf("advance sensor sequence: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return sensor.ID, nil
}

func (s *Store) WriteTelemetry(ctx context.Context, readings []telemetryModel.Reading) ([]uint64, error) {
	readings, err := repository.PrepareReadings(readings)
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(readings))
	err = s.inTx(ctx, func(tx *sqlx.Tx) error {
		known := map[int64]bool{}
		exists := s.q("SELECT COUNT(1) FROM sensors WHERE id = ?")
		insert := s.q("INSERT INTO sensor_telemetry (sensor_id, recorded_at, value, label, meta) VALUES (?, ?, ?, ?, ?) RETURNING id")
		for _, r := range readings {
			if _, ok := known[r.SensorID]; !ok {
				var n int
				if err := tx.GetContext(ctx, &n, exists, r.SensorID); err != nil {
					return fmt.Errorf("lookup sensor: %w", err)
				}
				known[r.SensorID] = n > 0
			}
			if !known[r.SensorID] {
				return fmt.Errorf("%w: %d", repository.ErrUnknownSensor, r.SensorID)
			}
			var meta string
			if len(r.Meta) > 0 {
				b, err := json.Marshal(r.Meta)
				if err != nil {
					return err
				}
				meta = string(b)
			}
			var id uint64
			if err := tx.GetContext(ctx, &id, insert, r.SensorID, r.RecordedAt.UnixNano(), r.Value, string(r.Label), meta); err != nil {
				return fmt.Errorf("insert reading: %w", err)
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logging.FromContext(ctx).Errorf("rollback: %v", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
