package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-sod/pqm/internal/database"
	"github.com/go-sod/pqm/internal/repository"
	"github.com/go-sod/pqm/internal/repository/sqlstore"
	sampleModel "github.com/go-sod/pqm/internal/sample/model"
	telemetryModel "github.com/go-sod/pqm/internal/telemetry/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]repository.Repository {
	t.Helper()
	sqlite, err := sqlstore.Open(context.Background(), sqlstore.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })
	return map[string]repository.Repository{
		"bolt":   repository.NewBolt(database.NewTestDatabase(t)),
		"sqlite": sqlite,
	}
}

func TestTrainingSamples(t *testing.T) {
	ctx := context.Background()
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			empty, err := repo.ReadRecentTrainingSamples(ctx, 10)
			require.NoError(t, err)
			assert.Empty(t, empty)

			first, err := repo.WriteTrainingSample(ctx, 800, 10, 195)
			require.NoError(t, err)
			ids, err := repo.WriteTrainingSamples(ctx, []sampleModel.Sample{
				sampleModel.NewSample(850, 12, 205),
				sampleModel.NewSample(900, 14, 210),
			})
			require.NoError(t, err)
			require.Len(t, ids, 2)
			assert.Greater(t, ids[0], first)
			assert.Greater(t, ids[1], ids[0])

			got, err := repo.ReadRecentTrainingSamples(ctx, 2)
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, 210.0, got[0].Target)
			assert.Equal(t, 205.0, got[1].Target)

			all, err := repo.ReadRecentTrainingSamples(ctx, 0)
			require.NoError(t, err)
			assert.Len(t, all, 3)
			assert.Equal(t, first, all[2].ID)
			assert.False(t, all[2].CreatedAt.IsZero())
		})
	}
}

func TestPredictions(t *testing.T) {
	ctx := context.Background()
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			summary := map[string]float64{"feature1": 800, "feature2": 12}
			for i, v := range []float64{201, 185, 199} {
				var meta map[string]interface{}
				if i == 1 {
					meta = map[string]interface{}{"input_warning": "out of range"}
				}
				_, err := repo.WritePrediction(ctx, "capacity_linear", summary, v, meta)
				require.NoError(t, err)
			}
			got, err := repo.ReadRecentPredictions(ctx, 0)
			require.NoError(t, err)
			require.Len(t, got, 3)
			assert.Equal(t, 199.0, got[0].Value)
			assert.Equal(t, "out of range", got[1].Meta["input_warning"])
			assert.Equal(t, summary, got[2].InputSummary)
			assert.Equal(t, "capacity_linear", got[2].ModelName)
		})
	}
}

func floatPtr(v float64) *float64 {
	return &v
}

func TestTelemetry(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			kiln, err := repo.UpsertSensor(ctx, telemetryModel.Sensor{
				EquipmentID: "KILN-1", Name: "zone temperature", Type: "temperature", Unit: "C",
				NormalMin: floatPtr(700), NormalMax: floatPtr(1000),
			})
			require.NoError(t, err)
			fan, err := repo.UpsertSensor(ctx, telemetryModel.Sensor{ID: 42, EquipmentID: "FAN-1", Name: "vibration", Type: "vibration"})
			require.NoError(t, err)
			assert.Equal(t, int64(42), fan)

			_, err = repo.WriteTelemetry(ctx, []telemetryModel.Reading{
				{SensorID: kiln, RecordedAt: base, Value: 800},
				{SensorID: kiln, RecordedAt: base.Add(2 * time.Minute), Value: 820, Label: telemetryModel.LabelAnomaly},
				{SensorID: fan, RecordedAt: base.Add(time.Minute), Value: 0.4},
			})
			require.NoError(t, err)

			all, err := repo.ReadTelemetry(ctx, repository.TelemetryQuery{})
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, 820.0, all[0].Value)
			assert.Equal(t, telemetryModel.LabelAnomaly, all[0].Label)
			assert.Equal(t, "FAN-1", all[1].EquipmentID)
			assert.Equal(t, telemetryModel.LabelNormal, all[2].Label)
			require.NotNil(t, all[2].NormalMax)
			assert.Equal(t, 1000.0, *all[2].NormalMax)
			assert.Nil(t, all[1].NormalMin)
			assert.True(t, base.Equal(all[2].RecordedAt))

			byEquipment, err := repo.ReadTelemetry(ctx, repository.TelemetryQuery{EquipmentID: "KILN-1", SensorID: fan})
			require.NoError(t, err)
			assert.Len(t, byEquipment, 2)

			bySensor, err := repo.ReadTelemetry(ctx, repository.TelemetryQuery{SensorID: fan})
			require.NoError(t, err)
			assert.Len(t, bySensor, 1)

			limited, err := repo.ReadTelemetry(ctx, repository.TelemetryQuery{Limit: 1})
			require.NoError(t, err)
			assert.Len(t, limited, 1)

			_, err = repo.UpsertSensor(ctx, telemetryModel.Sensor{ID: 42, EquipmentID: "FAN-2", Name: "vibration", Type: "vibration"})
			require.NoError(t, err)
			moved, err := repo.ReadTelemetry(ctx, repository.TelemetryQuery{EquipmentID: "FAN-2"})
			require.NoError(t, err)
			assert.Len(t, moved, 1)

			next, err := repo.UpsertSensor(ctx, telemetryModel.Sensor{EquipmentID: "FAN-2", Name: "current", Type: "current"})
			require.NoError(t, err)
			assert.Greater(t, next, int64(42))
		})
	}
}

func TestWriteTelemetryRejects(t *testing.T) {
	ctx := context.Background()
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := repo.WriteTelemetry(ctx, []telemetryModel.Reading{{SensorID: 99, Value: 1}})
			if !errors.Is(err, repository.ErrUnknownSensor) {
				t.Errorf("unknown sensor, got: %v, expected: %v", err, repository.ErrUnknownSensor)
			}

			id, err := repo.UpsertSensor(ctx, telemetryModel.Sensor{EquipmentID: "E", Name: "n", Type: "t"})
			require.NoError(t, err)
			_, err = repo.WriteTelemetry(ctx, []telemetryModel.Reading{{SensorID: id, Value: 1, Label: "broken"}})
			assert.ErrorIs(t, err, repository.ErrInvalidLabel)

			for _, at := range []time.Time{
				time.Date(1600, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2300, 1, 1, 0, 0, 0, 0, time.UTC),
			} {
				_, err = repo.WriteTelemetry(ctx, []telemetryModel.Reading{{SensorID: id, RecordedAt: at, Value: 1}})
				assert.ErrorIs(t, err, repository.ErrInvalidTimestamp, "recorded at %s", at)
			}

			got, err := repo.ReadTelemetry(ctx, repository.TelemetryQuery{})
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}
