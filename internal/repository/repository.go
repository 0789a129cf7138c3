// Package repository is the data-access boundary of the quality core.
package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-sod/pqm/internal/database"
	predictionDb "github.com/go-sod/pqm/internal/prediction/database"
	predictionModel "github.com/go-sod/pqm/internal/prediction/model"
	sampleDb "github.com/go-sod/pqm/internal/sample/database"
	sampleModel "github.com/go-sod/pqm/internal/sample/model"
	telemetryDb "github.com/go-sod/pqm/internal/telemetry/database"
	telemetryModel "github.com/go-sod/pqm/internal/telemetry/model"
)

const (
	StoreBolt     = "bolt"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// ErrUnknownSensor is returned when telemetry references a sensor that was
// never registered.
var ErrUnknownSensor = telemetryDb.ErrUnknownSensor

var ErrInvalidLabel = errors.New("invalid label")

// ErrInvalidTimestamp is returned for a recorded time outside the years
// 1678-2262, which nanosecond timestamps cannot hold.
var ErrInvalidTimestamp = errors.New("invalid timestamp")

var (
	minRecordedAt = time.Unix(0, math.MinInt64)
	maxRecordedAt = time.Unix(0, math.MaxInt64)
)

type TelemetryQuery = telemetryModel.Query

// Repository reads and writes the records the quality core works on. Every
// Read* returns newest first; limit <= 0 means no limit.
type Repository interface {
	ReadRecentTrainingSamples(ctx context.Context, limit int) ([]sampleModel.Sample, error)
	WriteTrainingSample(ctx context.Context, feature1, feature2, target float64) (uint64, error)
	WriteTrainingSamples(ctx context.Context, samples []sampleModel.Sample) ([]uint64, error)
	ReadRecentPredictions(ctx context.Context, limit int) ([]predictionModel.Prediction, error)
	WritePrediction(ctx context.Context, modelName string, inputSummary map[string]float64, value float64, meta map[string]interface{}) (uint64, error)
	ReadTelemetry(ctx context.Context, q TelemetryQuery) ([]telemetryModel.JoinedReading, error)
	UpsertSensor(ctx context.Context, s telemetryModel.Sensor) (int64, error)
	WriteTelemetry(ctx context.Context, readings []telemetryModel.Reading) ([]uint64, error)
}

// PrepareReadings validates readings and returns copies with the label and
// recording time defaulted.
func PrepareReadings(readings []telemetryModel.Reading) ([]telemetryModel.Reading, error) {
	out := make([]telemetryModel.Reading, len(readings))
	now := time.Now().UTC()
	for i, r := range readings {
		switch {
		case r.Label == "":
			r.Label = telemetryModel.LabelNormal
		case !r.Label.Valid():
			return nil, fmt.Errorf("reading %d: %w: %q", i, ErrInvalidLabel, r.Label)
		}
		if r.RecordedAt.IsZero() {
			r.RecordedAt = now
		}
		if r.RecordedAt.Before(minRecordedAt) || r.RecordedAt.After(maxRecordedAt) {
			return nil, fmt.Errorf("reading %d: %w: %s", i, ErrInvalidTimestamp, r.RecordedAt.Format(time.RFC3339))
		}
		out[i] = r
	}
	return out, nil
}

// NewBolt returns a Repository over the embedded bbolt database.
func NewBolt(db *database.DB) *Bolt {
	return &Bolt{
		samples:     sampleDb.New(db),
		predictions: predictionDb.New(db),
		telemetry:   telemetryDb.New(db),
	}
}

var _ Repository = (*Bolt)(nil)

type Bolt struct {
	samples     *sampleDb.DB
	predictions *predictionDb.DB
	telemetry   *telemetryDb.DB
}

func (b *Bolt) ReadRecentTrainingSamples(ctx context.Context, limit int) ([]sampleModel.Sample, error) {
	return b.samples.FindRecent(ctx, limit)
}

func (b *Bolt) WriteTrainingSample(ctx context.Context, feature1, feature2, target float64) (uint64, error) {
	return b.samples.Store(ctx, sampleModel.NewSample(feature1, feature2, target))
}

func (b *Bolt) WriteTrainingSamples(ctx context.Context, samples []sampleModel.Sample) ([]uint64, error) {
	return b.samples.StoreMany(ctx, samples)
}

func (b *Bolt) ReadRecentPredictions(ctx context.Context, limit int) ([]predictionModel.Prediction, error) {
	return b.predictions.FindRecent(ctx, limit)
}

func (b *Bolt) WritePrediction(ctx context.Context, modelName string, inputSummary map[string]float64, value float64, meta map[string]interface{}) (uint64, error) {
	return b.predictions.Store(ctx, predictionModel.NewPrediction(modelName, inputSummary, value, meta))
}

func (b *Bolt) ReadTelemetry(ctx context.Context, q TelemetryQuery) ([]telemetryModel.JoinedReading, error) {
	return b.telemetry.Find(ctx, q)
}

func (b *Bolt) UpsertSensor(ctx context.Context, s telemetryModel.Sensor) (int64, error) {
	return b.telemetry.UpsertSensor(ctx, s)
}

func (b *Bolt) WriteTelemetry(ctx context.Context, readings []telemetryModel.Reading) ([]uint64, error) {
	readings, err := PrepareReadings(readings)
	if err != nil {
		return nil, err
	}
	return b.telemetry.StoreReadings(ctx, readings)
}
