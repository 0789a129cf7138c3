package integration

import (
	"fmt"
	"time"

	"github.com/go-sod/pqm/internal/telemetry/model"
)

type PredictRequest struct {
	Feature1 float64 `json:"feature1"`
	Feature2 float64 `json:"feature2"`
}

type TrainingRow struct {
	Feature1 float64 `json:"feature1"`
	Feature2 float64 `json:"feature2"`
	Target   float64 `json:"target"`
}

type TrainingDataResponse struct {
	IDs   []uint64 `json:"ids"`
	Count int      `json:"count"`
}

type Reading struct {
	SensorID   int64                  `json:"sensor_id"`
	RecordedAt *time.Time             `json:"recorded_at,omitempty"`
	Value      float64                `json:"value"`
	Label      model.Label            `json:"label,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

type TelemetryRequest struct {
	Sensors  []model.Sensor `json:"sensors,omitempty"`
	Readings []Reading      `json:"readings,omitempty"`
}

type TelemetryResponse struct {
	SensorIDs  []int64  `json:"sensor_ids"`
	ReadingIDs []uint64 `json:"reading_ids"`
}

// APIError is a non-2xx answer of the server.
type APIError struct {
	StatusCode int
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pqm: status %d: %s", e.StatusCode, e.Message)
}
