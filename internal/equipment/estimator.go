// Package equipment estimates failure risk from recent sensor telemetry.
package equipment

import (
	"math"

	"github.com/go-sod/pqm/internal/telemetry/model"
	"github.com/go-sod/pqm/pkg/math/vector"
)

const MethodZScore = "zscore"

type SensorDetail struct {
	SensorID    int64   `json:"sensor_id"`
	SensorName  string  `json:"sensor_name"`
	SensorType  string  `json:"sensor_type"`
	EquipmentID string  `json:"equipment_id"`
	ValueLast   float64 `json:"value_last"`
	ZScore      float64 `json:"z_score"`
	SampleCount int     `json:"sample_count"`
}

type Details struct {
	Method  string         `json:"method"`
	MaxAbsZ float64        `json:"max_abs_z"`
	Sensors []SensorDetail `json:"sensors"`
	Message string         `json:"message,omitempty"`
}

type Estimate struct {
	Probability float64 `json:"failure_probability"`
	Details     Details `json:"details"`
}

func NewEstimator(cfg *Config) *Estimator {
	return &Estimator{cfg: cfg}
}

type Estimator struct {
	cfg *Config
}

// Limit clamps a requested telemetry row count to the configured bounds.
func (e *Estimator) Limit(requested int) int {
	if requested <= 0 {
		return e.cfg.DefaultLimit
	}
	if requested > e.cfg.MaxLimit {
		return e.cfg.MaxLimit
	}
	return requested
}

type series struct {
	detail SensorDetail
	// values newest first, as read
	values vector.V
}

// Estimate scores the latest value of every sensor against that sensor's own
// history and maps the largest |z| onto [0, 1]. rows must be newest first.
func (e *Estimator) Estimate(rows []model.JoinedReading) Estimate {
	if len(rows) == 0 {
		return Estimate{Details: Details{Method: MethodZScore, Sensors: []SensorDetail{}, Message: "no telemetry"}}
	}

	var order []int64
	bySensor := map[int64]*series{}
	for _, r := range rows {
		s, ok := bySensor[r.SensorID]
		if !ok {
			s = &series{detail: SensorDetail{
				SensorID:    r.SensorID,
				SensorName:  r.SensorName,
				SensorType:  r.SensorType,
				EquipmentID: r.EquipmentID,
			}}
			bySensor[r.SensorID] = s
			order = append(order, r.SensorID)
		}
		s.values = append(s.values, r.Value)
	}

	var maxAbsZ float64
	details := make([]SensorDetail, 0, len(order))
	for _, id := range order {
		s := bySensor[id]
		values := s.values.Reverse()
		var z float64
		if values.Len() >= 2 {
			z = values.ZScore(values.Len() - 1)
		}
		if a := math.Abs(z); a > maxAbsZ {
			maxAbsZ = a
		}
		d := s.detail
		d.ValueLast = values.Last()
		d.ZScore = Round(z, 4)
		d.SampleCount = values.Len()
		details = append(details, d)
	}

	return Estimate{
		Probability: Round(e.Probability(maxAbsZ), 4),
		Details: Details{
			Method:  MethodZScore,
			MaxAbsZ: Round(maxAbsZ, 4),
			Sensors: details,
		},
	}
}

// Probability maps an absolute z-score onto [0, 1], saturating at ZScale.
func (e *Estimator) Probability(absZ float64) float64 {
	return math.Min(1, math.Max(0, absZ/e.cfg.ZScale))
}

// Round rounds x half away from zero to the given number of decimals.
func Round(x float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(x*p) / p
}
