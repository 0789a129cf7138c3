// Package performance tracks model drift as the mean absolute error against
// recent labelled samples.
package performance

import (
	"fmt"
	"math"

	"github.com/go-sod/pqm/internal/regression"
)

type Status string

const (
	StatusOK      Status = "ok"
	StatusAlert   Status = "alert"
	StatusSkipped Status = "skipped"
)

// Skip reasons.
const (
	ReasonNoModel       = "no trained model, performance check skipped"
	ReasonNoSamples     = "no training samples, performance check skipped"
	ReasonReadFailed    = "training samples could not be read"
	ReasonNotComparable = "no comparable predictions"
)

// Predictor is the part of a model the monitor needs.
type Predictor interface {
	Predict(f1, f2 float64) float64
}

type Report struct {
	Alert      bool     `json:"alert"`
	Status     Status   `json:"status"`
	Message    string   `json:"message"`
	MAE        *float64 `json:"mae"`
	SampleSize int      `json:"sample_size"`
	Threshold  float64  `json:"threshold"`
}

func New(cfg *Config) *Monitor {
	return &Monitor{cfg: cfg}
}

type Monitor struct {
	cfg *Config
}

// SampleSize is how many recent samples a check should read.
func (m *Monitor) SampleSize() int {
	return m.cfg.SampleSize
}

// Skipped returns a non-alerting report carrying reason.
func (m *Monitor) Skipped(reason string) Report {
	return Report{Status: StatusSkipped, Message: reason, Threshold: m.cfg.MAEThreshold}
}

// Evaluate compares model predictions against the observed targets. A nil
// model, no samples or no finite prediction yield a skipped report.
func (m *Monitor) Evaluate(model Predictor, samples []regression.Sample) Report {
	if model == nil {
		return m.Skipped(ReasonNoModel)
	}
	if len(samples) == 0 {
		return m.Skipped(ReasonNoSamples)
	}

	var sum float64
	var n int
	for _, s := range samples {
		f1, f2 := s.Features()
		p := model.Predict(f1, f2)
		if math.IsNaN(p) || math.IsInf(p, 0) {
			continue
		}
		sum += math.Abs(s.Observed() - p)
		n++
	}
	if n == 0 {
		return m.Skipped(ReasonNotComparable)
	}

	mae := sum / float64(n)
	rounded := math.Round(mae*100) / 100
	r := Report{
		MAE:        &rounded,
		SampleSize: n,
		Threshold:  m.cfg.MAEThreshold,
	}
	if mae > m.cfg.MAEThreshold {
		r.Alert = true
		r.Status = StatusAlert
		r.Message = fmt.Sprintf("model retraining required: recent MAE %.2f exceeds threshold %g", mae, m.cfg.MAEThreshold)
	} else {
		r.Status = StatusOK
		r.Message = fmt.Sprintf("model performance normal: recent MAE %.2f", mae)
	}
	return r
}
