// Package regression fits and evaluates the two-feature linear quality model.
package regression

import (
	"time"

	"github.com/go-sod/pqm/internal/util"
)

// Model is an immutable fitted linear model:
// target = Intercept + Coefficients[0]*feature1 + Coefficients[1]*feature2.
type Model struct {
	Intercept    float64
	Coefficients [2]float64
	// FittedAt is zero for models loaded from files that do not carry it.
	FittedAt time.Time
	// SampleSize is the number of samples the model was fitted on, 0 if unknown.
	SampleSize int
}

// NewModel returns a model with the given parameters.
func NewModel(intercept, c1, c2 float64) *Model {
	return &Model{Intercept: intercept, Coefficients: [2]float64{c1, c2}}
}

// Predict evaluates the model. It is pure given fixed coefficients.
func (m *Model) Predict(f1, f2 float64) float64 {
	return m.Intercept + m.Coefficients[0]*f1 + m.Coefficients[1]*f2
}

// Fingerprint identifies the coefficient set, so predictions can be traced to
// the model that produced them.
func (m *Model) Fingerprint() string {
	return util.ShortHash([]float64{m.Intercept, m.Coefficients[0], m.Coefficients[1]}, 12)
}
