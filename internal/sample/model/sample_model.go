package model

import (
	"time"

	"github.com/go-sod/pqm/internal/regression"
)

func NewSample(feature1, feature2, target float64) Sample {
	return Sample{
		Feature1:  feature1,
		Feature2:  feature2,
		Target:    target,
		CreatedAt: time.Now().UTC(),
	}
}

var _ regression.Sample = (*Sample)(nil)

// Sample is one labelled process observation used for fitting and drift checks.
type Sample struct {
	ID        uint64    `json:"id"`
	Feature1  float64   `json:"feature1"`
	Feature2  float64   `json:"feature2"`
	Target    float64   `json:"target"`
	CreatedAt time.Time `json:"created_at"`
}

func (s Sample) Features() (float64, float64) {
	return s.Feature1, s.Feature2
}

func (s Sample) Observed() float64 {
	return s.Target
}
