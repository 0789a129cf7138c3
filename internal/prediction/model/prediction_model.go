package model

import (
	"time"

	"github.com/go-sod/pqm/pkg/math/vector"
)

func NewPrediction(modelName string, inputSummary map[string]float64, value float64, meta map[string]interface{}) Prediction {
	return Prediction{
		CreatedAt:    time.Now().UTC(),
		ModelName:    modelName,
		InputSummary: inputSummary,
		Value:        value,
		Meta:         meta,
	}
}

// Prediction is an append-only record of one inference call.
type Prediction struct {
	ID           uint64                 `json:"id"`
	CreatedAt    time.Time              `json:"created_at"`
	ModelName    string                 `json:"model_name"`
	InputSummary map[string]float64     `json:"input_summary"`
	Value        float64                `json:"prediction_value"`
	Meta         map[string]interface{} `json:"meta,omitempty"`
}

// Values returns the predicted values of ps oldest first, given ps newest first.
func Values(ps []Prediction) vector.V {
	v := make(vector.V, len(ps))
	for i := range ps {
		v[len(ps)-1-i] = ps[i].Value
	}
	return v
}
