package predict

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-sod/pqm/internal/quality"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type meanPredictor struct {
	calls int
}

func (p *meanPredictor) Predict(_ context.Context, f1, f2 float64) quality.PredictResult {
	p.calls++
	return quality.PredictResult{
		Prediction:   (f1 + f2) / 2,
		InputSummary: map[string]float64{"feature1": f1, "feature2": f2},
		ModelName:    "dummy_model",
	}
}

func TestHandler(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		body           string
		expectedStatus int
		expectedCalls  int
	}{
		{name: "ok", method: http.MethodPost, body: `{"feature1": 800, "feature2": 12}`, expectedStatus: http.StatusOK, expectedCalls: 1},
		{name: "zero_is_a_value", method: http.MethodPost, body: `{"feature1": 0, "feature2": 0}`, expectedStatus: http.StatusOK, expectedCalls: 1},
		{name: "overflowing_prediction", method: http.MethodPost, body: `{"feature1": 1e308, "feature2": 1e308}`, expectedStatus: http.StatusBadRequest, expectedCalls: 1},
		{name: "missing_feature", method: http.MethodPost, body: `{"feature1": 800}`, expectedStatus: http.StatusBadRequest},
		{name: "non_numeric", method: http.MethodPost, body: `{"feature1": "hot", "feature2": 12}`, expectedStatus: http.StatusBadRequest},
		{name: "bad_json", method: http.MethodPost, body: `{"feature1": 8`, expectedStatus: http.StatusBadRequest},
		{name: "get", method: http.MethodGet, body: ``, expectedStatus: http.StatusMethodNotAllowed},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			p := &meanPredictor{}
			h, err := NewHandler(&Config{RequestTimeout: time.Second}, p)
			require.NoError(t, err)
			r := httptest.NewRequest(test.method, "/api/predict", strings.NewReader(test.body))
			r.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			if w.Code != test.expectedStatus {
				t.Errorf("status, got: %v, expected: %v, body: %s", w.Code, test.expectedStatus, w.Body.String())
			}
			assert.Equal(t, test.expectedCalls, p.calls)
		})
	}
}

func TestHandlerResponse(t *testing.T) {
	h, err := NewHandler(&Config{RequestTimeout: time.Second}, &meanPredictor{})
	require.NoError(t, err)
	r := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(`{"feature1": 800, "feature2": 12}`))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 406.0, got["prediction"])
	assert.Equal(t, map[string]interface{}{"feature1": 800.0, "feature2": 12.0}, got["input_summary"])
	assert.NotContains(t, got, "input_anomaly")
	assert.NotContains(t, got, "value_anomaly")
}
