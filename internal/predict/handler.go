package predict

import (
	"context"
	"math"
	"net/http"

	"github.com/go-sod/pqm/internal/httputil"
	"github.com/go-sod/pqm/internal/quality"
)

type request struct {
	Feature1 *float64 `json:"feature1"`
	Feature2 *float64 `json:"feature2"`
}

// Predictor is the part of the quality service the handler needs.
type Predictor interface {
	Predict(ctx context.Context, f1, f2 float64) quality.PredictResult
}

func NewHandler(cfg *Config, predictor Predictor) (http.Handler, error) {
	return &handler{
		cfg:       cfg,
		predictor: predictor,
	}, nil
}

type handler struct {
	predictor Predictor
	cfg       *Config
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req request
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()

	if httputil.RespMethodNotAllowed(ctx, w, r, http.MethodPost) {
		return
	}
	defer r.Body.Close()
	if !httputil.DecodeJSON(ctx, w, r, &req) {
		return
	}
	if req.Feature1 == nil || req.Feature2 == nil {
		httputil.RespBadRequest(ctx, w, "feature1 and feature2 are required")
		return
	}
	if !finite(*req.Feature1) || !finite(*req.Feature2) {
		httputil.RespBadRequest(ctx, w, "features must be finite numbers")
		return
	}

	result := h.predictor.Predict(ctx, *req.Feature1, *req.Feature2)
	if !result.Finite() {
		httputil.RespBadRequest(ctx, w, "features are out of the model's numeric range")
		return
	}
	httputil.RespJSON(ctx, w, http.StatusOK, result)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
