// Package train serves the model training endpoint.
package train

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-sod/pqm/internal/httputil"
	"github.com/go-sod/pqm/internal/quality"
	"github.com/go-sod/pqm/internal/regression"
)

type Trainer interface {
	Train(ctx context.Context) (quality.TrainResult, error)
}

func NewHandler(cfg *Config, trainer Trainer) (http.Handler, error) {
	return &handler{cfg: cfg, trainer: trainer}, nil
}

type handler struct {
	trainer Trainer
	cfg     *Config
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()

	if httputil.RespMethodNotAllowed(ctx, w, r, http.MethodPost) {
		return
	}
	result, err := h.trainer.Train(ctx)
	switch {
	case errors.Is(err, regression.ErrDegenerateFit):
		httputil.RespError(ctx, w, http.StatusUnprocessableEntity, err.Error())
	case err != nil:
		httputil.RespInternalError(ctx, w, "training failed: %v", err)
	default:
		httputil.RespJSON(ctx, w, http.StatusOK, result)
	}
}
