// Package monitor serves the read side: rule checks, drift, failure risk and
// the prediction and alert timelines.
package monitor

import (
	"context"
	"net/http"
	"strconv"

	alertModel "github.com/go-sod/pqm/internal/alert/model"
	"github.com/go-sod/pqm/internal/httputil"
	"github.com/go-sod/pqm/internal/performance"
	predictionModel "github.com/go-sod/pqm/internal/prediction/model"
	"github.com/go-sod/pqm/internal/quality"
)

// Checker is the part of the quality service the check endpoints need.
type Checker interface {
	CheckAnomalies(ctx context.Context) quality.AnomalyReport
	CheckPerformance(ctx context.Context) performance.Report
	EquipmentFailureProbability(ctx context.Context, equipmentID string, sensorID int64, limit int) (quality.FailureReport, error)
}

type Predictions interface {
	ReadRecentPredictions(ctx context.Context, limit int) ([]predictionModel.Prediction, error)
}

type Events interface {
	Recent(ctx context.Context, limit int) ([]alertModel.Record, error)
}

type serveFn func(ctx context.Context, w http.ResponseWriter, r *http.Request)

// handler applies the request timeout and allows GET only.
type handler struct {
	cfg   *Config
	serve serveFn
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()
	if httputil.RespMethodNotAllowed(ctx, w, r, http.MethodGet) {
		return
	}
	h.serve(ctx, w, r)
}

func NewAnomalyHandler(cfg *Config, checker Checker) (http.Handler, error) {
	return &handler{cfg: cfg, serve: func(ctx context.Context, w http.ResponseWriter, _ *http.Request) {
		httputil.RespJSON(ctx, w, http.StatusOK, checker.CheckAnomalies(ctx))
	}}, nil
}

func NewPerformanceHandler(cfg *Config, checker Checker) (http.Handler, error) {
	return &handler{cfg: cfg, serve: func(ctx context.Context, w http.ResponseWriter, _ *http.Request) {
		httputil.RespJSON(ctx, w, http.StatusOK, checker.CheckPerformance(ctx))
	}}, nil
}

// NewFailureHandler reads equipment_id, sensor_id and limit from the query.
func NewFailureHandler(cfg *Config, checker Checker) (http.Handler, error) {
	return &handler{cfg: cfg, serve: func(ctx context.Context, w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var sensorID int64
		if raw := q.Get("sensor_id"); raw != "" {
			v, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || v <= 0 {
				httputil.RespBadRequest(ctx, w, "query parameter sensor_id must be a positive integer")
				return
			}
			sensorID = v
		}
		limit, err := httputil.QueryInt(r, "limit", 0)
		if err != nil {
			httputil.RespBadRequest(ctx, w, "%v", err)
			return
		}
		report, err := checker.EquipmentFailureProbability(ctx, q.Get("equipment_id"), sensorID, limit)
		if err != nil {
			httputil.RespInternalError(ctx, w, "failure probability: %v", err)
			return
		}
		httputil.RespJSON(ctx, w, http.StatusOK, report)
	}}, nil
}

func NewPredictionsHandler(cfg *Config, predictions Predictions) (http.Handler, error) {
	return &handler{cfg: cfg, serve: func(ctx context.Context, w http.ResponseWriter, r *http.Request) {
		limit, err := httputil.QueryInt(r, "limit", cfg.ListDefault)
		if err != nil {
			httputil.RespBadRequest(ctx, w, "%v", err)
			return
		}
		list, err := predictions.ReadRecentPredictions(ctx, httputil.ClampLimit(limit, cfg.ListDefault, cfg.ListMax))
		if err != nil {
			httputil.RespInternalError(ctx, w, "unable read predictions: %v", err)
			return
		}
		if list == nil {
			list = []predictionModel.Prediction{}
		}
		httputil.RespJSON(ctx, w, http.StatusOK, list)
	}}, nil
}

func NewEventsHandler(cfg *Config, events Events) (http.Handler, error) {
	return &handler{cfg: cfg, serve: func(ctx context.Context, w http.ResponseWriter, r *http.Request) {
		limit, err := httputil.QueryInt(r, "limit", cfg.EventsDefault)
		if err != nil {
			httputil.RespBadRequest(ctx, w, "%v", err)
			return
		}
		list, err := events.Recent(ctx, httputil.ClampLimit(limit, cfg.EventsDefault, cfg.EventsMax))
		if err != nil {
			httputil.RespInternalError(ctx, w, "unable read alert events: %v", err)
			return
		}
		if list == nil {
			list = []alertModel.Record{}
		}
		httputil.RespJSON(ctx, w, http.StatusOK, list)
	}}, nil
}
