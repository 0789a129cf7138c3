// Package api routes the HTTP surface of the pqm server.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-sod/pqm/internal/collect"
	pqm "github.com/go-sod/pqm/internal/config"
	"github.com/go-sod/pqm/internal/httputil"
	"github.com/go-sod/pqm/internal/metrics"
	"github.com/go-sod/pqm/internal/monitor"
	"github.com/go-sod/pqm/internal/predict"
	"github.com/go-sod/pqm/internal/quality"
	"github.com/go-sod/pqm/internal/repository"
	"github.com/go-sod/pqm/internal/server"
	"github.com/go-sod/pqm/internal/train"
	"github.com/gorilla/mux"
)

// Deps are the services the routes are served from.
type Deps struct {
	Quality    *quality.Service
	Repository repository.Repository
	Events     monitor.Events
}

type route struct {
	path    string
	methods []string
	build   func() (http.Handler, error)
}

// NewRouter registers every endpoint on a gorilla router.
func NewRouter(ctx context.Context, cfg *pqm.Config, deps Deps) (*mux.Router, error) {
	if deps.Quality == nil || deps.Repository == nil || deps.Events == nil {
		return nil, fmt.Errorf("api: quality service, repository and events are required")
	}
	routes := []route{
		{"/api/train", []string{http.MethodPost}, func() (http.Handler, error) {
			return train.NewHandler(&cfg.Train, deps.Quality)
		}},
		{"/api/predict", []string{http.MethodPost}, func() (http.Handler, error) {
			return predict.NewHandler(&cfg.Predict, deps.Quality)
		}},
		{"/api/anomaly/check", []string{http.MethodGet}, func() (http.Handler, error) {
			return monitor.NewAnomalyHandler(&cfg.Monitor, deps.Quality)
		}},
		{"/api/performance/check", []string{http.MethodGet}, func() (http.Handler, error) {
			return monitor.NewPerformanceHandler(&cfg.Monitor, deps.Quality)
		}},
		{"/api/equipment/failure-probability", []string{http.MethodGet}, func() (http.Handler, error) {
			return monitor.NewFailureHandler(&cfg.Monitor, deps.Quality)
		}},
		{"/api/training-data", []string{http.MethodGet, http.MethodPost}, func() (http.Handler, error) {
			return collect.NewTrainingDataHandler(&cfg.Collect, deps.Repository)
		}},
		{"/api/predictions", []string{http.MethodGet}, func() (http.Handler, error) {
			return monitor.NewPredictionsHandler(&cfg.Monitor, deps.Repository)
		}},
		{"/api/telemetry", []string{http.MethodPost}, func() (http.Handler, error) {
			return collect.NewTelemetryHandler(&cfg.Collect, deps.Repository)
		}},
		{"/api/events", []string{http.MethodGet}, func() (http.Handler, error) {
			return monitor.NewEventsHandler(&cfg.Monitor, deps.Events)
		}},
		{"/health", []string{http.MethodGet, http.MethodHead}, func() (http.Handler, error) {
			return server.HandleHealth(ctx), nil
		}},
		{"/metrics", []string{http.MethodGet}, func() (http.Handler, error) {
			return metrics.NewHandler(cfg.MetricsNamespace)
		}},
	}

	r := mux.NewRouter()
	for _, rt := range routes {
		h, err := rt.build()
		if err != nil {
			return nil, fmt.Errorf("route %s: %w", rt.path, err)
		}
		r.Handle(rt.path, h).Methods(rt.methods...)
	}
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		httputil.RespError(req.Context(), w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		httputil.RespError(req.Context(), w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r, nil
}
