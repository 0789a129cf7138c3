// Package metrics defines the opencensus measures recorded by the service and
// exposes them for Prometheus scraping.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	ocprom "contrib.go.opencensus.io/exporter/prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/version"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

var (
	KeyModel   = tag.MustNewKey("model")
	KeyRule    = tag.MustNewKey("rule")
	KeySink    = tag.MustNewKey("sink")
	KeyOutcome = tag.MustNewKey("outcome")
	KeyEvent   = tag.MustNewKey("event_type")
)

var (
	MPredictions    = stats.Int64("pqm/predictions", "inference calls", stats.UnitDimensionless)
	MPredictedValue = stats.Float64("pqm/predicted_value", "predicted quality value", stats.UnitDimensionless)
	MAnomalies      = stats.Int64("pqm/anomalies", "fired anomaly rules", stats.UnitDimensionless)
	MTrainings      = stats.Int64("pqm/trainings", "training runs", stats.UnitDimensionless)
	MModelMAE       = stats.Float64("pqm/model_mae", "mean absolute error of the last performance check", stats.UnitDimensionless)
	MFailureProb    = stats.Float64("pqm/failure_probability", "last equipment failure probability", stats.UnitDimensionless)
	MAlerts         = stats.Int64("pqm/alerts", "alert deliveries", stats.UnitDimensionless)
)

// Views are the aggregations exported at /metrics.
var Views = []*view.View{
	{Name: "pqm/predictions_total", Measure: MPredictions, Aggregation: view.Count(), TagKeys: []tag.Key{KeyModel}},
	{
		Name:        "pqm/predicted_value",
		Measure:     MPredictedValue,
		Aggregation: view.Distribution(100, 150, 170, 180, 190, 200, 210, 220, 250),
		TagKeys:     []tag.Key{KeyModel},
	},
	{Name: "pqm/anomalies_total", Measure: MAnomalies, Aggregation: view.Count(), TagKeys: []tag.Key{KeyRule}},
	{Name: "pqm/trainings_total", Measure: MTrainings, Aggregation: view.Count(), TagKeys: []tag.Key{KeyOutcome}},
	{Name: "pqm/model_mae", Measure: MModelMAE, Aggregation: view.LastValue()},
	{Name: "pqm/failure_probability", Measure: MFailureProb, Aggregation: view.LastValue()},
	{Name: "pqm/alerts_total", Measure: MAlerts, Aggregation: view.Count(), TagKeys: []tag.Key{KeySink, KeyEvent, KeyOutcome}},
}

var registerOnce sync.Once

// Register registers Views once per process.
func Register() error {
	var err error
	registerOnce.Do(func() {
		err = view.Register(Views...)
	})
	return err
}

// NewHandler registers the views and returns the Prometheus scrape handler.
// The registry also carries a build_info gauge for namespace.
func NewHandler(namespace string) (http.Handler, error) {
	if err := Register(); err != nil {
		return nil, fmt.Errorf("register views: %w", err)
	}
	registry := prometheus.NewRegistry()
	if err := registry.Register(version.NewCollector(namespace)); err != nil {
		return nil, fmt.Errorf("register build info: %w", err)
	}
	pe, err := ocprom.NewExporter(ocprom.Options{Namespace: namespace, Registry: registry})
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}
	return pe, nil
}

// Record records ms under the given tag values. Tagging errors are dropped.
func Record(ctx context.Context, tags map[tag.Key]string, ms ...stats.Measurement) {
	mutators := make([]tag.Mutator, 0, len(tags))
	for k, v := range tags {
		mutators = append(mutators, tag.Upsert(k, v))
	}
	_ = stats.RecordWithTags(ctx, mutators, ms...)
}
