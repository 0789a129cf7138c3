// Package quality implements the operations of the predictive quality core:
// training, prediction, anomaly and drift checks and the equipment failure
// estimate.
package quality

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/go-sod/pqm/internal/alert"
	alertModel "github.com/go-sod/pqm/internal/alert/model"
	"github.com/go-sod/pqm/internal/anomaly"
	"github.com/go-sod/pqm/internal/equipment"
	"github.com/go-sod/pqm/internal/logging"
	"github.com/go-sod/pqm/internal/metrics"
	"github.com/go-sod/pqm/internal/modelstore"
	"github.com/go-sod/pqm/internal/performance"
	predictionModel "github.com/go-sod/pqm/internal/prediction/model"
	"github.com/go-sod/pqm/internal/rangecheck"
	"github.com/go-sod/pqm/internal/regression"
	"github.com/go-sod/pqm/internal/repository"
	sampleModel "github.com/go-sod/pqm/internal/sample/model"
	"go.opencensus.io/tag"
)

// ErrNoSamples is a degenerate fit caused by an empty training set.
var ErrNoSamples = fmt.Errorf("no training samples: %w", regression.ErrDegenerateFit)

// ModelStore holds the active model.
type ModelStore interface {
	Current() *modelstore.Snapshot
	Replace(ctx context.Context, m *regression.Model) (*modelstore.Snapshot, error)
}

type Option func(*Service)

func WithRanges(v *rangecheck.Validator) Option {
	return func(s *Service) {
		s.ranges = v
	}
}

func WithEngine(e *anomaly.Engine) Option {
	return func(s *Service) {
		s.engine = e
	}
}

func WithEstimator(e *equipment.Estimator) Option {
	return func(s *Service) {
		s.estimator = e
	}
}

func WithMonitor(m *performance.Monitor) Option {
	return func(s *Service) {
		s.monitor = m
	}
}

func WithConfig(cfg *Config) Option {
	return func(s *Service) {
		s.cfg = cfg
	}
}

// ProvideFn builds the service once the alert manager exists.
type ProvideFn = func(alert.Notifier) (*Service, error)

// New wires the core. Components not supplied by opts use their defaults.
func New(repo repository.Repository, models ModelStore, notifier alert.Notifier, opts ...Option) (*Service, error) {
	s := &Service{
		cfg:       &Config{},
		repo:      repo,
		models:    models,
		notifier:  notifier,
		engine:    anomaly.New(anomaly.DefaultConfig()),
		estimator: equipment.NewEstimator(&equipment.Config{ZScale: 3, DefaultLimit: 200, MaxLimit: 500}),
		monitor:   performance.New(&performance.Config{MAEThreshold: 15, SampleSize: 20}),
	}
	for _, f := range opts {
		f(s)
	}
	if s.ranges == nil {
		defaults := rangecheck.Config{Feature1Min: 750, Feature1Max: 1000, Feature2Min: 8, Feature2Max: 24}
		v, err := rangecheck.New(defaults.Ranges()...)
		if err != nil {
			return nil, err
		}
		s.ranges = v
	}
	if repo == nil || models == nil || notifier == nil {
		return nil, errors.New("quality: repository, model store and notifier are required")
	}
	return s, nil
}

type Service struct {
	cfg       *Config
	repo      repository.Repository
	models    ModelStore
	notifier  alert.Notifier
	ranges    *rangecheck.Validator
	engine    *anomaly.Engine
	estimator *equipment.Estimator
	monitor   *performance.Monitor
}

type TrainResult struct {
	Intercept    float64    `json:"intercept"`
	Coefficients [2]float64 `json:"coefficients"`
	SampleSize   int        `json:"sample_size"`
	ModelName    string     `json:"model_name"`
	Fingerprint  string     `json:"fingerprint"`
}

// Train fits a model on the stored samples and makes it the active model.
// A degenerate fit leaves the active model untouched.
func (s *Service) Train(ctx context.Context) (TrainResult, error) {
	logger := logging.FromContext(ctx)
	outcome := "failed"
	defer func() {
		metrics.Record(ctx, map[tag.Key]string{metrics.KeyOutcome: outcome}, metrics.MTrainings.M(1))
	}()

	samples, err := s.repo.ReadRecentTrainingSamples(ctx, s.cfg.TrainLimit)
	if err != nil {
		return TrainResult{}, fmt.Errorf("read training samples: %w", err)
	}
	if len(samples) == 0 {
		outcome = "degenerate"
		return TrainResult{}, ErrNoSamples
	}
	m, err := regression.Fit(toRegression(samples))
	if err != nil {
		if errors.Is(err, regression.ErrDegenerateFit) {
			outcome = "degenerate"
		}
		return TrainResult{}, err
	}
	snapshot, err := s.models.Replace(ctx, m)
	if err != nil {
		return TrainResult{}, fmt.Errorf("replace model: %w", err)
	}
	outcome = "trained"
	logger.Infof("model trained on %d samples, fingerprint %s", m.SampleSize, snapshot.Fingerprint())
	return TrainResult{
		Intercept:    m.Intercept,
		Coefficients: m.Coefficients,
		SampleSize:   m.SampleSize,
		ModelName:    snapshot.Name,
		Fingerprint:  snapshot.Fingerprint(),
	}, nil
}

type PredictResult struct {
	Prediction   float64            `json:"prediction"`
	InputSummary map[string]float64 `json:"input_summary"`
	ModelName    string             `json:"model_name"`
	PredictionID *uint64            `json:"prediction_id,omitempty"`
	InputAnomaly string             `json:"input_anomaly,omitempty"`
	ValueAnomaly string             `json:"value_anomaly,omitempty"`
}

// Finite reports whether the prediction is a representable number.
func (r PredictResult) Finite() bool {
	return !math.IsNaN(r.Prediction) && !math.IsInf(r.Prediction, 0)
}

// Predict never fails. The outlier check and the record write are best
// effort; a danger alert is sent only for a recorded prediction. A model output
// that overflows to ±Inf or NaN is returned unrecorded; callers check it with
// PredictResult.Finite.
func (s *Service) Predict(ctx context.Context, f1, f2 float64) PredictResult {
	logger := logging.FromContext(ctx)
	snapshot := s.models.Current()
	value := snapshot.Predict(f1, f2)
	result := PredictResult{
		Prediction:   value,
		InputSummary: map[string]float64{"feature1": f1, "feature2": f2},
		ModelName:    snapshot.Name,
		InputAnomaly: s.ranges.Check(f1, f2),
	}
	if !result.Finite() {
		logger.Warnf("prediction for feature1=%g feature2=%g is not finite, not recorded", f1, f2)
		return result
	}
	metrics.Record(ctx, map[tag.Key]string{metrics.KeyModel: snapshot.Name},
		metrics.MPredictions.M(1), metrics.MPredictedValue.M(value))

	// history is read before this prediction is recorded
	if recent, err := s.repo.ReadRecentPredictions(ctx, s.engine.Config().Window); err != nil {
		logger.Warnf("outlier check skipped: %v", err)
	} else if o, ok := s.engine.Outlier(predictionModel.Values(recent), value); ok {
		result.ValueAnomaly = o.Message
	}

	meta := map[string]interface{}{"source": string(snapshot.Source)}
	if snapshot.HasModel() {
		meta["note"] = "model prediction"
		meta["fingerprint"] = snapshot.Fingerprint()
	} else {
		meta["note"] = "dummy"
	}
	if result.InputAnomaly != "" {
		meta["input_anomaly"] = result.InputAnomaly
	}
	id, err := s.repo.WritePrediction(ctx, snapshot.Name, result.InputSummary, value, meta)
	if err != nil {
		logger.Errorf("unable to record prediction: %v", err)
		return result
	}
	result.PredictionID = &id

	if s.engine.IsDanger(value) {
		msg := fmt.Sprintf("danger: predicted capacity %.2f mAh/g is below %g, possible defect",
			value, s.engine.Config().DangerThreshold)
		s.notifier.Notify(alertModel.NewDanger(id, value, result.InputSummary, snapshot.Name, msg))
	}
	return result
}

type AnomalyReport struct {
	Anomalies []anomaly.Anomaly `json:"anomalies"`
	Notified  bool              `json:"notified"`
}

// CheckAnomalies evaluates the recent predictions and sends at most one alert,
// built from the first fired rule. Read failures yield an empty report.
func (s *Service) CheckAnomalies(ctx context.Context) AnomalyReport {
	report := AnomalyReport{Anomalies: []anomaly.Anomaly{}}
	recent, err := s.repo.ReadRecentPredictions(ctx, s.engine.Config().Lookback)
	if err != nil {
		logging.FromContext(ctx).Warnf("anomaly check skipped: %v", err)
		return report
	}
	anomalies := s.engine.Evaluate(predictionModel.Values(recent))
	if len(anomalies) == 0 {
		return report
	}
	for _, a := range anomalies {
		metrics.Record(ctx, map[tag.Key]string{metrics.KeyRule: string(a.Rule)}, metrics.MAnomalies.M(1))
	}
	first := anomalies[0]
	event := alertModel.NewAnomaly(first.Message, anomaly.Payload(anomalies))
	avg := first.RecentAvg
	event.PredictionValue = &avg
	s.notifier.Notify(event)

	report.Anomalies = anomalies
	report.Notified = true
	return report
}

type FailureReport struct {
	EquipmentID *string `json:"equipment_id"`
	SensorID    *int64  `json:"sensor_id"`
	equipment.Estimate
}

// EquipmentFailureProbability estimates failure risk from recent telemetry.
// An empty equipmentID and a zero sensorID mean no filter.
func (s *Service) EquipmentFailureProbability(ctx context.Context, equipmentID string, sensorID int64, limit int) (FailureReport, error) {
	report := FailureReport{}
	if equipmentID != "" {
		report.EquipmentID = &equipmentID
	}
	if sensorID != 0 {
		report.SensorID = &sensorID
	}
	rows, err := s.repo.ReadTelemetry(ctx, repository.TelemetryQuery{
		EquipmentID: equipmentID,
		SensorID:    sensorID,
		Limit:       s.estimator.Limit(limit),
	})
	if err != nil {
		return report, fmt.Errorf("read telemetry: %w", err)
	}
	report.Estimate = s.estimator.Estimate(rows)
	metrics.Record(ctx, nil, metrics.MFailureProb.M(report.Probability))
	return report, nil
}

// CheckPerformance compares the active model with the most recent labelled
// samples and sends a drift alert when the error is too large.
func (s *Service) CheckPerformance(ctx context.Context) performance.Report {
	snapshot := s.models.Current()
	if !snapshot.HasModel() {
		return s.monitor.Skipped(performance.ReasonNoModel)
	}
	samples, err := s.repo.ReadRecentTrainingSamples(ctx, s.monitor.SampleSize())
	if err != nil {
		logging.FromContext(ctx).Warnf("performance check skipped: %v", err)
		return s.monitor.Skipped(performance.ReasonReadFailed)
	}
	report := s.monitor.Evaluate(snapshot.Model, toRegression(samples))
	if report.MAE != nil {
		metrics.Record(ctx, nil, metrics.MModelMAE.M(*report.MAE))
	}
	if report.Alert {
		s.notifier.Notify(alertModel.NewDrift(report.Message, map[string]interface{}{
			"mae":         *report.MAE,
			"sample_size": report.SampleSize,
			"threshold":   report.Threshold,
			"model_name":  snapshot.Name,
		}))
	}
	return report
}

func toRegression(samples []sampleModel.Sample) []regression.Sample {
	out := make([]regression.Sample, len(samples))
	for i := range samples {
		out[i] = samples[i]
	}
	return out
}
