// Package collect serves ingestion of labelled samples and sensor telemetry.
package collect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-sod/pqm/internal/httputil"
	"github.com/go-sod/pqm/internal/logging"
	"github.com/go-sod/pqm/internal/repository"
	sampleModel "github.com/go-sod/pqm/internal/sample/model"
	telemetryModel "github.com/go-sod/pqm/internal/telemetry/model"
)

type sampleRequest struct {
	Feature1 *float64 `json:"feature1"`
	Feature2 *float64 `json:"feature2"`
	Target   *float64 `json:"target"`
}

func (s sampleRequest) valid() bool {
	return s.Feature1 != nil && s.Feature2 != nil && s.Target != nil
}

// Samples is the storage the training data handler needs.
type Samples interface {
	ReadRecentTrainingSamples(ctx context.Context, limit int) ([]sampleModel.Sample, error)
	WriteTrainingSamples(ctx context.Context, samples []sampleModel.Sample) ([]uint64, error)
}

// NewTrainingDataHandler lists samples on GET and stores one sample or a JSON
// array of samples on POST.
func NewTrainingDataHandler(cfg *Config, samples Samples) (http.Handler, error) {
	return &trainingDataHandler{cfg: cfg, samples: samples}, nil
}

type trainingDataHandler struct {
	samples Samples
	cfg     *Config
}

func (h *trainingDataHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()

	if httputil.RespMethodNotAllowed(ctx, w, r, http.MethodGet, http.MethodPost) {
		return
	}
	if r.Method == http.MethodGet {
		h.list(ctx, w, r)
		return
	}
	defer r.Body.Close()

	var raw json.RawMessage
	if !httputil.DecodeJSON(ctx, w, r, &raw) {
		return
	}
	batch := bytes.HasPrefix(bytes.TrimSpace(raw), []byte("["))
	var reqs []sampleRequest
	if batch {
		if err := strictUnmarshal(raw, &reqs); err != nil {
			httputil.DecodeErr(ctx, w, err)
			return
		}
	} else {
		var one sampleRequest
		if err := strictUnmarshal(raw, &one); err != nil {
			httputil.DecodeErr(ctx, w, err)
			return
		}
		reqs = []sampleRequest{one}
	}
	if len(reqs) == 0 {
		httputil.RespBadRequest(ctx, w, "no samples")
		return
	}
	if len(reqs) > h.cfg.MaxBatchLen {
		httputil.RespBadRequest(ctx, w, "too many samples, max allowed len is %d", h.cfg.MaxBatchLen)
		return
	}
	samples := make([]sampleModel.Sample, len(reqs))
	for i, req := range reqs {
		if !req.valid() {
			httputil.RespBadRequest(ctx, w, "sample %d: feature1, feature2 and target are required", i)
			return
		}
		samples[i] = sampleModel.NewSample(*req.Feature1, *req.Feature2, *req.Target)
	}

	ids, err := h.samples.WriteTrainingSamples(ctx, samples)
	if err != nil {
		httputil.RespInternalError(ctx, w, "unable store training samples: %v", err)
		return
	}
	logging.FromContext(ctx).Infof("stored %d training samples", len(ids))
	if !batch {
		httputil.RespJSON(ctx, w, http.StatusOK, map[string]interface{}{"id": ids[0], "message": "saved"})
		return
	}
	httputil.RespJSON(ctx, w, http.StatusOK, map[string]interface{}{"ids": ids, "count": len(ids)})
}

func (h *trainingDataHandler) list(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	limit, err := httputil.QueryInt(r, "limit", h.cfg.ListDefault)
	if err != nil {
		httputil.RespBadRequest(ctx, w, "%v", err)
		return
	}
	samples, err := h.samples.ReadRecentTrainingSamples(ctx, httputil.ClampLimit(limit, h.cfg.ListDefault, h.cfg.ListMax))
	if err != nil {
		httputil.RespInternalError(ctx, w, "unable read training samples: %v", err)
		return
	}
	if samples == nil {
		samples = []sampleModel.Sample{}
	}
	httputil.RespJSON(ctx, w, http.StatusOK, samples)
}

type readingRequest struct {
	SensorID   int64                  `json:"sensor_id"`
	RecordedAt time.Time              `json:"recorded_at"`
	Value      *float64               `json:"value"`
	Label      telemetryModel.Label   `json:"label"`
	Meta       map[string]interface{} `json:"meta"`
}

type telemetryRequest struct {
	Sensors  []telemetryModel.Sensor `json:"sensors"`
	Readings []readingRequest        `json:"readings"`
}

// Telemetry is the storage the telemetry handler needs.
type Telemetry interface {
	UpsertSensor(ctx context.Context, s telemetryModel.Sensor) (int64, error)
	WriteTelemetry(ctx context.Context, readings []telemetryModel.Reading) ([]uint64, error)
}

// NewTelemetryHandler upserts sensor metadata and appends readings.
func NewTelemetryHandler(cfg *Config, telemetry Telemetry) (http.Handler, error) {
	return &telemetryHandler{cfg: cfg, telemetry: telemetry}, nil
}

type telemetryHandler struct {
	telemetry Telemetry
	cfg       *Config
}

func (h *telemetryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req telemetryRequest
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()

	if httputil.RespMethodNotAllowed(ctx, w, r, http.MethodPost) {
		return
	}
	defer r.Body.Close()
	if !httputil.DecodeJSON(ctx, w, r, &req) {
		return
	}
	if len(req.Sensors)+len(req.Readings) == 0 {
		httputil.RespBadRequest(ctx, w, "no sensors or readings")
		return
	}
	if len(req.Readings) > h.cfg.MaxBatchLen {
		httputil.RespBadRequest(ctx, w, "too many readings, max allowed len is %d", h.cfg.MaxBatchLen)
		return
	}
	for i, s := range req.Sensors {
		if s.EquipmentID == "" || s.Name == "" || s.Type == "" {
			httputil.RespBadRequest(ctx, w, "sensor %d: equipment_id, sensor_name and sensor_type are required", i)
			return
		}
	}
	readings := make([]telemetryModel.Reading, len(req.Readings))
	for i, rr := range req.Readings {
		if rr.SensorID <= 0 || rr.Value == nil {
			httputil.RespBadRequest(ctx, w, "reading %d: sensor_id and value are required", i)
			return
		}
		if rr.Label != "" && !rr.Label.Valid() {
			httputil.RespBadRequest(ctx, w, "reading %d: label must be normal or anomaly", i)
			return
		}
		readings[i] = telemetryModel.Reading{
			SensorID:   rr.SensorID,
			RecordedAt: rr.RecordedAt,
			Value:      *rr.Value,
			Label:      rr.Label,
			Meta:       rr.Meta,
		}
	}

	sensorIDs := make([]int64, 0, len(req.Sensors))
	for _, s := range req.Sensors {
		id, err := h.telemetry.UpsertSensor(ctx, s)
		if err != nil {
			httputil.RespInternalError(ctx, w, "unable store sensor: %v", err)
			return
		}
		sensorIDs = append(sensorIDs, id)
	}
	var readingIDs []uint64
	if len(readings) > 0 {
		var err error
		readingIDs, err = h.telemetry.WriteTelemetry(ctx, readings)
		switch {
		case errors.Is(err, repository.ErrUnknownSensor), errors.Is(err, repository.ErrInvalidLabel),
			errors.Is(err, repository.ErrInvalidTimestamp):
			httputil.RespBadRequest(ctx, w, "%v", err)
			return
		case err != nil:
			httputil.RespInternalError(ctx, w, "unable store telemetry: %v", err)
			return
		}
	}
	if readingIDs == nil {
		readingIDs = []uint64{}
	}
	logging.FromContext(ctx).Infof("stored %d sensors and %d readings", len(sensorIDs), len(readingIDs))
	httputil.RespJSON(ctx, w, http.StatusOK, map[string]interface{}{
		"sensor_ids":  sensorIDs,
		"reading_ids": readingIDs,
	})
}

func strictUnmarshal(data []byte, v interface{}) error {
	d := json.NewDecoder(bytes.NewReader(data))
	d.DisallowUnknownFields()
	return d.Decode(v)
}
