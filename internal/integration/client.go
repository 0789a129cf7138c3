// Package integration is a Go client for the pqm HTTP API.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	alertModel "github.com/go-sod/pqm/internal/alert/model"
	"github.com/go-sod/pqm/internal/httputil"
	"github.com/go-sod/pqm/internal/performance"
	predictionModel "github.com/go-sod/pqm/internal/prediction/model"
	"github.com/go-sod/pqm/internal/quality"
)

type prefixRoundTripper struct {
	base *url.URL
	rt   http.RoundTripper
}

// RoundTrip resolves path-only requests against the base URL.
func (p *prefixRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	if r.URL.Scheme != "" && r.URL.Host != "" {
		return p.rt.RoundTrip(r)
	}
	r = r.Clone(r.Context())
	if r.URL.Scheme == "" {
		r.URL.Scheme = p.base.Scheme
	}
	if r.URL.Host == "" {
		r.URL.Host = p.base.Host
		r.Host = p.base.Host
	}

	return p.rt.RoundTrip(r)
}

// NewClient returns a client for the server at addr, either host:port or a
// base URL.
func NewClient(addr string, timeout time.Duration) (*Client, error) {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	base, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("parse server address: %w", err)
	}
	inner, err := httputil.NewClientFromConfig(httputil.HTTPClientConfig{}, timeout, false)
	if err != nil {
		return nil, err
	}
	inner.Transport = &prefixRoundTripper{base: base, rt: inner.Transport}
	return &Client{client: inner}, nil
}

type Client struct {
	client *http.Client
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("unable marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, path, reader)
	if err != nil {
		return fmt.Errorf("create new request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("error with sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(raw, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func withLimit(path string, limit int) string {
	if limit <= 0 {
		return path
	}
	return path + "?limit=" + strconv.Itoa(limit)
}

func (c *Client) Train(ctx context.Context) (quality.TrainResult, error) {
	var out quality.TrainResult
	err := c.do(ctx, http.MethodPost, "/api/train", nil, &out)
	return out, err
}

func (c *Client) Predict(ctx context.Context, feature1, feature2 float64) (quality.PredictResult, error) {
	var out quality.PredictResult
	err := c.do(ctx, http.MethodPost, "/api/predict", PredictRequest{Feature1: feature1, Feature2: feature2}, &out)
	return out, err
}

func (c *Client) CheckAnomalies(ctx context.Context) (quality.AnomalyReport, error) {
	var out quality.AnomalyReport
	err := c.do(ctx, http.MethodGet, "/api/anomaly/check", nil, &out)
	return out, err
}

func (c *Client) CheckPerformance(ctx context.Context) (performance.Report, error) {
	var out performance.Report
	err := c.do(ctx, http.MethodGet, "/api/performance/check", nil, &out)
	return out, err
}

// FailureProbability filters by equipmentID or sensorID when they are set.
func (c *Client) FailureProbability(ctx context.Context, equipmentID string, sensorID int64, limit int) (quality.FailureReport, error) {
	q := url.Values{}
	if equipmentID != "" {
		q.Set("equipment_id", equipmentID)
	}
	if sensorID > 0 {
		q.Set("sensor_id", strconv.FormatInt(sensorID, 10))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/equipment/failure-probability"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out quality.FailureReport
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) AddTrainingData(ctx context.Context, rows []TrainingRow) (TrainingDataResponse, error) {
	var out TrainingDataResponse
	err := c.do(ctx, http.MethodPost, "/api/training-data", rows, &out)
	return out, err
}

func (c *Client) SendTelemetry(ctx context.Context, r TelemetryRequest) (TelemetryResponse, error) {
	var out TelemetryResponse
	err := c.do(ctx, http.MethodPost, "/api/telemetry", r, &out)
	return out, err
}

func (c *Client) Predictions(ctx context.Context, limit int) ([]predictionModel.Prediction, error) {
	var out []predictionModel.Prediction
	err := c.do(ctx, http.MethodGet, withLimit("/api/predictions", limit), nil, &out)
	return out, err
}

func (c *Client) Events(ctx context.Context, limit int) ([]alertModel.Record, error) {
	var out []alertModel.Record
	err := c.do(ctx, http.MethodGet, withLimit("/api/events", limit), nil, &out)
	return out, err
}

func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}
