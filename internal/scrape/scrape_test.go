package scrape

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-sod/pqm/internal/database"
	"github.com/go-sod/pqm/internal/httputil"
	"github.com/go-sod/pqm/internal/repository"
	"github.com/go-sod/pqm/internal/telemetry/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gateway(t *testing.T, batch *Batch, gz bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if gz {
			w.Header().Set("Content-Encoding", "gzip")
			zw := gzip.NewWriter(w)
			defer zw.Close()
			_ = json.NewEncoder(zw).Encode(batch)
			return
		}
		_ = json.NewEncoder(w).Encode(batch)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testBatch(at time.Time) *Batch {
	return &Batch{
		Sensors: []model.Sensor{{ID: 7, EquipmentID: "EQ-01", Name: "spindle vibration", Type: "vibration"}},
		Readings: []model.Reading{
			{SensorID: 7, RecordedAt: at.Add(time.Minute), Value: 0.42},
			{SensorID: 7, RecordedAt: at, Value: 0.40},
		},
	}
}

func TestScrapeStoresBatch(t *testing.T) {
	tests := []struct {
		name string
		gzip bool
	}{
		{name: "plain", gzip: false},
		{name: "gzip", gzip: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ctx := context.Background()
			repo := repository.NewBolt(database.NewTestDatabase(t))
			at := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
			srv := gateway(t, testBatch(at), test.gzip)

			m, err := New(repo, nil, WithInterval(time.Hour), WithTargets(Targets{{URL: srv.URL}}))
			require.NoError(t, err)
			m.scrapeAll(ctx)

			got, err := repo.ReadTelemetry(ctx, repository.TelemetryQuery{EquipmentID: "EQ-01"})
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, 0.42, got[0].Value)
			assert.Equal(t, "spindle vibration", got[0].SensorName)
			assert.Equal(t, model.LabelNormal, got[0].Label)
		})
	}
}

func TestScrapeSkipsSeenReadings(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewBolt(database.NewTestDatabase(t))
	at := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	batch := testBatch(at)
	srv := gateway(t, batch, false)

	m, err := New(repo, nil, WithInterval(time.Hour), WithTargets(Targets{{URL: srv.URL}}))
	require.NoError(t, err)
	m.scrapeAll(ctx)
	m.scrapeAll(ctx)

	got, err := repo.ReadTelemetry(ctx, repository.TelemetryQuery{SensorID: 7})
	require.NoError(t, err)
	if len(got) != 2 {
		t.Errorf("stored readings, got: %v, expected: %v", len(got), 2)
	}

	batch.Readings = append(batch.Readings, model.Reading{SensorID: 7, RecordedAt: at.Add(2 * time.Minute), Value: 0.5})
	m.scrapeAll(ctx)
	got, err = repo.ReadTelemetry(ctx, repository.TelemetryQuery{SensorID: 7})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestScrapeFailingTargetDoesNotBlockOthers(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewBolt(database.NewTestDatabase(t))
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway down", http.StatusBadGateway)
	}))
	defer bad.Close()
	good := gateway(t, testBatch(time.Now().UTC().Add(-time.Hour)), false)

	m, err := New(repo, nil, WithInterval(time.Hour), WithTargets(Targets{{URL: bad.URL}, {URL: good.URL}}))
	require.NoError(t, err)
	m.scrapeAll(ctx)

	got, err := repo.ReadTelemetry(ctx, repository.TelemetryQuery{})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestScrapeSendsAuth(t *testing.T) {
	var authorized int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer s3cret" && r.Header.Get("User-Agent") == httputil.UserAgent {
			atomic.AddInt32(&authorized, 1)
		}
		_ = json.NewEncoder(w).Encode(Batch{})
	}))
	defer srv.Close()

	repo := repository.NewBolt(database.NewTestDatabase(t))
	m, err := New(repo, nil, WithInterval(time.Hour), WithTargets(Targets{{
		URL:        srv.URL,
		HTTPConfig: &httputil.HTTPClientConfig{BearerToken: "s3cret"},
	}}))
	require.NoError(t, err)
	m.scrapeAll(context.Background())
	assert.Equal(t, int32(1), atomic.LoadInt32(&authorized))
}

func TestRunSignalsShutdown(t *testing.T) {
	repo := repository.NewBolt(database.NewTestDatabase(t))
	shutdownCh := make(chan error, 1)
	m, err := New(repo, shutdownCh, WithInterval(time.Hour))
	require.NoError(t, err)
	require.NoError(t, m.Run(context.Background()))
	m.Stop()
	select {
	case err := <-shutdownCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scrape manager did not stop")
	}
}

func TestNewRejects(t *testing.T) {
	repo := repository.NewBolt(database.NewTestDatabase(t))
	tests := []struct {
		name string
		opts []Option
	}{
		{name: "no_interval", opts: nil},
		{name: "bad_scheme", opts: []Option{WithInterval(time.Second), WithTargets(Targets{{URL: "ftp://gw"}})}},
		{name: "zero_concurrency", opts: []Option{WithInterval(time.Second), WithMaxConcurrentRequest(0)}},
		{name: "double_auth", opts: []Option{WithInterval(time.Second), WithTargets(Targets{{
			URL: "http://gw",
			HTTPConfig: &httputil.HTTPClientConfig{
				BearerToken: "x",
				BasicAuth:   &httputil.BasicAuth{Username: "u"},
			},
		}})}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := New(repo, nil, test.opts...)
			assert.Error(t, err)
		})
	}
	_, err := New(nil, nil, WithInterval(time.Second))
	assert.Error(t, err)
}

func TestTargetsDecode(t *testing.T) {
	var ts Targets
	require.NoError(t, ts.Decode(`[{"url":"http://gw-1/telemetry","name":"line-1","httpConfig":{"bearerToken":"t"}}]`))
	require.Len(t, ts, 1)
	assert.Equal(t, "line-1", ts[0].Name)
	assert.Equal(t, "t", ts[0].HTTPConfig.BearerToken)
	assert.Error(t, ts.Decode(`{`))
}
