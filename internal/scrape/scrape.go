// Package scrape pulls telemetry batches from sensor gateways on an interval
// and stores them through the repository.
package scrape

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/go-sod/pqm/internal/httputil"
	"github.com/go-sod/pqm/internal/logging"
	"github.com/go-sod/pqm/internal/telemetry/model"
	"github.com/go-sod/pqm/pkg/rworker"
)

// Batch is the body a gateway answers with. It has the same shape as the
// POST /api/telemetry request.
type Batch struct {
	Sensors  []model.Sensor  `json:"sensors"`
	Readings []model.Reading `json:"readings"`
}

// Telemetry is the storage the scraper writes to.
type Telemetry interface {
	UpsertSensor(ctx context.Context, s model.Sensor) (int64, error)
	WriteTelemetry(ctx context.Context, readings []model.Reading) ([]uint64, error)
}

type Manager interface {
	Run(context.Context) error
	Stop()
}

type ProvideFn = func(Telemetry, chan<- error) (Manager, error)

type Options struct {
	maxConcurrentRequest int
	requestTimeout       time.Duration
	scrapeInterval       time.Duration
}

type Option func(*manager)

func WithMaxConcurrentRequest(n int) Option {
	return func(o *manager) {
		o.opts.maxConcurrentRequest = n
	}
}

func WithInterval(t time.Duration) Option {
	return func(o *manager) {
		o.opts.scrapeInterval = t
	}
}

func WithRequestTimeout(t time.Duration) Option {
	return func(o *manager) {
		o.opts.requestTimeout = t
	}
}

func WithTargets(ts Targets) Option {
	return func(o *manager) {
		o.targets = ts
	}
}

func New(telemetry Telemetry, shutdownCh chan<- error, opts ...Option) (*manager, error) {
	if telemetry == nil {
		return nil, fmt.Errorf("telemetry storage is not defined")
	}
	m := &manager{
		opts: Options{
			maxConcurrentRequest: 8,
			requestTimeout:       10 * time.Second,
		},
		telemetry:  telemetry,
		shutdownCh: shutdownCh,
		watermarks: map[string]time.Time{},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.opts.scrapeInterval <= 0 {
		return nil, fmt.Errorf("scrape interval must be positive, got %v", m.opts.scrapeInterval)
	}
	if m.opts.maxConcurrentRequest <= 0 {
		return nil, fmt.Errorf("max concurrent request must be positive, got %d", m.opts.maxConcurrentRequest)
	}

	m.clients = make([]*http.Client, len(m.targets))
	for i, t := range m.targets {
		u, err := url.Parse(t.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return nil, fmt.Errorf("target %d: invalid url %q", i, t.URL)
		}
		var cfg httputil.HTTPClientConfig
		if t.HTTPConfig != nil {
			cfg = *t.HTTPConfig
		}
		client, err := httputil.NewClientFromConfig(cfg, m.opts.requestTimeout, false)
		if err != nil {
			return nil, fmt.Errorf("target %d: %w", i, err)
		}
		m.clients[i] = client
	}
	return m, nil
}

type manager struct {
	opts       Options
	targets    Targets
	clients    []*http.Client
	telemetry  Telemetry
	shutdownCh chan<- error
	cancel     func()

	mu sync.Mutex
	// newest reading time stored per target url
	watermarks map[string]time.Time
}

func (s *manager) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *manager) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go func() {
		defer func() {
			if s.shutdownCh != nil {
				s.shutdownCh <- nil
			}
		}()
		ticker := time.NewTicker(s.opts.scrapeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.scrapeAll(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func (s *manager) scrapeAll(ctx context.Context) {
	logger := logging.FromContext(ctx)
	errCh := make(chan error, len(s.targets))
	pool := rworker.New(s.opts.maxConcurrentRequest, errCh)
	for i := range s.targets {
		target, client := s.targets[i], s.clients[i]
		pool.Go(ctx, func(ctx context.Context) error {
			n, err := s.scrapeTarget(ctx, client, target)
			if err != nil {
				return fmt.Errorf("scrape %s: %w", target.URL, err)
			}
			logger.Debugf("scraped %d readings from %s", n, target.URL)
			return nil
		})
	}
	pool.Wait()
	close(errCh)
	for err := range errCh {
		if errors.Is(err, context.Canceled) {
			continue
		}
		logger.Warnf("scrape manager error: %v", err)
	}
}

// scrapeTarget fetches one batch and stores the sensors and the readings newer
// than the target's watermark. It returns the number of readings written.
func (s *manager) scrapeTarget(ctx context.Context, client *http.Client, target Target) (int, error) {
	batch, err := s.fetch(ctx, client, target.URL)
	if err != nil {
		return 0, err
	}
	for _, sensor := range batch.Sensors {
		if _, err := s.telemetry.UpsertSensor(ctx, sensor); err != nil {
			return 0, fmt.Errorf("store sensor %d: %w", sensor.ID, err)
		}
	}

	sort.SliceStable(batch.Readings, func(i, j int) bool {
		return batch.Readings[i].RecordedAt.Before(batch.Readings[j].RecordedAt)
	})
	s.mu.Lock()
	mark := s.watermarks[target.URL]
	s.mu.Unlock()

	fresh := batch.Readings[:0]
	for _, r := range batch.Readings {
		if !r.RecordedAt.IsZero() && !r.RecordedAt.After(mark) {
			continue
		}
		fresh = append(fresh, r)
	}
	if len(fresh) == 0 {
		return 0, nil
	}
	if _, err := s.telemetry.WriteTelemetry(ctx, fresh); err != nil {
		return 0, fmt.Errorf("store readings: %w", err)
	}

	if last := fresh[len(fresh)-1].RecordedAt; last.After(mark) {
		s.mu.Lock()
		s.watermarks[target.URL] = last
		s.mu.Unlock()
	}
	return len(fresh), nil
}

func (s *manager) fetch(ctx context.Context, client *http.Client, target string) (Batch, error) {
	var batch Batch
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return batch, fmt.Errorf("creating request error: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip")
	resp, err := client.Do(req)
	if err != nil {
		return batch, fmt.Errorf("sending request error: %w", err)
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return batch, fmt.Errorf("unable create gzip.NewReader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(reader, 512))
		return batch, fmt.Errorf("response was not 200 OK: %s", snippet)
	}

	if err := json.NewDecoder(io.LimitReader(reader, httputil.MaxBodyBytes)).Decode(&batch); err != nil {
		return batch, fmt.Errorf("decoding response error: %w", err)
	}
	return batch, nil
}
