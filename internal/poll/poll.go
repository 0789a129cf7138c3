// Package poll runs the anomaly and performance checks on fixed intervals.
package poll

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-sod/pqm/internal/logging"
	"github.com/go-sod/pqm/internal/performance"
	"github.com/go-sod/pqm/internal/quality"
)

// Checker runs the quality checks. Alerts are dispatched by the checker.
type Checker interface {
	CheckAnomalies(ctx context.Context) quality.AnomalyReport
	CheckPerformance(ctx context.Context) performance.Report
}

type Manager interface {
	Run(context.Context) error
	Stop()
}

type ProvideFn = func(Checker, chan<- error) (Manager, error)

type Option func(*manager)

func WithAnomalyInterval(d time.Duration) Option {
	return func(m *manager) {
		m.anomalyInterval = d
	}
}

func WithPerformanceInterval(d time.Duration) Option {
	return func(m *manager) {
		m.performanceInterval = d
	}
}

func New(checker Checker, shutdownCh chan<- error, opts ...Option) (*manager, error) {
	if checker == nil {
		return nil, fmt.Errorf("checker is not defined")
	}
	m := &manager{checker: checker, shutdownCh: shutdownCh}
	for _, opt := range opts {
		opt(m)
	}
	if m.anomalyInterval < 0 || m.performanceInterval < 0 {
		return nil, fmt.Errorf("poll intervals must not be negative")
	}
	return m, nil
}

type manager struct {
	checker             Checker
	anomalyInterval     time.Duration
	performanceInterval time.Duration
	shutdownCh          chan<- error
	cancel              func()
}

func (m *manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
}

// Run starts one loop per enabled check. The shutdown channel receives a
// single value after every loop has returned.
func (m *manager) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	logger := logging.FromContext(ctx)

	var wg sync.WaitGroup
	if m.anomalyInterval > 0 {
		logger.Infof("polling anomaly check every %v", m.anomalyInterval)
		m.loop(ctx, &wg, m.anomalyInterval, m.checkAnomalies)
	}
	if m.performanceInterval > 0 {
		logger.Infof("polling performance check every %v", m.performanceInterval)
		m.loop(ctx, &wg, m.performanceInterval, m.checkPerformance)
	}
	go func() {
		wg.Wait()
		<-ctx.Done()
		if m.shutdownCh != nil {
			m.shutdownCh <- nil
		}
	}()
	return nil
}

func (m *manager) loop(ctx context.Context, wg *sync.WaitGroup, every time.Duration, fn func(context.Context)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				fn(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (m *manager) checkAnomalies(ctx context.Context) {
	report := m.checker.CheckAnomalies(ctx)
	if len(report.Anomalies) > 0 {
		logging.FromContext(ctx).Infof("poll: %d anomaly rules fired, notified: %v", len(report.Anomalies), report.Notified)
	}
}

func (m *manager) checkPerformance(ctx context.Context) {
	report := m.checker.CheckPerformance(ctx)
	logger := logging.FromContext(ctx)
	switch report.Status {
	case performance.StatusAlert:
		logger.Warnf("poll: model performance degraded: %s", report.Message)
	case performance.StatusSkipped:
		logger.Debugf("poll: performance check skipped: %s", report.Message)
	}
}
