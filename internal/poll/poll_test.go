package poll

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-sod/pqm/internal/performance"
	"github.com/go-sod/pqm/internal/quality"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingChecker struct {
	anomalies   int32
	performance int32
}

func (c *countingChecker) CheckAnomalies(context.Context) quality.AnomalyReport {
	atomic.AddInt32(&c.anomalies, 1)
	return quality.AnomalyReport{}
}

func (c *countingChecker) CheckPerformance(context.Context) performance.Report {
	atomic.AddInt32(&c.performance, 1)
	return performance.Report{Status: performance.StatusOK}
}

func TestRunCallsEnabledChecks(t *testing.T) {
	tests := []struct {
		name                string
		anomalyInterval     time.Duration
		performanceInterval time.Duration
		expectAnomalies     bool
		expectPerformance   bool
	}{
		{name: "both", anomalyInterval: 5 * time.Millisecond, performanceInterval: 5 * time.Millisecond, expectAnomalies: true, expectPerformance: true},
		{name: "anomaly_only", anomalyInterval: 5 * time.Millisecond, expectAnomalies: true},
		{name: "performance_only", performanceInterval: 5 * time.Millisecond, expectPerformance: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			checker := &countingChecker{}
			shutdownCh := make(chan error, 1)
			m, err := New(checker, shutdownCh, WithAnomalyInterval(test.anomalyInterval), WithPerformanceInterval(test.performanceInterval))
			require.NoError(t, err)
			require.NoError(t, m.Run(context.Background()))

			require.Eventually(t, func() bool {
				a := atomic.LoadInt32(&checker.anomalies) > 0
				p := atomic.LoadInt32(&checker.performance) > 0
				return a == test.expectAnomalies && p == test.expectPerformance
			}, 2*time.Second, 5*time.Millisecond)

			m.Stop()
			select {
			case err := <-shutdownCh:
				assert.NoError(t, err)
			case <-time.After(2 * time.Second):
				t.Fatal("poller did not stop")
			}
			if !test.expectAnomalies {
				assert.Zero(t, atomic.LoadInt32(&checker.anomalies))
			}
			if !test.expectPerformance {
				assert.Zero(t, atomic.LoadInt32(&checker.performance))
			}
		})
	}
}

func TestNewRejects(t *testing.T) {
	_, err := New(nil, nil)
	assert.Error(t, err)
	_, err = New(&countingChecker{}, nil, WithAnomalyInterval(-time.Second))
	assert.Error(t, err)
}

func TestConfigEnabled(t *testing.T) {
	assert.False(t, (&Config{}).Enabled())
	assert.True(t, (&Config{PerformanceInterval: time.Minute}).Enabled())
}
