// Package alert hands quality events to the configured sinks in the
// background and journals every delivery outcome.
package alert

import (
	"context"
	"fmt"
	"sync"
	"time"

	alertDb "github.com/go-sod/pqm/internal/alert/database"
	"github.com/go-sod/pqm/internal/alert/model"
	"github.com/go-sod/pqm/internal/database"
	"github.com/go-sod/pqm/internal/logging"
	"github.com/go-sod/pqm/internal/metrics"
	"go.opencensus.io/tag"
	"golang.org/x/sync/errgroup"
)

type ProvideFn = func(chan<- error) (Manager, error)

const (
	outcomeDelivered = "delivered"
	outcomeFailed    = "failed"
	outcomeDropped   = "dropped"
)

type Options struct {
	maxConcurrentRequest int
	requestTimeout       time.Duration
	queueSize            int
	sinks                []Sink
}

type Option func(*manager)

func WithMaxConcurrentRequest(n int) Option {
	return func(o *manager) {
		o.opts.maxConcurrentRequest = n
	}
}

func WithRequestTimeout(t time.Duration) Option {
	return func(o *manager) {
		o.opts.requestTimeout = t
	}
}

func WithQueueSize(n int) Option {
	return func(o *manager) {
		o.opts.queueSize = n
	}
}

func WithSinks(sinks ...Sink) Option {
	return func(o *manager) {
		o.opts.sinks = append(o.opts.sinks, sinks...)
	}
}

func New(db *database.DB, shutdownCh chan<- error, opts ...Option) (*manager, error) {
	m := &manager{
		alertDb:    alertDb.New(db),
		shutdownCh: shutdownCh,
		opts: Options{
			maxConcurrentRequest: 8,
			requestTimeout:       5 * time.Second,
			queueSize:            64,
		},
	}
	for _, f := range opts {
		f(m)
	}
	if m.opts.queueSize <= 0 || m.opts.maxConcurrentRequest <= 0 || m.opts.requestTimeout <= 0 {
		return nil, fmt.Errorf("alert manager: queue size, concurrency and timeout must be positive")
	}
	m.queue = make(chan model.Event, m.opts.queueSize)
	return m, nil
}

// Notifier accepts events without blocking the caller.
type Notifier interface {
	Notify(events ...model.Event)
}

type Manager interface {
	Notifier
	Run(context.Context) error
	Stop()
	Recent(ctx context.Context, limit int) ([]model.Record, error)
}

type manager struct {
	opts       Options
	alertDb    *alertDb.DB
	shutdownCh chan<- error
	queue      chan model.Event
	cancel     func()
}

func (m *manager) Run(ctx context.Context) error {
	if err := m.initialize(ctx); err != nil {
		return fmt.Errorf("can not start alert manager: %v", err)
	}
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	go m.notifier(ctx)
	return nil
}

func (m *manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
}

// Notify queues events for delivery. A full queue drops the event.
func (m *manager) Notify(events ...model.Event) {
	for _, e := range events {
		select {
		case m.queue <- e:
		default:
			logging.DefaultLogger().Warnf("alert queue is full, dropping %s event %s", e.EventType, e.ID)
			metrics.Record(context.Background(), map[tag.Key]string{
				metrics.KeySink:    "queue",
				metrics.KeyEvent:   string(e.EventType),
				metrics.KeyOutcome: outcomeDropped,
			}, metrics.MAlerts.M(1))
		}
	}
}

func (m *manager) Recent(ctx context.Context, limit int) ([]model.Record, error) {
	return m.alertDb.FindRecent(ctx, limit, nil)
}

// initialize requeues events that were queued but never sent when the process
// stopped. Deliveries cut off mid-flight are closed as failed, not resent.
func (m *manager) initialize(ctx context.Context) error {
	logger := logging.FromContext(ctx)
	records, err := m.alertDb.FindRecent(ctx, 0, func(r model.Record) bool {
		return r.Status == model.StatusPending || r.Status == model.StatusInFlight
	})
	if err != nil {
		return fmt.Errorf("unable fetch pending alerts: %w", err)
	}
	var restored int
	// oldest first
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		if r.Status == model.StatusInFlight {
			if err := m.alertDb.Store(ctx, model.Interrupted(r)); err != nil {
				return fmt.Errorf("unable close interrupted alert: %w", err)
			}
			logger.Warnf("alert %s event %s was interrupted during delivery", r.Event.EventType, r.Event.ID)
			continue
		}
		m.Notify(r.Event)
		restored++
	}
	if restored > 0 {
		logger.Infof("alert manager restored %d pending events", restored)
	}
	return nil
}

// shutdown journals whatever is still queued as pending and closes the sinks.
func (m *manager) shutdown() error {
	var firstErr error
	for {
		select {
		case e := <-m.queue:
			if err := m.alertDb.Store(context.Background(), model.NewPending(e)); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("alert shutdown: unable store alert: %w", err)
			}
		default:
			if err := CloseSinks(m.opts.sinks); err != nil && firstErr == nil {
				firstErr = err
			}
			return firstErr
		}
	}
}

// notifier runs maxConcurrentRequest workers over the queue. A worker takes an
// event only when it is free, so a stalled sink fills the queue and Notify
// starts dropping.
func (m *manager) notifier(ctx context.Context) {
	logger := logging.FromContext(ctx)
	// in-flight deliveries finish under their own timeout after shutdown starts
	deliverCtx := context.WithoutCancel(ctx)
	wg := sync.WaitGroup{}
	for i := 0; i < m.opts.maxConcurrentRequest; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				default:
				}
				select {
				case e := <-m.queue:
					if err := m.deliver(deliverCtx, e); err != nil {
						logger.Errorf("alert error: %v", err)
					}
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	wg.Wait()

	err := m.shutdown()
	if m.shutdownCh != nil {
		m.shutdownCh <- err
	} else if err != nil {
		logger.Errorf("alert shutdown: %v", err)
	}
}

// deliver sends e to every sink concurrently. Sink failures are logged and
// journaled, only journal failures are returned.
func (m *manager) deliver(ctx context.Context, e model.Event) error {
	logger := logging.FromContext(ctx)
	if err := m.alertDb.Store(ctx, model.NewInFlight(e)); err != nil {
		return fmt.Errorf("unable store alert: %w", err)
	}

	deliveries := make([]model.Delivery, len(m.opts.sinks))
	var g errgroup.Group
	for i, s := range m.opts.sinks {
		i, s := i, s
		g.Go(func() error {
			sctx, cancel := context.WithTimeout(ctx, m.opts.requestTimeout)
			defer cancel()
			deliveries[i] = model.Delivery{Sink: s.Name()}
			outcome := outcomeDelivered
			if err := s.Send(sctx, e); err != nil {
				logger.Warnf("alert %s event %s to %s failed: %v", e.EventType, e.ID, s.Name(), err)
				deliveries[i].Error = err.Error()
				outcome = outcomeFailed
			}
			metrics.Record(ctx, map[tag.Key]string{
				metrics.KeySink:    s.Name(),
				metrics.KeyEvent:   string(e.EventType),
				metrics.KeyOutcome: outcome,
			}, metrics.MAlerts.M(1))
			return nil
		})
	}
	_ = g.Wait()

	if err := m.alertDb.Store(ctx, model.NewRecord(e, deliveries)); err != nil {
		return fmt.Errorf("unable store alert outcome: %w", err)
	}
	return nil
}
