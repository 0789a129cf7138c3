package rworker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolBoundsConcurrency(t *testing.T) {
	tests := []struct {
		name     string
		size     int
		jobs     int
		expected int32
	}{
		{name: "one", size: 1, jobs: 5, expected: 1},
		{name: "three", size: 3, jobs: 12, expected: 3},
		{name: "zero_means_one", size: 0, jobs: 4, expected: 1},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var running, peak int32
			p := New(test.size, nil)
			for i := 0; i < test.jobs; i++ {
				p.Go(context.Background(), func(context.Context) error {
					n := atomic.AddInt32(&running, 1)
					for {
						old := atomic.LoadInt32(&peak)
						if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
							break
						}
					}
					time.Sleep(5 * time.Millisecond)
					atomic.AddInt32(&running, -1)
					return nil
				})
			}
			p.Wait()
			if peak != test.expected {
				t.Errorf("peak concurrency, got: %v, expected: %v", peak, test.expected)
			}
		})
	}
}

func TestPoolReportsErrors(t *testing.T) {
	errCh := make(chan error, 4)
	p := New(2, errCh)
	boom := errors.New("boom")
	for i := 0; i < 3; i++ {
		i := i
		p.Go(context.Background(), func(context.Context) error {
			if i == 1 {
				return nil
			}
			return boom
		})
	}
	p.Wait()
	close(errCh)
	var n int
	for err := range errCh {
		if !errors.Is(err, boom) {
			t.Errorf("error, got: %v, expected: %v", err, boom)
		}
		n++
	}
	if n != 2 {
		t.Errorf("reported errors, got: %v, expected: %v", n, 2)
	}
}

func TestPoolDropsWaitingJobsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	p := New(1, errCh)

	release := make(chan struct{})
	started := make(chan struct{})
	p.Go(context.Background(), func(context.Context) error {
		close(started)
		<-release
		return nil
	})
	<-started

	var ran int32
	p.Go(ctx, func(context.Context) error {
		atomic.StoreInt32(&ran, 1)
		return nil
	})
	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error, got: %v, expected: %v", err, context.Canceled)
		}
	case <-time.After(time.Second):
		t.Fatal("waiting job was not dropped")
	}
	close(release)
	p.Wait()
	if atomic.LoadInt32(&ran) != 0 {
		t.Errorf("dropped job ran")
	}
}
