package cron

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/premium_bot/internal/service"
)

type countingReconciler struct {
	calls  atomic.Int32
	dryRun atomic.Bool
	err    error
}

func (r *countingReconciler) Run(ctx context.Context, now time.Time, dryRun bool) (*service.ReconcileResult, error) {
	r.calls.Add(1)
	r.dryRun.Store(dryRun)
	if r.err != nil {
		return nil, r.err
	}
	return &service.ReconcileResult{DryRun: dryRun}, nil
}

// overlapReconciler 记录同时在跑的对账数的峰值
type overlapReconciler struct {
	active  atomic.Int32
	maxSeen atomic.Int32
	calls   atomic.Int32
}

func (r *overlapReconciler) Run(ctx context.Context, now time.Time, dryRun bool) (*service.ReconcileResult, error) {
	n := r.active.Add(1)
	defer r.active.Add(-1)
	for {
		seen := r.maxSeen.Load()
		if n <= seen || r.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	r.calls.Add(1)
	time.Sleep(15 * time.Millisecond)
	return &service.ReconcileResult{DryRun: dryRun}, nil
}

func newTestService(r Reconciler, ready <-chan struct{}, interval time.Duration) *Service {
	s := NewService(r, 1, ready)
	s.interval = interval
	return s
}

func TestNewService_DefaultInterval(t *testing.T) {
	s := NewService(&countingReconciler{}, 0, nil)
	assert.Equal(t, 30*time.Minute, s.interval)

	s = NewService(&countingReconciler{}, 5, nil)
	assert.Equal(t, 5*time.Minute, s.interval)
}

func TestService_WaitsForReady(t *testing.T) {
	r := &countingReconciler{}
	ready := make(chan struct{})
	s := newTestService(r, ready, 10*time.Millisecond)

	s.Start(context.Background())
	defer s.Stop()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), r.calls.Load(), "no run before ready")

	close(ready)
	assert.Eventually(t, func() bool {
		return r.calls.Load() > 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.False(t, r.dryRun.Load())
}

func TestService_NoRunOnStart(t *testing.T) {
	r := &countingReconciler{}
	ready := make(chan struct{})
	close(ready)
	s := newTestService(r, ready, time.Hour)

	s.Start(context.Background())
	defer s.Stop()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), r.calls.Load())
}

func TestService_KeepsTickingAfterFailure(t *testing.T) {
	r := &countingReconciler{err: errors.New("db down")}
	ready := make(chan struct{})
	close(ready)
	s := newTestService(r, ready, 10*time.Millisecond)

	var reported atomic.Int32
	s.OnError(func(_ context.Context, err error) {
		if err.Error() == "db down" {
			reported.Add(1)
		}
	})

	s.Start(context.Background())
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return r.calls.Load() >= 2 && reported.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestService_StopBeforeReady(t *testing.T) {
	r := &countingReconciler{}
	s := newTestService(r, make(chan struct{}), 10*time.Millisecond)

	s.Start(context.Background())
	s.Stop()
	s.Stop()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), r.calls.Load())
}

func TestService_RunNow(t *testing.T) {
	r := &countingReconciler{}
	s := NewService(r, 30, make(chan struct{}))

	result, err := s.RunNow(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, result.DryRun)
	assert.Equal(t, int32(1), r.calls.Load())
}

func TestService_RunNowDoesNotOverlapScheduledRun(t *testing.T) {
	r := &overlapReconciler{}
	ready := make(chan struct{})
	close(ready)
	s := newTestService(r, ready, 5*time.Millisecond)

	s.Start(context.Background())
	defer s.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 3; j++ {
				_, err := s.RunNow(context.Background(), true)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	assert.Eventually(t, func() bool {
		return r.calls.Load() > 12
	}, 2*time.Second, 10*time.Millisecond, "scheduled runs keep firing")
	assert.Equal(t, int32(1), r.maxSeen.Load())
}
