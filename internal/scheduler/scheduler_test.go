package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueueRunsAtDueTime(t *testing.T) {
	var ran atomic.Int32
	done := make(chan struct{})

	s := New(func(ctx context.Context, key string) error {
		ran.Add(1)
		close(done)
		return nil
	}, testr.New(t))
	s.Workers = 1

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Run(ctx)
	}()

	s.EnqueueNow("default/app")

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reconcile never ran")
	}
	cancel()
	wg.Wait()
	assert.Equal(t, int32(1), ran.Load())
}

func TestCancelDrainsPendingEntry(t *testing.T) {
	called := make(chan struct{}, 1)
	s := New(func(ctx context.Context, key string) error {
		called <- struct{}{}
		return nil
	}, testr.New(t))

	s.Enqueue("default/app", time.Now().Add(time.Hour))
	s.Cancel("default/app")

	s.mu.Lock()
	_, stillQueued := s.items["default/app"]
	s.mu.Unlock()
	assert.False(t, stillQueued)

	select {
	case <-called:
		t.Fatal("reconcile ran on a cancelled key")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRescheduleAppliesBackoffOnFailure(t *testing.T) {
	s := New(func(ctx context.Context, key string) error { return nil }, testr.New(t))
	s.BackoffStart = 100 * time.Millisecond
	s.BackoffMax = time.Second

	s.reschedule("default/app", assertErr)

	s.mu.Lock()
	e, ok := s.items["default/app"]
	s.mu.Unlock()
	require.True(t, ok)
	assert.True(t, e.dueAt.After(time.Now()))
}

var assertErr = &testError{}

type testError struct{}

func (e *testError) Error() string { return "boom" }
