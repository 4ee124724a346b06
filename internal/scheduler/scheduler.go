package scheduler

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-logr/logr"
)

// DefaultWorkers is the worker pool size §5 specifies when unconfigured.
const DefaultWorkers = 4

// DefaultBackoffStart and DefaultBackoffMax bound the exponential backoff
// applied to a key's re-enqueue after a failed reconciliation. Jitter of
// ±20% is applied by backoff.ExponentialBackOff's RandomizationFactor.
const (
	DefaultBackoffStart = 1 * time.Second
	DefaultBackoffMax   = 7 * time.Minute
	jitterFactor        = 0.2
)

// ReconcileFunc runs one reconciliation for key. A non-nil error is treated
// as a failure for backoff purposes; it is not otherwise surfaced to the
// scheduler, which only cares whether to back off the next attempt.
type ReconcileFunc func(ctx context.Context, key string) error

// Scheduler is a priority queue of reconciliations keyed by MC identity,
// drained by a bounded worker pool. At most one entry per key is ever
// queued at a time, which gives the at-most-one-in-flight guarantee for
// free: a key's next attempt is only enqueued once its current run finishes.
type Scheduler struct {
	Log     logr.Logger
	Workers int
	Reconcile ReconcileFunc

	BackoffStart time.Duration
	BackoffMax   time.Duration

	mu        sync.Mutex
	items     map[string]*entry
	queue     entryHeap
	backoffs  map[string]*backoff.ExponentialBackOff
	cancelled map[string]bool
	inFlight  map[string]context.CancelFunc
	wake      chan struct{}
}

// New returns a Scheduler ready to Run. Workers defaults to DefaultWorkers
// when zero.
func New(fn ReconcileFunc, log logr.Logger) *Scheduler {
	return &Scheduler{
		Log:          log,
		Workers:      DefaultWorkers,
		Reconcile:    fn,
		BackoffStart: DefaultBackoffStart,
		BackoffMax:   DefaultBackoffMax,
		items:        make(map[string]*entry),
		backoffs:     make(map[string]*backoff.ExponentialBackOff),
		cancelled:    make(map[string]bool),
		inFlight:     make(map[string]context.CancelFunc),
		wake:         make(chan struct{}, 1),
	}
}

// Enqueue schedules key to run at dueAt, replacing any existing pending
// entry for that key (later callers win — e.g. a forced reconcile-now
// supersedes a timer-driven entry already queued further out).
func (s *Scheduler) Enqueue(key string, dueAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cancelled, key)

	if e, ok := s.items[key]; ok {
		e.dueAt = dueAt
		heap.Fix(&s.queue, e.index)
	} else {
		e := &entry{key: key, dueAt: dueAt}
		s.items[key] = e
		heap.Push(&s.queue, e)
	}
	s.signal()
}

// EnqueueNow schedules key to run immediately, for forced reconciliation.
func (s *Scheduler) EnqueueNow(key string) { s.Enqueue(key, time.Time{}) }

// Cancel drains key's pending entry (if any) and cancels its in-flight run,
// if one is active. Used on MC deletion.
func (s *Scheduler) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelled[key] = true
	if e, ok := s.items[key]; ok {
		heap.Remove(&s.queue, e.index)
		delete(s.items, key)
	}
	delete(s.backoffs, key)
	if cancel, ok := s.inFlight[key]; ok {
		cancel()
	}
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run starts Workers goroutines draining the queue and blocks until ctx is
// cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	workers := s.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			s.workerLoop(ctx)
		}()
	}
	wg.Wait()
}

func (s *Scheduler) workerLoop(ctx context.Context) {
	for {
		key, ready, wait := s.next()
		if !ready {
			select {
			case <-ctx.Done():
				return
			case <-s.wake:
				continue
			case <-time.After(wait):
				continue
			}
		}

		if s.wasCancelled(key) {
			continue
		}

		runCtx, cancel := context.WithCancel(ctx)
		s.setInFlight(key, cancel)
		err := s.Reconcile(runCtx, key)
		s.clearInFlight(key)
		cancel()

		if ctx.Err() != nil {
			return
		}
		s.reschedule(key, err)
	}
}

// next pops the earliest-due ready entry. If the queue is empty it reports
// not-ready with a long wait; if the head isn't due yet it reports
// not-ready with the wait until it is.
func (s *Scheduler) next() (key string, ready bool, wait time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		return "", false, time.Minute
	}
	head := s.queue[0]
	now := time.Now()
	if head.dueAt.After(now) {
		return "", false, head.dueAt.Sub(now)
	}

	heap.Pop(&s.queue)
	delete(s.items, head.key)
	return head.key, true, 0
}

func (s *Scheduler) wasCancelled(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled[key]
}

func (s *Scheduler) setInFlight(key string, cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight[key] = cancel
}

func (s *Scheduler) clearInFlight(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, key)
}

// reschedule updates key's state after a run completes: on success the
// backoff state resets and nothing is enqueued, so the next run happens only
// when a caller calls Enqueue or EnqueueNow again; on failure the key's
// exponential backoff advances and the next attempt is scheduled after it.
func (s *Scheduler) reschedule(key string, err error) {
	s.mu.Lock()
	boff, ok := s.backoffs[key]
	if !ok {
		boff = backoff.NewExponentialBackOff()
		boff.InitialInterval = s.BackoffStart
		boff.MaxInterval = s.BackoffMax
		boff.RandomizationFactor = jitterFactor
		boff.Multiplier = 2
		boff.MaxElapsedTime = 0
		s.backoffs[key] = boff
	}
	cancelled := s.cancelled[key]
	s.mu.Unlock()

	if cancelled {
		return
	}

	if err == nil {
		s.mu.Lock()
		delete(s.backoffs, key)
		s.mu.Unlock()
		return
	}

	delay := boff.NextBackOff()
	s.Enqueue(key, time.Now().Add(delay))
}
