// Package scheduler maintains a priority queue of ManagedConfiguration
// reconciliations keyed by MC identity, with per-key at-most-one-in-flight,
// exponential backoff with jitter on failure, and a bounded worker pool.
package scheduler

import (
	"container/heap"
	"time"
)

// entry is one scheduled reconciliation, ordered by DueAt.
type entry struct {
	key          string
	dueAt        time.Time
	failureCount int
	index        int // heap.Interface bookkeeping
}

// entryHeap is a min-heap on dueAt, implementing container/heap.Interface.
type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool { return h[i].dueAt.Before(h[j].dueAt) }
func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}

func (h *entryHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

var _ heap.Interface = (*entryHeap)(nil)
