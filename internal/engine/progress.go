package engine

import (
	"sync"
	"sync/atomic"
)

// ProgressFunc receives each 10% boundary (0, 10, ..., 100) exactly once, in
// ascending order.
type ProgressFunc func(percent int)

// Tracker counts completed publish calls from many goroutines and reports
// 10% boundaries. The count is the single source of truth; the mutex only
// serialises reporting so boundaries come out once and in order.
type Tracker struct {
	total  int64
	report ProgressFunc

	count atomic.Int64

	mu   sync.Mutex
	next atomic.Int64 // next boundary to report
}

// NewTracker returns a tracker for total publishes. A nil report is allowed.
func NewTracker(total int, report ProgressFunc) *Tracker {
	if report == nil {
		report = func(int) {}
	}
	return &Tracker{total: int64(total), report: report}
}

// Start reports the 0% boundary.
func (t *Tracker) Start() {
	t.advance(0)
}

// Increment records one completed publish and reports any boundary crossed.
func (t *Tracker) Increment() {
	n := t.count.Add(1)
	if t.total <= 0 {
		return
	}
	t.advance(int(n * 100 / t.total))
}

// Finish reports every boundary up to 100 that has not been reported yet.
// With nothing to track, only 100 follows the 0 from Start.
func (t *Tracker) Finish() {
	if t.total > 0 {
		t.advance(100)
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.next.Load() <= 100 {
		t.report(100)
		t.next.Store(110)
	}
}

// Count returns the number of increments so far.
func (t *Tracker) Count() int {
	return int(t.count.Load())
}

func (t *Tracker) advance(percent int) {
	if percent > 100 {
		percent = 100
	}
	if int64(percent) < t.next.Load() {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for b := t.next.Load(); b <= int64(percent); b += 10 {
		t.report(int(b))
		t.next.Store(b + 10)
	}
}
