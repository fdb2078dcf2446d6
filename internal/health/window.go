package health

import (
	"sync"
	"time"
)

// rollbackWindow keeps rollback timestamps inside a sliding time window.
type rollbackWindow struct {
	mu     sync.Mutex
	span   time.Duration
	stamps []time.Time
}

func newRollbackWindow(span time.Duration) *rollbackWindow {
	return &rollbackWindow{span: span}
}

// record adds a rollback at the given time and returns the count remaining
// inside the window.
func (w *rollbackWindow) record(at time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stamps = append(w.stamps, at)
	return w.pruneLocked(at)
}

// countAt returns how many rollbacks fall inside the window ending at now.
func (w *rollbackWindow) countAt(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pruneLocked(now)
}

func (w *rollbackWindow) pruneLocked(now time.Time) int {
	cutoff := now.Add(-w.span)
	kept := w.stamps[:0]
	for _, stamp := range w.stamps {
		if stamp.After(cutoff) {
			kept = append(kept, stamp)
		}
	}
	w.stamps = kept
	return len(w.stamps)
}

// outcomeRing holds the last N deployment outcomes as a failure-rate sample.
type outcomeRing struct {
	mu       sync.Mutex
	size     int
	outcomes []bool // true = failure
	next     int
	filled   bool
}

func newOutcomeRing(size int) *outcomeRing {
	if size <= 0 {
		size = 20
	}
	return &outcomeRing{size: size, outcomes: make([]bool, size)}
}

// record appends one outcome and returns the current failure rate along with
// how many samples back it.
func (r *outcomeRing) record(failed bool) (float64, int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.outcomes[r.next] = failed
	r.next++
	if r.next == r.size {
		r.next = 0
		r.filled = true
	}
	return r.rateLocked()
}

func (r *outcomeRing) rate() (float64, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rateLocked()
}

func (r *outcomeRing) rateLocked() (float64, int) {
	count := r.size
	if !r.filled {
		count = r.next
	}
	if count == 0 {
		return 0, 0
	}
	failures := 0
	for i := 0; i < count; i++ {
		if r.outcomes[i] {
			failures++
		}
	}
	return float64(failures) / float64(count), count
}

// mttrTracker averages recovery durations over a bounded sample.
type mttrTracker struct {
	mu      sync.Mutex
	samples []time.Duration
	max     int
}

func newMTTRTracker(max int) *mttrTracker {
	if max <= 0 {
		max = 50
	}
	return &mttrTracker{max: max}
}

// record adds one incident recovery duration and returns the running mean.
func (t *mttrTracker) record(d time.Duration) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.samples = append(t.samples, d)
	if len(t.samples) > t.max {
		t.samples = t.samples[1:]
	}
	return t.meanLocked()
}

func (t *mttrTracker) mean() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.meanLocked()
}

func (t *mttrTracker) meanLocked() time.Duration {
	if len(t.samples) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range t.samples {
		total += d
	}
	return total / time.Duration(len(t.samples))
}
