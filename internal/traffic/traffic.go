// Package traffic keeps sliding windows of upstream call outcomes. The health
// endpoint reads the error rate to decide whether the widget is degraded.
package traffic

import (
	"sync"
	"time"
)

// maxAge bounds how long outcomes are retained regardless of the query window.
const maxAge = 5 * time.Minute

var defaultTracker Tracker

// RecordSuccess records a successful upstream call.
func RecordSuccess() {
	defaultTracker.RecordSuccess()
}

// RecordError records a failed upstream call (5xx, 429, timeout, network).
func RecordError() {
	defaultTracker.RecordError()
}

// RecordSuccessN records N successful outcomes. For tests.
func RecordSuccessN(n int) {
	defaultTracker.RecordSuccessN(n)
}

// RecordErrorN records N error outcomes. For tests.
func RecordErrorN(n int) {
	defaultTracker.RecordErrorN(n)
}

// ErrorRate returns (errorCount, totalCount) within the window.
func ErrorRate(window time.Duration) (errors, total int) {
	return defaultTracker.ErrorRate(window)
}

// Degraded reports whether the error rate within window is at least thresholdPct.
func Degraded(window time.Duration, thresholdPct int) bool {
	return defaultTracker.Degraded(window, thresholdPct)
}

// Reset clears all recorded outcomes. For tests only.
func Reset() {
	defaultTracker.Reset()
}

// Tracker maintains sliding windows of outcome timestamps.
type Tracker struct {
	mu           sync.Mutex
	successTimes []time.Time
	errorTimes   []time.Time
	now          func() time.Time
}

// RecordSuccess records a successful outcome in the tracker.
func (t *Tracker) RecordSuccess() {
	t.RecordSuccessN(1)
}

// RecordError records a failed outcome in the tracker.
func (t *Tracker) RecordError() {
	t.RecordErrorN(1)
}

// RecordSuccessN records N successful outcomes atomically.
func (t *Tracker) RecordSuccessN(n int) {
	t.recordN(&t.successTimes, n)
}

// RecordErrorN records N error outcomes atomically.
func (t *Tracker) RecordErrorN(n int) {
	t.recordN(&t.errorTimes, n)
}

func (t *Tracker) recordN(slice *[]time.Time, n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clock()
	for i := 0; i < n; i++ {
		*slice = append(*slice, now)
	}
	t.pruneLocked(now)
}

// ErrorRate returns (errorCount, totalCount) within the window.
func (t *Tracker) ErrorRate(window time.Duration) (errors, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.clock().Add(-window)
	errCount := countInWindow(t.errorTimes, cutoff)
	return errCount, errCount + countInWindow(t.successTimes, cutoff)
}

// Degraded reports whether errors make up at least thresholdPct of the
// outcomes within window. No outcomes is never degraded.
func (t *Tracker) Degraded(window time.Duration, thresholdPct int) bool {
	errs, total := t.ErrorRate(window)
	if total == 0 {
		return false
	}
	return errs*100 >= thresholdPct*total
}

// Reset clears all recorded outcomes.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.successTimes = nil
	t.errorTimes = nil
}

func (t *Tracker) clock() time.Time {
	if t.now != nil {
		return t.now()
	}
	return time.Now()
}

func countInWindow(times []time.Time, cutoff time.Time) int {
	n := 0
	for _, ts := range times {
		if !ts.Before(cutoff) {
			n++
		}
	}
	return n
}

// pruneLocked drops timestamps older than maxAge. Must be called with mutex held.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-maxAge)
	prune := func(slice *[]time.Time) {
		times := *slice
		i := 0
		for ; i < len(times) && times[i].Before(cutoff); i++ {
		}
		if i > 0 {
			*slice = append(times[:0], times[i:]...)
		}
	}
	prune(&t.successTimes)
	prune(&t.errorTimes)
}
