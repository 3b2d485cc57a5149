// Package debounce provides a trailing-edge debouncer: of a burst of calls
// arriving faster than the quiet interval, only the last one runs. It is
// domain-independent; the visualizer uses it to keep rapid color clicks
// from consuming quota.
package debounce

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of calls into a single trailing invocation.
// A zero interval runs functions immediately, which is convenient in tests.
type Debouncer struct {
	interval time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// New creates a Debouncer with the given quiet interval.
func New(interval time.Duration) *Debouncer {
	return &Debouncer{interval: interval}
}

// Do schedules fn to run after the quiet interval, cancelling any pending
// earlier call. fn runs on a timer goroutine.
func (d *Debouncer) Do(fn func()) {
	if d.interval <= 0 {
		fn()
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, fn)
}

// Stop cancels any pending call without running it.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
