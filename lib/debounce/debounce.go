// Package debounce collapses bursts of calls into the last one.
package debounce

import (
	"sync"
	"time"
)

// Debouncer owns a single timer. Each Call cancels the pending function and
// schedules the new one, so only the last call inside the window runs.
type Debouncer struct {
	window time.Duration
	mu     sync.Mutex
	timer  *time.Timer
	gen    uint64
}

func New(window time.Duration) *Debouncer {
	return &Debouncer{window: window}
}

func (d *Debouncer) Call(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.window, func() {
		d.mu.Lock()
		current := gen == d.gen
		if current {
			d.timer = nil
		}
		d.mu.Unlock()
		if current {
			fn()
		}
	})
}

// Cancel drops the pending call, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}
