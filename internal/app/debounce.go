package app

import (
	"sync"
	"time"
)

// Debouncer runs the most recent action once triggers have been quiet for the
// interval. Actions run through post, so they execute on the control goroutine.
type Debouncer struct {
	mu       sync.Mutex
	interval time.Duration
	post     func(func())
	timer    *time.Timer
	seq      uint64
}

// NewDebouncer creates a Debouncer. A nil post runs the action on the timer's
// goroutine.
func NewDebouncer(interval time.Duration, post func(func())) *Debouncer {
	if post == nil {
		post = func(fn func()) { fn() }
	}
	return &Debouncer{interval: interval, post: post}
}

// Trigger cancels any pending action and schedules action after the interval.
func (d *Debouncer) Trigger(action func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.timer = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		current := seq == d.seq
		if current {
			d.timer = nil
		}
		d.mu.Unlock()
		if current {
			d.post(action)
		}
	})
}

// Stop cancels any pending action.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
}
