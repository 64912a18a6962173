/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package debounce

import (
	"sync"
	"time"
)

// Debouncer delays invocations of a function until the calls have stopped for the wait period.
// It is safe for concurrent use.
type Debouncer[A any] struct {
	wait time.Duration
	fn   func(A)

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	args    A
	pending bool
}

// New creates a new Debouncer that invokes fn after wait has elapsed since the last call.
func New[A any](wait time.Duration, fn func(A)) *Debouncer[A] {
	return &Debouncer[A]{wait: wait, fn: fn}
}

// Func returns a function that debounces invocations of fn.
func Func[A any](fn func(A), wait time.Duration) func(A) {
	return New(wait, fn).Call
}

// Call cancels the pending invocation, if any, and schedules fn(args) after the wait period.
func (d *Debouncer[A]) Call(args A) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()
	d.gen++
	d.args = args
	d.pending = true
	gen := d.gen
	d.timer = time.AfterFunc(d.wait, func() {
		d.fire(gen)
	})
}

// Cancel drops the pending invocation. It reports whether there was one.
func (d *Debouncer[A]) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.pending {
		return false
	}
	d.stopLocked()
	d.gen++
	d.clearLocked()
	return true
}

// Flush runs the pending invocation right away on the calling goroutine. It reports whether there was one.
func (d *Debouncer[A]) Flush() bool {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return false
	}
	d.stopLocked()
	d.gen++
	args := d.args
	d.clearLocked()
	d.mu.Unlock()

	d.fn(args)
	return true
}

// Pending reports whether an invocation is scheduled.
func (d *Debouncer[A]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

func (d *Debouncer[A]) fire(gen uint64) {
	d.mu.Lock()
	// The timer may have fired right before it was stopped by a newer call.
	if gen != d.gen || !d.pending {
		d.mu.Unlock()
		return
	}
	args := d.args
	d.clearLocked()
	d.mu.Unlock()

	d.fn(args)
}

func (d *Debouncer[A]) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Debouncer[A]) clearLocked() {
	var zero A
	d.args = zero
	d.pending = false
}
