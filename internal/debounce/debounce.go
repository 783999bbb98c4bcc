// Package debounce delays propagation of a changing value until it has been
// stable for a quiet period.
package debounce

import (
	"sync"
	"time"
)

// Debouncer emits the last value passed to Set once no further Set call has
// happened for delay. Only the trailing edge fires.
type Debouncer[T any] struct {
	mu      sync.Mutex
	delay   time.Duration
	emit    func(T)
	timer   *time.Timer
	gen     uint64
	pending T
	armed   bool
	settled T
	hasVal  bool
	stopped bool
}

// New creates a Debouncer that calls emit from its own goroutine.
func New[T any](delay time.Duration, emit func(T)) *Debouncer[T] {
	return &Debouncer[T]{delay: delay, emit: emit}
}

// Set (re)arms the timer with v. A timer superseded by a later Set never emits.
func (d *Debouncer[T]) Set(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.pending = v
	d.armed = true
	d.timer = time.AfterFunc(d.delay, func() {
		d.fire(gen)
	})
}

// flush emits the pending value immediately, if any.
func (d *Debouncer[T]) flush() {
	d.mu.Lock()
	if d.stopped || !d.armed {
		d.mu.Unlock()
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	v := d.settle()
	d.mu.Unlock()

	d.callEmit(v)
}

// value returns the last settled value and whether one exists yet.
func (d *Debouncer[T]) value() (T, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.settled, d.hasVal
}

// Cancel discards the pending value, if any, without stopping the Debouncer.
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.armed = false
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Stop discards any pending value. Later Set calls are ignored.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.armed = false
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Debouncer[T]) fire(gen uint64) {
	d.mu.Lock()
	if d.stopped || gen != d.gen || !d.armed {
		d.mu.Unlock()
		return
	}
	v := d.settle()
	d.mu.Unlock()

	d.callEmit(v)
}

// settle must be called with mu held.
func (d *Debouncer[T]) settle() T {
	v := d.pending
	d.settled = v
	d.hasVal = true
	d.armed = false
	d.timer = nil
	return v
}

func (d *Debouncer[T]) callEmit(v T) {
	if d.emit != nil {
		d.emit(v)
	}
}
