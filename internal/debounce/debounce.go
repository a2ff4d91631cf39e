// Package debounce coalesces bursts of input into a single downstream effect.
package debounce

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrStopped is returned to callers still waiting when a debouncer is torn down.
var ErrStopped = errors.New("debounce: stopped")

// Value delays propagation of a changing value until it has been stable for
// the configured delay. Every Set restarts the timer; the latest value is
// never dropped, only delayed.
type Value[T any] struct {
	mu      sync.Mutex
	delay   time.Duration
	timer   *time.Timer
	pending T
	out     chan T
	stopped bool
}

// NewValue constructs a value debouncer emitting on C.
func NewValue[T any](delay time.Duration) *Value[T] {
	return &Value[T]{
		delay: delay,
		out:   make(chan T, 1),
	}
}

// Set records a new source value and restarts the quiet-period timer.
func (v *Value[T]) Set(val T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.stopped {
		return
	}
	v.pending = val
	if v.timer != nil {
		v.timer.Stop()
	}
	v.timer = time.AfterFunc(v.delay, v.emit)
}

func (v *Value[T]) emit() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.stopped {
		return
	}
	// Replace any unconsumed emission so C always carries the latest value.
	select {
	case <-v.out:
	default:
	}
	v.out <- v.pending
}

// C delivers debounced values. The channel holds at most one element: the
// most recent stable value.
func (v *Value[T]) C() <-chan T {
	return v.out
}

// Stop cancels any pending emission. Further Set calls are ignored.
func (v *Value[T]) Stop() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stopped = true
	if v.timer != nil {
		v.timer.Stop()
		v.timer = nil
	}
}

// Func wraps an asynchronous function so that only the last call in any burst
// actually runs. Every caller in the burst, including superseded ones, shares
// the result of that final invocation.
type Func[A, R any] struct {
	mu      sync.Mutex
	delay   time.Duration
	fn      func(context.Context, A) (R, error)
	timer   *time.Timer
	burst   *burst[R]
	arg     A
	stopped bool
}

type burst[R any] struct {
	done   chan struct{}
	result R
	err    error
}

// NewFunc constructs a function debouncer.
func NewFunc[A, R any](fn func(context.Context, A) (R, error), delay time.Duration) *Func[A, R] {
	return &Func[A, R]{delay: delay, fn: fn}
}

// Call schedules fn with arg after the quiet period and blocks until the
// burst's final invocation completes (or ctx is done). A call superseded by a
// later one never invokes fn itself; it resolves with the later call's result.
func (f *Func[A, R]) Call(ctx context.Context, arg A) (R, error) {
	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		var zero R
		return zero, ErrStopped
	}
	f.arg = arg
	if f.burst == nil {
		f.burst = &burst[R]{done: make(chan struct{})}
	}
	current := f.burst
	if f.timer != nil {
		f.timer.Stop()
	}
	f.timer = time.AfterFunc(f.delay, f.fire)
	f.mu.Unlock()

	select {
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	case <-current.done:
		return current.result, current.err
	}
}

func (f *Func[A, R]) fire() {
	f.mu.Lock()
	if f.stopped || f.burst == nil {
		f.mu.Unlock()
		return
	}
	current := f.burst
	arg := f.arg
	f.burst = nil
	f.timer = nil
	f.mu.Unlock()

	current.result, current.err = f.fn(context.Background(), arg)
	close(current.done)
}

// Stop cancels the pending timer and releases waiting callers with ErrStopped.
// It must be called on teardown so fn is never invoked after its owner is gone.
func (f *Func[A, R]) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped {
		return
	}
	f.stopped = true
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	if f.burst != nil {
		f.burst.err = ErrStopped
		close(f.burst.done)
		f.burst = nil
	}
}
