package coordinator

import (
	"context"
	"sync"
	"time"
)

// trailingTimeout bounds a trailing call that runs after the cooldown.
const trailingTimeout = 30 * time.Second

// Debouncer limits how often a function runs.
//
// The first Call runs the function immediately and starts the cooldown.
// Calls during the cooldown only mark a trailing run, which happens once
// when the cooldown ends and starts a new cooldown.
type Debouncer struct {
	cooldown time.Duration
	fn       func(ctx context.Context) error
	onError  func(err error)

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
	closed  bool
}

// NewDebouncer creates a debouncer. A zero cooldown disables debouncing.
// onError receives failures of trailing calls and may be nil.
func NewDebouncer(cooldown time.Duration, fn func(ctx context.Context) error, onError func(error)) *Debouncer {
	return &Debouncer{cooldown: cooldown, fn: fn, onError: onError}
}

// Call runs the function now or schedules a trailing run. It returns the
// error of an immediate run, nil when the call was coalesced.
func (d *Debouncer) Call(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	if d.cooldown <= 0 {
		d.mu.Unlock()
		return d.fn(ctx)
	}
	if d.timer != nil {
		d.pending = true
		d.mu.Unlock()
		return nil
	}
	d.timer = time.AfterFunc(d.cooldown, d.fire)
	d.mu.Unlock()

	return d.fn(ctx)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	if d.closed || !d.pending {
		d.timer = nil
		d.mu.Unlock()
		return
	}
	d.pending = false
	d.timer = time.AfterFunc(d.cooldown, d.fire)
	d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), trailingTimeout)
	defer cancel()

	if err := d.fn(ctx); err != nil && d.onError != nil {
		d.onError(err)
	}
}

// Close cancels any scheduled trailing run.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	d.pending = false
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
