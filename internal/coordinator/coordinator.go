package coordinator

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// DefaultCooldown is the RequestRefresh debounce window.
const DefaultCooldown = 10 * time.Second

// Refresher asks the vendor side for a new snapshot. The snapshot itself
// arrives later through Update.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// RefresherFunc adapts a function to Refresher.
type RefresherFunc func(ctx context.Context) error

// Refresh calls f.
func (f RefresherFunc) Refresh(ctx context.Context) error { return f(ctx) }

// Logger defines the logging interface used by the Coordinator.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Options configure a Coordinator.
type Options struct {
	// Cooldown is the RequestRefresh debounce window. Zero selects
	// DefaultCooldown; a negative value disables debouncing.
	Cooldown time.Duration
	Logger   Logger
}

// Coordinator holds the most recent snapshot of type T for one entry.
//
// All methods are safe for concurrent use.
type Coordinator[T any] struct {
	name      string
	refresher Refresher
	debouncer *Debouncer
	logger    Logger

	mu                sync.RWMutex
	data              T
	lastUpdateSuccess bool
	lastErr           error
	lastUpdate        time.Time
	ready             chan struct{}
	readyOnce         sync.Once

	listenersMu sync.Mutex
	listeners   map[int]func()
	nextID      int
}

// New creates a coordinator named after its entry (used in logs).
func New[T any](name string, refresher Refresher, opts Options) *Coordinator[T] {
	c := &Coordinator[T]{
		name:      name,
		refresher: refresher,
		logger:    opts.Logger,
		ready:     make(chan struct{}),
		listeners: make(map[int]func()),
	}
	if c.logger == nil {
		c.logger = noopLogger{}
	}

	cooldown := opts.Cooldown
	switch {
	case cooldown == 0:
		cooldown = DefaultCooldown
	case cooldown < 0:
		cooldown = 0
	}
	c.debouncer = NewDebouncer(cooldown, c.Refresh, func(err error) {
		c.logger.Warn("debounced refresh failed", "coordinator", c.name, "error", err)
	})
	return c
}

// Name returns the coordinator name.
func (c *Coordinator[T]) Name() string {
	return c.name
}

// Data returns the current snapshot. Snapshots are replaced, never
// mutated, so the returned value may be read without locking.
func (c *Coordinator[T]) Data() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data
}

// LastUpdateSuccess reports whether the latest update succeeded.
func (c *Coordinator[T]) LastUpdateSuccess() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastUpdateSuccess
}

// LastError returns the error of the latest failed update, or nil.
func (c *Coordinator[T]) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// LastUpdate returns the time of the latest successful update.
func (c *Coordinator[T]) LastUpdate() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastUpdate
}

// Update replaces the snapshot and notifies listeners.
func (c *Coordinator[T]) Update(data T) {
	c.mu.Lock()
	c.data = data
	c.lastUpdateSuccess = true
	c.lastErr = nil
	c.lastUpdate = time.Now()
	c.mu.Unlock()

	c.markReady()
	c.notify()
}

// SetError records a failed update and notifies listeners. The previous
// snapshot is kept.
func (c *Coordinator[T]) SetError(err error) {
	c.mu.Lock()
	wasOK := c.lastUpdateSuccess
	c.lastUpdateSuccess = false
	c.lastErr = err
	c.mu.Unlock()

	if wasOK {
		c.logger.Warn("coordinator update failed", "coordinator", c.name, "error", err)
	}
	c.markReady()
	c.notify()
}

func (c *Coordinator[T]) markReady() {
	c.readyOnce.Do(func() { close(c.ready) })
}

// WaitReady blocks until the first Update or SetError. It returns
// ErrNotReady if that first result was a failure.
func (c *Coordinator[T]) WaitReady(ctx context.Context) error {
	select {
	case <-c.ready:
	case <-ctx.Done():
		return fmt.Errorf("waiting for %s: %w", c.name, ctx.Err())
	}
	if !c.LastUpdateSuccess() {
		return fmt.Errorf("%w: %s: %w", ErrNotReady, c.name, c.LastError())
	}
	return nil
}

// AddListener registers fn to run after every update. The returned
// function removes it.
func (c *Coordinator[T]) AddListener(fn func()) (remove func()) {
	c.listenersMu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.listenersMu.Unlock()

	return func() {
		c.listenersMu.Lock()
		delete(c.listeners, id)
		c.listenersMu.Unlock()
	}
}

func (c *Coordinator[T]) notify() {
	c.listenersMu.Lock()
	ids := make([]int, 0, len(c.listeners))
	for id := range c.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, c.listeners[id])
	}
	c.listenersMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// RequestRefresh asks for a new snapshot through the debouncer.
func (c *Coordinator[T]) RequestRefresh(ctx context.Context) error {
	return c.debouncer.Call(ctx)
}

// Refresh asks for a new snapshot immediately.
func (c *Coordinator[T]) Refresh(ctx context.Context) error {
	if c.refresher == nil {
		return nil
	}
	if err := c.refresher.Refresh(ctx); err != nil {
		return fmt.Errorf("refreshing %s: %w", c.name, err)
	}
	c.logger.Debug("refresh requested", "coordinator", c.name)
	return nil
}

// Close stops pending debounced refreshes.
func (c *Coordinator[T]) Close() {
	c.debouncer.Close()
}
