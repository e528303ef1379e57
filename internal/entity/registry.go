package entity

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registered is an entity together with the entry that created it.
type Registered struct {
	Entity Entity
	Entry  ConfigEntry
}

// AddListener is notified for each entity accepted by the Registry.
type AddListener func(Registered)

// Registry holds the live entities of every configuration entry, keyed by
// unique ID. Records are written through to the Repository when one is set.
//
// All public methods are thread-safe.
type Registry struct {
	repo Repository

	mu       sync.RWMutex
	entities map[string]Registered
	order    []string

	listenersMu sync.RWMutex
	listeners   []AddListener

	logger Logger
}

// NewRegistry creates an entity registry. repo may be nil, in which case
// nothing is persisted.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:     repo,
		entities: make(map[string]Registered),
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// OnAdd registers a listener for newly added entities.
func (r *Registry) OnAdd(fn AddListener) {
	r.listenersMu.Lock()
	r.listeners = append(r.listeners, fn)
	r.listenersMu.Unlock()
}

// Add registers entities created by an entry. Entities whose unique ID is
// already registered are skipped; the others are still added. The returned
// error joins one ErrDuplicateUniqueID or persistence error per skipped or
// failed entity.
func (r *Registry) Add(ctx context.Context, entry ConfigEntry, entities ...Entity) error {
	var errs []error

	for _, e := range entities {
		uid := e.UniqueID()

		r.mu.Lock()
		if _, exists := r.entities[uid]; exists {
			r.mu.Unlock()
			r.logger.Warn("duplicate entity unique id skipped",
				"unique_id", uid,
				"domain", entry.Domain,
				"entry_id", entry.EntryID,
			)
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateUniqueID, uid))
			continue
		}
		reg := Registered{Entity: e, Entry: entry}
		r.entities[uid] = reg
		r.order = append(r.order, uid)
		r.mu.Unlock()

		if r.repo != nil {
			if err := r.repo.Upsert(ctx, NewRecord(entry, e)); err != nil {
				// The entity stays live; only its record is missing.
				r.logger.Error("persisting entity record failed", "unique_id", uid, "error", err)
				errs = append(errs, err)
			}
		}

		r.logger.Debug("entity added",
			"unique_id", uid,
			"platform", string(e.Platform()),
			"domain", entry.Domain,
		)
		r.notify(reg)
	}

	return errors.Join(errs...)
}

// AddEntitiesFunc returns the callback handed to an entry's setup. Errors
// from Add are logged by the registry and otherwise dropped.
func (r *Registry) AddEntitiesFunc(ctx context.Context, entry ConfigEntry) AddEntitiesFunc {
	return func(entities []Entity) {
		_ = r.Add(ctx, entry, entities...) //nolint:errcheck // Logged inside Add
	}
}

func (r *Registry) notify(reg Registered) {
	r.listenersMu.RLock()
	listeners := slices.Clone(r.listeners)
	r.listenersMu.RUnlock()

	for _, fn := range listeners {
		fn(reg)
	}
}

// Get returns a registered entity or ErrEntityNotFound.
func (r *Registry) Get(uniqueID string) (Registered, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.entities[uniqueID]
	if !ok {
		return Registered{}, fmt.Errorf("%w: %s", ErrEntityNotFound, uniqueID)
	}
	return reg, nil
}

// Light returns a registered light or an error if the unique ID is unknown
// (ErrEntityNotFound) or not a light (ErrNotSupported).
func (r *Registry) Light(uniqueID string) (Light, error) {
	reg, err := r.Get(uniqueID)
	if err != nil {
		return nil, err
	}
	l, ok := reg.Entity.(Light)
	if !ok {
		return nil, fmt.Errorf("%w: %s is a %s", ErrNotSupported, uniqueID, reg.Entity.Platform())
	}
	return l, nil
}

// All returns every registered entity in insertion order.
func (r *Registry) All() []Registered {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Registered, 0, len(r.order))
	for _, uid := range r.order {
		out = append(out, r.entities[uid])
	}
	return out
}

// ByEntry returns the entities created by one entry, in insertion order.
func (r *Registry) ByEntry(entryID string) []Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Entity
	for _, uid := range r.order {
		if reg := r.entities[uid]; reg.Entry.EntryID == entryID {
			out = append(out, reg.Entity)
		}
	}
	return out
}

// Count returns the number of registered entities.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entities)
}

// CountByPlatform returns entity counts keyed by platform.
func (r *Registry) CountByPlatform() map[Platform]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[Platform]int)
	for _, reg := range r.entities {
		out[reg.Entity.Platform()]++
	}
	return out
}

// Prune deletes persisted records of an entry that were not registered in
// this run, such as devices removed from the vendor hub. It returns the
// number of records deleted.
func (r *Registry) Prune(ctx context.Context, entry ConfigEntry) (int, error) {
	if r.repo == nil {
		return 0, nil
	}

	records, err := r.repo.ListByEntry(ctx, entry.Domain, entry.EntryID)
	if err != nil {
		return 0, fmt.Errorf("listing records for %s: %w", entry.EntryID, err)
	}

	deleted := 0
	for _, rec := range records {
		if _, err := r.Get(rec.UniqueID); err == nil {
			continue
		}
		if err := r.repo.Delete(ctx, rec.UniqueID); err != nil && !errors.Is(err, ErrEntityNotFound) {
			return deleted, fmt.Errorf("deleting stale record %s: %w", rec.UniqueID, err)
		}
		deleted++
	}

	if deleted > 0 {
		r.logger.Info("stale entity records pruned", "entry_id", entry.EntryID, "count", deleted)
	}
	return deleted, nil
}
