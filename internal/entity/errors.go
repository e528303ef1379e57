package entity

import "errors"

// Domain errors for the entity package.
//
//	if errors.Is(err, entity.ErrKeyMissing) {
//	    // snapshot has no value for this entity yet
//	}
var (
	// ErrKeyMissing is returned by entity accessors when the coordinator
	// snapshot has no value for the entity.
	ErrKeyMissing = errors.New("entity: key missing from snapshot")

	// ErrDuplicateUniqueID is returned when an entity is added with a unique
	// ID that is already registered.
	ErrDuplicateUniqueID = errors.New("entity: duplicate unique id")

	// ErrEntityNotFound is returned when a unique ID is not registered.
	ErrEntityNotFound = errors.New("entity: not found")

	// ErrNotSupported is returned when an entity does not support an
	// operation, such as turning on a binary sensor.
	ErrNotSupported = errors.New("entity: operation not supported")

	// ErrUnavailable marks an entity whose source reports it unavailable.
	ErrUnavailable = errors.New("entity: unavailable")

	// ErrInvalidRecord is returned when a record fails validation.
	ErrInvalidRecord = errors.New("entity: invalid record")
)
