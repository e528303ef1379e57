// Package entity defines the hub's generic entity abstraction.
//
// An entity is an addressable object exposing one aspect of a physical
// device: a light that can be switched, a door contact, a tamper flag.
// Integrations create entities in their setup entry point and hand them to
// an AddEntitiesFunc; the Registry collects them, persists a record of each
// one and notifies the entity bridge, which publishes their state on MQTT.
//
// Entities never own state. IsOn and the other read accessors look up the
// integration coordinator's current snapshot on every call, so the value is
// always as fresh as the last coordinator update. When the snapshot lacks an
// entity's key the accessor returns ErrKeyMissing and StateOf reports the
// entity as unavailable.
//
// The package also holds the SQLite-backed entity record repository and the
// state history repository used by the bridge.
package entity
