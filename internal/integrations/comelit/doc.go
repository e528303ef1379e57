// Package comelit exposes the lights of a Comelit serial bridge as hub
// entities.
//
// The bridge has no serial number or MAC address to build identifiers from,
// so entity unique IDs are derived from the configuration entry ID and the
// light's index on the bridge.
package comelit
