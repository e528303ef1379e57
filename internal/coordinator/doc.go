// Package coordinator holds the latest vendor snapshot for one
// configuration entry and fans updates out to listeners.
//
// A Coordinator never talks to vendor hardware itself. Fetching is behind
// the Refresher interface (in the hub, a vendorlink.Link that asks the
// vendor SDK process for a new snapshot over MQTT). Entities read the
// snapshot through Data on every access.
//
// RequestRefresh is debounced: the first call runs immediately, calls
// made during the cooldown are coalesced into one trailing refresh when
// the cooldown ends. Refresh bypasses the debouncer.
package coordinator
