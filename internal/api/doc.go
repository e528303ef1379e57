// Package api implements the HTTP REST API and WebSocket server for the hub.
//
// This package provides:
//   - REST endpoints to list entities, read their live state and history
//   - Light commands executed through the entity bridge
//   - Integration entry status, including the supervised vendor SDK process
//   - WebSocket hub for state change broadcasts, filterable per entity
//   - Prometheus metrics on /metrics
//
// # Architecture
//
// The API server sits beside the entity bridge. Reads go straight to the
// entity registry, so a state read is a live lookup into the owning
// coordinator's snapshot. Commands are handed to the bridge, which runs them
// exactly as it runs MQTT commands and also publishes the ack on the bus.
// Every state the bridge publishes is relayed to WebSocket clients
// subscribed to "entity.state_changed":
//
//	{"type":"subscribe","id":"1","payload":{"channels":["entity.state_changed"],"entity_ids":["01J0COMELIT-3"]}}
//
// # Graceful Degradation
//
// The bridge, history repository and entry provider are optional. Without
// them the endpoints that need them answer 503; everything else works.
package api
