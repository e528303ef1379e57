// Package entitybridge bridges hub entities onto the MQTT bus.
//
// It handles:
//   - Commands from the bus (turn_on, turn_off) dispatched to lights
//   - Retained state messages published whenever an entity reading changes
//   - State history and telemetry for every published change
//   - Health reporting with entity counts
//
// # Topics
//
//	graylogic/command/entity/{unique_id}   commands in
//	graylogic/ack/entity/{unique_id}       command acknowledgements out
//	graylogic/state/entity/{unique_id}     retained state out
//	graylogic/request/entity/{request_id}  requests in (read_all, read_state)
//	graylogic/response/entity/{request_id} responses out
//	graylogic/health/entity                retained health out
//
// Unique IDs are escaped with mqtt.EncodeTopicSegment so an ID always
// occupies a single topic level.
package entitybridge
