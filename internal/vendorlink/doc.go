// Package vendorlink connects a coordinator to a vendor SDK process over MQTT.
//
// Vendor network I/O (the Comelit serial bridge protocol, the Yale cloud
// API, the AVM home automation API) runs outside the hub. For each
// configuration entry the SDK process and the hub exchange:
//
//	graylogic/vendor/{domain}/{entry}/snapshot  SDK → hub, retained  {"timestamp", "data", "error"}
//	graylogic/vendor/{domain}/{entry}/refresh   hub → SDK            {"id", "timestamp"}
//	graylogic/vendor/{domain}/{entry}/command   hub → SDK            {"id", "method", "args", "timestamp"}
//	graylogic/vendor/{domain}/{entry}/result    SDK → hub            {"id", "success", "error"}
//
// A Link decodes snapshots into the coordinator's snapshot type, implements
// coordinator.Refresher, and sends commands, optionally waiting for the
// SDK's result so vendor errors reach the caller.
package vendorlink
