// Package mqtt is the hub's broker connection and topic layout.
//
// Two conversations share the bus:
//
//	vendor SDK process <-> graylogic/vendor/{domain}/{entry}/... <-> vendorlink
//	dashboards, rules  <-> graylogic/{state,command,ack}/entity/... <-> entitybridge
//
// Topics builds every topic name; identifiers are escaped with
// EncodeTopicSegment so a unique ID always fills exactly one level.
//
// The hub announces itself on graylogic/hub/status: "online" on every
// connect, "offline" on Close, and the broker sends the "offline" last will
// if the hub vanishes.
//
//	client, err := mqtt.Connect(cfg.MQTT, version)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
package mqtt
