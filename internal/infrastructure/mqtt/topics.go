package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes. All hub topics live below "graylogic".
const (
	// TopicPrefix is the root of every hub topic.
	TopicPrefix = "graylogic"

	// TopicPrefixHub is the base for hub process topics.
	TopicPrefixHub = "graylogic/hub"

	// TopicPrefixVendor is the base for vendor SDK link topics.
	TopicPrefixVendor = "graylogic/vendor"
)

// Topics provides builders for hub MQTT topics.
// Using these helpers keeps topic naming consistent across packages.
//
//	topics := mqtt.Topics{}
//	topics.EntityState("01J0COMELIT-3")
//	// Returns: "graylogic/state/entity/01J0COMELIT-3"
type Topics struct{}

// =============================================================================
// Entity Topics
// =============================================================================

// EntityState returns the retained state topic for an entity.
//
// Example: graylogic/state/entity/01J0COMELIT-3
func (Topics) EntityState(uniqueID string) string {
	return fmt.Sprintf("%s/state/entity/%s", TopicPrefix, EncodeTopicSegment(uniqueID))
}

// EntityCommand returns the command topic for an entity.
//
// Example: graylogic/command/entity/01J0COMELIT-3
func (Topics) EntityCommand(uniqueID string) string {
	return fmt.Sprintf("%s/command/entity/%s", TopicPrefix, EncodeTopicSegment(uniqueID))
}

// EntityAck returns the command acknowledgement topic for an entity.
//
// Example: graylogic/ack/entity/01J0COMELIT-3
func (Topics) EntityAck(uniqueID string) string {
	return fmt.Sprintf("%s/ack/entity/%s", TopicPrefix, EncodeTopicSegment(uniqueID))
}

// EntityRequest returns the request topic for entity bridge requests.
//
// Example: graylogic/request/entity/req-abc123
func (Topics) EntityRequest(requestID string) string {
	return fmt.Sprintf("%s/request/entity/%s", TopicPrefix, requestID)
}

// EntityResponse returns the response topic for entity bridge requests.
//
// Example: graylogic/response/entity/req-abc123
func (Topics) EntityResponse(requestID string) string {
	return fmt.Sprintf("%s/response/entity/%s", TopicPrefix, requestID)
}

// EntityHealth returns the health topic of the entity bridge.
//
// Example: graylogic/health/entity
func (Topics) EntityHealth() string {
	return fmt.Sprintf("%s/health/entity", TopicPrefix)
}

// EntityCommandAll returns the subscription pattern for all entity commands.
//
// Pattern: graylogic/command/entity/+
func (Topics) EntityCommandAll() string {
	return fmt.Sprintf("%s/command/entity/+", TopicPrefix)
}

// EntityRequestAll returns the subscription pattern for all entity requests.
//
// Pattern: graylogic/request/entity/+
func (Topics) EntityRequestAll() string {
	return fmt.Sprintf("%s/request/entity/+", TopicPrefix)
}

// =============================================================================
// Vendor Link Topics
// =============================================================================

// VendorBase returns the topic root of one entry's vendor link. SDK
// processes receive it in GRAYHUB_TOPIC and append the link suffixes.
//
// Example: graylogic/vendor/comelit/01J0COMELIT
func (Topics) VendorBase(domain, entryID string) string {
	return fmt.Sprintf("%s/%s/%s", TopicPrefixVendor, domain, EncodeTopicSegment(entryID))
}

// VendorSnapshot returns the retained snapshot topic published by a vendor
// SDK process for one configuration entry.
//
// Example: graylogic/vendor/comelit/01J0COMELIT/snapshot
func (Topics) VendorSnapshot(domain, entryID string) string {
	return fmt.Sprintf("%s/%s/%s/snapshot", TopicPrefixVendor, domain, EncodeTopicSegment(entryID))
}

// VendorRefresh returns the topic on which the hub asks a vendor SDK process
// to fetch a fresh snapshot.
//
// Example: graylogic/vendor/comelit/01J0COMELIT/refresh
func (Topics) VendorRefresh(domain, entryID string) string {
	return fmt.Sprintf("%s/%s/%s/refresh", TopicPrefixVendor, domain, EncodeTopicSegment(entryID))
}

// VendorCommand returns the topic on which the hub sends device commands to
// a vendor SDK process.
//
// Example: graylogic/vendor/comelit/01J0COMELIT/command
func (Topics) VendorCommand(domain, entryID string) string {
	return fmt.Sprintf("%s/%s/%s/command", TopicPrefixVendor, domain, EncodeTopicSegment(entryID))
}

// VendorResult returns the topic on which a vendor SDK process reports the
// outcome of a command.
//
// Example: graylogic/vendor/comelit/01J0COMELIT/result
func (Topics) VendorResult(domain, entryID string) string {
	return fmt.Sprintf("%s/%s/%s/result", TopicPrefixVendor, domain, EncodeTopicSegment(entryID))
}

// =============================================================================
// Hub Topics
// =============================================================================

// HubStatus returns the hub online/offline status topic (also the LWT topic).
//
// Example: graylogic/hub/status
func (Topics) HubStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixHub)
}

// topicEscaper escapes characters that are structural in MQTT topics.
var topicEscaper = strings.NewReplacer("%", "%25", "/", "%2F", "+", "%2B", "#", "%23")

// topicUnescaper reverses topicEscaper.
var topicUnescaper = strings.NewReplacer("%2F", "/", "%2B", "+", "%23", "#", "%25", "%")

// EncodeTopicSegment escapes an identifier so it occupies exactly one topic level.
// Example: "1/2" → "1%2F2"
func EncodeTopicSegment(s string) string {
	return topicEscaper.Replace(s)
}

// DecodeTopicSegment reverses EncodeTopicSegment.
// Example: "1%2F2" → "1/2"
func DecodeTopicSegment(s string) string {
	return topicUnescaper.Replace(s)
}

// LastSegment returns the final level of a topic, decoded.
func LastSegment(topic string) string {
	if i := strings.LastIndexByte(topic, '/'); i >= 0 {
		return DecodeTopicSegment(topic[i+1:])
	}
	return DecodeTopicSegment(topic)
}
