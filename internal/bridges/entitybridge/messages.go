package entitybridge

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-hub/internal/entity"
)

// Commands accepted by lights.
const (
	CommandTurnOn  = "turn_on"
	CommandTurnOff = "turn_off"
)

// Request actions.
const (
	ActionReadAll   = "read_all"
	ActionReadState = "read_state"
)

// CommandMessage asks the hub to operate an entity.
// Topic: graylogic/command/entity/{unique_id}
type CommandMessage struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`

	// EntityID is the target unique ID. When empty the topic's last level is used.
	EntityID string `json:"entity_id"`

	// Command is turn_on or turn_off.
	Command string `json:"command"`

	// Parameters for turn_on:
	//   {"brightness": 128}
	//   {"hs_color": [30, 80]}
	//   {"color_temp_kelvin": 3000}
	Parameters map[string]any `json:"parameters,omitempty"`

	// Source indicates where the command originated ("api", "automation", "scene").
	Source string `json:"source"`
}

// UnmarshalJSON accepts a missing or empty timestamp.
func (m *CommandMessage) UnmarshalJSON(data []byte) error {
	type alias CommandMessage
	aux := &struct {
		*alias
		Timestamp string `json:"timestamp"`
	}{
		alias: (*alias)(m),
	}
	if err := json.Unmarshal(data, aux); err != nil {
		return fmt.Errorf("unmarshal command message: %w", err)
	}
	if aux.Timestamp != "" {
		t, err := time.Parse(time.RFC3339, aux.Timestamp)
		if err != nil {
			return fmt.Errorf("parse timestamp: %w", err)
		}
		m.Timestamp = t
	}
	return nil
}

// AckStatus is the outcome of a command.
type AckStatus string

const (
	// AckAccepted means the vendor API applied the command.
	AckAccepted AckStatus = "accepted"

	// AckFailed means the command was rejected or the vendor call failed.
	AckFailed AckStatus = "failed"

	// AckTimeout means the vendor did not answer in time.
	AckTimeout AckStatus = "timeout"
)

// AckMessage acknowledges a command.
// Topic: graylogic/ack/entity/{unique_id}
type AckMessage struct {
	CommandID string    `json:"command_id"`
	Timestamp time.Time `json:"timestamp"`
	EntityID  string    `json:"entity_id"`
	Status    AckStatus `json:"status"`
	Error     *AckError `json:"error,omitempty"`
}

// AckError describes a failed command.
type AckError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes for command and request failures.
const (
	ErrCodeNotConfigured     = "NOT_CONFIGURED"
	ErrCodeInvalidCommand    = "INVALID_COMMAND"
	ErrCodeInvalidParameters = "INVALID_PARAMETERS"
	ErrCodeDeviceUnreachable = "DEVICE_UNREACHABLE"
	ErrCodeTimeout           = "TIMEOUT"
)

// NewAckMessage creates a successful acknowledgement.
func NewAckMessage(cmd CommandMessage, status AckStatus) AckMessage {
	return AckMessage{
		CommandID: cmd.ID,
		Timestamp: time.Now().UTC(),
		EntityID:  cmd.EntityID,
		Status:    status,
	}
}

// NewAckError creates a failure acknowledgement. TIMEOUT maps to the
// timeout status, every other code to failed.
func NewAckError(cmd CommandMessage, code, message string) AckMessage {
	status := AckFailed
	if code == ErrCodeTimeout {
		status = AckTimeout
	}
	ack := NewAckMessage(cmd, status)
	ack.Error = &AckError{Code: code, Message: message}
	return ack
}

// StateMessage carries the current reading of an entity.
// Topic: graylogic/state/entity/{unique_id}
// QoS: 1, Retained: Yes
type StateMessage struct {
	EntityID  string          `json:"entity_id"`
	Timestamp time.Time       `json:"timestamp"`
	Platform  entity.Platform `json:"platform"`

	// Domain and EntryID identify the integration entry that owns the entity.
	Domain  string `json:"domain"`
	EntryID string `json:"entry_id"`

	State entity.State `json:"state"`
}

// NewStateMessage wraps a state for publishing.
func NewStateMessage(reg entity.Registered, state entity.State) StateMessage {
	return StateMessage{
		EntityID:  state.UniqueID,
		Timestamp: time.Now().UTC(),
		Platform:  state.Platform,
		Domain:    reg.Entry.Domain,
		EntryID:   reg.Entry.EntryID,
		State:     state,
	}
}

// HealthStatus is the operational status of the bridge.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthStarting HealthStatus = "starting"
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage reports bridge status.
// Topic: graylogic/health/entity
// QoS: 1, Retained: Yes
type HealthMessage struct {
	Bridge        string       `json:"bridge"`
	Timestamp     time.Time    `json:"timestamp"`
	Status        HealthStatus `json:"status"`
	Version       string       `json:"version"`
	UptimeSeconds int64        `json:"uptime_seconds"`

	// Entities counts registered entities by platform.
	Entities            map[entity.Platform]int `json:"entities"`
	EntitiesTotal       int                     `json:"entities_total"`
	EntitiesUnavailable int                     `json:"entities_unavailable"`

	Statistics *BridgeStatistics `json:"statistics,omitempty"`
	Reason     string            `json:"reason,omitempty"`
}

// BridgeStatistics contains operational counters.
type BridgeStatistics struct {
	CommandsReceived uint64 `json:"commands_received"`
	CommandsFailed   uint64 `json:"commands_failed"`
	StatesPublished  uint64 `json:"states_published"`
}

// RequestMessage asks the bridge for state.
// Topic: graylogic/request/entity/{request_id}
type RequestMessage struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`

	// Action is read_all or read_state.
	Action string `json:"action"`

	// EntityID is required for read_state.
	EntityID string `json:"entity_id,omitempty"`
}

// ResponseMessage answers a request.
// Topic: graylogic/response/entity/{request_id}
type ResponseMessage struct {
	RequestID string         `json:"request_id"`
	Timestamp time.Time      `json:"timestamp"`
	Success   bool           `json:"success"`
	Data      map[string]any `json:"data,omitempty"`
	Error     *AckError      `json:"error,omitempty"`
}

func newResponse(req RequestMessage, data map[string]any) ResponseMessage {
	return ResponseMessage{
		RequestID: req.RequestID,
		Timestamp: time.Now().UTC(),
		Success:   true,
		Data:      data,
	}
}

func newErrorResponse(req RequestMessage, code, message string) ResponseMessage {
	return ResponseMessage{
		RequestID: req.RequestID,
		Timestamp: time.Now().UTC(),
		Error:     &AckError{Code: code, Message: message},
	}
}
