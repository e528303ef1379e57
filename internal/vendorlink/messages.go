package vendorlink

import (
	"encoding/json"
	"time"
)

// SnapshotMessage is published by the SDK process with the latest vendor data.
type SnapshotMessage struct {
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`

	// Error is set when the SDK could not fetch data; the coordinator keeps
	// its previous snapshot and is marked failed.
	Error string `json:"error,omitempty"`
}

// RefreshMessage asks the SDK process to fetch a new snapshot.
type RefreshMessage struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// CommandMessage asks the SDK process to call a vendor API method.
type CommandMessage struct {
	ID        string         `json:"id"`
	Method    string         `json:"method"`
	Args      map[string]any `json:"args,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// ResultMessage reports the outcome of a command.
type ResultMessage struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
