package comelit

import (
	"context"
	"fmt"

	"github.com/nerrad567/gray-logic-hub/internal/coordinator"
	"github.com/nerrad567/gray-logic-hub/internal/entity"
)

// Domain is the integration name.
const Domain = "comelit"

// Object categories and light states as reported by the serial bridge.
const (
	Light    = "light"
	StateOff = 0
	StateOn  = 1
)

const (
	manufacturer = "Comelit"
	bridgeModel  = "Serial bridge"
)

// Object is one device on the serial bridge.
type Object struct {
	Index       int     `json:"index"`
	Name        string  `json:"name"`
	Status      int     `json:"status"`
	HumanStatus string  `json:"human_status"`
	Type        string  `json:"type"`
	Protected   int     `json:"protected"`
	Zone        string  `json:"zone"`
	Power       float64 `json:"power"`
	PowerUnit   string  `json:"power_unit"`
}

// Data is the bridge snapshot: objects by category, then by index.
type Data map[string]map[int]Object

// API is the vendor API used by the light platform.
type API interface {
	SetDeviceStatus(ctx context.Context, category string, index, state int) error
}

// Coordinator is what the light platform needs from the bridge coordinator.
type Coordinator interface {
	Data() Data
	API() API
	RequestRefresh(ctx context.Context) error
	PlatformDeviceInfo(obj Object, objType string) entity.DeviceInfo
	LastUpdateSuccess() bool
}

// SerialBridge is the coordinator of one serial bridge entry.
type SerialBridge struct {
	*coordinator.Coordinator[Data]
	api   API
	entry entity.ConfigEntry
}

// NewSerialBridge wraps a snapshot coordinator with the bridge API.
func NewSerialBridge(entry entity.ConfigEntry, coord *coordinator.Coordinator[Data], api API) *SerialBridge {
	return &SerialBridge{Coordinator: coord, api: api, entry: entry}
}

// API returns the vendor API.
func (b *SerialBridge) API() API {
	return b.api
}

// PlatformDeviceInfo returns the device info of one bridge object. Objects
// are identified by entry, type and index and are reached via the bridge.
func (b *SerialBridge) PlatformDeviceInfo(obj Object, objType string) entity.DeviceInfo {
	return entity.DeviceInfo{
		Identifiers: []entity.DeviceIdentifier{{
			Domain: Domain,
			ID:     fmt.Sprintf("%s-%s-%d", b.entry.EntryID, objType, obj.Index),
		}},
		Name:         obj.Name,
		Manufacturer: manufacturer,
		Model:        fmt.Sprintf("%s %s", bridgeModel, objType),
		ViaDevice:    &entity.DeviceIdentifier{Domain: Domain, ID: b.entry.EntryID},
	}
}

// Commander sends a vendor API call to the SDK process.
// *vendorlink.Link satisfies it.
type Commander interface {
	SendCommand(ctx context.Context, method string, args map[string]any) error
}

// LinkAPI implements API over a Commander.
type LinkAPI struct {
	cmd Commander
}

// NewLinkAPI creates an API that forwards calls to the SDK process.
func NewLinkAPI(cmd Commander) *LinkAPI {
	return &LinkAPI{cmd: cmd}
}

// SetDeviceStatus sets the status of the object at index in category.
func (a *LinkAPI) SetDeviceStatus(ctx context.Context, category string, index, state int) error {
	return a.cmd.SendCommand(ctx, "set_device_status", map[string]any{
		"category": category,
		"index":    index,
		"state":    state,
	})
}
