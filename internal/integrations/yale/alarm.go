package yale

import (
	"github.com/nerrad567/gray-logic-hub/internal/coordinator"
	"github.com/nerrad567/gray-logic-hub/internal/entity"
)

// Domain is the integration name.
const Domain = "yale_smart_alarm"

const (
	manufacturer = "Yale"
	model        = "main"

	// statusNormal is the panel status value of a problem that is not active.
	statusNormal = "main.normal"

	// doorOpen is the sensor_map value of an open door or window.
	doorOpen = "open"
)

// DoorWindow is a door or window contact known to the panel.
type DoorWindow struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Type    string `json:"type,omitempty"`
}

// PanelInfo describes the alarm panel.
type PanelInfo struct {
	MAC     string `json:"mac,omitempty"`
	Version string `json:"version,omitempty"`
}

// Data is the alarm snapshot.
type Data struct {
	DoorWindows []DoorWindow `json:"door_windows"`

	// SensorMap holds the contact state by address ("open", "closed").
	SensorMap map[string]string `json:"sensor_map"`

	// SensorBatteryMap is true for contacts reporting a low battery,
	// keyed by "{address}-battery".
	SensorBatteryMap map[string]bool `json:"sensor_battery_map"`

	// Status holds panel problem flags ("acfail", "battery", "tamper",
	// "jam") with "main.normal" meaning no problem.
	Status map[string]string `json:"status"`

	PanelInfo PanelInfo `json:"panel_info"`
}

// Coordinator is what the binary sensor platform needs from the alarm
// coordinator.
type Coordinator interface {
	Data() Data
	LastUpdateSuccess() bool
	Entry() entity.ConfigEntry
}

// Alarm is the coordinator of one alarm entry.
type Alarm struct {
	*coordinator.Coordinator[Data]
	entry entity.ConfigEntry
}

// NewAlarm wraps a snapshot coordinator for an entry.
func NewAlarm(entry entity.ConfigEntry, coord *coordinator.Coordinator[Data]) *Alarm {
	return &Alarm{Coordinator: coord, entry: entry}
}

// Entry returns the configuration entry.
func (a *Alarm) Entry() entity.ConfigEntry {
	return a.entry
}

// panelDevice is the device info of the alarm panel itself.
func panelDevice(coord Coordinator) entity.DeviceInfo {
	entry := coord.Entry()
	return entity.DeviceInfo{
		Identifiers:  []entity.DeviceIdentifier{{Domain: Domain, ID: entry.EntryID}},
		Name:         entry.Title,
		Manufacturer: manufacturer,
		Model:        model,
		SWVersion:    coord.Data().PanelInfo.Version,
	}
}

// contactDevice is the device info of a door or window contact.
func contactDevice(coord Coordinator, dw DoorWindow) entity.DeviceInfo {
	return entity.DeviceInfo{
		Identifiers:  []entity.DeviceIdentifier{{Domain: Domain, ID: dw.Address}},
		Name:         dw.Name,
		Manufacturer: manufacturer,
		Model:        model,
		ViaDevice:    &entity.DeviceIdentifier{Domain: Domain, ID: coord.Entry().EntryID},
	}
}
