package entity

import "context"

// Platform is the kind of entity ("light", "binary_sensor").
type Platform string

// Supported platforms.
const (
	PlatformLight        Platform = "light"
	PlatformBinarySensor Platform = "binary_sensor"
)

// DeviceClass refines how a binary sensor or light is presented.
type DeviceClass string

// Binary sensor device classes used by the integrations.
const (
	DeviceClassNone    DeviceClass = ""
	DeviceClassDoor    DeviceClass = "door"
	DeviceClassBattery DeviceClass = "battery"
	DeviceClassProblem DeviceClass = "problem"
)

// EntityCategory marks entities that are not primary controls.
type EntityCategory string

// Entity categories.
const (
	CategoryNone       EntityCategory = ""
	CategoryConfig     EntityCategory = "config"
	CategoryDiagnostic EntityCategory = "diagnostic"
)

// ColorMode describes how a light's colour is controlled.
type ColorMode string

// Light colour modes.
const (
	ColorModeOnOff      ColorMode = "onoff"
	ColorModeBrightness ColorMode = "brightness"
	ColorModeColorTemp  ColorMode = "color_temp"
	ColorModeHS         ColorMode = "hs"
)

// DeviceIdentifier identifies a physical device within an integration.
type DeviceIdentifier struct {
	Domain string `json:"domain"`
	ID     string `json:"id"`
}

// DeviceInfo describes the physical device an entity belongs to.
type DeviceInfo struct {
	Identifiers  []DeviceIdentifier `json:"identifiers"`
	Name         string             `json:"name,omitempty"`
	Manufacturer string             `json:"manufacturer,omitempty"`
	Model        string             `json:"model,omitempty"`
	SWVersion    string             `json:"sw_version,omitempty"`

	// ViaDevice links a device to the hub it is reached through.
	ViaDevice *DeviceIdentifier `json:"via_device,omitempty"`
}

// PrimaryID returns the ID of the first identifier, or "" if there is none.
func (d DeviceInfo) PrimaryID() string {
	if len(d.Identifiers) == 0 {
		return ""
	}
	return d.Identifiers[0].ID
}

// Description is static metadata shared by a family of entities.
type Description struct {
	// Key selects the value in the coordinator snapshot.
	Key            string
	DeviceClass    DeviceClass
	Category       EntityCategory
	TranslationKey string
}

// Info is the presentation metadata of one entity.
type Info struct {
	// Name is nil when the entity takes its device's name.
	Name *string

	// HasEntityName means the entity name is relative to the device name.
	HasEntityName  bool
	DeviceClass    DeviceClass
	Category       EntityCategory
	TranslationKey string
	Device         DeviceInfo
}

// ConfigEntry is one configured instance of an integration.
type ConfigEntry struct {
	EntryID string
	Domain  string
	Title   string
}

// AddEntitiesFunc is handed to an integration's setup entry point. Each call
// registers the given entities with the hub.
type AddEntitiesFunc func(entities []Entity)

// HSColor is a hue (0-360) and saturation (0-100) pair.
type HSColor struct {
	Hue        float64 `json:"hue"`
	Saturation float64 `json:"saturation"`
}

// TurnOnParams are the optional arguments of Light.TurnOn. A nil field
// leaves that aspect unchanged.
type TurnOnParams struct {
	// Brightness is 0-255.
	Brightness      *int
	HSColor         *HSColor
	ColorTempKelvin *int
}

// Entity is the common surface of every entity.
type Entity interface {
	// UniqueID is stable across restarts and unique within the hub.
	UniqueID() string
	Platform() Platform
	Info() Info
}

// BinarySensor is an entity with an on/off reading.
type BinarySensor interface {
	Entity
	IsOn() (bool, error)
}

// Light is a switchable light.
type Light interface {
	Entity
	IsOn() (bool, error)
	ColorMode() (ColorMode, error)
	SupportedColorModes() []ColorMode
	TurnOn(ctx context.Context, params TurnOnParams) error
	TurnOff(ctx context.Context) error
}

// Dimmable is implemented by lights with a brightness level.
type Dimmable interface {
	// Brightness is 0-255.
	Brightness() (int, error)
}

// ColorLight is implemented by lights with colour control.
type ColorLight interface {
	HSColor() (HSColor, error)
	ColorTempKelvin() (int, error)
	MinColorTempKelvin() int
	MaxColorTempKelvin() int
}

// Availability is implemented by entities that can be unavailable even when
// their snapshot value is present, for example after a failed coordinator
// update.
type Availability interface {
	Available() bool
}

// ParallelLimiter is implemented by entities whose platform limits how many
// commands may run at once. Zero means unlimited.
type ParallelLimiter interface {
	ParallelUpdates() int
}

// SupportsColorMode reports whether the light lists the given mode.
func SupportsColorMode(l Light, mode ColorMode) bool {
	for _, m := range l.SupportedColorModes() {
		if m == mode {
			return true
		}
	}
	return false
}
