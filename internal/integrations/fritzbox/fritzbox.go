package fritzbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/nerrad567/gray-logic-hub/internal/coordinator"
)

// Domain is the integration name.
const Domain = "fritzbox"

// colorModeHS is the device color_mode value of a bulb in hue/saturation mode.
const colorModeHS = "1"

// Device is one FRITZ!SmartHome device.
type Device struct {
	AIN              string `json:"ain"`
	Name             string `json:"name"`
	Manufacturer     string `json:"manufacturer"`
	ProductName      string `json:"productname"`
	FWVersion        string `json:"fw_version"`
	Present          bool   `json:"present"`
	HasLightbulb     bool   `json:"has_lightbulb"`
	HasColor         bool   `json:"has_color"`
	HasLevel         bool   `json:"has_level"`
	FullColorSupport bool   `json:"fullcolorsupport"`
	State            bool   `json:"state"`
	Level            int    `json:"level"`
	Hue              int    `json:"hue"`
	Saturation       int    `json:"saturation"`
	ColorTemp        int    `json:"color_temp"`
	ColorMode        string `json:"color_mode"`
}

// ColorProperties are the colours and temperatures a bulb supports.
type ColorProperties struct {
	Colors ColorTable `json:"colors"`
	Temps  []int      `json:"temps"`
}

// NamedColor is one supported colour: three (hue, saturation, value)
// triples, one per supported saturation.
type NamedColor struct {
	Name   string
	Values [][]float64
}

// ColorTable is the bulb's colour list in the order the device reports it.
// On the wire it is a JSON object keyed by colour name.
type ColorTable []NamedColor

// UnmarshalJSON decodes the object keeping its key order.
func (t *ColorTable) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*t = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	if tok, err := dec.Token(); err != nil {
		return err
	} else if tok != json.Delim('{') {
		return fmt.Errorf("fritzbox: colors must be an object, got %v", tok)
	}

	var out ColorTable
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)
		var values [][]float64
		if err := dec.Decode(&values); err != nil {
			return fmt.Errorf("fritzbox: color %q: %w", name, err)
		}
		out = append(out, NamedColor{Name: name, Values: values})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*t = out
	return nil
}

// MarshalJSON encodes the table as an object in table order.
func (t ColorTable) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range t {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(c.Name)
		if err != nil {
			return nil, err
		}
		values, err := json.Marshal(c.Values)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(values)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Data is the FRITZ!Box snapshot.
type Data struct {
	Devices                  map[string]Device          `json:"devices"`
	SupportedColorProperties map[string]ColorProperties `json:"supported_color_properties"`
}

// API is the vendor API used by the light platform. Colour saturation is
// on the device's 0-255 scale.
type API interface {
	SetLevel(ctx context.Context, ain string, level int) error
	SetUnmappedColor(ctx context.Context, ain string, hue, saturation int) error
	SetColor(ctx context.Context, ain string, hue, saturation int) error
	SetColorTemp(ctx context.Context, ain string, kelvin int) error
	SetStateOn(ctx context.Context, ain string) error
	SetStateOff(ctx context.Context, ain string) error
}

// Coordinator is what the light platform needs from the FRITZ!Box coordinator.
type Coordinator interface {
	Data() Data
	API() API
	Refresh(ctx context.Context) error
	LastUpdateSuccess() bool
	AddListener(fn func()) (remove func())

	// NewDevices returns the AINs that first appeared in the latest update.
	NewDevices() []string
}

// Box is the coordinator of one FRITZ!Box entry.
type Box struct {
	*coordinator.Coordinator[Data]
	api API

	mu         sync.Mutex
	known      map[string]bool
	newDevices []string
}

// NewBox wraps a snapshot coordinator and tracks devices that appear in
// later updates.
func NewBox(coord *coordinator.Coordinator[Data], api API) *Box {
	b := &Box{Coordinator: coord, api: api, known: make(map[string]bool)}
	for ain := range coord.Data().Devices {
		b.known[ain] = true
	}
	// Registered before any platform listener so NewDevices is current
	// when they run.
	coord.AddListener(b.trackDevices)
	return b
}

func (b *Box) trackDevices() {
	devices := b.Data().Devices

	b.mu.Lock()
	defer b.mu.Unlock()

	b.newDevices = b.newDevices[:0]
	for ain := range devices {
		if !b.known[ain] {
			b.known[ain] = true
			b.newDevices = append(b.newDevices, ain)
		}
	}
	slices.Sort(b.newDevices)
}

// NewDevices returns the AINs first seen in the latest update.
func (b *Box) NewDevices() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.newDevices)
}

// API returns the vendor API.
func (b *Box) API() API {
	return b.api
}

// Commander sends a vendor API call to the SDK process.
// *vendorlink.Link satisfies it.
type Commander interface {
	SendCommand(ctx context.Context, method string, args map[string]any) error
}

// LinkAPI implements API over a Commander. Every call waits for the device
// to apply the change.
type LinkAPI struct {
	cmd Commander
}

// NewLinkAPI creates an API that forwards calls to the SDK process.
func NewLinkAPI(cmd Commander) *LinkAPI {
	return &LinkAPI{cmd: cmd}
}

func (a *LinkAPI) SetLevel(ctx context.Context, ain string, level int) error {
	return a.cmd.SendCommand(ctx, "set_level", map[string]any{"ain": ain, "level": level, "wait": true})
}

func (a *LinkAPI) SetUnmappedColor(ctx context.Context, ain string, hue, saturation int) error {
	return a.cmd.SendCommand(ctx, "set_unmapped_color", map[string]any{
		"ain": ain, "hue": hue, "saturation": saturation, "duration": 0, "wait": true,
	})
}

func (a *LinkAPI) SetColor(ctx context.Context, ain string, hue, saturation int) error {
	return a.cmd.SendCommand(ctx, "set_color", map[string]any{
		"ain": ain, "hue": hue, "saturation": saturation, "duration": 0, "wait": true,
	})
}

func (a *LinkAPI) SetColorTemp(ctx context.Context, ain string, kelvin int) error {
	return a.cmd.SendCommand(ctx, "set_color_temp", map[string]any{
		"ain": ain, "temperature": kelvin, "duration": 0, "wait": true,
	})
}

func (a *LinkAPI) SetStateOn(ctx context.Context, ain string) error {
	return a.cmd.SendCommand(ctx, "set_state_on", map[string]any{"ain": ain, "wait": true})
}

func (a *LinkAPI) SetStateOff(ctx context.Context, ain string) error {
	return a.cmd.SendCommand(ctx, "set_state_off", map[string]any{"ain": ain, "wait": true})
}
