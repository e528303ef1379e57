package fritzbox

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"sync"

	"github.com/nerrad567/gray-logic-hub/internal/entity"
)

// ErrNoSupportedColors is returned when a bulb without full colour support
// is asked for a colour but reports no supported colours.
var ErrNoSupportedColors = errors.New("fritzbox: bulb reports no supported colors")

// SetupEntry adds one light per lightbulb in the snapshot and keeps adding
// bulbs that appear in later updates. The returned func stops watching for
// new bulbs.
func SetupEntry(coord Coordinator, add entity.AddEntitiesFunc) (remove func()) {
	var (
		mu    sync.Mutex
		added = make(map[string]bool)
	)
	addDevices := func(ains []string) {
		if len(ains) == 0 {
			return
		}
		devices := coord.Data().Devices

		mu.Lock()
		var lights []entity.Entity
		for _, ain := range ains {
			if dev, ok := devices[ain]; ok && dev.HasLightbulb && !added[ain] {
				added[ain] = true
				lights = append(lights, NewLight(coord, ain))
			}
		}
		mu.Unlock()

		if len(lights) > 0 {
			add(lights)
		}
	}

	remove = coord.AddListener(func() { addDevices(coord.NewDevices()) })
	addDevices(slices.Sorted(maps.Keys(coord.Data().Devices)))
	return remove
}

// Light is a FRITZ!SmartHome bulb.
type Light struct {
	coord Coordinator
	ain   string

	supportedModes []entity.ColorMode
	// supportedHS maps each supported hue to its three saturations.
	// hues holds the same keys in device order.
	supportedHS map[int][]int
	hues        []int
	minKelvin   int
	maxKelvin   int
	device      entity.DeviceInfo
}

// NewLight creates the light for one bulb. Colour capabilities are read
// once from the current snapshot.
func NewLight(coord Coordinator, ain string) *Light {
	data := coord.Data()
	dev := data.Devices[ain]

	l := &Light{
		coord:          coord,
		ain:            ain,
		supportedModes: []entity.ColorMode{entity.ColorModeOnOff},
		supportedHS:    make(map[int][]int),
		device: entity.DeviceInfo{
			Identifiers:  []entity.DeviceIdentifier{{Domain: Domain, ID: ain}},
			Name:         dev.Name,
			Manufacturer: dev.Manufacturer,
			Model:        dev.ProductName,
			SWVersion:    dev.FWVersion,
		},
	}
	switch {
	case dev.HasColor:
		l.supportedModes = []entity.ColorMode{entity.ColorModeColorTemp, entity.ColorModeHS}
	case dev.HasLevel:
		l.supportedModes = []entity.ColorMode{entity.ColorModeBrightness}
	}

	props := data.SupportedColorProperties[ain]
	for _, c := range props.Colors {
		values := c.Values
		if len(values) < 3 || len(values[0]) < 2 {
			continue
		}
		hue := int(values[0][0])
		sats := make([]int, 0, 3)
		for _, v := range values[:3] {
			if len(v) >= 2 {
				sats = append(sats, int(v[1]))
			}
		}
		if _, seen := l.supportedHS[hue]; !seen {
			l.hues = append(l.hues, hue)
		}
		l.supportedHS[hue] = sats
	}
	if len(props.Temps) > 0 {
		l.minKelvin = slices.Min(props.Temps)
		l.maxKelvin = slices.Max(props.Temps)
	}
	return l
}

func (l *Light) UniqueID() string         { return l.ain }
func (l *Light) Platform() entity.Platform { return entity.PlatformLight }

func (l *Light) Info() entity.Info {
	return entity.Info{HasEntityName: true, Device: l.device}
}

// Available requires a successful update and the bulb to be reachable by
// the FRITZ!Box.
func (l *Light) Available() bool {
	if !l.coord.LastUpdateSuccess() {
		return false
	}
	dev, ok := l.coord.Data().Devices[l.ain]
	return ok && dev.Present
}

func (l *Light) data() (Device, error) {
	dev, ok := l.coord.Data().Devices[l.ain]
	if !ok {
		return Device{}, fmt.Errorf("%w: device %s", entity.ErrKeyMissing, l.ain)
	}
	return dev, nil
}

func (l *Light) IsOn() (bool, error) {
	dev, err := l.data()
	if err != nil {
		return false, err
	}
	return dev.State, nil
}

// Brightness is the bulb level (0-255).
func (l *Light) Brightness() (int, error) {
	dev, err := l.data()
	if err != nil {
		return 0, err
	}
	return dev.Level, nil
}

// HSColor converts the device saturation (0-255) to percent.
func (l *Light) HSColor() (entity.HSColor, error) {
	dev, err := l.data()
	if err != nil {
		return entity.HSColor{}, err
	}
	return entity.HSColor{
		Hue:        float64(dev.Hue),
		Saturation: float64(dev.Saturation) * 100.0 / 255.0,
	}, nil
}

func (l *Light) ColorTempKelvin() (int, error) {
	dev, err := l.data()
	if err != nil {
		return 0, err
	}
	return dev.ColorTemp, nil
}

func (l *Light) MinColorTempKelvin() int { return l.minKelvin }
func (l *Light) MaxColorTempKelvin() int { return l.maxKelvin }

func (l *Light) ColorMode() (entity.ColorMode, error) {
	dev, err := l.data()
	if err != nil {
		return "", err
	}
	switch {
	case dev.HasColor && dev.ColorMode == colorModeHS:
		return entity.ColorModeHS, nil
	case dev.HasColor:
		return entity.ColorModeColorTemp, nil
	case dev.HasLevel:
		return entity.ColorModeBrightness, nil
	default:
		return entity.ColorModeOnOff, nil
	}
}

func (l *Light) SupportedColorModes() []entity.ColorMode {
	return slices.Clone(l.supportedModes)
}

// TurnOn applies the requested brightness, colour and colour temperature,
// switches the bulb on and refreshes the coordinator.
func (l *Light) TurnOn(ctx context.Context, params entity.TurnOnParams) error {
	api := l.coord.API()
	if params.Brightness != nil {
		if err := api.SetLevel(ctx, l.ain, *params.Brightness); err != nil {
			return err
		}
	}
	if params.HSColor != nil {
		if err := l.setColor(ctx, api, *params.HSColor); err != nil {
			return err
		}
	}
	if params.ColorTempKelvin != nil {
		if err := api.SetColorTemp(ctx, l.ain, *params.ColorTempKelvin); err != nil {
			return err
		}
	}
	if err := api.SetStateOn(ctx, l.ain); err != nil {
		return err
	}
	return l.coord.Refresh(ctx)
}

// TurnOff switches the bulb off and refreshes the coordinator.
func (l *Light) TurnOff(ctx context.Context) error {
	if err := l.coord.API().SetStateOff(ctx, l.ain); err != nil {
		return err
	}
	return l.coord.Refresh(ctx)
}

func (l *Light) setColor(ctx context.Context, api API, hs entity.HSColor) error {
	// Bulbs accept hue 0-359.
	hue := int(math.Mod(hs.Hue, 360))
	sat := int(math.Round(hs.Saturation * 255.0 / 100.0))

	dev, err := l.data()
	if err != nil {
		return err
	}
	if dev.FullColorSupport {
		return api.SetUnmappedColor(ctx, l.ain, hue, sat)
	}

	hue, sat, err = l.nearestSupported(hue, sat)
	if err != nil {
		return err
	}
	return api.SetColor(ctx, l.ain, hue, sat)
}

// nearestSupported picks the supported hue closest to hue, then the closest
// of that hue's saturations. Ties go to the candidate the device lists first.
func (l *Light) nearestSupported(hue, sat int) (int, int, error) {
	if len(l.hues) == 0 {
		return 0, 0, fmt.Errorf("%w: %s", ErrNoSupportedColors, l.ain)
	}
	bestHue := nearest(l.hues, hue)

	sats := l.supportedHS[bestHue]
	if len(sats) == 0 {
		return 0, 0, fmt.Errorf("%w: %s hue %d", ErrNoSupportedColors, l.ain, bestHue)
	}
	return bestHue, nearest(sats, sat), nil
}

func nearest(values []int, target int) int {
	best := values[0]
	for _, v := range values[1:] {
		if abs(v-target) < abs(best-target) {
			best = v
		}
	}
	return best
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
