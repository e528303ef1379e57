package entity

import (
	"maps"
	"slices"
	"time"
)

// Attribute keys carried in State.Attributes.
const (
	AttrColorMode           = "color_mode"
	AttrSupportedColorModes = "supported_color_modes"
	AttrBrightness          = "brightness"
	AttrHSColor             = "hs_color"
	AttrColorTempKelvin     = "color_temp_kelvin"
	AttrMinColorTempKelvin  = "min_color_temp_kelvin"
	AttrMaxColorTempKelvin  = "max_color_temp_kelvin"
	AttrDeviceClass         = "device_class"
)

// State is a point-in-time reading of an entity.
type State struct {
	UniqueID string   `json:"unique_id"`
	Platform Platform `json:"platform"`

	// On is nil when the entity is unavailable.
	On        *bool `json:"on"`
	Available bool  `json:"available"`

	// Error holds the reason an entity is unavailable.
	Error string `json:"error,omitempty"`

	Attributes map[string]any `json:"attributes,omitempty"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Equal reports whether two states carry the same reading. UpdatedAt is
// ignored.
func (s State) Equal(o State) bool {
	if s.UniqueID != o.UniqueID || s.Platform != o.Platform ||
		s.Available != o.Available || s.Error != o.Error {
		return false
	}
	if (s.On == nil) != (o.On == nil) {
		return false
	}
	if s.On != nil && *s.On != *o.On {
		return false
	}
	return maps.EqualFunc(s.Attributes, o.Attributes, attrEqual)
}

func attrEqual(a, b any) bool {
	switch av := a.(type) {
	case []string:
		bv, ok := b.([]string)
		return ok && slices.Equal(av, bv)
	case HSColor:
		bv, ok := b.(HSColor)
		return ok && av == bv
	default:
		return a == b
	}
}

// StateOf reads the current state of an entity from its coordinator
// snapshot. Any accessor error marks the entity unavailable.
func StateOf(e Entity) State {
	s := State{
		UniqueID:   e.UniqueID(),
		Platform:   e.Platform(),
		Available:  true,
		Attributes: make(map[string]any),
		UpdatedAt:  time.Now().UTC(),
	}

	if dc := e.Info().DeviceClass; dc != DeviceClassNone {
		s.Attributes[AttrDeviceClass] = string(dc)
	}

	var err error
	if a, ok := e.(Availability); ok && !a.Available() {
		err = ErrUnavailable
	} else {
		err = readState(e, &s)
	}

	if err != nil {
		s.On = nil
		s.Available = false
		s.Error = err.Error()
	}
	return s
}

func readState(e Entity, s *State) error {
	switch v := e.(type) {
	case Light:
		return readLight(v, s)
	case BinarySensor:
		on, err := v.IsOn()
		if err != nil {
			return err
		}
		s.On = &on
		return nil
	default:
		return ErrNotSupported
	}
}

func readLight(l Light, s *State) error {
	on, err := l.IsOn()
	if err != nil {
		return err
	}
	s.On = &on

	supported := make([]string, 0, len(l.SupportedColorModes()))
	for _, m := range l.SupportedColorModes() {
		supported = append(supported, string(m))
	}
	s.Attributes[AttrSupportedColorModes] = supported

	mode, err := l.ColorMode()
	if err != nil {
		return err
	}
	s.Attributes[AttrColorMode] = string(mode)

	// Attributes follow the supported modes, not the interfaces, since
	// an on/off bulb can still implement Dimmable and ColorLight.
	if d, ok := l.(Dimmable); ok && supportsBrightness(l) {
		b, err := d.Brightness()
		if err != nil {
			return err
		}
		s.Attributes[AttrBrightness] = b
	}

	if c, ok := l.(ColorLight); ok {
		if SupportsColorMode(l, ColorModeColorTemp) {
			s.Attributes[AttrMinColorTempKelvin] = c.MinColorTempKelvin()
			s.Attributes[AttrMaxColorTempKelvin] = c.MaxColorTempKelvin()
		}

		switch mode {
		case ColorModeHS:
			hs, err := c.HSColor()
			if err != nil {
				return err
			}
			s.Attributes[AttrHSColor] = hs
		case ColorModeColorTemp:
			k, err := c.ColorTempKelvin()
			if err != nil {
				return err
			}
			s.Attributes[AttrColorTempKelvin] = k
		}
	}
	return nil
}

// supportsBrightness reports whether any supported mode carries a
// brightness level.
func supportsBrightness(l Light) bool {
	for _, m := range l.SupportedColorModes() {
		if m != ColorModeOnOff {
			return true
		}
	}
	return false
}
