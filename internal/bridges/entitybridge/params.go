package entitybridge

import (
	"fmt"
	"slices"

	"github.com/nerrad567/gray-logic-hub/internal/entity"
)

// Parameter names accepted by turn_on.
const (
	ParamBrightness      = "brightness"
	ParamHSColor         = "hs_color"
	ParamColorTempKelvin = "color_temp_kelvin"
)

const (
	maxBrightness = 255
	maxHue        = 360
	maxSaturation = 100
)

// ParseTurnOnParams converts decoded JSON parameters into light settings.
// Each parameter must be supported by one of the light's colour modes, and
// a colour temperature must lie within the light's reported kelvin range.
func ParseTurnOnParams(l entity.Light, params map[string]any) (entity.TurnOnParams, error) {
	var out entity.TurnOnParams
	modes := l.SupportedColorModes()

	for key, raw := range params {
		switch key {
		case ParamBrightness:
			if len(modes) == 0 || slices.Equal(modes, []entity.ColorMode{entity.ColorModeOnOff}) {
				return out, fmt.Errorf("%w: light does not support brightness", ErrInvalidParameters)
			}
			v, err := intParam(key, raw, 0, maxBrightness)
			if err != nil {
				return out, err
			}
			out.Brightness = &v

		case ParamHSColor:
			if !slices.Contains(modes, entity.ColorModeHS) {
				return out, fmt.Errorf("%w: light does not support hs_color", ErrInvalidParameters)
			}
			hs, err := hsParam(raw)
			if err != nil {
				return out, err
			}
			out.HSColor = &hs

		case ParamColorTempKelvin:
			if !slices.Contains(modes, entity.ColorModeColorTemp) {
				return out, fmt.Errorf("%w: light does not support color_temp_kelvin", ErrInvalidParameters)
			}
			lo, hi := 1, 0
			if c, ok := l.(entity.ColorLight); ok && c.MaxColorTempKelvin() > 0 {
				lo, hi = max(c.MinColorTempKelvin(), 1), c.MaxColorTempKelvin()
			}
			v, err := intParam(key, raw, lo, hi)
			if err != nil {
				return out, err
			}
			out.ColorTempKelvin = &v

		default:
			return out, fmt.Errorf("%w: unknown parameter %q", ErrInvalidParameters, key)
		}
	}
	return out, nil
}

// intParam accepts a whole JSON number within [lo, hi]. hi of zero means
// no upper bound.
func intParam(key string, raw any, lo, hi int) (int, error) {
	f, ok := raw.(float64)
	if !ok || f != float64(int(f)) {
		return 0, fmt.Errorf("%w: %s must be a whole number", ErrInvalidParameters, key)
	}
	v := int(f)
	if v < lo || (hi > 0 && v > hi) {
		return 0, fmt.Errorf("%w: %s %d out of range", ErrInvalidParameters, key, v)
	}
	return v, nil
}

func hsParam(raw any) (entity.HSColor, error) {
	pair, ok := raw.([]any)
	if !ok || len(pair) != 2 {
		return entity.HSColor{}, fmt.Errorf("%w: hs_color must be [hue, saturation]", ErrInvalidParameters)
	}
	hue, ok1 := pair[0].(float64)
	sat, ok2 := pair[1].(float64)
	if !ok1 || !ok2 {
		return entity.HSColor{}, fmt.Errorf("%w: hs_color values must be numbers", ErrInvalidParameters)
	}
	if hue < 0 || hue > maxHue || sat < 0 || sat > maxSaturation {
		return entity.HSColor{}, fmt.Errorf("%w: hs_color (%g, %g) out of range", ErrInvalidParameters, hue, sat)
	}
	return entity.HSColor{Hue: hue, Saturation: sat}, nil
}
