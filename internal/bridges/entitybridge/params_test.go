package entitybridge

import (
	"errors"
	"testing"

	"github.com/nerrad567/gray-logic-hub/internal/entity"
)

func TestParseTurnOnParams(t *testing.T) {
	color := newFakeLight("c", entity.ColorModeColorTemp, entity.ColorModeHS)
	dimmer := newFakeLight("d", entity.ColorModeBrightness)
	onoff := newFakeLight("o")
	ranged := &rangedLight{
		fakeLight: newFakeLight("r", entity.ColorModeColorTemp, entity.ColorModeHS),
		minK:      2700,
		maxK:      6500,
	}
	unranged := &rangedLight{fakeLight: newFakeLight("u", entity.ColorModeColorTemp)}

	tests := []struct {
		name    string
		light   entity.Light
		params  map[string]any
		wantErr bool
		check   func(t *testing.T, p entity.TurnOnParams)
	}{
		{
			name:  "empty",
			light: onoff,
			check: func(t *testing.T, p entity.TurnOnParams) {
				if p.Brightness != nil || p.HSColor != nil || p.ColorTempKelvin != nil {
					t.Errorf("params = %+v, want none set", p)
				}
			},
		},
		{
			name:   "brightness",
			light:  dimmer,
			params: map[string]any{"brightness": 200.0},
			check: func(t *testing.T, p entity.TurnOnParams) {
				if p.Brightness == nil || *p.Brightness != 200 {
					t.Errorf("Brightness = %v, want 200", p.Brightness)
				}
			},
		},
		{
			name:   "hs and kelvin",
			light:  color,
			params: map[string]any{"hs_color": []any{359.5, 12.0}, "color_temp_kelvin": 2700.0},
			check: func(t *testing.T, p entity.TurnOnParams) {
				if p.HSColor == nil || p.HSColor.Hue != 359.5 || p.HSColor.Saturation != 12 {
					t.Errorf("HSColor = %v", p.HSColor)
				}
				if p.ColorTempKelvin == nil || *p.ColorTempKelvin != 2700 {
					t.Errorf("ColorTempKelvin = %v", p.ColorTempKelvin)
				}
			},
		},
		{name: "brightness on on/off light", light: onoff, params: map[string]any{"brightness": 10.0}, wantErr: true},
		{name: "hs on dimmer", light: dimmer, params: map[string]any{"hs_color": []any{1.0, 1.0}}, wantErr: true},
		{name: "kelvin on dimmer", light: dimmer, params: map[string]any{"color_temp_kelvin": 3000.0}, wantErr: true},
		{name: "brightness too high", light: dimmer, params: map[string]any{"brightness": 256.0}, wantErr: true},
		{name: "brightness fraction", light: dimmer, params: map[string]any{"brightness": 1.5}, wantErr: true},
		{name: "brightness string", light: dimmer, params: map[string]any{"brightness": "50"}, wantErr: true},
		{name: "hs wrong length", light: color, params: map[string]any{"hs_color": []any{1.0}}, wantErr: true},
		{name: "hs saturation range", light: color, params: map[string]any{"hs_color": []any{1.0, 101.0}}, wantErr: true},
		{name: "kelvin zero", light: color, params: map[string]any{"color_temp_kelvin": 0.0}, wantErr: true},
		{
			name:   "kelvin at range edge",
			light:  ranged,
			params: map[string]any{"color_temp_kelvin": 6500.0},
			check: func(t *testing.T, p entity.TurnOnParams) {
				if p.ColorTempKelvin == nil || *p.ColorTempKelvin != 6500 {
					t.Errorf("ColorTempKelvin = %v, want 6500", p.ColorTempKelvin)
				}
			},
		},
		{
			name:   "kelvin without reported range",
			light:  unranged,
			params: map[string]any{"color_temp_kelvin": 100000.0},
			check: func(t *testing.T, p entity.TurnOnParams) {
				if p.ColorTempKelvin == nil || *p.ColorTempKelvin != 100000 {
					t.Errorf("ColorTempKelvin = %v, want 100000", p.ColorTempKelvin)
				}
			},
		},
		{name: "kelvin above range", light: ranged, params: map[string]any{"color_temp_kelvin": 100000.0}, wantErr: true},
		{name: "kelvin below range", light: ranged, params: map[string]any{"color_temp_kelvin": 2000.0}, wantErr: true},
		{name: "unknown key", light: color, params: map[string]any{"transition": 2.0}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseTurnOnParams(tt.light, tt.params)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidParameters) {
					t.Fatalf("error = %v, want ErrInvalidParameters", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTurnOnParams() error = %v", err)
			}
			tt.check(t, p)
		})
	}
}

// rangedLight adds a kelvin range to fakeLight.
type rangedLight struct {
	*fakeLight
	minK, maxK int
}

func (l *rangedLight) HSColor() (entity.HSColor, error) { return entity.HSColor{}, nil }
func (l *rangedLight) ColorTempKelvin() (int, error)    { return l.minK, nil }
func (l *rangedLight) MinColorTempKelvin() int          { return l.minK }
func (l *rangedLight) MaxColorTempKelvin() int          { return l.maxK }
