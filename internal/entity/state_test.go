package entity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateOfBinarySensor(t *testing.T) {
	tests := []struct {
		name          string
		sensor        *fakeSensor
		wantOn        *bool
		wantAvailable bool
	}{
		{"on", &fakeSensor{uid: "s1", class: DeviceClassDoor, on: true}, ptr(true), true},
		{"off", &fakeSensor{uid: "s1", class: DeviceClassDoor}, ptr(false), true},
		{"missing key", &fakeSensor{uid: "s1", err: ErrKeyMissing}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := StateOf(tt.sensor)

			assert.Equal(t, "s1", s.UniqueID)
			assert.Equal(t, PlatformBinarySensor, s.Platform)
			assert.Equal(t, tt.wantOn, s.On)
			assert.Equal(t, tt.wantAvailable, s.Available)
			if !tt.wantAvailable {
				assert.Contains(t, s.Error, "key missing")
			}
		})
	}
}

func TestStateOfLight(t *testing.T) {
	l := &fakeLight{uid: "l1", on: true, mode: ColorModeHS, brightness: 200, hs: HSColor{Hue: 120, Saturation: 50}, kelvin: 3000}

	s := StateOf(l)
	require.True(t, s.Available)
	require.NotNil(t, s.On)
	assert.True(t, *s.On)
	assert.Equal(t, "hs", s.Attributes[AttrColorMode])
	assert.Equal(t, []string{"color_temp", "hs"}, s.Attributes[AttrSupportedColorModes])
	assert.Equal(t, 200, s.Attributes[AttrBrightness])
	assert.Equal(t, HSColor{Hue: 120, Saturation: 50}, s.Attributes[AttrHSColor])
	assert.NotContains(t, s.Attributes, AttrColorTempKelvin)
	assert.Equal(t, 2700, s.Attributes[AttrMinColorTempKelvin])

	l.mode = ColorModeColorTemp
	s = StateOf(l)
	assert.Equal(t, 3000, s.Attributes[AttrColorTempKelvin])
	assert.NotContains(t, s.Attributes, AttrHSColor)
}

func TestStateOfLightAttributesFollowModes(t *testing.T) {
	tests := []struct {
		name        string
		modes       []ColorMode
		mode        ColorMode
		wantBright  bool
		wantKelvins bool
	}{
		{name: "on/off", modes: []ColorMode{ColorModeOnOff}, mode: ColorModeOnOff},
		{name: "dimmer", modes: []ColorMode{ColorModeBrightness}, mode: ColorModeBrightness, wantBright: true},
		{name: "hs only", modes: []ColorMode{ColorModeHS}, mode: ColorModeHS, wantBright: true},
		{name: "colour temperature", modes: []ColorMode{ColorModeColorTemp}, mode: ColorModeColorTemp, wantBright: true, wantKelvins: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &fakeLight{uid: "l1", on: true, modes: tt.modes, mode: tt.mode, brightness: 0}
			s := StateOf(l)
			require.True(t, s.Available)

			_, hasBright := s.Attributes[AttrBrightness]
			_, hasMin := s.Attributes[AttrMinColorTempKelvin]
			_, hasMax := s.Attributes[AttrMaxColorTempKelvin]
			assert.Equal(t, tt.wantBright, hasBright)
			assert.Equal(t, tt.wantKelvins, hasMin)
			assert.Equal(t, tt.wantKelvins, hasMax)
		})
	}
}

func TestStateOfLightUnavailable(t *testing.T) {
	s := StateOf(&fakeLight{uid: "l1", err: errors.New("vendor offline")})
	assert.False(t, s.Available)
	assert.Nil(t, s.On)
	assert.Equal(t, "vendor offline", s.Error)
}

func TestStateEqual(t *testing.T) {
	l := &fakeLight{uid: "l1", on: true, mode: ColorModeHS, hs: HSColor{Hue: 10, Saturation: 20}}
	a := StateOf(l)
	b := StateOf(l)
	assert.True(t, a.Equal(b), "same reading at different times must be equal")

	l.hs.Saturation = 30
	assert.False(t, a.Equal(StateOf(l)))

	l.hs.Saturation = 20
	l.on = false
	assert.False(t, a.Equal(StateOf(l)))

	unavailable := StateOf(&fakeLight{uid: "l1", err: ErrKeyMissing})
	assert.False(t, a.Equal(unavailable))
	assert.True(t, unavailable.Equal(StateOf(&fakeLight{uid: "l1", err: ErrKeyMissing})))
}

func TestSupportsColorMode(t *testing.T) {
	l := &fakeLight{}
	assert.True(t, SupportsColorMode(l, ColorModeHS))
	assert.False(t, SupportsColorMode(l, ColorModeOnOff))
}

func ptr[T any](v T) *T { return &v }

// unavailableSensor reports a value but is marked unavailable.
type unavailableSensor struct{ fakeSensor }

func (unavailableSensor) Available() bool { return false }

func TestStateOfUnavailable(t *testing.T) {
	s := StateOf(&unavailableSensor{fakeSensor{uid: "s1", on: true}})
	assert.False(t, s.Available)
	assert.Nil(t, s.On)
	assert.Equal(t, ErrUnavailable.Error(), s.Error)
}
