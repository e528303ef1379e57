package fritzbox

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gray-logic-hub/internal/coordinator"
	"github.com/nerrad567/gray-logic-hub/internal/entity"
)

// apiCall is one recorded vendor call, e.g. {"set_color", [120, 204]}.
type apiCall struct {
	Method string
	Args   []int
}

type fakeAPI struct {
	mu    sync.Mutex
	calls []apiCall
	err   error
}

func (a *fakeAPI) record(method string, args ...int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, apiCall{method, args})
	return a.err
}

func (a *fakeAPI) SetLevel(_ context.Context, _ string, level int) error {
	return a.record("set_level", level)
}
func (a *fakeAPI) SetUnmappedColor(_ context.Context, _ string, hue, sat int) error {
	return a.record("set_unmapped_color", hue, sat)
}
func (a *fakeAPI) SetColor(_ context.Context, _ string, hue, sat int) error {
	return a.record("set_color", hue, sat)
}
func (a *fakeAPI) SetColorTemp(_ context.Context, _ string, kelvin int) error {
	return a.record("set_color_temp", kelvin)
}
func (a *fakeAPI) SetStateOn(context.Context, string) error  { return a.record("set_state_on") }
func (a *fakeAPI) SetStateOff(context.Context, string) error { return a.record("set_state_off") }

func (a *fakeAPI) methods() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.calls))
	for _, c := range a.calls {
		out = append(out, c.Method)
	}
	return out
}

const (
	ainColor = "12345 0000001"
	ainDim   = "12345 0000002"
	ainPlug  = "08761 0000003"
	ainFull  = "12345 0000004"
	ainPlain = "12345 0000005"
)

func testData() Data {
	return Data{
		Devices: map[string]Device{
			ainColor: {
				AIN: ainColor, Name: "Lounge bulb", Manufacturer: "AVM", ProductName: "FRITZ!DECT 500",
				Present: true, HasLightbulb: true, HasColor: true, HasLevel: true,
				State: true, Level: 100, Hue: 180, Saturation: 255, ColorTemp: 2700, ColorMode: "1",
			},
			ainDim:   {AIN: ainDim, Name: "Hall bulb", Present: true, HasLightbulb: true, HasLevel: true, Level: 50},
			ainPlug:  {AIN: ainPlug, Name: "Plug", Present: true},
			ainFull:  {AIN: ainFull, Name: "Desk bulb", Present: true, HasLightbulb: true, HasColor: true, FullColorSupport: true, ColorMode: "4"},
			ainPlain: {AIN: ainPlain, Name: "Porch bulb", Present: false, HasLightbulb: true},
		},
		SupportedColorProperties: map[string]ColorProperties{
			ainColor: {
				Colors: ColorTable{
					{"Red", [][]float64{{358, 180, 230}, {358, 112, 237}, {358, 54, 245}}},
					{"Green", [][]float64{{120, 160, 220}, {120, 82, 232}, {120, 38, 242}}},
					{"Blue", [][]float64{{240, 200, 255}, {240, 140, 255}, {240, 70, 255}}},
				},
				Temps: []int{2700, 3000, 3400, 3800, 4200, 4700, 5300, 5900, 6500},
			},
		},
	}
}

func newTestBox(t *testing.T, api API) (*coordinator.Coordinator[Data], *Box) {
	t.Helper()
	coord := coordinator.New[Data](Domain, nil, coordinator.Options{Cooldown: -1})
	t.Cleanup(coord.Close)
	box := NewBox(coord, api)
	coord.Update(testData())
	return coord, box
}

func collect(t *testing.T, box *Box) (func() []entity.Entity, func()) {
	t.Helper()
	var (
		mu    sync.Mutex
		added []entity.Entity
	)
	remove := SetupEntry(box, func(es []entity.Entity) {
		mu.Lock()
		added = append(added, es...)
		mu.Unlock()
	})
	return func() []entity.Entity {
		mu.Lock()
		defer mu.Unlock()
		return append([]entity.Entity(nil), added...)
	}, remove
}

func lightByAIN(t *testing.T, es []entity.Entity, ain string) *Light {
	t.Helper()
	for _, e := range es {
		if e.UniqueID() == ain {
			return e.(*Light)
		}
	}
	t.Fatalf("no light %q", ain)
	return nil
}

func TestSetupEntryAddsLightbulbsOnly(t *testing.T) {
	_, box := newTestBox(t, &fakeAPI{})
	added, _ := collect(t, box)

	var ids []string
	for _, e := range added() {
		ids = append(ids, e.UniqueID())
	}
	assert.Equal(t, []string{ainColor, ainDim, ainFull, ainPlain}, ids)
}

func TestSetupEntryAddsNewDevices(t *testing.T) {
	coord, box := newTestBox(t, &fakeAPI{})
	added, remove := collect(t, box)
	require.Len(t, added(), 4)

	data := testData()
	data.Devices["12345 0000009"] = Device{AIN: "12345 0000009", Name: "New bulb", Present: true, HasLightbulb: true}
	data.Devices["08761 0000010"] = Device{AIN: "08761 0000010", Name: "New plug", Present: true}
	coord.Update(data)

	got := added()
	require.Len(t, got, 5)
	assert.Equal(t, "12345 0000009", got[4].UniqueID())

	// Repeated updates do not add the same bulb again.
	coord.Update(data)
	assert.Len(t, added(), 5)

	remove()
	data.Devices["12345 0000011"] = Device{AIN: "12345 0000011", Present: true, HasLightbulb: true}
	coord.Update(data)
	assert.Len(t, added(), 5)
}

func TestBoxNewDevices(t *testing.T) {
	coord, box := newTestBox(t, nil)
	assert.Len(t, box.NewDevices(), 5, "first update reports every device")

	coord.Update(testData())
	assert.Empty(t, box.NewDevices())

	data := testData()
	data.Devices["b"] = Device{AIN: "b"}
	data.Devices["a"] = Device{AIN: "a"}
	coord.Update(data)
	assert.Equal(t, []string{"a", "b"}, box.NewDevices())
}

func TestLightMetadata(t *testing.T) {
	_, box := newTestBox(t, &fakeAPI{})
	added, _ := collect(t, box)
	es := added()

	color := lightByAIN(t, es, ainColor)
	assert.Equal(t, entity.PlatformLight, color.Platform())
	assert.Equal(t, []entity.ColorMode{entity.ColorModeColorTemp, entity.ColorModeHS}, color.SupportedColorModes())
	assert.Equal(t, 2700, color.MinColorTempKelvin())
	assert.Equal(t, 6500, color.MaxColorTempKelvin())
	info := color.Info()
	assert.True(t, info.HasEntityName)
	assert.Nil(t, info.Name)
	assert.Equal(t, "Lounge bulb", info.Device.Name)
	assert.Equal(t, "FRITZ!DECT 500", info.Device.Model)
	assert.Equal(t, ainColor, info.Device.PrimaryID())

	dim := lightByAIN(t, es, ainDim)
	assert.Equal(t, []entity.ColorMode{entity.ColorModeBrightness}, dim.SupportedColorModes())
	assert.Zero(t, dim.MinColorTempKelvin())

	plain := lightByAIN(t, es, ainPlain)
	assert.Equal(t, []entity.ColorMode{entity.ColorModeOnOff}, plain.SupportedColorModes())
}

func TestLightColorMode(t *testing.T) {
	_, box := newTestBox(t, &fakeAPI{})

	tests := []struct {
		ain  string
		want entity.ColorMode
	}{
		{ainColor, entity.ColorModeHS},
		{ainFull, entity.ColorModeColorTemp},
		{ainDim, entity.ColorModeBrightness},
		{ainPlain, entity.ColorModeOnOff},
	}
	for _, tt := range tests {
		t.Run(tt.ain, func(t *testing.T) {
			mode, err := NewLight(box, tt.ain).ColorMode()
			require.NoError(t, err)
			assert.Equal(t, tt.want, mode)
		})
	}
}

func TestLightReadsSnapshot(t *testing.T) {
	coord, box := newTestBox(t, &fakeAPI{})
	l := NewLight(box, ainColor)

	on, err := l.IsOn()
	require.NoError(t, err)
	assert.True(t, on)

	level, err := l.Brightness()
	require.NoError(t, err)
	assert.Equal(t, 100, level)

	hs, err := l.HSColor()
	require.NoError(t, err)
	assert.InDelta(t, 180.0, hs.Hue, 0.001)
	assert.InDelta(t, 100.0, hs.Saturation, 0.001)

	kelvin, err := l.ColorTempKelvin()
	require.NoError(t, err)
	assert.Equal(t, 2700, kelvin)

	data := testData()
	dev := data.Devices[ainColor]
	dev.State = false
	data.Devices[ainColor] = dev
	coord.Update(data)

	on, err = l.IsOn()
	require.NoError(t, err)
	assert.False(t, on)

	delete(data.Devices, ainColor)
	coord.Update(data)
	_, err = l.IsOn()
	assert.ErrorIs(t, err, entity.ErrKeyMissing)
}

func TestLightAvailable(t *testing.T) {
	coord, box := newTestBox(t, &fakeAPI{})

	assert.True(t, NewLight(box, ainColor).Available())
	assert.False(t, NewLight(box, ainPlain).Available(), "bulb not present")

	coord.SetError(errors.New("box offline"))
	assert.False(t, NewLight(box, ainColor).Available())
}

func TestLightTurnOn(t *testing.T) {
	tests := []struct {
		name   string
		ain    string
		params entity.TurnOnParams
		want   []apiCall
	}{
		{
			name: "no params",
			ain:  ainDim,
			want: []apiCall{{"set_state_on", nil}},
		},
		{
			name:   "brightness",
			ain:    ainDim,
			params: entity.TurnOnParams{Brightness: ptr(128)},
			want:   []apiCall{{"set_level", []int{128}}, {"set_state_on", nil}},
		},
		{
			name:   "unmapped colour",
			ain:    ainFull,
			params: entity.TurnOnParams{HSColor: &entity.HSColor{Hue: 360, Saturation: 50}},
			want:   []apiCall{{"set_unmapped_color", []int{0, 128}}, {"set_state_on", nil}},
		},
		{
			name:   "snapped to nearest supported colour",
			ain:    ainColor,
			params: entity.TurnOnParams{HSColor: &entity.HSColor{Hue: 130, Saturation: 40}},
			want:   []apiCall{{"set_color", []int{120, 82}}, {"set_state_on", nil}},
		},
		{
			name:   "high hue snaps to red",
			ain:    ainColor,
			params: entity.TurnOnParams{HSColor: &entity.HSColor{Hue: 350, Saturation: 100}},
			want:   []apiCall{{"set_color", []int{358, 180}}, {"set_state_on", nil}},
		},
		{
			name:   "equidistant hues keep device order",
			ain:    ainColor,
			params: entity.TurnOnParams{HSColor: &entity.HSColor{Hue: 299, Saturation: 100}},
			want:   []apiCall{{"set_color", []int{358, 180}}, {"set_state_on", nil}},
		},
		{
			name:   "colour temperature",
			ain:    ainColor,
			params: entity.TurnOnParams{ColorTempKelvin: ptr(4000)},
			want:   []apiCall{{"set_color_temp", []int{4000}}, {"set_state_on", nil}},
		},
		{
			name: "all",
			ain:  ainFull,
			params: entity.TurnOnParams{
				Brightness:      ptr(10),
				HSColor:         &entity.HSColor{Hue: 90, Saturation: 100},
				ColorTempKelvin: ptr(3000),
			},
			want: []apiCall{
				{"set_level", []int{10}},
				{"set_unmapped_color", []int{90, 255}},
				{"set_color_temp", []int{3000}},
				{"set_state_on", nil},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{}
			var refreshes int
			coord := coordinator.New[Data](Domain, coordinator.RefresherFunc(func(context.Context) error {
				refreshes++
				return nil
			}), coordinator.Options{})
			t.Cleanup(coord.Close)
			box := NewBox(coord, api)
			coord.Update(testData())

			err := NewLight(box, tt.ain).TurnOn(context.Background(), tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, api.calls)
			assert.Equal(t, 1, refreshes)
		})
	}
}

func TestLightTurnOnWithoutSupportedColors(t *testing.T) {
	api := &fakeAPI{}
	_, box := newTestBox(t, api)

	err := NewLight(box, ainDim).TurnOn(context.Background(), entity.TurnOnParams{
		HSColor: &entity.HSColor{Hue: 10, Saturation: 10},
	})
	assert.ErrorIs(t, err, ErrNoSupportedColors)
	assert.Empty(t, api.methods(), "no state change after a failed colour")
}

func TestLightTurnOff(t *testing.T) {
	api := &fakeAPI{}
	var refreshes int
	coord := coordinator.New[Data](Domain, coordinator.RefresherFunc(func(context.Context) error {
		refreshes++
		return nil
	}), coordinator.Options{})
	t.Cleanup(coord.Close)
	box := NewBox(coord, api)
	coord.Update(testData())

	require.NoError(t, NewLight(box, ainColor).TurnOff(context.Background()))
	assert.Equal(t, []string{"set_state_off"}, api.methods())
	assert.Equal(t, 1, refreshes)
}

func TestLightVendorErrorSkipsRefresh(t *testing.T) {
	api := &fakeAPI{err: errors.New("HTTP 500")}
	var refreshes int
	coord := coordinator.New[Data](Domain, coordinator.RefresherFunc(func(context.Context) error {
		refreshes++
		return nil
	}), coordinator.Options{})
	t.Cleanup(coord.Close)
	box := NewBox(coord, api)
	coord.Update(testData())

	err := NewLight(box, ainColor).TurnOn(context.Background(), entity.TurnOnParams{Brightness: ptr(1)})
	assert.EqualError(t, err, "HTTP 500")
	assert.Equal(t, []string{"set_level"}, api.methods())
	assert.Zero(t, refreshes)

	assert.Error(t, NewLight(box, ainColor).TurnOff(context.Background()))
	assert.Zero(t, refreshes)
}

type recordingCommander struct {
	method string
	args   map[string]any
}

func (r *recordingCommander) SendCommand(_ context.Context, method string, args map[string]any) error {
	r.method, r.args = method, args
	return nil
}

func TestLinkAPI(t *testing.T) {
	cmd := &recordingCommander{}
	api := NewLinkAPI(cmd)
	ctx := context.Background()

	require.NoError(t, api.SetColor(ctx, ainColor, 120, 82))
	assert.Equal(t, "set_color", cmd.method)
	assert.Equal(t, map[string]any{"ain": ainColor, "hue": 120, "saturation": 82, "duration": 0, "wait": true}, cmd.args)

	require.NoError(t, api.SetColorTemp(ctx, ainColor, 3000))
	assert.Equal(t, "set_color_temp", cmd.method)
	assert.Equal(t, 3000, cmd.args["temperature"])

	require.NoError(t, api.SetStateOff(ctx, ainColor))
	assert.Equal(t, "set_state_off", cmd.method)
	assert.Equal(t, ainColor, cmd.args["ain"])
}

func ptr[T any](v T) *T { return &v }
