package entity

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gray-logic-hub/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-hub/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-hub/migrations"
)

// fakeSensor is a binary sensor with a settable reading.
type fakeSensor struct {
	uid   string
	class DeviceClass
	on    bool
	err   error
}

func (s *fakeSensor) UniqueID() string   { return s.uid }
func (s *fakeSensor) Platform() Platform { return PlatformBinarySensor }
func (s *fakeSensor) Info() Info {
	return Info{
		HasEntityName: true,
		DeviceClass:   s.class,
		Device:        DeviceInfo{Identifiers: []DeviceIdentifier{{Domain: "test", ID: "dev-" + s.uid}}, Name: "Sensor"},
	}
}
func (s *fakeSensor) IsOn() (bool, error) { return s.on, s.err }

// fakeLight is a colour light with settable readings. modes overrides the
// default colour_temp and hs modes.
type fakeLight struct {
	uid        string
	modes      []ColorMode
	on         bool
	mode       ColorMode
	brightness int
	hs         HSColor
	kelvin     int
	err        error
}

func (l *fakeLight) UniqueID() string   { return l.uid }
func (l *fakeLight) Platform() Platform { return PlatformLight }
func (l *fakeLight) Info() Info {
	return Info{Device: DeviceInfo{Name: "Lamp", Manufacturer: "Acme", Model: "L1"}}
}
func (l *fakeLight) IsOn() (bool, error)           { return l.on, l.err }
func (l *fakeLight) ColorMode() (ColorMode, error) { return l.mode, nil }
func (l *fakeLight) SupportedColorModes() []ColorMode {
	if l.modes != nil {
		return l.modes
	}
	return []ColorMode{ColorModeColorTemp, ColorModeHS}
}
func (l *fakeLight) TurnOn(context.Context, TurnOnParams) error { l.on = true; return nil }
func (l *fakeLight) TurnOff(context.Context) error              { l.on = false; return nil }
func (l *fakeLight) Brightness() (int, error)                   { return l.brightness, nil }
func (l *fakeLight) HSColor() (HSColor, error)                  { return l.hs, nil }
func (l *fakeLight) ColorTempKelvin() (int, error)              { return l.kelvin, nil }
func (l *fakeLight) MinColorTempKelvin() int                    { return 2700 }
func (l *fakeLight) MaxColorTempKelvin() int                    { return 6500 }

// openTestDB opens a migrated temp database.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "entity.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	require.NoError(t, db.Migrate(ctx, migrations.FS))
	return db.DB
}
