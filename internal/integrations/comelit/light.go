package comelit

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/nerrad567/gray-logic-hub/internal/entity"
)

// parallelUpdates of zero leaves light commands unlimited.
const parallelUpdates = 0

// SetupEntry adds one light entity per light in the coordinator snapshot,
// ordered by index.
func SetupEntry(entry entity.ConfigEntry, coord Coordinator, add entity.AddEntitiesFunc) {
	lights := coord.Data()[Light]
	objs := slices.SortedFunc(maps.Values(lights), func(a, b Object) int {
		return cmp.Compare(a.Index, b.Index)
	})

	entities := make([]entity.Entity, 0, len(objs))
	for _, obj := range objs {
		entities = append(entities, NewLightEntity(coord, obj, entry.EntryID))
	}
	add(entities)
}

// LightEntity is an on/off light on the serial bridge.
type LightEntity struct {
	coord    Coordinator
	index    int
	uniqueID string
	device   entity.DeviceInfo
}

// NewLightEntity creates the entity for one light object.
func NewLightEntity(coord Coordinator, obj Object, entryID string) *LightEntity {
	return &LightEntity{
		coord:    coord,
		index:    obj.Index,
		uniqueID: fmt.Sprintf("%s-%d", entryID, obj.Index),
		device:   coord.PlatformDeviceInfo(obj, obj.Type),
	}
}

func (l *LightEntity) UniqueID() string         { return l.uniqueID }
func (l *LightEntity) Platform() entity.Platform { return entity.PlatformLight }

// Info names the entity after its device.
func (l *LightEntity) Info() entity.Info {
	return entity.Info{HasEntityName: true, Device: l.device}
}

// Available follows the coordinator's last update.
func (l *LightEntity) Available() bool { return l.coord.LastUpdateSuccess() }

// ParallelUpdates implements entity.ParallelLimiter.
func (l *LightEntity) ParallelUpdates() int { return parallelUpdates }

// IsOn reports whether the light's status in the current snapshot is on.
func (l *LightEntity) IsOn() (bool, error) {
	obj, ok := l.coord.Data()[Light][l.index]
	if !ok {
		return false, fmt.Errorf("%w: %s[%d]", entity.ErrKeyMissing, Light, l.index)
	}
	return obj.Status == StateOn, nil
}

func (l *LightEntity) ColorMode() (entity.ColorMode, error) {
	return entity.ColorModeOnOff, nil
}

func (l *LightEntity) SupportedColorModes() []entity.ColorMode {
	return []entity.ColorMode{entity.ColorModeOnOff}
}

// TurnOn switches the light on. Parameters are ignored.
func (l *LightEntity) TurnOn(ctx context.Context, _ entity.TurnOnParams) error {
	return l.setState(ctx, StateOn)
}

// TurnOff switches the light off.
func (l *LightEntity) TurnOff(ctx context.Context) error {
	return l.setState(ctx, StateOff)
}

func (l *LightEntity) setState(ctx context.Context, state int) error {
	if err := l.coord.API().SetDeviceStatus(ctx, Light, l.index, state); err != nil {
		return err
	}
	return l.coord.RequestRefresh(ctx)
}
