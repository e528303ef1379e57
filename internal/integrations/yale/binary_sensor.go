package yale

import (
	"fmt"

	"github.com/nerrad567/gray-logic-hub/internal/entity"
)

// SensorTypes describes the panel problem sensors, keyed by status flag.
var SensorTypes = []entity.Description{
	{
		Key:            "acfail",
		DeviceClass:    entity.DeviceClassProblem,
		Category:       entity.CategoryDiagnostic,
		TranslationKey: "power_loss",
	},
	{
		Key:            "battery",
		DeviceClass:    entity.DeviceClassProblem,
		Category:       entity.CategoryDiagnostic,
		TranslationKey: "battery",
	},
	{
		Key:            "tamper",
		DeviceClass:    entity.DeviceClassProblem,
		Category:       entity.CategoryDiagnostic,
		TranslationKey: "tamper",
	},
	{
		Key:            "jam",
		DeviceClass:    entity.DeviceClassProblem,
		Category:       entity.CategoryDiagnostic,
		TranslationKey: "jam",
	},
}

// SetupEntry adds a door sensor for every door or window contact, then a
// battery sensor for every contact, then one problem sensor per entry in
// SensorTypes.
func SetupEntry(coord Coordinator, add entity.AddEntitiesFunc) {
	doors := coord.Data().DoorWindows

	sensors := make([]entity.Entity, 0, 2*len(doors)+len(SensorTypes))
	for _, dw := range doors {
		sensors = append(sensors, NewDoorSensor(coord, dw))
	}
	for _, dw := range doors {
		sensors = append(sensors, NewDoorBatterySensor(coord, dw))
	}
	for _, desc := range SensorTypes {
		sensors = append(sensors, NewProblemSensor(coord, desc))
	}

	add(sensors)
}

// sensorBase holds what every alarm binary sensor shares.
type sensorBase struct {
	coord    Coordinator
	uniqueID string
	info     entity.Info
}

func (s *sensorBase) UniqueID() string         { return s.uniqueID }
func (s *sensorBase) Platform() entity.Platform { return entity.PlatformBinarySensor }
func (s *sensorBase) Info() entity.Info         { return s.info }

// Available follows the coordinator's last update.
func (s *sensorBase) Available() bool { return s.coord.LastUpdateSuccess() }

// DoorSensor reports whether a door or window is open.
type DoorSensor struct {
	sensorBase
}

// NewDoorSensor creates the sensor for a contact. Its unique ID is the
// contact address.
func NewDoorSensor(coord Coordinator, dw DoorWindow) *DoorSensor {
	return &DoorSensor{sensorBase{
		coord:    coord,
		uniqueID: dw.Address,
		info: entity.Info{
			HasEntityName: true,
			DeviceClass:   entity.DeviceClassDoor,
			Device:        contactDevice(coord, dw),
		},
	}}
}

// IsOn is true when the contact is open.
func (s *DoorSensor) IsOn() (bool, error) {
	v, ok := s.coord.Data().SensorMap[s.uniqueID]
	if !ok {
		return false, fmt.Errorf("%w: sensor_map[%s]", entity.ErrKeyMissing, s.uniqueID)
	}
	return v == doorOpen, nil
}

// DoorBatterySensor reports a contact's low battery.
type DoorBatterySensor struct {
	sensorBase
}

// NewDoorBatterySensor creates the battery sensor for a contact.
func NewDoorBatterySensor(coord Coordinator, dw DoorWindow) *DoorBatterySensor {
	return &DoorBatterySensor{sensorBase{
		coord:    coord,
		uniqueID: dw.Address + "-battery",
		info: entity.Info{
			HasEntityName: true,
			DeviceClass:   entity.DeviceClassBattery,
			Device:        contactDevice(coord, dw),
		},
	}}
}

// IsOn is true when the battery is low.
func (s *DoorBatterySensor) IsOn() (bool, error) {
	v, ok := s.coord.Data().SensorBatteryMap[s.uniqueID]
	if !ok {
		return false, fmt.Errorf("%w: sensor_battery_map[%s]", entity.ErrKeyMissing, s.uniqueID)
	}
	return v, nil
}

// ProblemSensor reports one panel problem flag.
type ProblemSensor struct {
	sensorBase
	key string
}

// NewProblemSensor creates the sensor for one description. It belongs to
// the alarm panel device.
func NewProblemSensor(coord Coordinator, desc entity.Description) *ProblemSensor {
	return &ProblemSensor{
		sensorBase: sensorBase{
			coord:    coord,
			uniqueID: fmt.Sprintf("%s-%s", coord.Entry().EntryID, desc.Key),
			info: entity.Info{
				HasEntityName:  true,
				DeviceClass:    desc.DeviceClass,
				Category:       desc.Category,
				TranslationKey: desc.TranslationKey,
				Device:         panelDevice(coord),
			},
		},
		key: desc.Key,
	}
}

// IsOn is true when the flag is anything but "main.normal".
func (s *ProblemSensor) IsOn() (bool, error) {
	v, ok := s.coord.Data().Status[s.key]
	if !ok {
		return false, fmt.Errorf("%w: status[%s]", entity.ErrKeyMissing, s.key)
	}
	return v != statusNormal, nil
}
