package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// measurementEntityState is the measurement name for entity state points.
const measurementEntityState = "entity_state"

// EntityState is one observed entity state.
type EntityState struct {
	UniqueID string
	Platform string
	Domain   string

	// On is nil when the state is unknown (entity unavailable).
	On        *bool
	Available bool

	// Attributes holds extra numeric values such as brightness or
	// color_temp_kelvin. Non-numeric values are ignored.
	Attributes map[string]any

	// Time defaults to now when zero.
	Time time.Time
}

// WriteEntityState queues an entity state point. It is a no-op when the
// client is not connected.
func (c *Client) WriteEntityState(s EntityState) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(entityPoint(s))
}

// entityPoint builds the line protocol point for an entity state.
func entityPoint(s EntityState) *write.Point {
	ts := s.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	tags := map[string]string{
		"unique_id": s.UniqueID,
		"platform":  s.Platform,
	}
	if s.Domain != "" {
		tags["domain"] = s.Domain
	}

	fields := map[string]any{
		"available": s.Available,
	}
	if s.On != nil {
		on := 0
		if *s.On {
			on = 1
		}
		fields["on"] = on
	}
	for k, v := range s.Attributes {
		if f, ok := numericField(v); ok {
			fields[k] = f
		}
	}

	return write.NewPoint(measurementEntityState, tags, fields, ts)
}

// numericField converts supported attribute values to a float field.
func numericField(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}
