package entitybridge

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-hub/internal/entity"
)

func TestHealthDetermineStatus(t *testing.T) {
	connected := NewMockMQTTClient()
	disconnected := NewMockMQTTClient()
	disconnected.connected = false

	tests := []struct {
		name      string
		publisher HealthPublisher
		counts    HealthCounts
		want      HealthStatus
	}{
		{"healthy", connected, HealthCounts{Total: 3}, HealthHealthy},
		{"unavailable entities", connected, HealthCounts{Total: 3, Unavailable: 1}, HealthDegraded},
		{"mqtt down", disconnected, HealthCounts{Total: 3}, HealthDegraded},
		{"no publisher", nil, HealthCounts{}, HealthDegraded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthReporter(HealthReporterConfig{Publisher: tt.publisher})
			if got, _ := h.determineStatus(tt.counts); got != tt.want {
				t.Errorf("determineStatus() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHealthMessageContent(t *testing.T) {
	client := NewMockMQTTClient()
	h := NewHealthReporter(HealthReporterConfig{
		BridgeID:  "entity",
		Version:   "1.2.3",
		Interval:  time.Hour,
		Publisher: client,
		Counts: func() HealthCounts {
			return HealthCounts{
				ByPlatform:  map[entity.Platform]int{entity.PlatformLight: 2, entity.PlatformBinarySensor: 5},
				Total:       7,
				Unavailable: 2,
				Stats:       BridgeStatistics{CommandsReceived: 4},
			}
		},
	})

	if err := h.PublishNow(); err != nil {
		t.Fatalf("PublishNow() error = %v", err)
	}
	msgs := client.GetPublished("graylogic/health/entity")
	if len(msgs) != 1 || !msgs[0].Retained {
		t.Fatalf("health messages = %+v, want one retained", msgs)
	}

	var msg HealthMessage
	if err := json.Unmarshal(msgs[0].Payload, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Status != HealthDegraded || msg.Reason != "2 of 7 entities unavailable" {
		t.Errorf("status = %q reason = %q", msg.Status, msg.Reason)
	}
	if msg.Entities[entity.PlatformBinarySensor] != 5 || msg.EntitiesTotal != 7 {
		t.Errorf("entities = %v total = %d", msg.Entities, msg.EntitiesTotal)
	}
	if msg.Statistics == nil || msg.Statistics.CommandsReceived != 4 {
		t.Errorf("statistics = %+v", msg.Statistics)
	}

	h.Stop()
	h.Stop()
	last := client.GetPublished("graylogic/health/entity")
	var final HealthMessage
	if err := json.Unmarshal(last[len(last)-1].Payload, &final); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if final.Status != HealthStopping {
		t.Errorf("final status = %q, want %q", final.Status, HealthStopping)
	}
	if len(last) != 2 {
		t.Errorf("messages after double Stop = %d, want 2", len(last))
	}
}
