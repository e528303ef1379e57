package vendorlink

import (
	"context"

	"github.com/nerrad567/gray-logic-hub/internal/coordinator"
)

// Bind creates a coordinator and the link that feeds it. The coordinator
// refreshes through the link and the link delivers snapshots to the
// coordinator. The link still has to be started.
func Bind[T any](client MQTTClient, domain, entryID string, copts coordinator.Options, lopts Options) (*coordinator.Coordinator[T], *Link[T]) {
	var link *Link[T]
	coord := coordinator.New[T](entryID, coordinator.RefresherFunc(func(ctx context.Context) error {
		return link.Refresh(ctx)
	}), copts)
	link = New[T](client, domain, entryID, coord, lopts)
	return coord, link
}
