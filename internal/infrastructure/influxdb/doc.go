// Package influxdb writes entity telemetry to InfluxDB.
//
// The entity bridge records every published entity state change as a point
// in the "entity_state" measurement, tagged by unique ID, platform,
// integration domain and site. Writes are non-blocking and batched
// according to the influxdb section of the hub config (batch_size,
// flush_interval). Async write failures are delivered to the callback set with SetOnError.
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB, cfg.Site.ID)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // telemetry is optional
//	}
//	defer client.Close()
//
//	client.WriteEntityState(influxdb.EntityState{UniqueID: "abc-1", Platform: "light", Available: true})
//
// All methods are safe for concurrent use. Methods on a disconnected or
// closed client are no-ops.
package influxdb
