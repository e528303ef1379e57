// Package database opens the hub's SQLite file and migrates its schema.
//
// The file holds two tables owned by package entity: entities (one record
// per registered entity, pruned when a device disappears) and
// state_history (entity state changes, pruned by retention).
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with an
// optional .down.sql; each runs in its own transaction.
package database
