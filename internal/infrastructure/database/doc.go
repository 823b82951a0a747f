// Package database opens the SQLite file that stores saved config
// revisions and applies its schema migrations.
//
// WAL mode lets the API read revision history while a save is being
// written; the busy timeout avoids "database is locked" errors under
// contention. The file is created with 0600 permissions.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if _, err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with an
// optional matching .down.sql, and are applied in version order.
package database
