// Package database opens the SQLite file behind the session journal and
// applies its schema migrations.
//
// The connection is tuned for a single writer: one open connection, WAL
// journalling when enabled and a busy timeout so that a concurrent reader
// (the control API listing sessions) never sees "database is locked".
//
// Migrations are embedded by the top-level migrations package, which sets
// MigrationsFS and MigrationsDir from its init function. Files are named
// YYYYMMDD_HHMMSS_description.up.sql with an optional .down.sql partner.
// Schema changes are additive only.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
