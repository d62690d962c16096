package database

import "errors"

var (
	// ErrNoDownMigration is returned when rolling back a migration that has no .down.sql file.
	ErrNoDownMigration = errors.New("database: migration has no down SQL")

	// ErrUnknownMigration is returned when an applied version has no file in MigrationsFS.
	ErrUnknownMigration = errors.New("database: applied migration not found")
)
