// Package migrations compiles the session journal schema into the binary.
//
// Importing it for side effects registers the files with the database
// package, so db.Migrate needs nothing on disk.
package migrations

import (
	"embed"

	"github.com/nerrad567/visionpilot/internal/infrastructure/database"
)

//go:embed *.sql
var files embed.FS

func init() {
	database.MigrationsFS = files
	database.MigrationsDir = "."
}
