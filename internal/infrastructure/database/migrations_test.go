package database

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"testing"
	"testing/fstest"
)

//go:embed testdata/*.sql
var testMigrationsFS embed.FS

func useMigrations(t *testing.T, fsys fs.FS, dir string) {
	t.Helper()
	origFS, origDir := MigrationsFS, MigrationsDir
	t.Cleanup(func() { MigrationsFS, MigrationsDir = origFS, origDir })
	MigrationsFS, MigrationsDir = fsys, dir
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&n)
	if err != nil {
		t.Fatalf("querying sqlite_master: %v", err)
	}
	return n == 1
}

func TestMigrate_AppliesInOrderAndIsIdempotent(t *testing.T) {
	useMigrations(t, testMigrationsFS, "testdata")
	db := openMemory(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if !tableExists(t, db, "scratch") {
		t.Fatal("scratch table not created")
	}

	applied, pending, err := db.MigrationStatus(ctx)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 2 || applied[0].Version != "20260101_000000" || applied[1].Version != "20260102_000000" {
		t.Errorf("applied = %+v, want both versions in order", applied)
	}
	if len(pending) != 0 {
		t.Errorf("pending = %d, want 0", len(pending))
	}
	if applied[0].AppliedAt.IsZero() {
		t.Error("AppliedAt not recorded")
	}

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestMigrate_NothingEmbedded(t *testing.T) {
	useMigrations(t, nil, ".")
	db := openMemory(t)

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if !tableExists(t, db, "schema_migrations") {
		t.Error("schema_migrations should exist even with nothing to apply")
	}
}

func TestMigrate_FailureStopsAtBrokenVersion(t *testing.T) {
	useMigrations(t, fstest.MapFS{
		"20260101_000000_ok.up.sql":     {Data: []byte("CREATE TABLE ok (id INTEGER);")},
		"20260102_000000_broken.up.sql": {Data: []byte("CREATE TABLE ;")},
		"20260103_000000_later.up.sql":  {Data: []byte("CREATE TABLE later (id INTEGER);")},
	}, ".")
	db := openMemory(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err == nil {
		t.Fatal("Migrate() expected error for broken SQL")
	}
	if !tableExists(t, db, "ok") {
		t.Error("migration before the failure should stay committed")
	}
	if tableExists(t, db, "later") {
		t.Error("migration after the failure should not run")
	}
	_, pending, err := db.MigrationStatus(ctx)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(pending) != 2 {
		t.Errorf("pending = %d, want 2", len(pending))
	}
}

func TestMigrateDown(t *testing.T) {
	useMigrations(t, fstest.MapFS{
		"20260101_000000_scratch.up.sql":   {Data: []byte("CREATE TABLE scratch (id INTEGER);")},
		"20260101_000000_scratch.down.sql": {Data: []byte("DROP TABLE scratch;")},
	}, ".")
	db := openMemory(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.MigrateDown(ctx); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}
	if tableExists(t, db, "scratch") {
		t.Error("scratch table should be dropped")
	}
	if err := db.MigrateDown(ctx); err != nil {
		t.Errorf("MigrateDown() with nothing applied error = %v", err)
	}
}

func TestMigrateDown_WithoutDownFile(t *testing.T) {
	useMigrations(t, testMigrationsFS, "testdata")
	db := openMemory(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	// The latest test migration ships without a down file.
	if err := db.MigrateDown(ctx); !errors.Is(err, ErrNoDownMigration) {
		t.Errorf("MigrateDown() error = %v, want ErrNoDownMigration", err)
	}
}

func TestParseFilename(t *testing.T) {
	tests := []struct {
		file        string
		wantVersion string
		wantName    string
		wantUp      bool
		wantOK      bool
	}{
		{"20261001_120000_journal.up.sql", "20261001_120000", "journal", true, true},
		{"20261001_120000_journal.down.sql", "20261001_120000", "journal", false, true},
		{"20261001_120000_add_reason_index.up.sql", "20261001_120000", "add_reason_index", true, true},
		{"20261001_120000.up.sql", "20261001_120000", "20261001_120000", true, true},
		{"20261001.up.sql", "", "", false, false},
		{"20261001_120000_journal.sql", "", "", false, false},
		{"README.md", "", "", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			version, name, up, ok := parseFilename(tt.file)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if version != tt.wantVersion || name != tt.wantName || up != tt.wantUp {
				t.Errorf("parseFilename() = (%q, %q, %v), want (%q, %q, %v)",
					version, name, up, tt.wantVersion, tt.wantName, tt.wantUp)
			}
		})
	}
}
