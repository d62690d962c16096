package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func openMemory(t *testing.T) *DB {
	t.Helper()
	db, err := Open(Config{Path: MemoryPath, BusyTimeout: 1})
	if err != nil {
		t.Fatalf("Open(memory) error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup
	return db
}

func TestOpen_CreatesNestedFile(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "data", "journal", "visionpilot.db")

	db, err := Open(Config{Path: dbPath, WALMode: true, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close() //nolint:errcheck // test cleanup

	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database file not created: %v", err)
	}
	if db.Path() != dbPath {
		t.Errorf("Path() = %q, want %q", db.Path(), dbPath)
	}
}

func TestOpen_Memory(t *testing.T) {
	db := openMemory(t)
	if db.Path() != MemoryPath {
		t.Errorf("Path() = %q, want %q", db.Path(), MemoryPath)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestDSN(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		memory bool
		want   string
	}{
		{
			name: "file with WAL",
			cfg:  Config{Path: "/tmp/j.db", WALMode: true, BusyTimeout: 5},
			want: "file:/tmp/j.db?_busy_timeout=5000&_foreign_keys=on&_journal_mode=WAL&_synchronous=NORMAL",
		},
		{
			name: "file without WAL",
			cfg:  Config{Path: "/tmp/j.db", BusyTimeout: 2},
			want: "file:/tmp/j.db?_busy_timeout=2000&_foreign_keys=on",
		},
		{
			name:   "memory ignores WAL",
			cfg:    Config{Path: MemoryPath, WALMode: true},
			memory: true,
			want:   "file::memory:?_busy_timeout=0&_foreign_keys=on",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dsn(tt.cfg, tt.memory); got != tt.want {
				t.Errorf("dsn() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClose_Idempotent(t *testing.T) {
	var nilDB *DB
	if err := nilDB.Close(); err != nil {
		t.Errorf("nil Close() error = %v", err)
	}

	db, err := Open(Config{Path: MemoryPath})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := db.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() after Close should fail")
	}
}
