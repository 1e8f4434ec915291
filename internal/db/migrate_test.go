// Package db tests for schema migration management.
package db

import (
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

// TestMigratorUp verifies all migrations apply and the schema is usable.
func TestMigratorUp(t *testing.T) {
	database := openTestDB(t)
	m := NewMigrator(database.DB)

	if err := m.Up(); err != nil {
		t.Fatalf("Up() failed: %v", err)
	}

	version, err := m.CurrentVersion()
	if err != nil {
		t.Fatalf("CurrentVersion() failed: %v", err)
	}
	if version != len(migrations) {
		t.Errorf("version = %d, want %d", version, len(migrations))
	}

	// The records table accepts inserts after migration.
	_, err = database.Exec(
		`INSERT INTO records (title, category, created_at) VALUES (?, ?, ?)`,
		"probe", "task", 1700000000,
	)
	if err != nil {
		t.Errorf("insert into migrated schema failed: %v", err)
	}
}

// TestMigratorUpIdempotent verifies a second Up is a no-op.
func TestMigratorUpIdempotent(t *testing.T) {
	database := openTestDB(t)
	m := NewMigrator(database.DB)

	if err := m.Up(); err != nil {
		t.Fatalf("first Up() failed: %v", err)
	}
	if err := m.Up(); err != nil {
		t.Fatalf("second Up() failed: %v", err)
	}

	applied, err := m.GetAppliedMigrations()
	if err != nil {
		t.Fatalf("GetAppliedMigrations() failed: %v", err)
	}
	if len(applied) != len(migrations) {
		t.Errorf("applied = %d migrations, want %d", len(applied), len(migrations))
	}
	for _, mig := range applied {
		if len(mig.Checksum) != 64 {
			t.Errorf("migration %d checksum length = %d, want 64", mig.Version, len(mig.Checksum))
		}
	}
}

// TestSchemaRejectsBadStatus verifies the status CHECK constraint holds.
func TestSchemaRejectsBadStatus(t *testing.T) {
	database := openTestDB(t)
	if err := NewMigrator(database.DB).Up(); err != nil {
		t.Fatalf("Up() failed: %v", err)
	}

	_, err := database.Exec(
		`INSERT INTO records (title, category, created_at, sync_status) VALUES (?, ?, ?, ?)`,
		"probe", "task", 1700000000, "delivered",
	)
	if err == nil {
		t.Error("insert with unknown sync_status should have failed")
	}
}
