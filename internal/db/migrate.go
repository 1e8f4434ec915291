// Package db provides database schema migration management.
package db

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"time"

	"github.com/kimhsiao/fieldlog/internal/apperr"
)

// Migration represents a database schema migration.
type Migration struct {
	Version     int
	AppliedAt   time.Time
	Description string
	Checksum    string
}

// migration holds one embedded schema step. Migrations are compiled into the
// binary so the collector never depends on files shipped next to it.
type migration struct {
	version     int
	description string
	sql         string
}

var migrations = []migration{
	{
		version:     1,
		description: "create records table",
		sql: `
		CREATE TABLE IF NOT EXISTS records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL CHECK(length(title) > 0),
			description TEXT,
			category TEXT NOT NULL CHECK(length(category) > 0),
			value REAL,
			memo TEXT,
			created_at INTEGER NOT NULL CHECK(created_at > 0),
			sync_status TEXT NOT NULL DEFAULT 'pending'
				CHECK(sync_status IN ('pending', 'synced', 'error')),
			server_id INTEGER,
			last_error TEXT
		);`,
	},
	{
		version:     2,
		description: "index records by sync status",
		sql:         `CREATE INDEX IF NOT EXISTS idx_records_sync_status ON records(sync_status);`,
	},
}

// Migrator handles database schema migrations.
type Migrator struct {
	db *sql.DB
}

// NewMigrator creates a new Migrator instance.
func NewMigrator(db *sql.DB) *Migrator {
	return &Migrator{db: db}
}

// Initialize creates the schema_migrations table if it doesn't exist.
func (m *Migrator) Initialize() error {
	query := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY CHECK(version > 0),
		applied_at INTEGER NOT NULL CHECK(applied_at > 0),
		description TEXT NOT NULL CHECK(length(description) > 0),
		checksum TEXT NOT NULL CHECK(length(checksum) = 64)
	);`
	_, err := m.db.Exec(query)
	return err
}

// CurrentVersion returns the current schema version.
func (m *Migrator) CurrentVersion() (int, error) {
	var version int
	err := m.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	return version, err
}

// GetAppliedMigrations returns all applied migrations.
func (m *Migrator) GetAppliedMigrations() ([]Migration, error) {
	rows, err := m.db.Query("SELECT version, applied_at, description, checksum FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var applied []Migration
	for rows.Next() {
		var mig Migration
		var appliedAt int64
		if err := rows.Scan(&mig.Version, &appliedAt, &mig.Description, &mig.Checksum); err != nil {
			return nil, err
		}
		mig.AppliedAt = time.Unix(appliedAt, 0)
		applied = append(applied, mig)
	}
	return applied, rows.Err()
}

// Up applies all pending migrations in version order. Each migration runs in
// its own transaction together with its schema_migrations bookkeeping row, so
// a crash mid-migration leaves the schema at a known version.
func (m *Migrator) Up() error {
	if err := m.Initialize(); err != nil {
		return apperr.Wrap(apperr.ErrMigration, "failed to initialize migrations table", err)
	}

	applied, err := m.GetAppliedMigrations()
	if err != nil {
		return apperr.Wrap(apperr.ErrMigration, "failed to get applied migrations", err)
	}
	appliedVersions := make(map[int]string)
	for _, mig := range applied {
		appliedVersions[mig.Version] = mig.Checksum
	}

	for _, mig := range migrations {
		checksum := checksumSQL(mig.sql)

		if prior, ok := appliedVersions[mig.version]; ok {
			if prior != checksum {
				return apperr.New(apperr.ErrMigration,
					"checksum mismatch for applied migration "+mig.description)
			}
			continue
		}

		tx, err := m.db.Begin()
		if err != nil {
			return apperr.Wrap(apperr.ErrMigration, "failed to begin migration transaction", err)
		}

		if _, err := tx.Exec(mig.sql); err != nil {
			tx.Rollback()
			return apperr.Wrap(apperr.ErrMigration, "failed to apply migration "+mig.description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, applied_at, description, checksum) VALUES (?, ?, ?, ?)",
			mig.version, time.Now().Unix(), mig.description, checksum,
		); err != nil {
			tx.Rollback()
			return apperr.Wrap(apperr.ErrMigration, "failed to record migration "+mig.description, err)
		}

		if err := tx.Commit(); err != nil {
			return apperr.Wrap(apperr.ErrMigration, "failed to commit migration "+mig.description, err)
		}
	}

	return nil
}

// checksumSQL returns the hex-encoded SHA-256 of a migration's SQL.
func checksumSQL(stmt string) string {
	sum := sha256.Sum256([]byte(stmt))
	return hex.EncodeToString(sum[:])
}
