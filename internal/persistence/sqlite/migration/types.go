package migration

import "time"

// Migration is one versioned schema file.
type Migration struct {
	Version     string // Version identifier (e.g., "001", "002")
	Description string // Human-readable description
	SQL         string // SQL statements to execute
	FilePath    string // Path inside the migration filesystem
	Checksum    string // SHA-256 of the file content
}

// AppliedMigration is a row of the schema_migrations table.
type AppliedMigration struct {
	Version       string
	AppliedAt     time.Time
	ExecutionTime time.Duration
	Checksum      string
}

// Status summarises the schema state of a database.
type Status struct {
	CurrentVersion string
	Applied        []AppliedMigration
	Pending        []Migration
}
