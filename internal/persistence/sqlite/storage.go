// Package sqlite implements the persistence repositories on SQLite.
package sqlite

import (
	"context"
	"embed"
	"log/slog"

	"github.com/example/medtracker/internal/persistence"
	"github.com/example/medtracker/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var schemaFS embed.FS

// Storage bundles every repository over one connection pool.
type Storage struct {
	*AccountRepository
	*SessionRepository
	*ProfileRepository
	*MedicationRepository
	*DoseLogRepository
	*AppointmentRepository

	pool   *ConnectionPool
	logger *slog.Logger
}

var (
	_ persistence.AccountRepository     = (*Storage)(nil)
	_ persistence.SessionRepository     = (*Storage)(nil)
	_ persistence.ProfileRepository     = (*Storage)(nil)
	_ persistence.MedicationRepository  = (*Storage)(nil)
	_ persistence.DoseLogRepository     = (*Storage)(nil)
	_ persistence.AppointmentRepository = (*Storage)(nil)
)

// Open connects to the database at dsn with the default configuration.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Storage, error) {
	return OpenWithConfig(ctx, migration.DefaultSQLiteConfig(dsn), logger)
}

// OpenWithConfig connects using an explicit configuration.
func OpenWithConfig(ctx context.Context, config migration.SQLiteConfig, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := NewConnectionPool(ctx, config)
	if err != nil {
		return nil, err
	}
	return &Storage{
		AccountRepository:     NewAccountRepository(pool),
		SessionRepository:     NewSessionRepository(pool),
		ProfileRepository:     NewProfileRepository(pool),
		MedicationRepository:  NewMedicationRepository(pool),
		DoseLogRepository:     NewDoseLogRepository(pool),
		AppointmentRepository: NewAppointmentRepository(pool),
		pool:                  pool,
		logger:                logger,
	}, nil
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}

// Ping checks that the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Storage) migrationManager() *migration.Manager {
	return migration.NewManager(
		migration.NewScanner(schemaFS, "migrations"),
		migration.NewSQLiteExecutor(s.pool.DB()),
		s.logger,
	)
}

// Migrate applies the embedded schema migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	_, err := s.migrationManager().Run(ctx)
	return err
}

// MigrationStatus reports applied and pending embedded migrations.
func (s *Storage) MigrationStatus(ctx context.Context) (migration.Status, error) {
	return s.migrationManager().Status(ctx)
}
