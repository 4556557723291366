package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/medtracker/internal/persistence"
	"github.com/example/medtracker/internal/persistence/sqlite"
	"github.com/example/medtracker/internal/persistence/sqlite/migration"
)

// SQLiteHarness provides repository access backed by a temporary SQLite
// database for integration-style tests.
type SQLiteHarness struct {
	Storage *sqlite.Storage

	Accounts     persistence.AccountRepository
	Sessions     persistence.SessionRepository
	Profiles     persistence.ProfileRepository
	Medications  persistence.MedicationRepository
	DoseLogs     persistence.DoseLogRepository
	Appointments persistence.AppointmentRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness opens a migrated database in a temporary file. Close is
// registered with tb.Cleanup.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "medtrack.db")
	ctx := context.Background()

	storage, err := sqlite.OpenWithConfig(ctx, migration.TempFileTestSQLiteConfig(path), nil)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := storage.Migrate(ctx); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Storage:      storage,
		Accounts:     storage,
		Sessions:     storage,
		Profiles:     storage,
		Medications:  storage,
		DoseLogs:     storage,
		Appointments: storage,
		cleanup: func() {
			_ = storage.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}

// SeedAccount stores account together with its profiles.
func (h *SQLiteHarness) SeedAccount(tb testing.TB, account AccountFixture, profiles ...ProfileFixture) {
	tb.Helper()
	ctx := context.Background()
	if err := h.Accounts.CreateAccount(ctx, account.Persistence()); err != nil {
		tb.Fatalf("failed to seed account %s: %v", account.ID, err)
	}
	for _, profile := range profiles {
		if err := h.Profiles.CreateProfile(ctx, profile.Persistence()); err != nil {
			tb.Fatalf("failed to seed profile %s: %v", profile.ID, err)
		}
	}
}

// SeedMedications stores medications.
func (h *SQLiteHarness) SeedMedications(tb testing.TB, medications ...MedicationFixture) {
	tb.Helper()
	for _, med := range medications {
		if err := h.Medications.CreateMedication(context.Background(), med.Persistence()); err != nil {
			tb.Fatalf("failed to seed medication %s: %v", med.ID, err)
		}
	}
}

// SeedDoseLogs stores dose logs through the upsert path.
func (h *SQLiteHarness) SeedDoseLogs(tb testing.TB, logs ...DoseLogFixture) {
	tb.Helper()
	for _, log := range logs {
		if _, err := h.DoseLogs.UpsertDoseLog(context.Background(), log.Persistence()); err != nil {
			tb.Fatalf("failed to seed dose log %s: %v", log.ID, err)
		}
	}
}
