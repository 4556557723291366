package persistence

import (
	"context"
	"time"
)

// AccountRepository stores sign-in accounts.
type AccountRepository interface {
	CreateAccount(ctx context.Context, account Account) error
	GetAccount(ctx context.Context, id string) (Account, error)
	GetAccountByEmail(ctx context.Context, email string) (Account, error)
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	UpdateSession(ctx context.Context, session Session) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// ProfileRepository exposes CRUD operations for profiles.
type ProfileRepository interface {
	CreateProfile(ctx context.Context, profile Profile) error
	UpdateProfile(ctx context.Context, profile Profile) error
	GetProfile(ctx context.Context, id string) (Profile, error)
	ListProfiles(ctx context.Context, accountID string) ([]Profile, error)
	DeleteProfile(ctx context.Context, id string) error
}

// MedicationFilter narrows medication queries.
type MedicationFilter struct {
	ProfileID  string
	ActiveOnly bool
}

// MedicationRepository stores medications. Deletion is a soft delete via
// SetMedicationActive.
type MedicationRepository interface {
	CreateMedication(ctx context.Context, medication Medication) error
	UpdateMedication(ctx context.Context, medication Medication) error
	GetMedication(ctx context.Context, id string) (Medication, error)
	ListMedications(ctx context.Context, filter MedicationFilter) ([]Medication, error)
	SetMedicationActive(ctx context.Context, id string, active bool, at time.Time) error
}

// DoseLogFilter selects logs whose scheduled time lies within [From, To].
type DoseLogFilter struct {
	MedicationIDs []string
	From          time.Time
	To            time.Time
}

// DoseLogPatch lists the fields an update writes. Nil fields are left as stored.
type DoseLogPatch struct {
	Status   *string
	TakenAt  *time.Time
	MissedAt *time.Time
}

// DoseLogRepository stores dose logs. At most one log exists per
// (medication, scheduled day, meal period).
type DoseLogRepository interface {
	ListDoseLogs(ctx context.Context, filter DoseLogFilter) ([]DoseLog, error)
	CreateDoseLog(ctx context.Context, log DoseLog) error
	UpsertDoseLog(ctx context.Context, log DoseLog) (DoseLog, error)
	UpdateDoseLog(ctx context.Context, id string, patch DoseLogPatch, at time.Time) (DoseLog, error)
}

// AppointmentRepository exposes CRUD operations for appointments.
type AppointmentRepository interface {
	CreateAppointment(ctx context.Context, appointment Appointment) error
	UpdateAppointment(ctx context.Context, appointment Appointment) error
	GetAppointment(ctx context.Context, id string) (Appointment, error)
	ListAppointments(ctx context.Context, profileID string) ([]Appointment, error)
	DeleteAppointment(ctx context.Context, id string) error
}
