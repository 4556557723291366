package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/example/medtracker/internal/dosing"
	"github.com/example/medtracker/internal/persistence"
)

// AccountRepository captures the account persistence used by the services.
type AccountRepository interface {
	CreateAccount(ctx context.Context, credentials AccountCredentials) (Account, error)
	GetAccount(ctx context.Context, id string) (Account, error)
	GetAccountCredentialsByEmail(ctx context.Context, email string) (AccountCredentials, error)
}

// SessionRepository captures the persistence interactions for issued sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	UpdateSession(ctx context.Context, session Session) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// ProfileRepository captures the profile persistence used by the services.
type ProfileRepository interface {
	CreateProfile(ctx context.Context, profile Profile) (Profile, error)
	UpdateProfile(ctx context.Context, profile Profile) (Profile, error)
	GetProfile(ctx context.Context, id string) (Profile, error)
	ListProfiles(ctx context.Context, accountID string) ([]Profile, error)
	DeleteProfile(ctx context.Context, id string) error
}

// MedicationRepository captures the medication persistence used by the services.
type MedicationRepository interface {
	CreateMedication(ctx context.Context, medication Medication) (Medication, error)
	UpdateMedication(ctx context.Context, medication Medication) (Medication, error)
	GetMedication(ctx context.Context, id string) (Medication, error)
	ListActiveMedications(ctx context.Context, profileID string) ([]Medication, error)
	DeactivateMedication(ctx context.Context, id string, at time.Time) error
}

// DoseLogRepository is the dose log store. UpsertDoseLog keeps at most one
// log per (medication, scheduled day, meal period).
type DoseLogRepository interface {
	ListDoseLogs(ctx context.Context, medicationIDs []string, from, to time.Time) ([]dosing.DoseLog, error)
	UpsertDoseLog(ctx context.Context, log dosing.DoseLog) (dosing.DoseLog, error)
	UpdateDoseLog(ctx context.Context, id string, update DoseLogUpdate, at time.Time) (dosing.DoseLog, error)
}

// AppointmentRepository captures the appointment persistence used by the services.
type AppointmentRepository interface {
	CreateAppointment(ctx context.Context, appointment Appointment) (Appointment, error)
	UpdateAppointment(ctx context.Context, appointment Appointment) (Appointment, error)
	GetAppointment(ctx context.Context, id string) (Appointment, error)
	ListAppointments(ctx context.Context, profileID string) ([]Appointment, error)
	DeleteAppointment(ctx context.Context, id string) error
}

// mapRepoError converts persistence failures into application errors. Any
// failure without a domain meaning becomes a StoreError for op.
func mapRepoError(err error, op StoreOp) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return ErrNotFound
	case errors.Is(err, persistence.ErrConstraintViolation):
		vErr := &ValidationError{}
		vErr.add("record", "rejected by store constraints")
		return vErr
	}

	var (
		vErr *ValidationError
		sErr *StoreError
	)
	if errors.As(err, &vErr) || errors.As(err, &sErr) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// ownedProfile loads profileID and hides it unless it belongs to the
// principal's account.
func ownedProfile(ctx context.Context, profiles ProfileRepository, principal Principal, profileID string) (Profile, error) {
	if principal.AccountID == "" {
		return Profile{}, ErrUnauthorized
	}
	if profiles == nil {
		return Profile{}, errors.New("profile repository not configured")
	}
	if strings.TrimSpace(profileID) == "" {
		return Profile{}, ErrNotFound
	}
	profile, err := profiles.GetProfile(ctx, profileID)
	if err != nil {
		return Profile{}, mapRepoError(err, StoreRead)
	}
	if profile.AccountID != principal.AccountID {
		return Profile{}, ErrNotFound
	}
	return profile, nil
}

func normalizeOptionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
