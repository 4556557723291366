package application

import (
	"time"

	"github.com/example/medtracker/internal/dosing"
	"github.com/example/medtracker/internal/mealperiod"
)

// Principal represents the signed-in account invoking a service method.
type Principal struct {
	AccountID       string
	SessionID       string
	Token           string
	ActiveProfileID string
}

// Account is a sign-in identity that owns profiles.
type Account struct {
	ID          string
	Email       string
	DisplayName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AccountCredentials pairs an account with its stored password hash.
type AccountCredentials struct {
	Account      Account
	PasswordHash string
}

// Session represents an authenticated session issued to an account.
type Session struct {
	ID              string
	AccountID       string
	Token           string
	ActiveProfileID *string
	ExpiresAt       time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	RevokedAt       *time.Time
}

// RegisterParams captures the data required to open an account.
type RegisterParams struct {
	Email       string
	Password    string
	DisplayName string
	// ProfileName names the primary profile; DisplayName is used when empty.
	ProfileName string
}

// RegisterResult is the account and primary profile created by Register.
type RegisterResult struct {
	Account Account
	Profile Profile
}

// AuthenticateParams captures the data required to sign in.
type AuthenticateParams struct {
	Email    string
	Password string
}

// AuthenticateResult captures the outcome of a successful sign-in.
type AuthenticateResult struct {
	Account Account
	Session Session
}

// Language is a profile's display language.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageMalay   Language = "ms"
	LanguageChinese Language = "zh"
)

func (l Language) valid() bool {
	switch l {
	case LanguageEnglish, LanguageMalay, LanguageChinese:
		return true
	default:
		return false
	}
}

// Profile is a person whose medications are tracked under an account.
type Profile struct {
	ID           string
	AccountID    string
	Name         string
	DateOfBirth  *time.Time
	IsPrimary    bool
	Language     Language
	AlarmEnabled bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ProfileInput captures caller provided profile fields.
type ProfileInput struct {
	Name         string
	DateOfBirth  *time.Time
	Language     string
	AlarmEnabled bool
}

// CreateProfileParams wraps the data required to add a profile.
type CreateProfileParams struct {
	Principal Principal
	Input     ProfileInput
}

// UpdateProfileParams wraps the data required to edit a profile.
type UpdateProfileParams struct {
	Principal Principal
	ProfileID string
	Input     ProfileInput
}

// FrequencyType says whether a medication follows its meal periods or is
// taken when needed.
type FrequencyType string

const (
	FrequencyRegular  FrequencyType = "regular"
	FrequencyAsNeeded FrequencyType = "as_needed"
)

// Medication is a prescribed medication with its meal-period assignment.
type Medication struct {
	ID            string
	ProfileID     string
	Name          string
	Dosage        string
	Frequency     string
	FrequencyType FrequencyType
	MealTimes     []mealperiod.Period
	CustomTimes   map[mealperiod.Period]string
	Notes         *string
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Dosing returns the view of m the timetable and reminders work on.
func (m Medication) Dosing() dosing.Medication {
	return dosing.Medication{
		ID:          m.ID,
		ProfileID:   m.ProfileID,
		Name:        m.Name,
		Dosage:      m.Dosage,
		Notes:       m.Notes,
		MealTimes:   m.MealTimes,
		CustomTimes: m.CustomTimes,
		Active:      m.Active,
	}
}

func dosingMedications(medications []Medication) []dosing.Medication {
	out := make([]dosing.Medication, 0, len(medications))
	for _, m := range medications {
		out = append(out, m.Dosing())
	}
	return out
}

// MedicationInput captures caller provided medication fields. Meal period
// and custom time keys are raw tags validated against the catalog.
type MedicationInput struct {
	Name          string
	Dosage        string
	Frequency     string
	FrequencyType string
	MealTimes     []string
	CustomTimes   map[string]string
	Notes         *string
}

// CreateMedicationParams wraps the data required to add a medication.
type CreateMedicationParams struct {
	Principal Principal
	ProfileID string
	Input     MedicationInput
}

// UpdateMedicationParams wraps the data required to edit a medication.
type UpdateMedicationParams struct {
	Principal    Principal
	ProfileID    string
	MedicationID string
	Input        MedicationInput
}

// DoseLogUpdate lists the dose log fields an update writes. Nil fields are
// left as stored.
type DoseLogUpdate struct {
	Status   *dosing.Status
	TakenAt  *time.Time
	MissedAt *time.Time
}

// TimetableDay is the reconciled dose list for one profile and day.
type TimetableDay struct {
	ProfileID string
	Date      time.Time
	Doses     []dosing.ScheduledDose
	Groups    []dosing.PeriodGroup
}

// ApplyActionParams identifies the dose an action is applied to.
type ApplyActionParams struct {
	Principal    Principal
	ProfileID    string
	MedicationID string
	MealPeriod   string
	Date         time.Time
	Action       string
}

// Appointment is a dated medical appointment for a profile.
type Appointment struct {
	ID        string
	ProfileID string
	Title     string
	Date      time.Time
	Time      *string
	Location  string
	Notes     *string
	Reminded  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AppointmentInput captures caller provided appointment fields.
type AppointmentInput struct {
	Title    string
	Date     time.Time
	Time     *string
	Location string
	Notes    *string
}

// CreateAppointmentParams wraps the data required to add an appointment.
type CreateAppointmentParams struct {
	Principal Principal
	ProfileID string
	Input     AppointmentInput
}

// UpdateAppointmentParams wraps the data required to edit an appointment.
type UpdateAppointmentParams struct {
	Principal     Principal
	ProfileID     string
	AppointmentID string
	Input         AppointmentInput
}

// AppointmentList splits a profile's appointments around today. Both halves
// are ordered by date then time.
type AppointmentList struct {
	Upcoming []Appointment
	Past     []Appointment
}
