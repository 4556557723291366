package persistence

import "time"

// Account is a sign-in identity that owns profiles.
type Account struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile is a person whose medications are tracked under an account.
type Profile struct {
	ID           string
	AccountID    string
	Name         string
	DateOfBirth  *time.Time
	IsPrimary    bool
	Language     string
	AlarmEnabled bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Medication is a prescribed medication with its meal-period assignment.
type Medication struct {
	ID            string
	ProfileID     string
	Name          string
	Dosage        string
	Frequency     string
	FrequencyType string
	MealTimes     []string
	CustomTimes   map[string]string
	Notes         *string
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DoseLog records the outcome of one scheduled dose.
type DoseLog struct {
	ID            string
	MedicationID  string
	ScheduledTime time.Time
	MealPeriod    string
	TakenAt       *time.Time
	MissedAt      *time.Time
	Status        string
	Notes         *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
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

// Session represents an authentication session persisted for an account.
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
