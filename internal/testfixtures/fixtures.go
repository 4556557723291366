package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/medtracker/internal/application"
	"github.com/example/medtracker/internal/dosing"
	"github.com/example/medtracker/internal/mealperiod"
	"github.com/example/medtracker/internal/persistence"
)

var (
	accountCounter     uint64
	profileCounter     uint64
	medicationCounter  uint64
	doseLogCounter     uint64
	appointmentCounter uint64
)

var referenceTime = time.Date(2024, time.March, 5, 8, 30, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ReferenceDay returns midnight of ReferenceTime.
func ReferenceDay() time.Time {
	return dosing.StartOfDay(referenceTime)
}

// ---------------------------- Account fixtures ----------------------------

// AccountFixture represents a deterministic account record.
type AccountFixture struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	CreatedAt    time.Time
}

// AccountOption configures the generated account fixture.
type AccountOption func(*AccountFixture)

// NewAccountFixture returns a deterministic account fixture with optional overrides.
func NewAccountFixture(opts ...AccountOption) AccountFixture {
	idx := atomic.AddUint64(&accountCounter, 1)
	id := fmt.Sprintf("account-%03d", idx)
	fixture := AccountFixture{
		ID:           id,
		Email:        fmt.Sprintf("%s@example.com", id),
		DisplayName:  fmt.Sprintf("Carer %03d", idx),
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		CreatedAt:    referenceTime.Add(time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithAccountID overrides the generated account ID.
func WithAccountID(id string) AccountOption {
	return func(f *AccountFixture) {
		f.ID = id
	}
}

// WithAccountEmail overrides the generated email address.
func WithAccountEmail(email string) AccountOption {
	return func(f *AccountFixture) {
		f.Email = email
	}
}

// WithAccountPasswordHash overrides the generated password hash.
func WithAccountPasswordHash(hash string) AccountOption {
	return func(f *AccountFixture) {
		f.PasswordHash = hash
	}
}

// Application returns the fixture as an application.Account value.
func (f AccountFixture) Application() application.Account {
	return application.Account{
		ID:          f.ID,
		Email:       f.Email,
		DisplayName: f.DisplayName,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.CreatedAt,
	}
}

// Credentials returns the account paired with its password hash.
func (f AccountFixture) Credentials() application.AccountCredentials {
	return application.AccountCredentials{Account: f.Application(), PasswordHash: f.PasswordHash}
}

// Principal returns a principal acting for the account.
func (f AccountFixture) Principal() application.Principal {
	return application.Principal{AccountID: f.ID, SessionID: "session-" + f.ID, Token: "token-" + f.ID}
}

// Persistence returns the fixture as a persistence.Account value.
func (f AccountFixture) Persistence() persistence.Account {
	return persistence.Account{
		ID:           f.ID,
		Email:        f.Email,
		DisplayName:  f.DisplayName,
		PasswordHash: f.PasswordHash,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.CreatedAt,
	}
}

// ---------------------------- Profile fixtures ----------------------------

// ProfileFixture represents a deterministic profile owned by an account.
type ProfileFixture struct {
	ID           string
	AccountID    string
	Name         string
	DateOfBirth  *time.Time
	IsPrimary    bool
	Language     application.Language
	AlarmEnabled bool
	CreatedAt    time.Time
}

// ProfileOption configures the generated profile fixture.
type ProfileOption func(*ProfileFixture)

// NewProfileFixture returns a profile fixture belonging to accountID.
func NewProfileFixture(accountID string, opts ...ProfileOption) ProfileFixture {
	idx := atomic.AddUint64(&profileCounter, 1)
	fixture := ProfileFixture{
		ID:           fmt.Sprintf("profile-%03d", idx),
		AccountID:    accountID,
		Name:         fmt.Sprintf("Patient %03d", idx),
		Language:     application.LanguageEnglish,
		AlarmEnabled: true,
		CreatedAt:    referenceTime.Add(time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithProfileID overrides the generated profile ID.
func WithProfileID(id string) ProfileOption {
	return func(f *ProfileFixture) {
		f.ID = id
	}
}

// WithPrimaryProfile marks the fixture as the account's primary profile.
func WithPrimaryProfile() ProfileOption {
	return func(f *ProfileFixture) {
		f.IsPrimary = true
	}
}

// WithProfileAlarm toggles reminders for the profile.
func WithProfileAlarm(enabled bool) ProfileOption {
	return func(f *ProfileFixture) {
		f.AlarmEnabled = enabled
	}
}

// WithProfileDateOfBirth sets the profile's date of birth.
func WithProfileDateOfBirth(t time.Time) ProfileOption {
	return func(f *ProfileFixture) {
		f.DateOfBirth = &t
	}
}

// Application returns the fixture as an application.Profile value.
func (f ProfileFixture) Application() application.Profile {
	return application.Profile{
		ID:           f.ID,
		AccountID:    f.AccountID,
		Name:         f.Name,
		DateOfBirth:  cloneTime(f.DateOfBirth),
		IsPrimary:    f.IsPrimary,
		Language:     f.Language,
		AlarmEnabled: f.AlarmEnabled,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.CreatedAt,
	}
}

// Persistence returns the fixture as a persistence.Profile value.
func (f ProfileFixture) Persistence() persistence.Profile {
	return persistence.Profile{
		ID:           f.ID,
		AccountID:    f.AccountID,
		Name:         f.Name,
		DateOfBirth:  cloneTime(f.DateOfBirth),
		IsPrimary:    f.IsPrimary,
		Language:     string(f.Language),
		AlarmEnabled: f.AlarmEnabled,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.CreatedAt,
	}
}

// --------------------------- Medication fixtures ---------------------------

// MedicationFixture represents a deterministic medication for a profile.
type MedicationFixture struct {
	ID          string
	ProfileID   string
	Name        string
	Dosage      string
	MealTimes   []mealperiod.Period
	CustomTimes map[mealperiod.Period]string
	Notes       *string
	Active      bool
	CreatedAt   time.Time
}

// MedicationOption configures the generated medication fixture.
type MedicationOption func(*MedicationFixture)

// NewMedicationFixture returns an active medication taken after breakfast.
func NewMedicationFixture(profileID string, opts ...MedicationOption) MedicationFixture {
	idx := atomic.AddUint64(&medicationCounter, 1)
	fixture := MedicationFixture{
		ID:        fmt.Sprintf("medication-%03d", idx),
		ProfileID: profileID,
		Name:      fmt.Sprintf("Medication %03d", idx),
		Dosage:    "1 tablet",
		MealTimes: []mealperiod.Period{mealperiod.AfterBreakfast},
		Active:    true,
		CreatedAt: referenceTime.Add(time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithMedicationID overrides the generated medication ID.
func WithMedicationID(id string) MedicationOption {
	return func(f *MedicationFixture) {
		f.ID = id
	}
}

// WithMedicationName overrides the generated name.
func WithMedicationName(name string) MedicationOption {
	return func(f *MedicationFixture) {
		f.Name = name
	}
}

// WithMealTimes replaces the assigned meal periods.
func WithMealTimes(periods ...mealperiod.Period) MedicationOption {
	return func(f *MedicationFixture) {
		f.MealTimes = append([]mealperiod.Period(nil), periods...)
	}
}

// WithCustomTime overrides the reminder clock of one meal period.
func WithCustomTime(period mealperiod.Period, clock string) MedicationOption {
	return func(f *MedicationFixture) {
		if f.CustomTimes == nil {
			f.CustomTimes = make(map[mealperiod.Period]string)
		}
		f.CustomTimes[period] = clock
	}
}

// WithMedicationInactive marks the medication as discontinued.
func WithMedicationInactive() MedicationOption {
	return func(f *MedicationFixture) {
		f.Active = false
	}
}

// Application returns the fixture as an application.Medication value.
func (f MedicationFixture) Application() application.Medication {
	return application.Medication{
		ID:            f.ID,
		ProfileID:     f.ProfileID,
		Name:          f.Name,
		Dosage:        f.Dosage,
		FrequencyType: application.FrequencyRegular,
		MealTimes:     append([]mealperiod.Period(nil), f.MealTimes...),
		CustomTimes:   cloneCustomTimes(f.CustomTimes),
		Notes:         cloneString(f.Notes),
		Active:        f.Active,
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.CreatedAt,
	}
}

// Dosing returns the view used by the timetable and reminders.
func (f MedicationFixture) Dosing() dosing.Medication {
	return f.Application().Dosing()
}

// Persistence returns the fixture as a persistence.Medication value.
func (f MedicationFixture) Persistence() persistence.Medication {
	mealTimes := make([]string, 0, len(f.MealTimes))
	for _, p := range f.MealTimes {
		mealTimes = append(mealTimes, string(p))
	}
	var custom map[string]string
	if len(f.CustomTimes) > 0 {
		custom = make(map[string]string, len(f.CustomTimes))
		for p, clock := range f.CustomTimes {
			custom[string(p)] = clock
		}
	}
	return persistence.Medication{
		ID:            f.ID,
		ProfileID:     f.ProfileID,
		Name:          f.Name,
		Dosage:        f.Dosage,
		FrequencyType: string(application.FrequencyRegular),
		MealTimes:     mealTimes,
		CustomTimes:   custom,
		Notes:         cloneString(f.Notes),
		Active:        f.Active,
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.CreatedAt,
	}
}

// ---------------------------- Dose log fixtures ----------------------------

// DoseLogFixture represents a recorded dose for one medication and period.
type DoseLogFixture struct {
	ID            string
	MedicationID  string
	MealPeriod    mealperiod.Period
	ScheduledTime time.Time
	TakenAt       *time.Time
	MissedAt      *time.Time
	Status        dosing.Status
	CreatedAt     time.Time
}

// DoseLogOption configures the generated dose log fixture.
type DoseLogOption func(*DoseLogFixture)

// NewDoseLogFixture returns a dose log taken on ReferenceDay.
func NewDoseLogFixture(medicationID string, period mealperiod.Period, opts ...DoseLogOption) DoseLogFixture {
	idx := atomic.AddUint64(&doseLogCounter, 1)
	taken := referenceTime
	fixture := DoseLogFixture{
		ID:            fmt.Sprintf("dose-log-%03d", idx),
		MedicationID:  medicationID,
		MealPeriod:    period,
		ScheduledTime: dosing.ScheduledTimeFor(ReferenceDay()),
		TakenAt:       &taken,
		Status:        dosing.StatusTaken,
		CreatedAt:     referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithDoseLogDay moves the log to day.
func WithDoseLogDay(day time.Time) DoseLogOption {
	return func(f *DoseLogFixture) {
		f.ScheduledTime = dosing.ScheduledTimeFor(day)
	}
}

// WithDoseLogMissed turns the log into an unresolved missed dose.
func WithDoseLogMissed(at time.Time) DoseLogOption {
	return func(f *DoseLogFixture) {
		f.Status = dosing.StatusMissed
		f.TakenAt = nil
		f.MissedAt = &at
	}
}

// WithDoseLogStatus overrides the status without touching timestamps.
func WithDoseLogStatus(status dosing.Status) DoseLogOption {
	return func(f *DoseLogFixture) {
		f.Status = status
	}
}

// Dosing returns the fixture as a dosing.DoseLog value.
func (f DoseLogFixture) Dosing() dosing.DoseLog {
	return dosing.DoseLog{
		ID:            f.ID,
		MedicationID:  f.MedicationID,
		ScheduledTime: f.ScheduledTime,
		MealPeriod:    f.MealPeriod,
		TakenAt:       cloneTime(f.TakenAt),
		MissedAt:      cloneTime(f.MissedAt),
		Status:        f.Status,
		CreatedAt:     f.CreatedAt,
	}
}

// Persistence returns the fixture as a persistence.DoseLog value.
func (f DoseLogFixture) Persistence() persistence.DoseLog {
	return persistence.DoseLog{
		ID:            f.ID,
		MedicationID:  f.MedicationID,
		ScheduledTime: f.ScheduledTime,
		MealPeriod:    string(f.MealPeriod),
		TakenAt:       cloneTime(f.TakenAt),
		MissedAt:      cloneTime(f.MissedAt),
		Status:        string(f.Status),
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.CreatedAt,
	}
}

// --------------------------- Appointment fixtures ---------------------------

// AppointmentFixture represents a dated appointment for a profile.
type AppointmentFixture struct {
	ID        string
	ProfileID string
	Title     string
	Date      time.Time
	Time      *string
	Location  string
	Reminded  bool
	CreatedAt time.Time
}

// AppointmentOption configures the generated appointment fixture.
type AppointmentOption func(*AppointmentFixture)

// NewAppointmentFixture returns an appointment one week after ReferenceDay.
func NewAppointmentFixture(profileID string, opts ...AppointmentOption) AppointmentFixture {
	idx := atomic.AddUint64(&appointmentCounter, 1)
	fixture := AppointmentFixture{
		ID:        fmt.Sprintf("appointment-%03d", idx),
		ProfileID: profileID,
		Title:     fmt.Sprintf("Check-up %03d", idx),
		Date:      ReferenceDay().AddDate(0, 0, 7),
		CreatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithAppointmentDate overrides the appointment date.
func WithAppointmentDate(date time.Time) AppointmentOption {
	return func(f *AppointmentFixture) {
		f.Date = dosing.StartOfDay(date)
	}
}

// WithAppointmentTime sets the HH:MM start time.
func WithAppointmentTime(clock string) AppointmentOption {
	return func(f *AppointmentFixture) {
		f.Time = &clock
	}
}

// Application returns the fixture as an application.Appointment value.
func (f AppointmentFixture) Application() application.Appointment {
	return application.Appointment{
		ID:        f.ID,
		ProfileID: f.ProfileID,
		Title:     f.Title,
		Date:      f.Date,
		Time:      cloneString(f.Time),
		Location:  f.Location,
		Reminded:  f.Reminded,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.CreatedAt,
	}
}

// Persistence returns the fixture as a persistence.Appointment value.
func (f AppointmentFixture) Persistence() persistence.Appointment {
	return persistence.Appointment{
		ID:        f.ID,
		ProfileID: f.ProfileID,
		Title:     f.Title,
		Date:      f.Date,
		Time:      cloneString(f.Time),
		Location:  f.Location,
		Reminded:  f.Reminded,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.CreatedAt,
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneCustomTimes(in map[mealperiod.Period]string) map[mealperiod.Period]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[mealperiod.Period]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
