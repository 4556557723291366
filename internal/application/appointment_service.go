package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/medtracker/internal/mealperiod"
)

// AppointmentService manages the medical appointments of a profile.
type AppointmentService struct {
	appointments AppointmentRepository
	profiles     ProfileRepository
	idGenerator  func() string
	now          func() time.Time
	location     *time.Location
	logger       *slog.Logger
}

// NewAppointmentService constructs an appointment service with the provided dependencies.
func NewAppointmentService(appointments AppointmentRepository, profiles ProfileRepository, idGenerator func() string, now func() time.Time) *AppointmentService {
	return NewAppointmentServiceWithLogger(appointments, profiles, idGenerator, now, nil, nil)
}

// NewAppointmentServiceWithLogger constructs an appointment service whose
// notion of today is taken in location.
func NewAppointmentServiceWithLogger(appointments AppointmentRepository, profiles ProfileRepository, idGenerator func() string, now func() time.Time, location *time.Location, logger *slog.Logger) *AppointmentService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if location == nil {
		location = time.Local
	}
	return &AppointmentService{
		appointments: appointments,
		profiles:     profiles,
		idGenerator:  idGenerator,
		now:          now,
		location:     location,
		logger:       defaultLogger(logger),
	}
}

func (s *AppointmentService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AppointmentService", operation, attrs...)
}

// List returns the profile's appointments split into upcoming (today or
// later) and past.
func (s *AppointmentService) List(ctx context.Context, principal Principal, profileID string) (list AppointmentList, err error) {
	if s == nil {
		err = fmt.Errorf("AppointmentService is nil")
		return
	}

	logger := s.loggerWith(ctx, "List", "profile_id", profileID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list appointments", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"upcoming", len(list.Upcoming),
			"past", len(list.Past),
		).DebugContext(ctx, "appointments listed")
	}()

	if _, err = ownedProfile(ctx, s.profiles, principal, profileID); err != nil {
		return
	}

	var all []Appointment
	all, err = s.appointments.ListAppointments(ctx, profileID)
	if err != nil {
		err = mapRepoError(err, StoreRead)
		return
	}
	sortAppointments(all)

	today := calendarDate(s.now().In(s.location))
	for _, a := range all {
		if calendarDate(a.Date).Before(today) {
			list.Past = append(list.Past, a)
			continue
		}
		list.Upcoming = append(list.Upcoming, a)
	}
	return
}

// Get returns one appointment of the profile.
func (s *AppointmentService) Get(ctx context.Context, principal Principal, profileID, appointmentID string) (Appointment, error) {
	if s == nil {
		return Appointment{}, fmt.Errorf("AppointmentService is nil")
	}
	if _, err := ownedProfile(ctx, s.profiles, principal, profileID); err != nil {
		return Appointment{}, err
	}
	return s.ownedAppointment(ctx, profileID, appointmentID)
}

// Create validates input and adds an appointment to the profile.
func (s *AppointmentService) Create(ctx context.Context, params CreateAppointmentParams) (appointment Appointment, err error) {
	if s == nil {
		err = fmt.Errorf("AppointmentService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Create", "profile_id", params.ProfileID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create appointment", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("appointment_id", appointment.ID).InfoContext(ctx, "appointment created")
	}()

	if _, err = ownedProfile(ctx, s.profiles, params.Principal, params.ProfileID); err != nil {
		return
	}
	normalized, vErr := normalizeAppointmentInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	normalized.ID = s.idGenerator()
	normalized.ProfileID = params.ProfileID
	normalized.CreatedAt = now
	normalized.UpdatedAt = now

	appointment, err = s.appointments.CreateAppointment(ctx, normalized)
	if err != nil {
		err = mapRepoError(err, StoreWrite)
	}
	return
}

// Update validates input and rewrites an appointment. Moving it to another
// date or time clears the reminded flag.
func (s *AppointmentService) Update(ctx context.Context, params UpdateAppointmentParams) (appointment Appointment, err error) {
	if s == nil {
		err = fmt.Errorf("AppointmentService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Update",
		"profile_id", params.ProfileID,
		"appointment_id", params.AppointmentID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update appointment", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "appointment updated")
	}()

	if _, err = ownedProfile(ctx, s.profiles, params.Principal, params.ProfileID); err != nil {
		return
	}
	var existing Appointment
	existing, err = s.ownedAppointment(ctx, params.ProfileID, params.AppointmentID)
	if err != nil {
		return
	}
	normalized, vErr := normalizeAppointmentInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	normalized.ID = existing.ID
	normalized.ProfileID = existing.ProfileID
	normalized.CreatedAt = existing.CreatedAt
	normalized.UpdatedAt = s.now()
	normalized.Reminded = existing.Reminded &&
		calendarDate(existing.Date).Equal(calendarDate(normalized.Date)) &&
		equalOptional(existing.Time, normalized.Time)

	appointment, err = s.appointments.UpdateAppointment(ctx, normalized)
	if err != nil {
		err = mapRepoError(err, StoreWrite)
	}
	return
}

// Delete removes an appointment.
func (s *AppointmentService) Delete(ctx context.Context, principal Principal, profileID, appointmentID string) error {
	if s == nil {
		return fmt.Errorf("AppointmentService is nil")
	}
	logger := s.loggerWith(ctx, "Delete",
		"profile_id", profileID,
		"appointment_id", appointmentID,
	)

	if _, err := ownedProfile(ctx, s.profiles, principal, profileID); err != nil {
		logger.ErrorContext(ctx, "failed to delete appointment", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	if _, err := s.ownedAppointment(ctx, profileID, appointmentID); err != nil {
		logger.ErrorContext(ctx, "failed to delete appointment", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	if err := s.appointments.DeleteAppointment(ctx, appointmentID); err != nil {
		err = mapRepoError(err, StoreWrite)
		logger.ErrorContext(ctx, "failed to delete appointment", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	logger.InfoContext(ctx, "appointment deleted")
	return nil
}

// MarkReminded records that the user has been reminded of an appointment.
func (s *AppointmentService) MarkReminded(ctx context.Context, principal Principal, profileID, appointmentID string) (appointment Appointment, err error) {
	if s == nil {
		err = fmt.Errorf("AppointmentService is nil")
		return
	}

	logger := s.loggerWith(ctx, "MarkReminded",
		"profile_id", profileID,
		"appointment_id", appointmentID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to mark appointment reminded", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "appointment marked reminded")
	}()

	if _, err = ownedProfile(ctx, s.profiles, principal, profileID); err != nil {
		return
	}
	appointment, err = s.ownedAppointment(ctx, profileID, appointmentID)
	if err != nil || appointment.Reminded {
		return
	}
	appointment.Reminded = true
	appointment.UpdatedAt = s.now()
	appointment, err = s.appointments.UpdateAppointment(ctx, appointment)
	if err != nil {
		err = mapRepoError(err, StoreWrite)
	}
	return
}

func (s *AppointmentService) ownedAppointment(ctx context.Context, profileID, appointmentID string) (Appointment, error) {
	if strings.TrimSpace(appointmentID) == "" {
		return Appointment{}, ErrNotFound
	}
	appointment, err := s.appointments.GetAppointment(ctx, appointmentID)
	if err != nil {
		return Appointment{}, mapRepoError(err, StoreRead)
	}
	if appointment.ProfileID != profileID {
		return Appointment{}, ErrNotFound
	}
	return appointment, nil
}

func normalizeAppointmentInput(input AppointmentInput) (Appointment, *ValidationError) {
	vErr := &ValidationError{}
	appointment := Appointment{
		Title:    strings.TrimSpace(input.Title),
		Location: strings.TrimSpace(input.Location),
		Notes:    normalizeOptionalString(input.Notes),
	}

	if appointment.Title == "" {
		vErr.add("title", "title is required")
	}
	if input.Date.IsZero() {
		vErr.add("date", "date is required")
	} else {
		appointment.Date = calendarDate(input.Date)
	}
	if clock := normalizeOptionalString(input.Time); clock != nil {
		parsed, err := mealperiod.ParseClock(*clock)
		if err != nil {
			vErr.add("time", "time must be HH:MM")
		} else {
			formatted := parsed.String()
			appointment.Time = &formatted
		}
	}

	return appointment, vErr
}

// calendarDate strips the clock and zone from t, keeping its local date.
func calendarDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func sortAppointments(appointments []Appointment) {
	sort.SliceStable(appointments, func(i, j int) bool {
		a, b := appointments[i], appointments[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return optionalValue(a.Time) < optionalValue(b.Time)
	})
}

func optionalValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func equalOptional(a, b *string) bool {
	return optionalValue(a) == optionalValue(b) && (a == nil) == (b == nil)
}
