package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/medtracker/internal/dosing"
	"github.com/example/medtracker/internal/mealperiod"
)

// TimetableService builds a profile's dose timetable for a day and records
// the actions taken against it.
type TimetableService struct {
	medications MedicationRepository
	doseLogs    DoseLogRepository
	profiles    ProfileRepository
	idGenerator func() string
	now         func() time.Time
	location    *time.Location
	logger      *slog.Logger
}

// NewTimetableService constructs a timetable service with the provided dependencies.
func NewTimetableService(medications MedicationRepository, doseLogs DoseLogRepository, profiles ProfileRepository, idGenerator func() string, now func() time.Time) *TimetableService {
	return NewTimetableServiceWithLogger(medications, doseLogs, profiles, idGenerator, now, nil, nil)
}

// NewTimetableServiceWithLogger constructs a timetable service whose
// calendar days are taken in location.
func NewTimetableServiceWithLogger(medications MedicationRepository, doseLogs DoseLogRepository, profiles ProfileRepository, idGenerator func() string, now func() time.Time, location *time.Location, logger *slog.Logger) *TimetableService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if location == nil {
		location = time.Local
	}
	return &TimetableService{
		medications: medications,
		doseLogs:    doseLogs,
		profiles:    profiles,
		idGenerator: idGenerator,
		now:         now,
		location:    location,
		logger:      defaultLogger(logger),
	}
}

func (s *TimetableService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "TimetableService", operation, attrs...)
}

// Day loads the profile's active medications and the selected day's logs
// and reconciles them. A zero date means today.
func (s *TimetableService) Day(ctx context.Context, principal Principal, profileID string, date time.Time) (day TimetableDay, err error) {
	if s == nil {
		err = fmt.Errorf("TimetableService is nil")
		return
	}
	date = s.selectedDay(date)

	logger := s.loggerWith(ctx, "Day",
		"profile_id", profileID,
		"date", date.Format(time.DateOnly),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to load timetable", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("dose_count", len(day.Doses)).DebugContext(ctx, "timetable loaded")
	}()

	if _, err = ownedProfile(ctx, s.profiles, principal, profileID); err != nil {
		return
	}
	day, err = s.load(ctx, profileID, date)
	return
}

// ApplyAction records take, mark_missed or skip against one scheduled dose
// and returns the day reconciled again from the store. Actions on resolved
// doses are refused. A failed write leaves nothing behind; the returned
// error is a write StoreError.
func (s *TimetableService) ApplyAction(ctx context.Context, params ApplyActionParams) (day TimetableDay, err error) {
	if s == nil {
		err = fmt.Errorf("TimetableService is nil")
		return
	}
	date := s.selectedDay(params.Date)

	logger := s.loggerWith(ctx, "ApplyAction",
		"profile_id", params.ProfileID,
		"medication_id", params.MedicationID,
		"meal_period", params.MealPeriod,
		"action", params.Action,
		"date", date.Format(time.DateOnly),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to apply dose action", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "dose action applied")
	}()

	vErr := &ValidationError{}
	action, actionErr := dosing.ParseAction(params.Action)
	if actionErr != nil {
		vErr.add("action", "action must be take, mark_missed or skip")
	}
	period, periodErr := mealperiod.Parse(params.MealPeriod)
	if periodErr != nil {
		vErr.add("meal_period", "unknown meal period")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if _, err = ownedProfile(ctx, s.profiles, params.Principal, params.ProfileID); err != nil {
		return
	}

	var current TimetableDay
	current, err = s.load(ctx, params.ProfileID, date)
	if err != nil {
		return
	}

	dose, ok := dosing.Find(current.Doses, params.MedicationID, period)
	if !ok {
		err = ErrNotFound
		return
	}
	if dose.Resolved() {
		err = ErrDoseResolved
		return
	}

	now := s.now()
	var intent dosing.WriteIntent
	intent, err = dosing.ApplyTransition(dose, action, date, now)
	if err != nil {
		return
	}
	if err = s.execute(ctx, intent, now); err != nil {
		return
	}

	day, err = s.load(ctx, params.ProfileID, date)
	return
}

func (s *TimetableService) execute(ctx context.Context, intent dosing.WriteIntent, now time.Time) error {
	switch intent.Kind {
	case dosing.IntentCreate:
		log := intent.Log
		log.ID = s.idGenerator()
		log.CreatedAt = now
		if _, err := s.doseLogs.UpsertDoseLog(ctx, log); err != nil {
			return storeWriteError(err)
		}
	case dosing.IntentUpdate:
		var update DoseLogUpdate
		if intent.Touches(dosing.FieldStatus) {
			status := intent.Log.Status
			update.Status = &status
		}
		if intent.Touches(dosing.FieldTakenAt) {
			update.TakenAt = intent.Log.TakenAt
		}
		if intent.Touches(dosing.FieldMissedAt) {
			update.MissedAt = intent.Log.MissedAt
		}
		if _, err := s.doseLogs.UpdateDoseLog(ctx, intent.LogID, update, now); err != nil {
			return storeWriteError(err)
		}
	default:
		return fmt.Errorf("unsupported write intent %s", intent.Kind)
	}
	return nil
}

func (s *TimetableService) load(ctx context.Context, profileID string, date time.Time) (TimetableDay, error) {
	medications, err := s.medications.ListActiveMedications(ctx, profileID)
	if err != nil {
		return TimetableDay{}, storeReadError(err)
	}

	active := dosingMedications(medications)
	ids := make([]string, 0, len(active))
	for _, m := range active {
		ids = append(ids, m.ID)
	}

	var logs []dosing.DoseLog
	if len(ids) > 0 {
		from, to := dosing.DayWindow(date)
		logs, err = s.doseLogs.ListDoseLogs(ctx, ids, from, to)
		if err != nil {
			return TimetableDay{}, storeReadError(err)
		}
	}

	doses := dosing.Reconcile(active, logs, date)
	return TimetableDay{
		ProfileID: profileID,
		Date:      dosing.StartOfDay(date),
		Doses:     doses,
		Groups:    dosing.GroupByPeriod(doses),
	}, nil
}

func (s *TimetableService) selectedDay(date time.Time) time.Time {
	if date.IsZero() {
		return dosing.StartOfDay(s.now().In(s.location))
	}
	return dosing.StartOfDay(date)
}

func storeReadError(err error) error {
	var sErr *StoreError
	if errors.As(err, &sErr) {
		return err
	}
	return &StoreError{Op: StoreRead, Err: err}
}

func storeWriteError(err error) error {
	var sErr *StoreError
	if errors.As(err, &sErr) {
		return err
	}
	return &StoreError{Op: StoreWrite, Err: err}
}
