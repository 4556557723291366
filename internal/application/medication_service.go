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

// MedicationService validates and persists the medications of a profile.
// Every mutation refreshes the reminder snapshot of sessions watching the
// profile.
type MedicationService struct {
	medications MedicationRepository
	profiles    ProfileRepository
	reminders   *ReminderSessions
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewMedicationService constructs a medication service with the provided dependencies.
func NewMedicationService(medications MedicationRepository, profiles ProfileRepository, idGenerator func() string, now func() time.Time) *MedicationService {
	return NewMedicationServiceWithLogger(medications, profiles, nil, idGenerator, now, nil)
}

// NewMedicationServiceWithLogger constructs a medication service with a
// reminder registry and logger.
func NewMedicationServiceWithLogger(medications MedicationRepository, profiles ProfileRepository, reminders *ReminderSessions, idGenerator func() string, now func() time.Time, logger *slog.Logger) *MedicationService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &MedicationService{
		medications: medications,
		profiles:    profiles,
		reminders:   reminders,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *MedicationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "MedicationService", operation, attrs...)
}

// List returns the profile's active medications, oldest first.
func (s *MedicationService) List(ctx context.Context, principal Principal, profileID string) (medications []Medication, err error) {
	if s == nil {
		err = fmt.Errorf("MedicationService is nil")
		return
	}

	logger := s.loggerWith(ctx, "List", "profile_id", profileID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list medications", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(medications)).DebugContext(ctx, "medications listed")
	}()

	if _, err = ownedProfile(ctx, s.profiles, principal, profileID); err != nil {
		return
	}
	medications, err = s.medications.ListActiveMedications(ctx, profileID)
	if err != nil {
		err = mapRepoError(err, StoreRead)
	}
	return
}

// Get returns one medication of the profile, active or not.
func (s *MedicationService) Get(ctx context.Context, principal Principal, profileID, medicationID string) (Medication, error) {
	if s == nil {
		return Medication{}, fmt.Errorf("MedicationService is nil")
	}
	if _, err := ownedProfile(ctx, s.profiles, principal, profileID); err != nil {
		return Medication{}, err
	}
	return s.ownedMedication(ctx, profileID, medicationID)
}

// Create validates input and adds an active medication to the profile.
// Invalid input never reaches the store.
func (s *MedicationService) Create(ctx context.Context, params CreateMedicationParams) (medication Medication, err error) {
	if s == nil {
		err = fmt.Errorf("MedicationService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Create", "profile_id", params.ProfileID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create medication", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"medication_id", medication.ID,
			"meal_periods", len(medication.MealTimes),
		).InfoContext(ctx, "medication created")
	}()

	if _, err = ownedProfile(ctx, s.profiles, params.Principal, params.ProfileID); err != nil {
		return
	}

	normalized, vErr := normalizeMedicationInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	normalized.ID = s.idGenerator()
	normalized.ProfileID = params.ProfileID
	normalized.Active = true
	normalized.CreatedAt = now
	normalized.UpdatedAt = now

	medication, err = s.medications.CreateMedication(ctx, normalized)
	if err != nil {
		err = mapRepoError(err, StoreWrite)
		return
	}
	s.refreshReminders(ctx, params.ProfileID)
	return
}

// Update validates input and rewrites an existing medication.
func (s *MedicationService) Update(ctx context.Context, params UpdateMedicationParams) (medication Medication, err error) {
	if s == nil {
		err = fmt.Errorf("MedicationService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Update",
		"profile_id", params.ProfileID,
		"medication_id", params.MedicationID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update medication", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "medication updated")
	}()

	if _, err = ownedProfile(ctx, s.profiles, params.Principal, params.ProfileID); err != nil {
		return
	}
	var existing Medication
	existing, err = s.ownedMedication(ctx, params.ProfileID, params.MedicationID)
	if err != nil {
		return
	}

	normalized, vErr := normalizeMedicationInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	normalized.ID = existing.ID
	normalized.ProfileID = existing.ProfileID
	normalized.Active = existing.Active
	normalized.CreatedAt = existing.CreatedAt
	normalized.UpdatedAt = s.now()

	medication, err = s.medications.UpdateMedication(ctx, normalized)
	if err != nil {
		err = mapRepoError(err, StoreWrite)
		return
	}
	s.refreshReminders(ctx, params.ProfileID)
	return
}

// Deactivate soft-deletes a medication. Its dose history is kept and it no
// longer appears in the timetable or reminders.
func (s *MedicationService) Deactivate(ctx context.Context, principal Principal, profileID, medicationID string) error {
	if s == nil {
		return fmt.Errorf("MedicationService is nil")
	}
	logger := s.loggerWith(ctx, "Deactivate",
		"profile_id", profileID,
		"medication_id", medicationID,
	)

	if _, err := ownedProfile(ctx, s.profiles, principal, profileID); err != nil {
		logger.ErrorContext(ctx, "failed to deactivate medication", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	if _, err := s.ownedMedication(ctx, profileID, medicationID); err != nil {
		logger.ErrorContext(ctx, "failed to deactivate medication", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	if err := s.medications.DeactivateMedication(ctx, medicationID, s.now()); err != nil {
		err = mapRepoError(err, StoreWrite)
		logger.ErrorContext(ctx, "failed to deactivate medication", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	s.refreshReminders(ctx, profileID)
	logger.InfoContext(ctx, "medication deactivated")
	return nil
}

func (s *MedicationService) ownedMedication(ctx context.Context, profileID, medicationID string) (Medication, error) {
	if strings.TrimSpace(medicationID) == "" {
		return Medication{}, ErrNotFound
	}
	medication, err := s.medications.GetMedication(ctx, medicationID)
	if err != nil {
		return Medication{}, mapRepoError(err, StoreRead)
	}
	if medication.ProfileID != profileID {
		return Medication{}, ErrNotFound
	}
	return medication, nil
}

// refreshReminders pushes the profile's current active medications to any
// running reminder task. A failed read leaves the previous snapshot in place.
func (s *MedicationService) refreshReminders(ctx context.Context, profileID string) {
	if s.reminders == nil {
		return
	}
	medications, err := s.medications.ListActiveMedications(ctx, profileID)
	if err != nil {
		s.loggerWith(ctx, "refreshReminders", "profile_id", profileID).
			WarnContext(ctx, "failed to refresh reminder snapshot", "error", err)
		return
	}
	s.reminders.Refresh(profileID, dosingMedications(medications))
}

func normalizeMedicationInput(input MedicationInput) (Medication, *ValidationError) {
	vErr := &ValidationError{}
	medication := Medication{
		Name:      strings.TrimSpace(input.Name),
		Dosage:    strings.TrimSpace(input.Dosage),
		Frequency: strings.TrimSpace(input.Frequency),
		Notes:     normalizeOptionalString(input.Notes),
	}

	if medication.Name == "" {
		vErr.add("name", "name is required")
	}

	switch frequencyType := FrequencyType(strings.TrimSpace(input.FrequencyType)); frequencyType {
	case "":
		medication.FrequencyType = FrequencyRegular
	case FrequencyRegular, FrequencyAsNeeded:
		medication.FrequencyType = frequencyType
	default:
		vErr.add("frequency_type", "frequency type must be regular or as_needed")
	}

	periods := make([]mealperiod.Period, 0, len(input.MealTimes))
	for _, raw := range input.MealTimes {
		period, err := mealperiod.Parse(raw)
		if err != nil {
			vErr.add("meal_times", fmt.Sprintf("unknown meal period %q", raw))
			continue
		}
		periods = append(periods, period)
	}
	if len(input.MealTimes) == 0 {
		vErr.add("meal_times", "no meal period selected")
	}
	if normalized, err := mealperiod.Normalize(periods); err == nil {
		medication.MealTimes = normalized
	}

	medication.CustomTimes = make(map[mealperiod.Period]string, len(input.CustomTimes))
	keys := make([]string, 0, len(input.CustomTimes))
	for raw := range input.CustomTimes {
		keys = append(keys, raw)
	}
	sort.Strings(keys)
	for _, raw := range keys {
		value := strings.TrimSpace(input.CustomTimes[raw])
		if value == "" {
			continue
		}
		period, err := mealperiod.Parse(raw)
		if err != nil {
			vErr.add("custom_times", fmt.Sprintf("unknown meal period %q", raw))
			continue
		}
		if !containsPeriod(medication.MealTimes, period) {
			vErr.add("custom_times", fmt.Sprintf("%s is not an assigned meal period", period))
			continue
		}
		clock, err := mealperiod.ParseClock(value)
		if err != nil {
			vErr.add("custom_times", fmt.Sprintf("time for %s must be HH:MM", period))
			continue
		}
		medication.CustomTimes[period] = clock.String()
	}

	return medication, vErr
}

func containsPeriod(periods []mealperiod.Period, target mealperiod.Period) bool {
	for _, p := range periods {
		if p == target {
			return true
		}
	}
	return false
}
