package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/medtracker/internal/reminder"
)

// ProfileService manages the profiles of an account and which one a
// session is currently acting for.
type ProfileService struct {
	profiles    ProfileRepository
	sessions    SessionRepository
	medications MedicationRepository
	reminders   *ReminderSessions
	inbox       *reminder.Inbox
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewProfileService constructs a profile service with the provided dependencies.
func NewProfileService(profiles ProfileRepository, sessions SessionRepository, medications MedicationRepository, idGenerator func() string, now func() time.Time) *ProfileService {
	return NewProfileServiceWithLogger(profiles, sessions, medications, nil, nil, idGenerator, now, nil)
}

// NewProfileServiceWithLogger constructs a profile service wired to the
// reminder registry and inbox.
func NewProfileServiceWithLogger(profiles ProfileRepository, sessions SessionRepository, medications MedicationRepository, reminders *ReminderSessions, inbox *reminder.Inbox, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ProfileService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ProfileService{
		profiles:    profiles,
		sessions:    sessions,
		medications: medications,
		reminders:   reminders,
		inbox:       inbox,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *ProfileService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ProfileService", operation, attrs...)
}

// List returns the account's profiles, primary first then oldest first.
func (s *ProfileService) List(ctx context.Context, principal Principal) (profiles []Profile, err error) {
	if s == nil {
		err = fmt.Errorf("ProfileService is nil")
		return
	}
	if principal.AccountID == "" {
		err = ErrUnauthorized
		return
	}

	logger := s.loggerWith(ctx, "List", "account_id", principal.AccountID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list profiles", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(profiles)).DebugContext(ctx, "profiles listed")
	}()

	profiles, err = s.profiles.ListProfiles(ctx, principal.AccountID)
	if err != nil {
		err = mapRepoError(err, StoreRead)
	}
	return
}

// Get returns one of the account's profiles.
func (s *ProfileService) Get(ctx context.Context, principal Principal, profileID string) (Profile, error) {
	if s == nil {
		return Profile{}, fmt.Errorf("ProfileService is nil")
	}
	return ownedProfile(ctx, s.profiles, principal, profileID)
}

// Create adds a dependent profile to the account.
func (s *ProfileService) Create(ctx context.Context, params CreateProfileParams) (profile Profile, err error) {
	if s == nil {
		err = fmt.Errorf("ProfileService is nil")
		return
	}
	if params.Principal.AccountID == "" {
		err = ErrUnauthorized
		return
	}

	logger := s.loggerWith(ctx, "Create", "account_id", params.Principal.AccountID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create profile", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("profile_id", profile.ID).InfoContext(ctx, "profile created")
	}()

	input, vErr := normalizeProfileInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	profile = Profile{
		ID:           s.idGenerator(),
		AccountID:    params.Principal.AccountID,
		Name:         input.Name,
		DateOfBirth:  input.DateOfBirth,
		Language:     Language(input.Language),
		AlarmEnabled: input.AlarmEnabled,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	profile, err = s.profiles.CreateProfile(ctx, profile)
	if err != nil {
		err = mapRepoError(err, StoreWrite)
	}
	return
}

// Update edits a profile. Turning alarms off stops any reminders running
// for it.
func (s *ProfileService) Update(ctx context.Context, params UpdateProfileParams) (profile Profile, err error) {
	if s == nil {
		err = fmt.Errorf("ProfileService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Update",
		"account_id", params.Principal.AccountID,
		"profile_id", params.ProfileID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update profile", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "profile updated")
	}()

	var existing Profile
	existing, err = ownedProfile(ctx, s.profiles, params.Principal, params.ProfileID)
	if err != nil {
		return
	}

	input, vErr := normalizeProfileInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	updated := existing
	updated.Name = input.Name
	updated.DateOfBirth = input.DateOfBirth
	updated.Language = Language(input.Language)
	updated.AlarmEnabled = input.AlarmEnabled
	updated.UpdatedAt = s.now()

	profile, err = s.profiles.UpdateProfile(ctx, updated)
	if err != nil {
		err = mapRepoError(err, StoreWrite)
		return
	}
	if existing.AlarmEnabled && !profile.AlarmEnabled {
		s.reminders.DisarmProfile(profile.ID)
	}
	return
}

// Delete removes a dependent profile with its medications, logs and
// appointments. The primary profile cannot be deleted.
func (s *ProfileService) Delete(ctx context.Context, principal Principal, profileID string) error {
	if s == nil {
		return fmt.Errorf("ProfileService is nil")
	}
	logger := s.loggerWith(ctx, "Delete",
		"account_id", principal.AccountID,
		"profile_id", profileID,
	)

	profile, err := ownedProfile(ctx, s.profiles, principal, profileID)
	if err != nil {
		logger.ErrorContext(ctx, "failed to delete profile", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	if profile.IsPrimary {
		vErr := &ValidationError{}
		vErr.add("profile", "the primary profile cannot be deleted")
		logger.WarnContext(ctx, "refused to delete primary profile")
		return vErr
	}

	if err := s.profiles.DeleteProfile(ctx, profile.ID); err != nil {
		err = mapRepoError(err, StoreWrite)
		logger.ErrorContext(ctx, "failed to delete profile", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	s.reminders.DisarmProfile(profile.ID)
	logger.InfoContext(ctx, "profile deleted")
	return nil
}

// Activate makes profileID the session's active profile and arms its
// reminders when alarms are enabled.
func (s *ProfileService) Activate(ctx context.Context, principal Principal, profileID string) (profile Profile, err error) {
	if s == nil {
		err = fmt.Errorf("ProfileService is nil")
		return
	}
	if s.sessions == nil {
		err = fmt.Errorf("session repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "Activate",
		"session_id", principal.SessionID,
		"profile_id", profileID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to activate profile", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("alarm_enabled", profile.AlarmEnabled).InfoContext(ctx, "profile activated")
	}()

	profile, err = ownedProfile(ctx, s.profiles, principal, profileID)
	if err != nil {
		return
	}
	if err = s.setActiveProfile(ctx, principal, &profile.ID); err != nil {
		return
	}

	if !profile.AlarmEnabled || s.reminders == nil || s.medications == nil {
		s.reminders.Disarm(principal.SessionID)
		return
	}

	var medications []Medication
	medications, err = s.medications.ListActiveMedications(ctx, profile.ID)
	if err != nil {
		err = mapRepoError(err, StoreRead)
		return
	}
	err = s.reminders.Arm(principal.SessionID, profile.ID, dosingMedications(medications))
	return
}

// Deactivate clears the session's active profile and stops its reminders.
func (s *ProfileService) Deactivate(ctx context.Context, principal Principal) error {
	if s == nil {
		return fmt.Errorf("ProfileService is nil")
	}
	if s.sessions == nil {
		return fmt.Errorf("session repository not configured")
	}
	logger := s.loggerWith(ctx, "Deactivate", "session_id", principal.SessionID)

	if err := s.setActiveProfile(ctx, principal, nil); err != nil {
		logger.ErrorContext(ctx, "failed to deactivate profile", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	s.reminders.Disarm(principal.SessionID)
	logger.InfoContext(ctx, "profile deactivated")
	return nil
}

// Notifications drains the reminders delivered for profileID since the
// last call.
func (s *ProfileService) Notifications(ctx context.Context, principal Principal, profileID string) ([]reminder.Notification, error) {
	if s == nil {
		return nil, fmt.Errorf("ProfileService is nil")
	}
	profile, err := ownedProfile(ctx, s.profiles, principal, profileID)
	if err != nil {
		return nil, err
	}
	if s.inbox == nil {
		return nil, nil
	}
	return s.inbox.Drain(profile.ID), nil
}

func (s *ProfileService) setActiveProfile(ctx context.Context, principal Principal, profileID *string) error {
	if principal.Token == "" {
		return ErrUnauthorized
	}
	session, err := s.sessions.GetSession(ctx, principal.Token)
	if err != nil {
		err = mapRepoError(err, StoreRead)
		if errors.Is(err, ErrNotFound) {
			return ErrUnauthorized
		}
		return err
	}
	session.ActiveProfileID = profileID
	session.UpdatedAt = s.now()
	if _, err := s.sessions.UpdateSession(ctx, session); err != nil {
		return mapRepoError(err, StoreWrite)
	}
	return nil
}

func normalizeProfileInput(input ProfileInput) (ProfileInput, *ValidationError) {
	vErr := &ValidationError{}

	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		vErr.add("name", "name is required")
	}

	input.Language = strings.ToLower(strings.TrimSpace(input.Language))
	if input.Language == "" {
		input.Language = string(LanguageEnglish)
	}
	if !Language(input.Language).valid() {
		vErr.add("language", "language must be one of en, ms, zh")
	}

	if input.DateOfBirth != nil {
		dob := time.Date(input.DateOfBirth.Year(), input.DateOfBirth.Month(), input.DateOfBirth.Day(), 0, 0, 0, 0, time.UTC)
		input.DateOfBirth = &dob
	}

	return input, vErr
}
