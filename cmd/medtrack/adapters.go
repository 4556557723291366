package main

import (
	"context"
	"time"

	"github.com/example/medtracker/internal/application"
	"github.com/example/medtracker/internal/dosing"
	"github.com/example/medtracker/internal/mealperiod"
	"github.com/example/medtracker/internal/persistence"
)

type accountRepositoryAdapter struct {
	repo persistence.AccountRepository
}

func newAccountRepositoryAdapter(repo persistence.AccountRepository) *accountRepositoryAdapter {
	return &accountRepositoryAdapter{repo: repo}
}

func (a *accountRepositoryAdapter) CreateAccount(ctx context.Context, credentials application.AccountCredentials) (application.Account, error) {
	if err := a.repo.CreateAccount(ctx, toPersistenceAccount(credentials)); err != nil {
		return application.Account{}, err
	}
	return credentials.Account, nil
}

func (a *accountRepositoryAdapter) GetAccount(ctx context.Context, id string) (application.Account, error) {
	stored, err := a.repo.GetAccount(ctx, id)
	if err != nil {
		return application.Account{}, err
	}
	return toApplicationAccount(stored), nil
}

func (a *accountRepositoryAdapter) GetAccountCredentialsByEmail(ctx context.Context, email string) (application.AccountCredentials, error) {
	stored, err := a.repo.GetAccountByEmail(ctx, email)
	if err != nil {
		return application.AccountCredentials{}, err
	}
	return application.AccountCredentials{
		Account:      toApplicationAccount(stored),
		PasswordHash: stored.PasswordHash,
	}, nil
}

type sessionRepositoryAdapter struct {
	repo persistence.SessionRepository
}

func newSessionRepositoryAdapter(repo persistence.SessionRepository) *sessionRepositoryAdapter {
	return &sessionRepositoryAdapter{repo: repo}
}

func (a *sessionRepositoryAdapter) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.CreateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) GetSession(ctx context.Context, token string) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, token)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) UpdateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.UpdateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (application.Session, error) {
	stored, err := a.repo.RevokeSession(ctx, token, revokedAt)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	return a.repo.DeleteExpiredSessions(ctx, reference)
}

type profileRepositoryAdapter struct {
	repo persistence.ProfileRepository
}

func newProfileRepositoryAdapter(repo persistence.ProfileRepository) *profileRepositoryAdapter {
	return &profileRepositoryAdapter{repo: repo}
}

func (a *profileRepositoryAdapter) CreateProfile(ctx context.Context, profile application.Profile) (application.Profile, error) {
	if err := a.repo.CreateProfile(ctx, toPersistenceProfile(profile)); err != nil {
		return application.Profile{}, err
	}
	return profile, nil
}

func (a *profileRepositoryAdapter) UpdateProfile(ctx context.Context, profile application.Profile) (application.Profile, error) {
	if err := a.repo.UpdateProfile(ctx, toPersistenceProfile(profile)); err != nil {
		return application.Profile{}, err
	}
	return profile, nil
}

func (a *profileRepositoryAdapter) GetProfile(ctx context.Context, id string) (application.Profile, error) {
	stored, err := a.repo.GetProfile(ctx, id)
	if err != nil {
		return application.Profile{}, err
	}
	return toApplicationProfile(stored), nil
}

func (a *profileRepositoryAdapter) ListProfiles(ctx context.Context, accountID string) ([]application.Profile, error) {
	stored, err := a.repo.ListProfiles(ctx, accountID)
	if err != nil {
		return nil, err
	}
	profiles := make([]application.Profile, 0, len(stored))
	for _, p := range stored {
		profiles = append(profiles, toApplicationProfile(p))
	}
	return profiles, nil
}

func (a *profileRepositoryAdapter) DeleteProfile(ctx context.Context, id string) error {
	return a.repo.DeleteProfile(ctx, id)
}

type medicationRepositoryAdapter struct {
	repo persistence.MedicationRepository
}

func newMedicationRepositoryAdapter(repo persistence.MedicationRepository) *medicationRepositoryAdapter {
	return &medicationRepositoryAdapter{repo: repo}
}

func (a *medicationRepositoryAdapter) CreateMedication(ctx context.Context, medication application.Medication) (application.Medication, error) {
	if err := a.repo.CreateMedication(ctx, toPersistenceMedication(medication)); err != nil {
		return application.Medication{}, err
	}
	return medication, nil
}

func (a *medicationRepositoryAdapter) UpdateMedication(ctx context.Context, medication application.Medication) (application.Medication, error) {
	if err := a.repo.UpdateMedication(ctx, toPersistenceMedication(medication)); err != nil {
		return application.Medication{}, err
	}
	return medication, nil
}

func (a *medicationRepositoryAdapter) GetMedication(ctx context.Context, id string) (application.Medication, error) {
	stored, err := a.repo.GetMedication(ctx, id)
	if err != nil {
		return application.Medication{}, err
	}
	return toApplicationMedication(stored), nil
}

func (a *medicationRepositoryAdapter) ListActiveMedications(ctx context.Context, profileID string) ([]application.Medication, error) {
	stored, err := a.repo.ListMedications(ctx, persistence.MedicationFilter{ProfileID: profileID, ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	medications := make([]application.Medication, 0, len(stored))
	for _, m := range stored {
		medications = append(medications, toApplicationMedication(m))
	}
	return medications, nil
}

func (a *medicationRepositoryAdapter) DeactivateMedication(ctx context.Context, id string, at time.Time) error {
	return a.repo.SetMedicationActive(ctx, id, false, at)
}

type doseLogRepositoryAdapter struct {
	repo persistence.DoseLogRepository
}

func newDoseLogRepositoryAdapter(repo persistence.DoseLogRepository) *doseLogRepositoryAdapter {
	return &doseLogRepositoryAdapter{repo: repo}
}

func (a *doseLogRepositoryAdapter) ListDoseLogs(ctx context.Context, medicationIDs []string, from, to time.Time) ([]dosing.DoseLog, error) {
	stored, err := a.repo.ListDoseLogs(ctx, persistence.DoseLogFilter{MedicationIDs: medicationIDs, From: from, To: to})
	if err != nil {
		return nil, err
	}
	logs := make([]dosing.DoseLog, 0, len(stored))
	for _, l := range stored {
		logs = append(logs, toDosingLog(l))
	}
	return logs, nil
}

func (a *doseLogRepositoryAdapter) UpsertDoseLog(ctx context.Context, log dosing.DoseLog) (dosing.DoseLog, error) {
	stored, err := a.repo.UpsertDoseLog(ctx, toPersistenceDoseLog(log))
	if err != nil {
		return dosing.DoseLog{}, err
	}
	return toDosingLog(stored), nil
}

func (a *doseLogRepositoryAdapter) UpdateDoseLog(ctx context.Context, id string, update application.DoseLogUpdate, at time.Time) (dosing.DoseLog, error) {
	patch := persistence.DoseLogPatch{
		TakenAt:  cloneTime(update.TakenAt),
		MissedAt: cloneTime(update.MissedAt),
	}
	if update.Status != nil {
		status := string(*update.Status)
		patch.Status = &status
	}
	stored, err := a.repo.UpdateDoseLog(ctx, id, patch, at)
	if err != nil {
		return dosing.DoseLog{}, err
	}
	return toDosingLog(stored), nil
}

type appointmentRepositoryAdapter struct {
	repo persistence.AppointmentRepository
}

func newAppointmentRepositoryAdapter(repo persistence.AppointmentRepository) *appointmentRepositoryAdapter {
	return &appointmentRepositoryAdapter{repo: repo}
}

func (a *appointmentRepositoryAdapter) CreateAppointment(ctx context.Context, appointment application.Appointment) (application.Appointment, error) {
	if err := a.repo.CreateAppointment(ctx, toPersistenceAppointment(appointment)); err != nil {
		return application.Appointment{}, err
	}
	return appointment, nil
}

func (a *appointmentRepositoryAdapter) UpdateAppointment(ctx context.Context, appointment application.Appointment) (application.Appointment, error) {
	if err := a.repo.UpdateAppointment(ctx, toPersistenceAppointment(appointment)); err != nil {
		return application.Appointment{}, err
	}
	return appointment, nil
}

func (a *appointmentRepositoryAdapter) GetAppointment(ctx context.Context, id string) (application.Appointment, error) {
	stored, err := a.repo.GetAppointment(ctx, id)
	if err != nil {
		return application.Appointment{}, err
	}
	return toApplicationAppointment(stored), nil
}

func (a *appointmentRepositoryAdapter) ListAppointments(ctx context.Context, profileID string) ([]application.Appointment, error) {
	stored, err := a.repo.ListAppointments(ctx, profileID)
	if err != nil {
		return nil, err
	}
	appointments := make([]application.Appointment, 0, len(stored))
	for _, ap := range stored {
		appointments = append(appointments, toApplicationAppointment(ap))
	}
	return appointments, nil
}

func (a *appointmentRepositoryAdapter) DeleteAppointment(ctx context.Context, id string) error {
	return a.repo.DeleteAppointment(ctx, id)
}

func toApplicationAccount(model persistence.Account) application.Account {
	return application.Account{
		ID:          model.ID,
		Email:       model.Email,
		DisplayName: model.DisplayName,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func toPersistenceAccount(credentials application.AccountCredentials) persistence.Account {
	return persistence.Account{
		ID:           credentials.Account.ID,
		Email:        credentials.Account.Email,
		DisplayName:  credentials.Account.DisplayName,
		PasswordHash: credentials.PasswordHash,
		CreatedAt:    credentials.Account.CreatedAt,
		UpdatedAt:    credentials.Account.UpdatedAt,
	}
}

func toApplicationSession(model persistence.Session) application.Session {
	return application.Session{
		ID:              model.ID,
		AccountID:       model.AccountID,
		Token:           model.Token,
		ActiveProfileID: cloneString(model.ActiveProfileID),
		ExpiresAt:       model.ExpiresAt,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
		RevokedAt:       cloneTime(model.RevokedAt),
	}
}

func toPersistenceSession(session application.Session) persistence.Session {
	return persistence.Session{
		ID:              session.ID,
		AccountID:       session.AccountID,
		Token:           session.Token,
		ActiveProfileID: cloneString(session.ActiveProfileID),
		ExpiresAt:       session.ExpiresAt,
		CreatedAt:       session.CreatedAt,
		UpdatedAt:       session.UpdatedAt,
		RevokedAt:       cloneTime(session.RevokedAt),
	}
}

func toApplicationProfile(model persistence.Profile) application.Profile {
	return application.Profile{
		ID:           model.ID,
		AccountID:    model.AccountID,
		Name:         model.Name,
		DateOfBirth:  cloneTime(model.DateOfBirth),
		IsPrimary:    model.IsPrimary,
		Language:     application.Language(model.Language),
		AlarmEnabled: model.AlarmEnabled,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
}

func toPersistenceProfile(profile application.Profile) persistence.Profile {
	return persistence.Profile{
		ID:           profile.ID,
		AccountID:    profile.AccountID,
		Name:         profile.Name,
		DateOfBirth:  cloneTime(profile.DateOfBirth),
		IsPrimary:    profile.IsPrimary,
		Language:     string(profile.Language),
		AlarmEnabled: profile.AlarmEnabled,
		CreatedAt:    profile.CreatedAt,
		UpdatedAt:    profile.UpdatedAt,
	}
}

func toApplicationMedication(model persistence.Medication) application.Medication {
	mealTimes := make([]mealperiod.Period, 0, len(model.MealTimes))
	for _, raw := range model.MealTimes {
		mealTimes = append(mealTimes, mealperiod.Period(raw))
	}
	var custom map[mealperiod.Period]string
	if len(model.CustomTimes) > 0 {
		custom = make(map[mealperiod.Period]string, len(model.CustomTimes))
		for raw, clock := range model.CustomTimes {
			custom[mealperiod.Period(raw)] = clock
		}
	}
	return application.Medication{
		ID:            model.ID,
		ProfileID:     model.ProfileID,
		Name:          model.Name,
		Dosage:        model.Dosage,
		Frequency:     model.Frequency,
		FrequencyType: application.FrequencyType(model.FrequencyType),
		MealTimes:     mealTimes,
		CustomTimes:   custom,
		Notes:         cloneString(model.Notes),
		Active:        model.Active,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
}

func toPersistenceMedication(medication application.Medication) persistence.Medication {
	mealTimes := make([]string, 0, len(medication.MealTimes))
	for _, p := range medication.MealTimes {
		mealTimes = append(mealTimes, string(p))
	}
	var custom map[string]string
	if len(medication.CustomTimes) > 0 {
		custom = make(map[string]string, len(medication.CustomTimes))
		for p, clock := range medication.CustomTimes {
			custom[string(p)] = clock
		}
	}
	return persistence.Medication{
		ID:            medication.ID,
		ProfileID:     medication.ProfileID,
		Name:          medication.Name,
		Dosage:        medication.Dosage,
		Frequency:     medication.Frequency,
		FrequencyType: string(medication.FrequencyType),
		MealTimes:     mealTimes,
		CustomTimes:   custom,
		Notes:         cloneString(medication.Notes),
		Active:        medication.Active,
		CreatedAt:     medication.CreatedAt,
		UpdatedAt:     medication.UpdatedAt,
	}
}

func toDosingLog(model persistence.DoseLog) dosing.DoseLog {
	return dosing.DoseLog{
		ID:            model.ID,
		MedicationID:  model.MedicationID,
		ScheduledTime: model.ScheduledTime,
		MealPeriod:    mealperiod.Period(model.MealPeriod),
		TakenAt:       cloneTime(model.TakenAt),
		MissedAt:      cloneTime(model.MissedAt),
		Status:        dosing.Status(model.Status),
		Notes:         cloneString(model.Notes),
		CreatedAt:     model.CreatedAt,
	}
}

func toPersistenceDoseLog(log dosing.DoseLog) persistence.DoseLog {
	return persistence.DoseLog{
		ID:            log.ID,
		MedicationID:  log.MedicationID,
		ScheduledTime: log.ScheduledTime,
		MealPeriod:    string(log.MealPeriod),
		TakenAt:       cloneTime(log.TakenAt),
		MissedAt:      cloneTime(log.MissedAt),
		Status:        string(log.Status),
		Notes:         cloneString(log.Notes),
		CreatedAt:     log.CreatedAt,
		UpdatedAt:     log.CreatedAt,
	}
}

func toApplicationAppointment(model persistence.Appointment) application.Appointment {
	return application.Appointment{
		ID:        model.ID,
		ProfileID: model.ProfileID,
		Title:     model.Title,
		Date:      model.Date,
		Time:      cloneString(model.Time),
		Location:  model.Location,
		Notes:     cloneString(model.Notes),
		Reminded:  model.Reminded,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func toPersistenceAppointment(appointment application.Appointment) persistence.Appointment {
	return persistence.Appointment{
		ID:        appointment.ID,
		ProfileID: appointment.ProfileID,
		Title:     appointment.Title,
		Date:      appointment.Date,
		Time:      cloneString(appointment.Time),
		Location:  appointment.Location,
		Notes:     cloneString(appointment.Notes),
		Reminded:  appointment.Reminded,
		CreatedAt: appointment.CreatedAt,
		UpdatedAt: appointment.UpdatedAt,
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
