package application

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/example/medtracker/internal/dosing"
	"github.com/example/medtracker/internal/persistence"
)

// memoryStore implements every repository the services use. Error fields
// make the next matching call fail.
type memoryStore struct {
	mu sync.Mutex

	accounts     map[string]AccountCredentials
	sessions     map[string]Session
	profiles     map[string]Profile
	medications  map[string]Medication
	doseLogs     []dosing.DoseLog
	appointments map[string]Appointment

	listMedicationsErr error
	listLogsErr        error
	upsertErr          error
	updateLogErr       error
	createMedErr       error

	medicationWrites int
	upserts          int
	logUpdates       int
	seq              int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		accounts:     make(map[string]AccountCredentials),
		sessions:     make(map[string]Session),
		profiles:     make(map[string]Profile),
		medications:  make(map[string]Medication),
		appointments: make(map[string]Appointment),
	}
}

func (m *memoryStore) CreateAccount(_ context.Context, creds AccountCredentials) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.accounts {
		if existing.Account.Email == creds.Account.Email {
			return Account{}, persistence.ErrDuplicate
		}
	}
	m.accounts[creds.Account.ID] = creds
	return creds.Account, nil
}

func (m *memoryStore) GetAccount(_ context.Context, id string) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	creds, ok := m.accounts[id]
	if !ok {
		return Account{}, persistence.ErrNotFound
	}
	return creds.Account, nil
}

func (m *memoryStore) GetAccountCredentialsByEmail(_ context.Context, email string) (AccountCredentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, creds := range m.accounts {
		if creds.Account.Email == email {
			return creds, nil
		}
	}
	return AccountCredentials{}, persistence.ErrNotFound
}

func (m *memoryStore) CreateSession(_ context.Context, session Session) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.Token] = session
	return session, nil
}

func (m *memoryStore) GetSession(_ context.Context, token string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[token]
	if !ok {
		return Session{}, persistence.ErrNotFound
	}
	return session, nil
}

func (m *memoryStore) UpdateSession(_ context.Context, session Session) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[session.Token]; !ok {
		return Session{}, persistence.ErrNotFound
	}
	m.sessions[session.Token] = session
	return session, nil
}

func (m *memoryStore) RevokeSession(_ context.Context, token string, revokedAt time.Time) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[token]
	if !ok {
		return Session{}, persistence.ErrNotFound
	}
	if session.RevokedAt == nil {
		session.RevokedAt = &revokedAt
	}
	m.sessions[token] = session
	return session, nil
}

func (m *memoryStore) DeleteExpiredSessions(_ context.Context, reference time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for token, session := range m.sessions {
		if !session.ExpiresAt.After(reference) {
			delete(m.sessions, token)
		}
	}
	return nil
}

func (m *memoryStore) CreateProfile(_ context.Context, profile Profile) (Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[profile.ID] = profile
	return profile, nil
}

func (m *memoryStore) UpdateProfile(_ context.Context, profile Profile) (Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[profile.ID]; !ok {
		return Profile{}, persistence.ErrNotFound
	}
	m.profiles[profile.ID] = profile
	return profile, nil
}

func (m *memoryStore) GetProfile(_ context.Context, id string) (Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	profile, ok := m.profiles[id]
	if !ok {
		return Profile{}, persistence.ErrNotFound
	}
	return profile, nil
}

func (m *memoryStore) ListProfiles(_ context.Context, accountID string) ([]Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Profile
	for _, p := range m.profiles {
		if p.AccountID == accountID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsPrimary != out[j].IsPrimary {
			return out[i].IsPrimary
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *memoryStore) DeleteProfile(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.profiles, id)
	return nil
}

func (m *memoryStore) CreateMedication(_ context.Context, medication Medication) (Medication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.medicationWrites++
	if m.createMedErr != nil {
		return Medication{}, m.createMedErr
	}
	m.medications[medication.ID] = medication
	return medication, nil
}

func (m *memoryStore) UpdateMedication(_ context.Context, medication Medication) (Medication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.medicationWrites++
	if _, ok := m.medications[medication.ID]; !ok {
		return Medication{}, persistence.ErrNotFound
	}
	m.medications[medication.ID] = medication
	return medication, nil
}

func (m *memoryStore) GetMedication(_ context.Context, id string) (Medication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	medication, ok := m.medications[id]
	if !ok {
		return Medication{}, persistence.ErrNotFound
	}
	return medication, nil
}

func (m *memoryStore) ListActiveMedications(_ context.Context, profileID string) ([]Medication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listMedicationsErr != nil {
		return nil, m.listMedicationsErr
	}
	var out []Medication
	for _, med := range m.medications {
		if med.ProfileID == profileID && med.Active {
			out = append(out, med)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memoryStore) DeactivateMedication(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.medicationWrites++
	med, ok := m.medications[id]
	if !ok {
		return persistence.ErrNotFound
	}
	med.Active = false
	med.UpdatedAt = at
	m.medications[id] = med
	return nil
}

func (m *memoryStore) ListDoseLogs(_ context.Context, medicationIDs []string, from, to time.Time) ([]dosing.DoseLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listLogsErr != nil {
		return nil, m.listLogsErr
	}
	wanted := make(map[string]bool, len(medicationIDs))
	for _, id := range medicationIDs {
		wanted[id] = true
	}
	var out []dosing.DoseLog
	for _, log := range m.doseLogs {
		if !wanted[log.MedicationID] || log.ScheduledTime.Before(from) || log.ScheduledTime.After(to) {
			continue
		}
		out = append(out, log)
	}
	return out, nil
}

func (m *memoryStore) UpsertDoseLog(_ context.Context, log dosing.DoseLog) (dosing.DoseLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	if m.upsertErr != nil {
		return dosing.DoseLog{}, m.upsertErr
	}
	day := log.ScheduledTime.Format(time.DateOnly)
	for i, existing := range m.doseLogs {
		if existing.MedicationID == log.MedicationID && existing.MealPeriod == log.MealPeriod &&
			existing.ScheduledTime.Format(time.DateOnly) == day {
			existing.Status = log.Status
			if log.TakenAt != nil {
				existing.TakenAt = log.TakenAt
			}
			if log.MissedAt != nil {
				existing.MissedAt = log.MissedAt
			}
			m.doseLogs[i] = existing
			return existing, nil
		}
	}
	if log.ID == "" {
		m.seq++
		log.ID = "log-" + strconv.Itoa(m.seq)
	}
	m.doseLogs = append(m.doseLogs, log)
	return log, nil
}

func (m *memoryStore) UpdateDoseLog(_ context.Context, id string, update DoseLogUpdate, _ time.Time) (dosing.DoseLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logUpdates++
	if m.updateLogErr != nil {
		return dosing.DoseLog{}, m.updateLogErr
	}
	for i, log := range m.doseLogs {
		if log.ID != id {
			continue
		}
		if update.Status != nil {
			log.Status = *update.Status
		}
		if update.TakenAt != nil {
			log.TakenAt = update.TakenAt
		}
		if update.MissedAt != nil {
			log.MissedAt = update.MissedAt
		}
		m.doseLogs[i] = log
		return log, nil
	}
	return dosing.DoseLog{}, persistence.ErrNotFound
}

func (m *memoryStore) CreateAppointment(_ context.Context, appointment Appointment) (Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appointments[appointment.ID] = appointment
	return appointment, nil
}

func (m *memoryStore) UpdateAppointment(_ context.Context, appointment Appointment) (Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.appointments[appointment.ID]; !ok {
		return Appointment{}, persistence.ErrNotFound
	}
	m.appointments[appointment.ID] = appointment
	return appointment, nil
}

func (m *memoryStore) GetAppointment(_ context.Context, id string) (Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	appointment, ok := m.appointments[id]
	if !ok {
		return Appointment{}, persistence.ErrNotFound
	}
	return appointment, nil
}

func (m *memoryStore) ListAppointments(_ context.Context, profileID string) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Appointment
	for _, a := range m.appointments {
		if a.ProfileID == profileID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memoryStore) DeleteAppointment(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.appointments[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.appointments, id)
	return nil
}

var errStoreUnavailable = errors.New("store unavailable")

// sequence returns an id generator yielding prefix-1, prefix-2, ...
func sequence(prefix string) func() string {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return prefix + "-" + strconv.Itoa(n)
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// seedAccount stores an account with a primary profile and an active session.
func seedAccount(m *memoryStore, accountID, profileID, token string, expires time.Time) Principal {
	m.accounts[accountID] = AccountCredentials{Account: Account{ID: accountID, Email: accountID + "@example.com"}}
	m.profiles[profileID] = Profile{ID: profileID, AccountID: accountID, Name: "Primary", IsPrimary: true, Language: LanguageEnglish, AlarmEnabled: true}
	m.sessions[token] = Session{ID: "session-" + token, AccountID: accountID, Token: token, ExpiresAt: expires}
	return Principal{AccountID: accountID, SessionID: "session-" + token, Token: token}
}
