package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/medtracker/internal/application"
	"github.com/example/medtracker/internal/reminder"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Location    *time.Location
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
		Location:    time.UTC,
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	if factory.Location == nil {
		factory.Location = time.UTC
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithLocation sets the zone calendar days are resolved in.
func WithLocation(loc *time.Location) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Location = loc
	}
}

// Stores groups the repositories the services read and write. A single
// store value usually implements all of them.
type Stores struct {
	Accounts     application.AccountRepository
	Sessions     application.SessionRepository
	Profiles     application.ProfileRepository
	Medications  application.MedicationRepository
	DoseLogs     application.DoseLogRepository
	Appointments application.AppointmentRepository
}

// NewReminderSessions builds a reminder registry on the factory clock.
func (f *ServiceFactory) NewReminderSessions(notifier reminder.Notifier, logger *slog.Logger) *application.ReminderSessions {
	return application.NewReminderSessions(notifier, reminder.TaskOptions{
		Location: f.Location,
		Now:      f.Clock.NowFunc(),
		Logger:   logger,
	}, logger)
}

// AccountServiceDeps captures dependencies for constructing an account service.
type AccountServiceDeps struct {
	Stores
	Reminders      *application.ReminderSessions
	HashPassword   application.PasswordHasher
	VerifyPassword application.PasswordVerifier
	SessionTTL     time.Duration
	Logger         *slog.Logger
}

// NewAccountService builds an account service. Password hashing defaults to
// a reversible stand-in so tests avoid the argon2 cost.
func (f *ServiceFactory) NewAccountService(deps AccountServiceDeps) *application.AccountService {
	hash := deps.HashPassword
	if hash == nil {
		hash = PlainHasher
	}
	verify := deps.VerifyPassword
	if verify == nil {
		verify = PlainVerifier
	}
	return application.NewAccountService(deps.Accounts, deps.Profiles, deps.Sessions, application.AccountServiceOptions{
		Reminders:      deps.Reminders,
		HashPassword:   hash,
		VerifyPassword: verify,
		IDGenerator:    f.IDGenerator.NextFunc(),
		TokenGenerator: f.IDGenerator.NextFunc(),
		Now:            f.Clock.NowFunc(),
		SessionTTL:     deps.SessionTTL,
		Logger:         deps.Logger,
	})
}

// NewProfileService builds a profile service.
func (f *ServiceFactory) NewProfileService(stores Stores, reminders *application.ReminderSessions, inbox *reminder.Inbox, logger *slog.Logger) *application.ProfileService {
	return application.NewProfileServiceWithLogger(
		stores.Profiles,
		stores.Sessions,
		stores.Medications,
		reminders,
		inbox,
		f.IDGenerator.NextFunc(),
		f.Clock.NowFunc(),
		logger,
	)
}

// NewMedicationService builds a medication service.
func (f *ServiceFactory) NewMedicationService(stores Stores, reminders *application.ReminderSessions, logger *slog.Logger) *application.MedicationService {
	return application.NewMedicationServiceWithLogger(
		stores.Medications,
		stores.Profiles,
		reminders,
		f.IDGenerator.NextFunc(),
		f.Clock.NowFunc(),
		logger,
	)
}

// NewTimetableService builds a timetable service.
func (f *ServiceFactory) NewTimetableService(stores Stores, logger *slog.Logger) *application.TimetableService {
	return application.NewTimetableServiceWithLogger(
		stores.Medications,
		stores.DoseLogs,
		stores.Profiles,
		f.IDGenerator.NextFunc(),
		f.Clock.NowFunc(),
		f.Location,
		logger,
	)
}

// NewAppointmentService builds an appointment service.
func (f *ServiceFactory) NewAppointmentService(stores Stores, logger *slog.Logger) *application.AppointmentService {
	return application.NewAppointmentServiceWithLogger(
		stores.Appointments,
		stores.Profiles,
		f.IDGenerator.NextFunc(),
		f.Clock.NowFunc(),
		f.Location,
		logger,
	)
}

// PlainHasher stores passwords with a fixed prefix.
func PlainHasher(password string) (string, error) {
	return "plain:" + password, nil
}

// PlainVerifier accepts hashes produced by PlainHasher.
func PlainVerifier(hashedPassword, password string) error {
	if hashedPassword != "plain:"+password {
		return application.ErrInvalidCredentials
	}
	return nil
}
