package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/example/medtracker/internal/application"
	"github.com/example/medtracker/internal/config"
	"github.com/example/medtracker/internal/drugsearch"
	httptransport "github.com/example/medtracker/internal/http"
	"github.com/example/medtracker/internal/persistence/sqlite"
	"github.com/example/medtracker/internal/reminder"
)

// appDeps holds the process-level collaborators tests replace.
type appDeps struct {
	now            func() time.Time
	idGenerator    func() string
	tokenGenerator func() string
	hashPassword   application.PasswordHasher
	verifyPassword application.PasswordVerifier
	drugHTTPClient *http.Client
}

func defaultAppDeps() appDeps {
	return appDeps{
		now:            time.Now,
		idGenerator:    uuid.NewString,
		tokenGenerator: func() string { return randomHex(32) },
	}
}

// app wires storage, services and transport for one process.
type app struct {
	cfg          config.Config
	logger       *slog.Logger
	reminders    *application.ReminderSessions
	inbox        *reminder.Inbox
	accounts     *application.AccountService
	profiles     *application.ProfileService
	medications  *application.MedicationService
	timetable    *application.TimetableService
	appointments *application.AppointmentService
	handler      http.Handler
}

func newApp(cfg config.Config, storage *sqlite.Storage, logger *slog.Logger, deps appDeps) *app {
	if deps.now == nil {
		deps.now = time.Now
	}
	if deps.idGenerator == nil {
		deps.idGenerator = uuid.NewString
	}
	if deps.tokenGenerator == nil {
		deps.tokenGenerator = func() string { return randomHex(32) }
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}

	accountRepo := newAccountRepositoryAdapter(storage)
	sessionRepo := newSessionRepositoryAdapter(storage)
	profileRepo := newProfileRepositoryAdapter(storage)
	medicationRepo := newMedicationRepositoryAdapter(storage)
	doseLogRepo := newDoseLogRepositoryAdapter(storage)
	appointmentRepo := newAppointmentRepositoryAdapter(storage)

	inbox := reminder.NewInbox(reminder.DefaultInboxCapacity)
	var reminders *application.ReminderSessions
	if cfg.RemindersEnabled {
		notifier := reminder.Fanout{inbox, reminder.LogNotifier{Logger: logger}}
		reminders = application.NewReminderSessions(notifier, reminder.TaskOptions{
			Location: loc,
			Now:      deps.now,
			Logger:   logger,
		}, logger)
	}

	a := &app{cfg: cfg, logger: logger, reminders: reminders, inbox: inbox}
	a.accounts = application.NewAccountService(accountRepo, profileRepo, sessionRepo, application.AccountServiceOptions{
		Reminders:      reminders,
		HashPassword:   deps.hashPassword,
		VerifyPassword: deps.verifyPassword,
		IDGenerator:    deps.idGenerator,
		TokenGenerator: deps.tokenGenerator,
		Now:            deps.now,
		SessionTTL:     cfg.SessionTTL,
		Logger:         logger,
	})
	a.profiles = application.NewProfileServiceWithLogger(profileRepo, sessionRepo, medicationRepo, reminders, inbox, deps.idGenerator, deps.now, logger)
	a.medications = application.NewMedicationServiceWithLogger(medicationRepo, profileRepo, reminders, deps.idGenerator, deps.now, logger)
	a.timetable = application.NewTimetableServiceWithLogger(medicationRepo, doseLogRepo, profileRepo, deps.idGenerator, deps.now, loc, logger)
	a.appointments = application.NewAppointmentServiceWithLogger(appointmentRepo, profileRepo, deps.idGenerator, deps.now, loc, logger)

	drugs := drugsearch.New(drugsearch.Options{
		BaseURL:           cfg.DrugSearchURL,
		HTTPClient:        deps.drugHTTPClient,
		RequestsPerSecond: cfg.DrugSearchRPS,
		Logger:            logger,
	})

	a.handler = httptransport.NewRouter(httptransport.RouterConfig{
		Auth:           httptransport.NewAuthHandler(a.accounts, logger),
		Profiles:       httptransport.NewProfileHandler(a.profiles, logger),
		Medications:    httptransport.NewMedicationHandler(a.medications, logger),
		Timetable:      httptransport.NewTimetableHandler(a.timetable, loc, logger),
		Appointments:   httptransport.NewAppointmentHandler(a.appointments, loc, deps.now, logger),
		Catalog:        httptransport.NewCatalogHandler(drugs, logger),
		RequireSession: httptransport.RequireSession(a.accounts, logger),
		Middleware:     []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})
	return a
}

// serve runs the HTTP server until ctx is cancelled, then drains requests
// and stops every reminder task.
func (a *app) serve(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("failed to shutdown server", "error", err)
		}
	}()

	a.logger.Info("medication tracker API listening", "addr", server.Addr, "reminders_enabled", a.cfg.RemindersEnabled)
	err := server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.reminders.Shutdown()
		return fmt.Errorf("server encountered error: %w", err)
	}
	<-shutdownDone
	a.reminders.Shutdown()
	a.logger.Info("medication tracker API stopped")
	return nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

func randomHex(bytes int) string {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return uuid.NewString()
	}
	return hex.EncodeToString(buf)
}
