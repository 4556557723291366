package application

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/example/medtracker/internal/dosing"
	"github.com/example/medtracker/internal/reminder"
)

// ReminderSessions owns one reminder task per signed-in session. A task is
// armed when the session activates a profile with alarms enabled and is
// stopped when the session switches profile, deactivates, signs out or the
// service shuts down.
type ReminderSessions struct {
	notifier reminder.Notifier
	options  reminder.TaskOptions
	logger   *slog.Logger

	mu     sync.Mutex
	tasks  map[string]*reminder.Task
	closed bool
}

// NewReminderSessions builds an empty task registry delivering to notifier.
func NewReminderSessions(notifier reminder.Notifier, options reminder.TaskOptions, logger *slog.Logger) *ReminderSessions {
	logger = defaultLogger(logger)
	if options.Logger == nil {
		options.Logger = logger
	}
	return &ReminderSessions{
		notifier: notifier,
		options:  options,
		logger:   logger.With("component", "reminder_sessions"),
		tasks:    make(map[string]*reminder.Task),
	}
}

// Arm replaces the session's task with one reminding for profileID over
// medications. When a concurrent Arm for the same session wins the race,
// this call's task is stopped before it starts and Arm still succeeds.
func (r *ReminderSessions) Arm(sessionID, profileID string, medications []dosing.Medication) error {
	if r == nil {
		return nil
	}
	task := reminder.NewTask(profileID, r.notifier, r.options)
	task.Update(medications)

	if err := r.install(sessionID, task); err != nil {
		return err
	}
	if err := r.start(sessionID, task); err != nil {
		return err
	}
	r.logger.Info("reminders armed", "session_id", sessionID, "profile_id", profileID, "medications", len(medications))
	return nil
}

// install registers task for the session and stops the one it replaces.
func (r *ReminderSessions) install(sessionID string, task *reminder.Task) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return reminder.ErrTaskStopped
	}
	previous := r.tasks[sessionID]
	r.tasks[sessionID] = task
	r.mu.Unlock()

	if previous != nil {
		previous.Stop()
	}
	return nil
}

// start runs an installed task. A task already replaced by a newer Arm is
// not an error.
func (r *ReminderSessions) start(sessionID string, task *reminder.Task) error {
	err := task.Start()
	if err == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	current := r.tasks[sessionID]
	if current == task {
		delete(r.tasks, sessionID)
		return err
	}
	if errors.Is(err, reminder.ErrTaskStopped) && current != nil && !r.closed {
		r.logger.Debug("reminder arm superseded", "session_id", sessionID, "profile_id", task.ProfileID())
		return nil
	}
	return err
}

// Disarm stops the session's task, if any.
func (r *ReminderSessions) Disarm(sessionID string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	task := r.tasks[sessionID]
	delete(r.tasks, sessionID)
	r.mu.Unlock()

	if task != nil {
		task.Stop()
		r.logger.Info("reminders disarmed", "session_id", sessionID, "profile_id", task.ProfileID())
	}
}

// DisarmProfile stops every task reminding for profileID.
func (r *ReminderSessions) DisarmProfile(profileID string) {
	if r == nil {
		return
	}
	var stopped []*reminder.Task
	r.mu.Lock()
	for sessionID, task := range r.tasks {
		if task.ProfileID() == profileID {
			stopped = append(stopped, task)
			delete(r.tasks, sessionID)
		}
	}
	r.mu.Unlock()

	for _, task := range stopped {
		task.Stop()
	}
}

// Refresh replaces the medication snapshot of every task reminding for
// profileID.
func (r *ReminderSessions) Refresh(profileID string, medications []dosing.Medication) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, task := range r.tasks {
		if task.ProfileID() == profileID {
			task.Update(medications)
		}
	}
}

// ArmedProfile returns the profile the session's task reminds for.
func (r *ReminderSessions) ArmedProfile(sessionID string) (string, bool) {
	if r == nil {
		return "", false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[sessionID]
	if !ok {
		return "", false
	}
	return task.ProfileID(), true
}

// Shutdown stops every task and refuses new ones.
func (r *ReminderSessions) Shutdown() {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.closed = true
	tasks := r.tasks
	r.tasks = make(map[string]*reminder.Task)
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, task := range tasks {
		wg.Add(1)
		go func(t *reminder.Task) {
			defer wg.Done()
			t.Stop()
		}(task)
	}
	wg.Wait()
	if len(tasks) > 0 {
		r.logger.Info("reminder tasks stopped", "count", len(tasks))
	}
}
