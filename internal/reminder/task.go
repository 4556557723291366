package reminder

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/example/medtracker/internal/dosing"
)

// EveryMinute is the cron expression reminders are evaluated on.
const EveryMinute = "* * * * *"

// ErrTaskStopped is returned when starting a task that was already stopped.
var ErrTaskStopped = errors.New("reminder: task stopped")

// TaskOptions configures a Task.
type TaskOptions struct {
	Location *time.Location
	Now      func() time.Time
	Logger   *slog.Logger
}

// Task evaluates due reminders for one profile once per minute until it is
// stopped. A Task is single-use: once stopped it cannot be restarted.
type Task struct {
	profileID string
	notifier  Notifier
	location  *time.Location
	now       func() time.Time
	logger    *slog.Logger

	mu          sync.RWMutex
	medications []dosing.Medication

	lifecycle sync.Mutex
	scheduler *cron.Cron
	started   bool
	stopped   bool
}

// NewTask builds a task for profileID that delivers to notifier.
func NewTask(profileID string, notifier Notifier, opts TaskOptions) *Task {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Task{
		profileID: profileID,
		notifier:  notifier,
		location:  loc,
		now:       now,
		logger:    logger.With("component", "reminder_task", "profile_id", profileID),
	}
}

// ProfileID returns the profile the task reminds for.
func (t *Task) ProfileID() string {
	return t.profileID
}

// Update replaces the medication snapshot evaluated on each tick.
func (t *Task) Update(medications []dosing.Medication) {
	snapshot := make([]dosing.Medication, len(medications))
	copy(snapshot, medications)

	t.mu.Lock()
	t.medications = snapshot
	t.mu.Unlock()
}

// Start schedules the per-minute evaluation. Starting a running task is a
// no-op.
func (t *Task) Start() error {
	t.lifecycle.Lock()
	defer t.lifecycle.Unlock()

	if t.stopped {
		return ErrTaskStopped
	}
	if t.started {
		return nil
	}

	scheduler := cron.New(cron.WithLocation(t.location))
	if _, err := scheduler.AddFunc(EveryMinute, func() {
		t.RunOnce(context.Background())
	}); err != nil {
		return err
	}
	scheduler.Start()

	t.scheduler = scheduler
	t.started = true
	t.logger.Debug("reminder task started")
	return nil
}

// Stop cancels future ticks and waits for a running tick to finish.
func (t *Task) Stop() {
	t.lifecycle.Lock()
	defer t.lifecycle.Unlock()

	if t.stopped {
		return
	}
	t.stopped = true
	if t.scheduler == nil {
		return
	}
	<-t.scheduler.Stop().Done()
	t.scheduler = nil
	t.logger.Debug("reminder task stopped")
}

// RunOnce evaluates reminders at the current time and returns how many
// were delivered.
func (t *Task) RunOnce(ctx context.Context) int {
	now := t.now().In(t.location)

	t.mu.RLock()
	medications := t.medications
	t.mu.RUnlock()

	delivered := 0
	for _, n := range Due(t.profileID, medications, now) {
		if err := t.notifier.Notify(ctx, n); err != nil {
			t.logger.ErrorContext(ctx, "failed to deliver reminder", "tag", n.Tag, "error", err)
			continue
		}
		delivered++
	}
	return delivered
}
