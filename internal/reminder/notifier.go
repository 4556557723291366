package reminder

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Notifier delivers a reminder.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification) error

func (f NotifierFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// LogNotifier writes reminders to a structured logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l LogNotifier) Notify(ctx context.Context, n Notification) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "medication reminder",
		"profile_id", n.ProfileID,
		"medication_id", n.MedicationID,
		"meal_period", string(n.MealPeriod),
		"tag", n.Tag,
		"title", n.Title,
	)
	return nil
}

// Fanout delivers each reminder to every notifier and joins their errors.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, notifier := range f {
		if notifier == nil {
			continue
		}
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DefaultInboxCapacity bounds the number of undrained reminders per profile.
const DefaultInboxCapacity = 100

// Inbox buffers reminders per profile until a client drains them. A tag is
// accepted at most once per calendar day of its fire time; the dedupe set is
// reset when reminders for a new day arrive.
type Inbox struct {
	mu       sync.Mutex
	capacity int
	pending  map[string][]Notification
	seen     map[string]struct{}
	seenDay  string
}

// NewInbox returns an empty inbox. A non-positive capacity selects
// DefaultInboxCapacity.
func NewInbox(capacity int) *Inbox {
	if capacity <= 0 {
		capacity = DefaultInboxCapacity
	}
	return &Inbox{
		capacity: capacity,
		pending:  make(map[string][]Notification),
		seen:     make(map[string]struct{}),
	}
}

func (i *Inbox) Notify(_ context.Context, n Notification) error {
	day := n.FireAt.Format("2006-01-02")
	key := n.ProfileID + "|" + n.Tag

	i.mu.Lock()
	defer i.mu.Unlock()

	if day != i.seenDay {
		i.seen = make(map[string]struct{})
		i.seenDay = day
	}
	if _, dup := i.seen[key]; dup {
		return nil
	}
	i.seen[key] = struct{}{}

	queue := append(i.pending[n.ProfileID], n)
	if len(queue) > i.capacity {
		queue = queue[len(queue)-i.capacity:]
	}
	i.pending[n.ProfileID] = queue
	return nil
}

// Drain returns and clears the pending reminders for profileID.
func (i *Inbox) Drain(profileID string) []Notification {
	i.mu.Lock()
	defer i.mu.Unlock()

	queue := i.pending[profileID]
	delete(i.pending, profileID)
	return queue
}
