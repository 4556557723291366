// Package dosing derives a day's dose timetable from medication
// assignments and dose logs, and computes the store writes that record a
// user's action against a scheduled dose. Everything in this package is
// pure: no I/O, no clocks, no shared state.
package dosing

import (
	"errors"
	"fmt"
	"time"

	"github.com/example/medtracker/internal/mealperiod"
)

// Status is the recorded outcome of a dose.
type Status string

const (
	StatusPending     Status = "pending"
	StatusTaken       Status = "taken"
	StatusMissed      Status = "missed"
	StatusSkipped     Status = "skipped"
	StatusMissedTaken Status = "missed_taken"
)

// ErrUnknownStatus is returned by ParseStatus for tags outside the status set.
var ErrUnknownStatus = errors.New("dosing: unknown status")

// ParseStatus converts a stored tag into a Status.
func ParseStatus(raw string) (Status, error) {
	switch s := Status(raw); s {
	case StatusPending, StatusTaken, StatusMissed, StatusSkipped, StatusMissedTaken:
		return s, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
	}
}

// Resolved reports whether no further action may be applied to a dose in
// this status. Plain "missed" is still actionable; "missed_taken" is not.
func (s Status) Resolved() bool {
	switch s {
	case StatusTaken, StatusSkipped, StatusMissedTaken:
		return true
	default:
		return false
	}
}

// Medication is the subset of a medication the timetable needs.
type Medication struct {
	ID          string
	ProfileID   string
	Name        string
	Dosage      string
	Notes       *string
	MealTimes   []mealperiod.Period
	CustomTimes map[mealperiod.Period]string
	Active      bool
}

// DoseLog records what happened to one scheduled dose.
type DoseLog struct {
	ID            string
	MedicationID  string
	ScheduledTime time.Time
	MealPeriod    mealperiod.Period
	TakenAt       *time.Time
	MissedAt      *time.Time
	Status        Status
	Notes         *string
	CreatedAt     time.Time
}

// ScheduledDose pairs a medication with one of its meal periods for a day,
// plus the log recorded for it, if any.
type ScheduledDose struct {
	Medication Medication
	MealPeriod mealperiod.Period
	Log        *DoseLog
}

// Status returns the attached log's status, or pending when none exists.
func (d ScheduledDose) Status() Status {
	if d.Log == nil {
		return StatusPending
	}
	return d.Log.Status
}

// Resolved reports whether the dose accepts no further actions.
func (d ScheduledDose) Resolved() bool {
	return d.Status().Resolved()
}
