package dosing

import (
	"errors"
	"fmt"
	"time"
)

// Action is a user action against a scheduled dose.
type Action string

const (
	ActionTake       Action = "take"
	ActionMarkMissed Action = "mark_missed"
	ActionSkip       Action = "skip"
)

// ErrUnknownAction is returned for actions outside the supported set.
var ErrUnknownAction = errors.New("dosing: unknown action")

// ParseAction converts a raw action name into an Action.
func ParseAction(raw string) (Action, error) {
	switch a := Action(raw); a {
	case ActionTake, ActionMarkMissed, ActionSkip:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, raw)
	}
}

// ScheduledHour is the reference hour stamped on newly created logs.
const ScheduledHour = 12

// ScheduledTimeFor returns the reference timestamp for logs created on
// date's calendar day. The hour is wall-clock, so DST days still get noon.
func ScheduledTimeFor(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, ScheduledHour, 0, 0, 0, date.Location())
}

// IntentKind distinguishes inserts from updates.
type IntentKind int

const (
	IntentCreate IntentKind = iota + 1
	IntentUpdate
)

func (k IntentKind) String() string {
	switch k {
	case IntentCreate:
		return "create"
	case IntentUpdate:
		return "update"
	default:
		return "unknown"
	}
}

// Field names a dose log column a write touches.
type Field string

const (
	FieldStatus   Field = "status"
	FieldTakenAt  Field = "taken_at"
	FieldMissedAt Field = "missed_at"
)

// WriteIntent describes the store write that records an action. For a
// create, Log is the full record to insert (without ID). For an update,
// LogID identifies the existing row and only the Fields listed are to be
// written from Log.
type WriteIntent struct {
	Kind   IntentKind
	LogID  string
	Log    DoseLog
	Fields []Field
}

// Touches reports whether the intent writes field.
func (w WriteIntent) Touches(field Field) bool {
	for _, f := range w.Fields {
		if f == field {
			return true
		}
	}
	return false
}

// ApplyTransition computes the write that records action against dose at
// now. selectedDate decides the scheduled time of a newly created log.
// Whether the dose may still be acted upon is the caller's decision.
func ApplyTransition(dose ScheduledDose, action Action, selectedDate, now time.Time) (WriteIntent, error) {
	var (
		log    DoseLog
		fields []Field
	)
	switch action {
	case ActionTake:
		taken := now
		log.Status = StatusTaken
		log.TakenAt = &taken
		fields = []Field{FieldStatus, FieldTakenAt}
	case ActionMarkMissed:
		missed := now
		log.Status = StatusMissedTaken
		log.MissedAt = &missed
		fields = []Field{FieldStatus, FieldMissedAt}
	case ActionSkip:
		log.Status = StatusSkipped
		fields = []Field{FieldStatus}
	default:
		return WriteIntent{}, fmt.Errorf("%w: %q", ErrUnknownAction, string(action))
	}

	if dose.Log != nil {
		log.ID = dose.Log.ID
		log.MedicationID = dose.Log.MedicationID
		log.MealPeriod = dose.Log.MealPeriod
		log.ScheduledTime = dose.Log.ScheduledTime
		return WriteIntent{Kind: IntentUpdate, LogID: dose.Log.ID, Log: log, Fields: fields}, nil
	}

	log.MedicationID = dose.Medication.ID
	log.MealPeriod = dose.MealPeriod
	log.ScheduledTime = ScheduledTimeFor(selectedDate)
	return WriteIntent{Kind: IntentCreate, Log: log, Fields: fields}, nil
}
