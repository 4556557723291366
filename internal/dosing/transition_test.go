package dosing

import (
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/google/go-cmp/cmp"

	"github.com/example/medtracker/internal/mealperiod"
)

var actionTime = time.Date(2024, time.March, 5, 8, 15, 0, 0, time.UTC)

func unloggedDose() ScheduledDose {
	return ScheduledDose{Medication: med("m1", true, mealperiod.BeforeBreakfast), MealPeriod: mealperiod.BeforeBreakfast}
}

func loggedDose(status Status) ScheduledDose {
	dose := unloggedDose()
	dose.Log = &DoseLog{
		ID:            "log-1",
		MedicationID:  "m1",
		MealPeriod:    mealperiod.BeforeBreakfast,
		ScheduledTime: ScheduledTimeFor(selectedDay),
		Status:        status,
	}
	return dose
}

func TestApplyTransitionTakeCreatesLog(t *testing.T) {
	intent, err := ApplyTransition(unloggedDose(), ActionTake, selectedDay, actionTime)
	if err != nil {
		t.Fatalf("ApplyTransition returned error: %v", err)
	}

	taken := actionTime
	want := WriteIntent{
		Kind: IntentCreate,
		Log: DoseLog{
			MedicationID:  "m1",
			MealPeriod:    mealperiod.BeforeBreakfast,
			ScheduledTime: time.Date(2024, time.March, 5, 12, 0, 0, 0, time.UTC),
			Status:        StatusTaken,
			TakenAt:       &taken,
		},
		Fields: []Field{FieldStatus, FieldTakenAt},
	}
	if diff := cmp.Diff(want, intent); diff != "" {
		t.Fatalf("unexpected intent (-want +got):\n%s", diff)
	}
}

func TestApplyTransitionTakeUpdatesExistingLog(t *testing.T) {
	intent, err := ApplyTransition(loggedDose(StatusMissed), ActionTake, selectedDay, actionTime)
	if err != nil {
		t.Fatalf("ApplyTransition returned error: %v", err)
	}

	if intent.Kind != IntentUpdate || intent.LogID != "log-1" {
		t.Fatalf("expected update of log-1, got %v %q", intent.Kind, intent.LogID)
	}
	if diff := cmp.Diff([]Field{FieldStatus, FieldTakenAt}, intent.Fields); diff != "" {
		t.Fatalf("unexpected touched fields (-want +got):\n%s", diff)
	}
	if intent.Log.Status != StatusTaken || intent.Log.TakenAt == nil || !intent.Log.TakenAt.Equal(actionTime) {
		t.Fatalf("unexpected update values %+v", intent.Log)
	}
	if intent.Touches(FieldMissedAt) {
		t.Fatalf("take must not touch missed_at")
	}
}

func TestApplyTransitionMarkMissed(t *testing.T) {
	intent, err := ApplyTransition(unloggedDose(), ActionMarkMissed, selectedDay, actionTime)
	if err != nil {
		t.Fatalf("ApplyTransition returned error: %v", err)
	}

	if intent.Kind != IntentCreate {
		t.Fatalf("expected create intent, got %v", intent.Kind)
	}
	if intent.Log.Status != StatusMissedTaken {
		t.Fatalf("expected missed_taken, got %s", intent.Log.Status)
	}
	if intent.Log.MissedAt == nil || !intent.Log.MissedAt.Equal(actionTime) || intent.Log.TakenAt != nil {
		t.Fatalf("unexpected timestamps %+v", intent.Log)
	}
	if !intent.Log.Status.Resolved() {
		t.Fatalf("missed_taken must be resolved")
	}
}

func TestApplyTransitionSkipSetsNoTimestamps(t *testing.T) {
	intent, err := ApplyTransition(unloggedDose(), ActionSkip, selectedDay, actionTime)
	if err != nil {
		t.Fatalf("ApplyTransition returned error: %v", err)
	}

	if intent.Kind != IntentCreate || intent.Log.Status != StatusSkipped {
		t.Fatalf("unexpected intent %+v", intent)
	}
	if intent.Log.TakenAt != nil || intent.Log.MissedAt != nil {
		t.Fatalf("skip must not set timestamps: %+v", intent.Log)
	}
	if diff := cmp.Diff([]Field{FieldStatus}, intent.Fields); diff != "" {
		t.Fatalf("unexpected touched fields (-want +got):\n%s", diff)
	}
}

func TestApplyTransitionScheduledTimeUsesSelectedDayLocation(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	day := time.Date(2024, time.July, 1, 23, 0, 0, 0, loc)

	intent, err := ApplyTransition(unloggedDose(), ActionSkip, day, actionTime)
	if err != nil {
		t.Fatalf("ApplyTransition returned error: %v", err)
	}

	want := time.Date(2024, time.July, 1, 12, 0, 0, 0, loc)
	if !intent.Log.ScheduledTime.Equal(want) {
		t.Fatalf("scheduled time = %v, want %v", intent.Log.ScheduledTime, want)
	}
}

func TestScheduledTimeForKeepsNoonAcrossDSTChanges(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("LoadLocation failed: %v", err)
	}

	tests := []struct {
		name string
		day  time.Time
	}{
		{name: "spring forward", day: time.Date(2024, time.March, 10, 0, 0, 0, 0, loc)},
		{name: "fall back", day: time.Date(2024, time.November, 3, 0, 0, 0, 0, loc)},
		{name: "ordinary day", day: time.Date(2024, time.July, 4, 18, 45, 0, 0, loc)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScheduledTimeFor(tt.day)
			y, m, d := tt.day.Date()
			want := time.Date(y, m, d, 12, 0, 0, 0, loc)
			if !got.Equal(want) || got.Hour() != 12 {
				t.Fatalf("ScheduledTimeFor(%v) = %v, want %v", tt.day, got, want)
			}
			if !InDay(got, tt.day) {
				t.Fatalf("scheduled time %v falls outside the day window", got)
			}
		})
	}
}

func TestApplyTransitionRejectsUnknownAction(t *testing.T) {
	if _, err := ApplyTransition(unloggedDose(), Action("snooze"), selectedDay, actionTime); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
}

func TestParseAction(t *testing.T) {
	for _, raw := range []string{"take", "mark_missed", "skip"} {
		if _, err := ParseAction(raw); err != nil {
			t.Errorf("ParseAction(%q) returned error: %v", raw, err)
		}
	}
	if _, err := ParseAction("undo"); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
}
