package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/example/medtracker/internal/dosing"
	"github.com/example/medtracker/internal/mealperiod"
)

type timetableFixture struct {
	store     *memoryStore
	svc       *TimetableService
	principal Principal
	now       time.Time
	day       time.Time
}

func newTimetableFixture(t *testing.T) timetableFixture {
	t.Helper()

	now := time.Date(2024, time.March, 5, 15, 30, 0, 0, time.UTC)
	store := newMemoryStore()
	principal := seedAccount(store, "acct", "prof", "token", now.Add(time.Hour))

	store.medications["med-a"] = Medication{
		ID:        "med-a",
		ProfileID: "prof",
		Name:      "Metformin",
		MealTimes: []mealperiod.Period{mealperiod.AfterBreakfast, mealperiod.AfterDinner},
		Active:    true,
		CreatedAt: now.Add(-2 * time.Hour),
	}
	store.medications["med-b"] = Medication{
		ID:        "med-b",
		ProfileID: "prof",
		Name:      "Aspirin",
		MealTimes: []mealperiod.Period{mealperiod.AfterDinner},
		Active:    true,
		CreatedAt: now.Add(-time.Hour),
	}
	store.medications["med-old"] = Medication{
		ID:        "med-old",
		ProfileID: "prof",
		Name:      "Retired",
		MealTimes: []mealperiod.Period{mealperiod.BeforeBreakfast},
		Active:    false,
		CreatedAt: now.Add(-3 * time.Hour),
	}

	svc := NewTimetableServiceWithLogger(store, store, store, sequence("log"), fixedClock(now), time.UTC, nil)
	return timetableFixture{
		store:     store,
		svc:       svc,
		principal: principal,
		now:       now,
		day:       time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC),
	}
}

type doseRow struct {
	Medication string
	Period     mealperiod.Period
	Status     dosing.Status
}

func rows(day TimetableDay) []doseRow {
	out := make([]doseRow, 0, len(day.Doses))
	for _, d := range day.Doses {
		out = append(out, doseRow{Medication: d.Medication.ID, Period: d.MealPeriod, Status: d.Status()})
	}
	return out
}

func TestTimetableService_Day(t *testing.T) {
	t.Parallel()

	f := newTimetableFixture(t)

	day, err := f.svc.Day(context.Background(), f.principal, "prof", time.Time{})
	if err != nil {
		t.Fatalf("Day failed: %v", err)
	}

	want := []doseRow{
		{Medication: "med-a", Period: mealperiod.AfterBreakfast, Status: dosing.StatusPending},
		{Medication: "med-a", Period: mealperiod.AfterDinner, Status: dosing.StatusPending},
		{Medication: "med-b", Period: mealperiod.AfterDinner, Status: dosing.StatusPending},
	}
	if diff := cmp.Diff(want, rows(day)); diff != "" {
		t.Fatalf("unexpected doses (-want +got):\n%s", diff)
	}
	if !day.Date.Equal(f.day) {
		t.Fatalf("expected zero date to mean today, got %v", day.Date)
	}
	if len(day.Groups) != 2 || day.Groups[1].Label != "After Dinner" || len(day.Groups[1].Doses) != 2 {
		t.Fatalf("unexpected groups %+v", day.Groups)
	}
}

func TestTimetableService_DayRejectsForeignProfile(t *testing.T) {
	t.Parallel()

	f := newTimetableFixture(t)
	stranger := seedAccount(f.store, "other", "other-prof", "other-token", f.now.Add(time.Hour))

	if _, err := f.svc.Day(context.Background(), stranger, "prof", f.day); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for another account's profile, got %v", err)
	}
}

func TestTimetableService_ApplyAction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		action     string
		wantStatus dosing.Status
		wantTaken  bool
		wantMissed bool
	}{
		{name: "take records taken time", action: "take", wantStatus: dosing.StatusTaken, wantTaken: true},
		{name: "mark missed records missed time", action: "mark_missed", wantStatus: dosing.StatusMissedTaken, wantMissed: true},
		{name: "skip records status only", action: "skip", wantStatus: dosing.StatusSkipped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newTimetableFixture(t)
			day, err := f.svc.ApplyAction(context.Background(), ApplyActionParams{
				Principal:    f.principal,
				ProfileID:    "prof",
				MedicationID: "med-b",
				MealPeriod:   "after_dinner",
				Date:         f.day,
				Action:       tt.action,
			})
			if err != nil {
				t.Fatalf("ApplyAction failed: %v", err)
			}

			dose, ok := dosing.Find(day.Doses, "med-b", mealperiod.AfterDinner)
			if !ok || dose.Log == nil {
				t.Fatalf("expected reloaded dose with a log, got %+v", dose)
			}
			if dose.Status() != tt.wantStatus {
				t.Fatalf("expected status %s, got %s", tt.wantStatus, dose.Status())
			}
			if (dose.Log.TakenAt != nil) != tt.wantTaken || (dose.Log.MissedAt != nil) != tt.wantMissed {
				t.Fatalf("unexpected timestamps taken=%v missed=%v", dose.Log.TakenAt, dose.Log.MissedAt)
			}
			if want := f.day.Add(12 * time.Hour); !dose.Log.ScheduledTime.Equal(want) {
				t.Fatalf("expected scheduled time %v, got %v", want, dose.Log.ScheduledTime)
			}

			other, _ := dosing.Find(day.Doses, "med-a", mealperiod.AfterDinner)
			if other.Status() != dosing.StatusPending {
				t.Fatalf("expected sibling dose to stay pending, got %s", other.Status())
			}
			if f.store.upserts != 1 || f.store.logUpdates != 0 {
				t.Fatalf("expected a single upsert, got upserts=%d updates=%d", f.store.upserts, f.store.logUpdates)
			}
		})
	}
}

func TestTimetableService_ApplyActionOnResolvedDose(t *testing.T) {
	t.Parallel()

	f := newTimetableFixture(t)
	params := ApplyActionParams{
		Principal:    f.principal,
		ProfileID:    "prof",
		MedicationID: "med-a",
		MealPeriod:   "after_breakfast",
		Date:         f.day,
		Action:       "take",
	}
	if _, err := f.svc.ApplyAction(context.Background(), params); err != nil {
		t.Fatalf("first ApplyAction failed: %v", err)
	}

	params.Action = "skip"
	if _, err := f.svc.ApplyAction(context.Background(), params); !errors.Is(err, ErrDoseResolved) {
		t.Fatalf("expected ErrDoseResolved, got %v", err)
	}
	if f.store.upserts != 1 || f.store.logUpdates != 0 {
		t.Fatalf("expected no write for a resolved dose, got upserts=%d updates=%d", f.store.upserts, f.store.logUpdates)
	}
}

func TestTimetableService_ApplyActionUpdatesMissedLog(t *testing.T) {
	t.Parallel()

	f := newTimetableFixture(t)
	missedAt := f.day.Add(10 * time.Hour)
	f.store.doseLogs = append(f.store.doseLogs, dosing.DoseLog{
		ID:            "existing",
		MedicationID:  "med-a",
		MealPeriod:    mealperiod.AfterBreakfast,
		ScheduledTime: f.day.Add(12 * time.Hour),
		MissedAt:      &missedAt,
		Status:        dosing.StatusMissed,
	})

	day, err := f.svc.ApplyAction(context.Background(), ApplyActionParams{
		Principal:    f.principal,
		ProfileID:    "prof",
		MedicationID: "med-a",
		MealPeriod:   "after_breakfast",
		Date:         f.day,
		Action:       "take",
	})
	if err != nil {
		t.Fatalf("expected a missed dose to remain actionable, got %v", err)
	}

	dose, _ := dosing.Find(day.Doses, "med-a", mealperiod.AfterBreakfast)
	if dose.Log == nil || dose.Log.ID != "existing" || dose.Status() != dosing.StatusTaken {
		t.Fatalf("expected existing log to be updated to taken, got %+v", dose.Log)
	}
	if dose.Log.MissedAt == nil || !dose.Log.MissedAt.Equal(missedAt) {
		t.Fatalf("expected missed time to be preserved, got %v", dose.Log.MissedAt)
	}
	if f.store.logUpdates != 1 || f.store.upserts != 0 {
		t.Fatalf("expected a single update, got upserts=%d updates=%d", f.store.upserts, f.store.logUpdates)
	}
}

func TestTimetableService_ApplyActionValidation(t *testing.T) {
	t.Parallel()

	f := newTimetableFixture(t)

	_, err := f.svc.ApplyAction(context.Background(), ApplyActionParams{
		Principal:    f.principal,
		ProfileID:    "prof",
		MedicationID: "med-a",
		MealPeriod:   "brunch",
		Action:       "swallow",
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := vErr.FieldErrors["action"]; !ok {
		t.Errorf("expected action error, got %v", vErr.FieldErrors)
	}
	if _, ok := vErr.FieldErrors["meal_period"]; !ok {
		t.Errorf("expected meal_period error, got %v", vErr.FieldErrors)
	}

	_, err = f.svc.ApplyAction(context.Background(), ApplyActionParams{
		Principal:    f.principal,
		ProfileID:    "prof",
		MedicationID: "med-b",
		MealPeriod:   "after_breakfast",
		Date:         f.day,
		Action:       "take",
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for an unassigned period, got %v", err)
	}
}

func TestTimetableService_StoreFailures(t *testing.T) {
	t.Parallel()

	t.Run("failed write leaves the dose actionable", func(t *testing.T) {
		t.Parallel()

		f := newTimetableFixture(t)
		f.store.upsertErr = errStoreUnavailable
		params := ApplyActionParams{
			Principal:    f.principal,
			ProfileID:    "prof",
			MedicationID: "med-a",
			MealPeriod:   "after_dinner",
			Date:         f.day,
			Action:       "take",
		}

		_, err := f.svc.ApplyAction(context.Background(), params)
		if !IsStoreError(err, StoreWrite) || !errors.Is(err, errStoreUnavailable) {
			t.Fatalf("expected write StoreError, got %v", err)
		}

		f.store.mu.Lock()
		f.store.upsertErr = nil
		f.store.mu.Unlock()

		day, err := f.svc.Day(context.Background(), f.principal, "prof", f.day)
		if err != nil {
			t.Fatalf("Day failed: %v", err)
		}
		if dose, _ := dosing.Find(day.Doses, "med-a", mealperiod.AfterDinner); dose.Resolved() {
			t.Fatalf("expected dose to stay unresolved after failed write")
		}
		if _, err := f.svc.ApplyAction(context.Background(), params); err != nil {
			t.Fatalf("expected retry to succeed, got %v", err)
		}
	})

	t.Run("failed read is reported as read error", func(t *testing.T) {
		t.Parallel()

		f := newTimetableFixture(t)
		f.store.listLogsErr = errStoreUnavailable

		_, err := f.svc.Day(context.Background(), f.principal, "prof", f.day)
		if !IsStoreError(err, StoreRead) {
			t.Fatalf("expected read StoreError, got %v", err)
		}
		if kind := ErrorKind(err); kind != "read_failure" {
			t.Fatalf("expected read_failure kind, got %q", kind)
		}
	})
}
