package dosing

import (
	"time"

	"github.com/example/medtracker/internal/mealperiod"
)

// StartOfDay returns midnight of date's calendar day in date's location.
func StartOfDay(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, date.Location())
}

// DayWindow returns the inclusive bounds a log's scheduled time must fall
// within to belong to date's calendar day.
func DayWindow(date time.Time) (time.Time, time.Time) {
	start := StartOfDay(date)
	return start, start.AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// InDay reports whether ts falls inside date's window.
func InDay(ts, date time.Time) bool {
	start, end := DayWindow(date)
	return !ts.Before(start) && !ts.After(end)
}

// Reconcile derives the ordered dose list for a day. Logs are expected to be
// pre-filtered to the day's window. Output is grouped by meal period in
// catalog order and, within a period, follows the order of medications.
// Inactive medications and medications without meal periods contribute
// nothing. When several logs match a dose, the first one wins.
func Reconcile(medications []Medication, logs []DoseLog, _ time.Time) []ScheduledDose {
	assigned := make([]map[mealperiod.Period]struct{}, len(medications))
	for i, med := range medications {
		if !med.Active {
			continue
		}
		set := make(map[mealperiod.Period]struct{}, len(med.MealTimes))
		for _, p := range med.MealTimes {
			set[p] = struct{}{}
		}
		assigned[i] = set
	}

	var doses []ScheduledDose
	for _, period := range mealperiod.Periods() {
		for i, med := range medications {
			if _, ok := assigned[i][period]; !ok {
				continue
			}
			doses = append(doses, ScheduledDose{
				Medication: med,
				MealPeriod: period,
				Log:        findLog(logs, med.ID, period),
			})
		}
	}
	return doses
}

func findLog(logs []DoseLog, medicationID string, period mealperiod.Period) *DoseLog {
	for i := range logs {
		if logs[i].MedicationID == medicationID && logs[i].MealPeriod == period {
			match := logs[i]
			return &match
		}
	}
	return nil
}

// PeriodGroup holds the doses scheduled for one meal period.
type PeriodGroup struct {
	Period mealperiod.Period
	Label  string
	Doses  []ScheduledDose
}

// GroupByPeriod splits reconciled doses into per-period groups in catalog
// order. Periods without doses are omitted.
func GroupByPeriod(doses []ScheduledDose) []PeriodGroup {
	var groups []PeriodGroup
	for _, entry := range mealperiod.All() {
		var matched []ScheduledDose
		for _, dose := range doses {
			if dose.MealPeriod == entry.Period {
				matched = append(matched, dose)
			}
		}
		if len(matched) == 0 {
			continue
		}
		groups = append(groups, PeriodGroup{Period: entry.Period, Label: entry.Label, Doses: matched})
	}
	return groups
}

// Find returns the dose for the given medication and period.
func Find(doses []ScheduledDose, medicationID string, period mealperiod.Period) (ScheduledDose, bool) {
	for _, dose := range doses {
		if dose.Medication.ID == medicationID && dose.MealPeriod == period {
			return dose, true
		}
	}
	return ScheduledDose{}, false
}
