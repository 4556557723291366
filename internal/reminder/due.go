// Package reminder raises meal-period reminders for the medications of an
// active profile.
package reminder

import (
	"fmt"
	"time"

	"github.com/example/medtracker/internal/dosing"
	"github.com/example/medtracker/internal/mealperiod"
)

// Notification is a reminder raised for one medication and meal period.
type Notification struct {
	ProfileID    string
	MedicationID string
	MealPeriod   mealperiod.Period
	Title        string
	Body         string
	Tag          string
	FireAt       time.Time
}

// ReminderClock returns the wall-clock time a reminder for period fires.
// A parseable per-medication override wins over the catalog hint.
func ReminderClock(med dosing.Medication, period mealperiod.Period) (mealperiod.Clock, bool) {
	if raw, ok := med.CustomTimes[period]; ok {
		if clock, err := mealperiod.ParseClock(raw); err == nil {
			return clock, true
		}
	}
	entry, ok := mealperiod.Lookup(period)
	if !ok {
		return mealperiod.Clock{}, false
	}
	return entry.Hint, true
}

// Due returns the reminders whose clock matches now's hour and minute.
// Inactive medications never fire.
func Due(profileID string, medications []dosing.Medication, now time.Time) []Notification {
	var due []Notification
	for _, med := range medications {
		if !med.Active {
			continue
		}
		periods, err := mealperiod.Normalize(med.MealTimes)
		if err != nil {
			continue
		}
		for _, period := range periods {
			clock, ok := ReminderClock(med, period)
			if !ok || clock.Hour != now.Hour() || clock.Minute != now.Minute() {
				continue
			}
			due = append(due, Notification{
				ProfileID:    profileID,
				MedicationID: med.ID,
				MealPeriod:   period,
				Title:        fmt.Sprintf("Time to take %s", med.Name),
				Body:         fmt.Sprintf("%s - %s", period.Label(), med.Dosage),
				Tag:          fmt.Sprintf("%s-%s", med.ID, period),
				FireAt:       now.Truncate(time.Minute),
			})
		}
	}
	return due
}
