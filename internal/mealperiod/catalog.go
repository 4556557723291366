// Package mealperiod defines the fixed, ordered catalog of meal-relative
// periods a dose can be scheduled against.
package mealperiod

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Period identifies one of the meal-relative slots of a day.
type Period string

const (
	BeforeBreakfast Period = "before_breakfast"
	AfterBreakfast  Period = "after_breakfast"
	BeforeLunch     Period = "before_lunch"
	AfterLunch      Period = "after_lunch"
	BeforeDinner    Period = "before_dinner"
	AfterDinner     Period = "after_dinner"
	BeforeSleep     Period = "before_sleep"
)

// ErrUnknownPeriod is returned when a tag is not part of the catalog.
var ErrUnknownPeriod = errors.New("mealperiod: unknown period")

// ErrInvalidClock is returned when an "HH:MM" value cannot be parsed.
var ErrInvalidClock = errors.New("mealperiod: invalid clock time")

// Clock is a wall-clock time of day with minute resolution.
type Clock struct {
	Hour   int
	Minute int
}

// String renders the clock as zero-padded "HH:MM".
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Entry describes a single catalog period.
type Entry struct {
	Period Period
	Label  string
	Hint   Clock
}

var catalog = [...]Entry{
	{Period: BeforeBreakfast, Label: "Before Breakfast", Hint: Clock{Hour: 7}},
	{Period: AfterBreakfast, Label: "After Breakfast", Hint: Clock{Hour: 9}},
	{Period: BeforeLunch, Label: "Before Lunch", Hint: Clock{Hour: 12}},
	{Period: AfterLunch, Label: "After Lunch", Hint: Clock{Hour: 14}},
	{Period: BeforeDinner, Label: "Before Dinner", Hint: Clock{Hour: 18}},
	{Period: AfterDinner, Label: "After Dinner", Hint: Clock{Hour: 20}},
	{Period: BeforeSleep, Label: "Before Sleep", Hint: Clock{Hour: 22}},
}

// All returns the catalog in its canonical order. The slice is a copy.
func All() []Entry {
	out := make([]Entry, len(catalog))
	copy(out, catalog[:])
	return out
}

// Periods returns the period tags in catalog order.
func Periods() []Period {
	out := make([]Period, len(catalog))
	for i, entry := range catalog {
		out[i] = entry.Period
	}
	return out
}

// Lookup returns the catalog entry for p.
func Lookup(p Period) (Entry, bool) {
	idx := p.Index()
	if idx < 0 {
		return Entry{}, false
	}
	return catalog[idx], true
}

// Index reports the position of p in the catalog, or -1 when unknown.
func (p Period) Index() int {
	for i, entry := range catalog {
		if entry.Period == p {
			return i
		}
	}
	return -1
}

// Valid reports whether p is a catalog period.
func (p Period) Valid() bool {
	return p.Index() >= 0
}

// Label returns the display label, falling back to the raw tag for
// periods outside the catalog.
func (p Period) Label() string {
	if entry, ok := Lookup(p); ok {
		return entry.Label
	}
	return string(p)
}

// Parse converts a raw tag into a catalog period.
func Parse(raw string) (Period, error) {
	p := Period(strings.TrimSpace(raw))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPeriod, raw)
	}
	return p, nil
}

// Normalize removes duplicates from periods and returns them in catalog
// order. Unknown tags are reported as an error.
func Normalize(periods []Period) ([]Period, error) {
	seen := make(map[Period]struct{}, len(periods))
	for _, p := range periods {
		if !p.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPeriod, string(p))
		}
		seen[p] = struct{}{}
	}
	out := make([]Period, 0, len(seen))
	for _, entry := range catalog {
		if _, ok := seen[entry.Period]; ok {
			out = append(out, entry.Period)
		}
	}
	return out, nil
}

// ParseClock parses an "HH:MM" 24-hour value.
func ParseClock(raw string) (Clock, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok || len(hh) == 0 || len(hh) > 2 || len(mm) != 2 || !allDigits(hh) || !allDigits(mm) {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, raw)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, raw)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, raw)
	}
	return Clock{Hour: hour, Minute: minute}, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
