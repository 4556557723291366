package mealperiod

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAllReturnsCanonicalOrder(t *testing.T) {
	got := Periods()
	want := []Period{BeforeBreakfast, AfterBreakfast, BeforeLunch, AfterLunch, BeforeDinner, AfterDinner, BeforeSleep}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected period order (-want +got):\n%s", diff)
	}
}

func TestAllReturnsCopy(t *testing.T) {
	entries := All()
	entries[0].Label = "mutated"

	if got := BeforeBreakfast.Label(); got != "Before Breakfast" {
		t.Fatalf("catalog mutated through All(): label %q", got)
	}
}

func TestLabelFallsBackToTag(t *testing.T) {
	if got := Period("brunch").Label(); got != "brunch" {
		t.Fatalf("expected raw tag fallback, got %q", got)
	}
	if got := BeforeSleep.Label(); got != "Before Sleep" {
		t.Fatalf("expected Before Sleep label, got %q", got)
	}
}

func TestLookupHints(t *testing.T) {
	tests := map[Period]string{
		BeforeBreakfast: "07:00",
		AfterBreakfast:  "09:00",
		BeforeLunch:     "12:00",
		AfterLunch:      "14:00",
		BeforeDinner:    "18:00",
		AfterDinner:     "20:00",
		BeforeSleep:     "22:00",
	}
	for period, want := range tests {
		entry, ok := Lookup(period)
		if !ok {
			t.Fatalf("expected %s in catalog", period)
		}
		if got := entry.Hint.String(); got != want {
			t.Errorf("hint for %s = %s, want %s", period, got, want)
		}
	}
}

func TestParse(t *testing.T) {
	p, err := Parse(" after_lunch ")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if p != AfterLunch {
		t.Fatalf("expected after_lunch, got %s", p)
	}

	if _, err := Parse("midnight_snack"); !errors.Is(err, ErrUnknownPeriod) {
		t.Fatalf("expected ErrUnknownPeriod, got %v", err)
	}
}

func TestNormalizeDeduplicatesAndOrders(t *testing.T) {
	got, err := Normalize([]Period{BeforeSleep, BeforeBreakfast, BeforeSleep, AfterLunch})
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	want := []Period{BeforeBreakfast, AfterLunch, BeforeSleep}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected normalized periods (-want +got):\n%s", diff)
	}

	if _, err := Normalize([]Period{"teatime"}); !errors.Is(err, ErrUnknownPeriod) {
		t.Fatalf("expected ErrUnknownPeriod, got %v", err)
	}
}

func TestParseClock(t *testing.T) {
	valid := map[string]Clock{
		"07:30": {Hour: 7, Minute: 30},
		"7:05":  {Hour: 7, Minute: 5},
		"23:59": {Hour: 23, Minute: 59},
		"00:00": {},
	}
	for raw, want := range valid {
		got, err := ParseClock(raw)
		if err != nil {
			t.Fatalf("ParseClock(%q) returned error: %v", raw, err)
		}
		if got != want {
			t.Errorf("ParseClock(%q) = %+v, want %+v", raw, got, want)
		}
	}

	for _, raw := range []string{"", "24:00", "12:60", "12:5", "noon", "12-30", "123:00", "+7:00", "-0:30", "07:+5", " 7: 05"} {
		if _, err := ParseClock(raw); !errors.Is(err, ErrInvalidClock) {
			t.Errorf("ParseClock(%q) expected ErrInvalidClock, got %v", raw, err)
		}
	}
}
