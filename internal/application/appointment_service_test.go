package application

import (
	"context"
	"errors"
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func TestAppointmentService_ListSplitsAroundToday(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.March, 5, 23, 30, 0, 0, time.UTC)
	store := newMemoryStore()
	principal := seedAccount(store, "acct", "prof", "token", now.Add(time.Hour))
	svc := NewAppointmentServiceWithLogger(store, store, sequence("appt"), fixedClock(now), time.UTC, nil)
	ctx := context.Background()

	inputs := []AppointmentInput{
		{Title: "Cardiology", Date: time.Date(2024, time.March, 12, 0, 0, 0, 0, time.UTC), Time: strPtr("09:30")},
		{Title: "Blood test", Date: time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC), Time: strPtr("8:00")},
		{Title: "Dentist", Date: time.Date(2024, time.February, 20, 0, 0, 0, 0, time.UTC)},
		{Title: "GP", Date: time.Date(2024, time.March, 12, 0, 0, 0, 0, time.UTC), Time: strPtr("08:15")},
	}
	for _, in := range inputs {
		if _, err := svc.Create(ctx, CreateAppointmentParams{Principal: principal, ProfileID: "prof", Input: in}); err != nil {
			t.Fatalf("Create(%s) failed: %v", in.Title, err)
		}
	}

	list, err := svc.List(ctx, principal, "prof")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	var upcoming []string
	for _, a := range list.Upcoming {
		upcoming = append(upcoming, a.Title)
	}
	want := []string{"Blood test", "GP", "Cardiology"}
	if len(upcoming) != len(want) {
		t.Fatalf("expected upcoming %v, got %v", want, upcoming)
	}
	for i := range want {
		if upcoming[i] != want[i] {
			t.Fatalf("expected upcoming %v, got %v", want, upcoming)
		}
	}
	if len(list.Past) != 1 || list.Past[0].Title != "Dentist" {
		t.Fatalf("expected Dentist in past, got %+v", list.Past)
	}
	if got := list.Upcoming[0].Time; got == nil || *got != "08:00" {
		t.Fatalf("expected normalized time, got %v", got)
	}
}

func TestAppointmentService_Validation(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC)
	store := newMemoryStore()
	principal := seedAccount(store, "acct", "prof", "token", now.Add(time.Hour))
	svc := NewAppointmentService(store, store, sequence("appt"), fixedClock(now))

	_, err := svc.Create(context.Background(), CreateAppointmentParams{
		Principal: principal,
		ProfileID: "prof",
		Input:     AppointmentInput{Time: strPtr("25:00")},
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, field := range []string{"title", "date", "time"} {
		if _, ok := vErr.FieldErrors[field]; !ok {
			t.Errorf("expected %s error, got %v", field, vErr.FieldErrors)
		}
	}
	if len(store.appointments) != 0 {
		t.Fatalf("expected nothing to be stored")
	}
}

func TestAppointmentService_RemindedFlag(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC)
	store := newMemoryStore()
	principal := seedAccount(store, "acct", "prof", "token", now.Add(time.Hour))
	svc := NewAppointmentService(store, store, sequence("appt"), fixedClock(now))
	ctx := context.Background()

	input := AppointmentInput{Title: "GP", Date: time.Date(2024, time.March, 8, 0, 0, 0, 0, time.UTC), Time: strPtr("10:00")}
	created, err := svc.Create(ctx, CreateAppointmentParams{Principal: principal, ProfileID: "prof", Input: input})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	reminded, err := svc.MarkReminded(ctx, principal, "prof", created.ID)
	if err != nil || !reminded.Reminded {
		t.Fatalf("expected appointment to be marked reminded, got %+v (%v)", reminded, err)
	}

	input.Location = "Clinic 2"
	kept, err := svc.Update(ctx, UpdateAppointmentParams{Principal: principal, ProfileID: "prof", AppointmentID: created.ID, Input: input})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if !kept.Reminded {
		t.Fatalf("expected reminded flag to survive an edit that keeps the slot")
	}

	input.Time = strPtr("11:00")
	moved, err := svc.Update(ctx, UpdateAppointmentParams{Principal: principal, ProfileID: "prof", AppointmentID: created.ID, Input: input})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if moved.Reminded {
		t.Fatalf("expected moving the appointment to clear the reminded flag")
	}

	if err := svc.Delete(ctx, principal, "prof", created.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := svc.Get(ctx, principal, "prof", created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
