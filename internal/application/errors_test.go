package application

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	var err *ValidationError
	if err.Error() != "" {
		t.Fatalf("expected empty string for nil error, got %q", err.Error())
	}

	empty := &ValidationError{}
	if got := empty.Error(); got != "validation failed" {
		t.Fatalf("expected generic message for empty error, got %q", got)
	}

	single := &ValidationError{FieldErrors: map[string]string{"field": "invalid"}}
	if got := single.Error(); got != "validation failed: field: invalid" {
		t.Fatalf("expected single field to be named, got %q", got)
	}

	several := &ValidationError{FieldErrors: map[string]string{"a": "bad", "b": "worse"}}
	if got := several.Error(); got != "validation failed" {
		t.Fatalf("expected generic message for several fields, got %q", got)
	}
}

func TestValidationError_HasErrors(t *testing.T) {
	t.Parallel()

	if err := (&ValidationError{}).HasErrors(); err {
		t.Fatalf("expected HasErrors to report false for empty error")
	}

	if err := (&ValidationError{FieldErrors: map[string]string{"field": "bad"}}).HasErrors(); !err {
		t.Fatalf("expected HasErrors to report true when fields are present")
	}
}

func TestValidationError_AddAndMerge(t *testing.T) {
	t.Parallel()

	base := &ValidationError{}
	base.add("first", "value")
	if got := base.FieldErrors["first"]; got != "value" {
		t.Fatalf("expected add to populate map, got %q", got)
	}

	other := &ValidationError{FieldErrors: map[string]string{"second": "another"}}
	base.merge(other)
	if got := base.FieldErrors["second"]; got != "another" {
		t.Fatalf("expected merge to copy field, got %q", got)
	}

	base.add("first", "ignored")
	if got := base.FieldErrors["first"]; got != "value" {
		t.Fatalf("expected add to keep the first message, got %q", got)
	}

	base.merge(nil)
	if len(base.FieldErrors) != 2 {
		t.Fatalf("expected merge with nil to leave fields unchanged")
	}
}

func TestStoreError(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("wrapped: %w", &StoreError{Op: StoreWrite, Err: errStoreUnavailable})
	if !IsStoreError(err, StoreWrite) || !IsStoreError(err, "") {
		t.Fatalf("expected write StoreError to be detected")
	}
	if IsStoreError(err, StoreRead) {
		t.Fatalf("expected read check to reject a write failure")
	}
	if !errors.Is(err, errStoreUnavailable) {
		t.Fatalf("expected StoreError to unwrap to its cause")
	}
}
