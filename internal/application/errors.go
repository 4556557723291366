package application

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when the caller has no valid session for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist or is
	// not visible to the caller's account.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a unique attribute is already taken.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrInvalidCredentials is returned when sign-in details do not match an account.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrSessionExpired is returned for sessions past their expiry.
	ErrSessionExpired = errors.New("application: session expired")
	// ErrSessionRevoked is returned for sessions that were signed out.
	ErrSessionRevoked = errors.New("application: session revoked")
	// ErrDoseResolved is returned when an action targets a dose that is
	// already taken, skipped or recorded as missed.
	ErrDoseResolved = errors.New("application: dose already resolved")
	// ErrNoActiveProfile is returned when an operation needs an activated profile.
	ErrNoActiveProfile = errors.New("application: no active profile")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 1 {
		for field, msg := range v.FieldErrors {
			return fmt.Sprintf("validation failed: %s: %s", field, msg)
		}
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; exists {
		return
	}
	v.FieldErrors[field] = message
}

func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

// StoreOp says which direction a failed store call went.
type StoreOp string

const (
	StoreRead  StoreOp = "read"
	StoreWrite StoreOp = "write"
)

// StoreError reports that the backing store could not be read or written.
// Nothing was changed by a failed write; callers re-derive state from the
// last successful read.
type StoreError struct {
	Op  StoreOp
	Err error
}

func (e *StoreError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsStoreError reports whether err is a StoreError for op. An empty op
// matches either direction.
func IsStoreError(err error, op StoreOp) bool {
	var sErr *StoreError
	if !errors.As(err, &sErr) {
		return false
	}
	return op == "" || sErr.Op == op
}
