// Package logging carries the request-scoped slog logger through contexts and
// names the attribute keys shared by every layer.
package logging

import (
	"context"
	"log/slog"
)

// Attribute keys used across handlers, services and reminder tasks.
const (
	AccountIDKey     = "account_id"
	SessionIDKey     = "session_id"
	ProfileIDKey     = "profile_id"
	MedicationIDKey  = "medication_id"
	AppointmentIDKey = "appointment_id"
	MealPeriodKey    = "meal_period"
)

type contextKey struct{}

// ContextWithLogger returns a derived context that carries the provided logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext extracts a logger previously attached to the context.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return nil
	}
	logger, _ := ctx.Value(contextKey{}).(*slog.Logger)
	return logger
}

// With adds args to the context's logger. Contexts without a logger are
// returned unchanged.
func With(ctx context.Context, args ...any) context.Context {
	logger := FromContext(ctx)
	if logger == nil || len(args) == 0 {
		return ctx
	}
	return ContextWithLogger(ctx, logger.With(args...))
}

// WithPrincipal tags the context's logger with the signed-in account and
// session, and the active profile when one is set.
func WithPrincipal(ctx context.Context, accountID, sessionID, activeProfileID string) context.Context {
	args := []any{AccountIDKey, accountID}
	if sessionID != "" {
		args = append(args, SessionIDKey, sessionID)
	}
	if activeProfileID != "" {
		args = append(args, "active_"+ProfileIDKey, activeProfileID)
	}
	return With(ctx, args...)
}
