package http

import (
	"log/slog"
	"net/http"

	"github.com/example/medtracker/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// pathAttrs maps route wildcards to their log attribute keys.
var pathAttrs = []struct {
	wildcard string
	key      string
}{
	{"profileID", logging.ProfileIDKey},
	{"medicationID", logging.MedicationIDKey},
	{"appointmentID", logging.AppointmentIDKey},
}

// handlerLogger derives the logger for one handler call. Route IDs present
// in the request path are attached before attrs.
func handlerLogger(r *http.Request, fallback *slog.Logger, handlerName, operation string, attrs ...any) *slog.Logger {
	logger := LoggerFromContext(r.Context())
	if logger == nil {
		logger = fallback
	}
	if logger == nil {
		logger = slog.Default()
	}

	pairs := []any{"handler", handlerName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	for _, attr := range pathAttrs {
		if value := r.PathValue(attr.wildcard); value != "" {
			pairs = append(pairs, attr.key, value)
		}
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}
