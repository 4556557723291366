package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/medtracker/internal/application"
)

type fakeSessionValidator struct {
	principal application.Principal
	err       error
}

func (f fakeSessionValidator) ValidateSession(_ context.Context, token string) (application.Principal, error) {
	if f.err != nil {
		return application.Principal{}, f.err
	}
	principal := f.principal
	principal.Token = token
	return principal, nil
}

func TestSessionMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("rejects requests without valid session tokens", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name           string
			cookieToken    *http.Cookie
			headerToken    string
			validatorErr   error
			expectedStatus int
			expectedCode   string
		}{
			{
				name:           "missing credentials",
				expectedStatus: http.StatusUnauthorized,
				expectedCode:   "AUTH_REQUIRED",
			},
			{
				name:           "non bearer header",
				headerToken:    "Basic abc",
				expectedStatus: http.StatusUnauthorized,
				expectedCode:   "AUTH_REQUIRED",
			},
			{
				name:           "expired session",
				headerToken:    "Bearer expired",
				validatorErr:   application.ErrSessionExpired,
				expectedStatus: http.StatusUnauthorized,
				expectedCode:   "AUTH_SESSION_EXPIRED",
			},
			{
				name:           "revoked session",
				cookieToken:    &http.Cookie{Name: "session_token", Value: "revoked-token"},
				validatorErr:   application.ErrSessionRevoked,
				expectedStatus: http.StatusUnauthorized,
				expectedCode:   "AUTH_SESSION_INVALID",
			},
			{
				name:           "store unavailable",
				headerToken:    "Bearer token",
				validatorErr:   &application.StoreError{Op: application.StoreRead, Err: errors.New("disk I/O error")},
				expectedStatus: http.StatusServiceUnavailable,
			},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				t.Parallel()

				req := httptest.NewRequest(http.MethodGet, "/protected", nil)
				if tc.cookieToken != nil {
					req.AddCookie(tc.cookieToken)
				}
				if tc.headerToken != "" {
					req.Header.Set("Authorization", tc.headerToken)
				}
				recorder := httptest.NewRecorder()

				handler := RequireSession(fakeSessionValidator{err: tc.validatorErr}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					t.Fatal("next handler should not be called when authentication fails")
				}))
				handler.ServeHTTP(recorder, req)

				if recorder.Code != tc.expectedStatus {
					t.Fatalf("expected status %d, got %d", tc.expectedStatus, recorder.Code)
				}
				var body errorResponse
				if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
					t.Fatalf("failed to decode body: %v", err)
				}
				if body.ErrorCode != tc.expectedCode || body.Message == "" {
					t.Fatalf("unexpected error body %+v", body)
				}
			})
		}
	})

	t.Run("attaches authenticated principal to request context", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.AddCookie(&http.Cookie{Name: "session_token", Value: "valid-token"})
		recorder := httptest.NewRecorder()

		var captured application.Principal
		handler := RequireSession(fakeSessionValidator{principal: application.Principal{AccountID: "acct-1"}}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				t.Fatal("expected principal in request context")
			}
			captured = p
			w.WriteHeader(http.StatusOK)
		}))
		handler.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", recorder.Code)
		}
		if captured.AccountID != "acct-1" || captured.Token != "valid-token" {
			t.Fatalf("unexpected principal %+v", captured)
		}
	})
}

func TestRequestLoggerCarriesLogger(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/anything", nil)
	recorder := httptest.NewRecorder()

	handler := RequestLogger(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if LoggerFromContext(r.Context()) == nil {
			t.Fatal("expected request logger in context")
		}
		w.WriteHeader(http.StatusTeapot)
	}))
	handler.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusTeapot {
		t.Fatalf("expected wrapped status to pass through, got %d", recorder.Code)
	}
}

func TestHandlerLoggerCarriesSessionAndRouteIDs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))
	validator := fakeSessionValidator{principal: application.Principal{AccountID: "acct-1", SessionID: "sess-1", ActiveProfileID: "prof-1"}}

	mux := http.NewServeMux()
	mux.Handle("GET /profiles/{profileID}/medications/{medicationID}", RequireSession(validator, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerLogger(r, nil, "MedicationHandler", "Get").InfoContext(r.Context(), "medication loaded")
		w.WriteHeader(http.StatusNoContent)
	})))
	handler := RequestLogger(base)(mux)

	req := httptest.NewRequest(http.MethodGet, "/profiles/prof-1/medications/med-7", nil)
	req.Header.Set("Authorization", "Bearer token")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var candidate map[string]any
		if err := json.Unmarshal(line, &candidate); err != nil {
			t.Fatalf("failed to decode log line %q: %v", line, err)
		}
		if candidate["msg"] == "medication loaded" {
			entry = candidate
		}
	}
	if entry == nil {
		t.Fatalf("handler log line not found in %s", buf.String())
	}

	want := map[string]string{
		"account_id":        "acct-1",
		"session_id":        "sess-1",
		"active_profile_id": "prof-1",
		"profile_id":        "prof-1",
		"medication_id":     "med-7",
		"handler":           "MedicationHandler",
		"operation":         "Get",
		"path":              "/profiles/prof-1/medications/med-7",
	}
	for key, value := range want {
		if entry[key] != value {
			t.Errorf("expected %s=%q, got %v", key, value, entry[key])
		}
	}
	if _, ok := entry["appointment_id"]; ok {
		t.Errorf("expected no appointment_id on a medication route, got %v", entry)
	}
}
