package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func newBufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, nil)), &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to decode log line %q: %v", buf.String(), err)
	}
	return entry
}

func TestContextWithLogger(t *testing.T) {
	t.Parallel()

	logger, _ := newBufferLogger()
	ctx := ContextWithLogger(context.Background(), logger)
	if got := FromContext(ctx); got != logger {
		t.Fatalf("expected attached logger to be returned")
	}

	if got := FromContext(context.Background()); got != nil {
		t.Fatalf("expected nil logger for bare context")
	}
	base := context.Background()
	if got := ContextWithLogger(base, nil); got != base {
		t.Fatalf("expected nil logger to leave the context unchanged")
	}
}

func TestWithPrincipalTagsLogger(t *testing.T) {
	t.Parallel()

	logger, buf := newBufferLogger()
	ctx := ContextWithLogger(context.Background(), logger)
	ctx = WithPrincipal(ctx, "acct-1", "sess-1", "prof-1")
	ctx = With(ctx, MedicationIDKey, "med-1", MealPeriodKey, "after_dinner")

	FromContext(ctx).Info("dose recorded")

	entry := decodeLine(t, buf)
	want := map[string]string{
		AccountIDKey:        "acct-1",
		SessionIDKey:        "sess-1",
		"active_profile_id": "prof-1",
		MedicationIDKey:     "med-1",
		MealPeriodKey:       "after_dinner",
	}
	for key, value := range want {
		if entry[key] != value {
			t.Errorf("expected %s=%q, got %v", key, value, entry[key])
		}
	}
}

func TestWithPrincipalSkipsEmptyProfile(t *testing.T) {
	t.Parallel()

	logger, buf := newBufferLogger()
	ctx := WithPrincipal(ContextWithLogger(context.Background(), logger), "acct-1", "", "")
	FromContext(ctx).Info("signed in")

	entry := decodeLine(t, buf)
	if _, ok := entry["active_profile_id"]; ok {
		t.Fatalf("expected no active profile attribute, got %v", entry)
	}
	if _, ok := entry[SessionIDKey]; ok {
		t.Fatalf("expected no session attribute, got %v", entry)
	}
}

func TestWithoutLoggerIsNoop(t *testing.T) {
	t.Parallel()

	base := context.Background()
	if got := With(base, ProfileIDKey, "prof-1"); got != base {
		t.Fatalf("expected context without logger to be returned unchanged")
	}
}
