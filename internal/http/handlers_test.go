package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/example/medtracker/internal/application"
	"github.com/example/medtracker/internal/dosing"
	"github.com/example/medtracker/internal/drugsearch"
	"github.com/example/medtracker/internal/mealperiod"
	"github.com/example/medtracker/internal/reminder"
)

type fakeAccountService struct {
	result application.AuthenticateResult
	err    error
}

func (f *fakeAccountService) Register(_ context.Context, params application.RegisterParams) (application.RegisterResult, error) {
	if f.err != nil {
		return application.RegisterResult{}, f.err
	}
	return application.RegisterResult{
		Account: application.Account{ID: "acct-1", Email: params.Email, DisplayName: params.DisplayName},
		Profile: application.Profile{ID: "prof-1", AccountID: "acct-1", Name: params.DisplayName, IsPrimary: true, Language: application.LanguageEnglish, AlarmEnabled: true},
	}, nil
}

func (f *fakeAccountService) Authenticate(context.Context, application.AuthenticateParams) (application.AuthenticateResult, error) {
	return f.result, f.err
}

func (f *fakeAccountService) RevokeSession(context.Context, string) error { return f.err }

type fakeTimetableService struct {
	day        application.TimetableDay
	err        error
	lastDate   time.Time
	lastAction application.ApplyActionParams
}

func (f *fakeTimetableService) Day(_ context.Context, _ application.Principal, _ string, date time.Time) (application.TimetableDay, error) {
	f.lastDate = date
	return f.day, f.err
}

func (f *fakeTimetableService) ApplyAction(_ context.Context, params application.ApplyActionParams) (application.TimetableDay, error) {
	f.lastAction = params
	return f.day, f.err
}

type fakeAppointmentService struct {
	list application.AppointmentList
	err  error
}

func (f *fakeAppointmentService) List(context.Context, application.Principal, string) (application.AppointmentList, error) {
	return f.list, f.err
}

func (f *fakeAppointmentService) Create(_ context.Context, params application.CreateAppointmentParams) (application.Appointment, error) {
	return application.Appointment{ID: "appt-1", Title: params.Input.Title, Date: params.Input.Date, Time: params.Input.Time}, f.err
}

func (f *fakeAppointmentService) Update(context.Context, application.UpdateAppointmentParams) (application.Appointment, error) {
	return application.Appointment{}, f.err
}

func (f *fakeAppointmentService) Delete(context.Context, application.Principal, string, string) error {
	return f.err
}

type fakeProfileService struct {
	notifications []reminder.Notification
	err           error
}

func (f *fakeProfileService) List(context.Context, application.Principal) ([]application.Profile, error) {
	return []application.Profile{{ID: "prof-1", Name: "Me", IsPrimary: true, Language: application.LanguageEnglish}}, f.err
}

func (f *fakeProfileService) Create(_ context.Context, params application.CreateProfileParams) (application.Profile, error) {
	return application.Profile{ID: "prof-2", Name: params.Input.Name, DateOfBirth: params.Input.DateOfBirth, AlarmEnabled: params.Input.AlarmEnabled, Language: application.Language(params.Input.Language)}, f.err
}

func (f *fakeProfileService) Update(context.Context, application.UpdateProfileParams) (application.Profile, error) {
	return application.Profile{}, f.err
}

func (f *fakeProfileService) Delete(context.Context, application.Principal, string) error {
	return f.err
}

func (f *fakeProfileService) Activate(_ context.Context, _ application.Principal, id string) (application.Profile, error) {
	return application.Profile{ID: id}, f.err
}

func (f *fakeProfileService) Deactivate(context.Context, application.Principal) error { return f.err }

func (f *fakeProfileService) Notifications(context.Context, application.Principal, string) ([]reminder.Notification, error) {
	return f.notifications, f.err
}

type fakeDrugSearcher struct {
	suggestions []drugsearch.Suggestion
	err         error
}

func (f fakeDrugSearcher) Search(context.Context, string) ([]drugsearch.Suggestion, error) {
	return f.suggestions, f.err
}

type testDeps struct {
	accounts     *fakeAccountService
	profiles     *fakeProfileService
	timetable    *fakeTimetableService
	appointments *fakeAppointmentService
	drugs        fakeDrugSearcher
	now          time.Time
}

func newTestRouter(deps testDeps) http.Handler {
	if deps.accounts == nil {
		deps.accounts = &fakeAccountService{}
	}
	if deps.profiles == nil {
		deps.profiles = &fakeProfileService{}
	}
	if deps.timetable == nil {
		deps.timetable = &fakeTimetableService{}
	}
	if deps.appointments == nil {
		deps.appointments = &fakeAppointmentService{}
	}
	if deps.now.IsZero() {
		deps.now = time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC)
	}
	now := deps.now

	return NewRouter(RouterConfig{
		Auth:           NewAuthHandler(deps.accounts, nil),
		Profiles:       NewProfileHandler(deps.profiles, nil),
		Timetable:      NewTimetableHandler(deps.timetable, time.UTC, nil),
		Appointments:   NewAppointmentHandler(deps.appointments, time.UTC, func() time.Time { return now }, nil),
		Catalog:        NewCatalogHandler(deps.drugs, nil),
		RequireSession: RequireSession(fakeSessionValidator{principal: application.Principal{AccountID: "acct-1"}}, nil),
	})
}

func authed(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer token")
	return req
}

func decodeBody[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(recorder.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode response %q: %v", recorder.Body.String(), err)
	}
	return out
}

func TestAuthHandlers(t *testing.T) {
	t.Parallel()

	t.Run("sign-in issues session token via cookie and header", func(t *testing.T) {
		t.Parallel()

		expires := time.Date(2024, time.March, 6, 9, 0, 0, 0, time.UTC)
		router := newTestRouter(testDeps{accounts: &fakeAccountService{result: application.AuthenticateResult{
			Account: application.Account{ID: "acct-1", Email: "carer@example.com"},
			Session: application.Session{ID: "s1", Token: "tok", ExpiresAt: expires},
		}}})

		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(`{"email":"Carer@example.com","password":"secret123"}`)))

		if recorder.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", recorder.Code, recorder.Body.String())
		}
		if got := recorder.Header().Get("X-Session-Token"); got != "tok" {
			t.Fatalf("expected token header, got %q", got)
		}
		cookies := recorder.Result().Cookies()
		if len(cookies) != 1 || cookies[0].Name != "session_token" || cookies[0].Value != "tok" || !cookies[0].HttpOnly {
			t.Fatalf("unexpected cookies %+v", cookies)
		}
		body := decodeBody[loginResponse](t, recorder)
		if body.Token != "tok" || body.ExpiresAt != "2024-03-06T09:00:00Z" {
			t.Fatalf("unexpected body %+v", body)
		}
	})

	t.Run("wrong credentials answer 401", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter(testDeps{accounts: &fakeAccountService{err: application.ErrInvalidCredentials}})
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(`{"email":"a@b.c","password":"x"}`)))

		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", recorder.Code)
		}
		if body := decodeBody[errorResponse](t, recorder); body.ErrorCode != "AUTH_INVALID_CREDENTIALS" {
			t.Fatalf("unexpected body %+v", body)
		}
	})

	t.Run("registration conflicts map to 409", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter(testDeps{accounts: &fakeAccountService{err: application.ErrAlreadyExists}})
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/accounts", strings.NewReader(`{"email":"a@b.c","password":"long enough","display_name":"A"}`)))

		if recorder.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", recorder.Code)
		}
	})

	t.Run("sign-out clears the cookie", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter(testDeps{})
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, authed(httptest.NewRequest(http.MethodDelete, "/sessions/current", nil)))

		if recorder.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", recorder.Code)
		}
		cookies := recorder.Result().Cookies()
		if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
			t.Fatalf("expected cookie to be cleared, got %+v", cookies)
		}
	})
}

func TestTimetableHandlers(t *testing.T) {
	t.Parallel()

	day := func() application.TimetableDay {
		taken := time.Date(2024, time.March, 5, 8, 5, 0, 0, time.UTC)
		med := dosing.Medication{ID: "med-1", Name: "Metformin", Dosage: "500mg", Active: true,
			MealTimes:   []mealperiod.Period{mealperiod.AfterBreakfast, mealperiod.AfterDinner},
			CustomTimes: map[mealperiod.Period]string{mealperiod.AfterDinner: "19:30"},
		}
		doses := []dosing.ScheduledDose{
			{Medication: med, MealPeriod: mealperiod.AfterBreakfast, Log: &dosing.DoseLog{ID: "log-1", Status: dosing.StatusTaken, TakenAt: &taken}},
			{Medication: med, MealPeriod: mealperiod.AfterDinner},
		}
		return application.TimetableDay{
			ProfileID: "prof-1",
			Date:      time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC),
			Doses:     doses,
			Groups:    dosing.GroupByPeriod(doses),
		}
	}

	t.Run("renders grouped doses with reminder times", func(t *testing.T) {
		t.Parallel()

		svc := &fakeTimetableService{day: day()}
		router := newTestRouter(testDeps{timetable: svc})
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, authed(httptest.NewRequest(http.MethodGet, "/profiles/prof-1/timetable?date=2024-03-05", nil)))

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
		}
		if want := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC); !svc.lastDate.Equal(want) {
			t.Fatalf("expected parsed date %v, got %v", want, svc.lastDate)
		}

		body := decodeBody[timetableDTO](t, recorder)
		taken := "2024-03-05T08:05:00Z"
		want := timetableDTO{
			ProfileID: "prof-1",
			Date:      "2024-03-05",
			Total:     2,
			Resolved:  1,
			Groups: []doseGroupDTO{
				{MealPeriod: "after_breakfast", Label: "After Breakfast", Doses: []doseDTO{
					{MedicationID: "med-1", Name: "Metformin", Dosage: "500mg", MealPeriod: "after_breakfast", ReminderTime: "09:00", Status: "taken", Resolved: true, LogID: "log-1", TakenAt: &taken},
				}},
				{MealPeriod: "after_dinner", Label: "After Dinner", Doses: []doseDTO{
					{MedicationID: "med-1", Name: "Metformin", Dosage: "500mg", MealPeriod: "after_dinner", ReminderTime: "19:30", Status: "pending"},
				}},
			},
		}
		if diff := cmp.Diff(want, body); diff != "" {
			t.Fatalf("unexpected timetable (-want +got):\n%s", diff)
		}
	})

	t.Run("rejects malformed dates", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter(testDeps{})
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, authed(httptest.NewRequest(http.MethodGet, "/profiles/prof-1/timetable?date=05/03/2024", nil)))

		if recorder.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", recorder.Code)
		}
	})

	t.Run("maps action failures to status codes", func(t *testing.T) {
		t.Parallel()

		validation := &application.ValidationError{FieldErrors: map[string]string{"action": "action must be take, mark_missed or skip"}}
		tests := []struct {
			name   string
			err    error
			status int
			code   string
		}{
			{name: "resolved dose", err: application.ErrDoseResolved, status: http.StatusConflict, code: "DOSE_RESOLVED"},
			{name: "store write failure", err: &application.StoreError{Op: application.StoreWrite, Err: errors.New("offline")}, status: http.StatusServiceUnavailable, code: "STORE_UNAVAILABLE"},
			{name: "foreign profile", err: application.ErrNotFound, status: http.StatusNotFound},
			{name: "invalid action", err: validation, status: http.StatusUnprocessableEntity},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				t.Parallel()

				svc := &fakeTimetableService{err: tc.err}
				router := newTestRouter(testDeps{timetable: svc})
				recorder := httptest.NewRecorder()
				body := `{"medication_id":"med-1","meal_period":"after_dinner","date":"2024-03-05","action":"take"}`
				router.ServeHTTP(recorder, authed(httptest.NewRequest(http.MethodPost, "/profiles/prof-1/timetable/actions", strings.NewReader(body))))

				if recorder.Code != tc.status {
					t.Fatalf("expected %d, got %d: %s", tc.status, recorder.Code, recorder.Body.String())
				}
				resp := decodeBody[errorResponse](t, recorder)
				if resp.ErrorCode != tc.code {
					t.Fatalf("expected error code %q, got %+v", tc.code, resp)
				}
				if tc.status == http.StatusUnprocessableEntity && resp.Errors["action"] == "" {
					t.Fatalf("expected field errors in body, got %+v", resp)
				}
				if svc.lastAction.ProfileID != "prof-1" || svc.lastAction.MealPeriod != "after_dinner" || svc.lastAction.Action != "take" {
					t.Fatalf("unexpected params %+v", svc.lastAction)
				}
			})
		}
	})
}

func TestAppointmentHandlers(t *testing.T) {
	t.Parallel()

	nine := "09:00"
	svc := &fakeAppointmentService{list: application.AppointmentList{
		Upcoming: []application.Appointment{{ID: "a1", Title: "Cardiology", Date: time.Date(2024, time.March, 7, 0, 0, 0, 0, time.UTC), Time: &nine}},
		Past:     []application.Appointment{{ID: "a0", Title: "Dentist", Date: time.Date(2024, time.February, 20, 0, 0, 0, 0, time.UTC)}},
	}}
	router := newTestRouter(testDeps{appointments: svc})

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, authed(httptest.NewRequest(http.MethodGet, "/profiles/prof-1/appointments", nil)))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	body := decodeBody[appointmentListResponse](t, recorder)
	if len(body.Upcoming) != 1 || body.Upcoming[0].Relative != "2 days from now" {
		t.Fatalf("unexpected upcoming %+v", body.Upcoming)
	}
	if len(body.Past) != 1 || body.Past[0].Relative != "2 weeks ago" {
		t.Fatalf("unexpected past %+v", body.Past)
	}

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, authed(httptest.NewRequest(http.MethodPost, "/profiles/prof-1/appointments", strings.NewReader(`{"title":"GP","date":"tomorrow"}`))))
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed date, got %d", recorder.Code)
	}
}

func TestProfileHandlers(t *testing.T) {
	t.Parallel()

	t.Run("create defaults alarms on and parses date of birth", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter(testDeps{})
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, authed(httptest.NewRequest(http.MethodPost, "/profiles", strings.NewReader(`{"name":"Grandma","date_of_birth":"1950-06-01","language":"zh"}`))))

		if recorder.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", recorder.Code, recorder.Body.String())
		}
		body := decodeBody[profileDTO](t, recorder)
		if !body.AlarmEnabled || body.DateOfBirth == nil || *body.DateOfBirth != "1950-06-01" {
			t.Fatalf("unexpected profile %+v", body)
		}
	})

	t.Run("deleting the primary profile is rejected", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter(testDeps{profiles: &fakeProfileService{err: &application.ValidationError{FieldErrors: map[string]string{"profile": "the primary profile cannot be deleted"}}}})
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, authed(httptest.NewRequest(http.MethodDelete, "/profiles/prof-1", nil)))

		if recorder.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", recorder.Code)
		}
	})

	t.Run("notifications are drained as JSON", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter(testDeps{profiles: &fakeProfileService{notifications: []reminder.Notification{{
			ProfileID: "prof-1", MedicationID: "med-1", MealPeriod: mealperiod.BeforeSleep, Title: "Time to take Aspirin", Tag: "med-1-before_sleep",
		}}}})
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, authed(httptest.NewRequest(http.MethodGet, "/profiles/prof-1/notifications", nil)))

		body := decodeBody[notificationListResponse](t, recorder)
		if len(body.Notifications) != 1 || body.Notifications[0].Tag != "med-1-before_sleep" {
			t.Fatalf("unexpected notifications %+v", body)
		}
	})
}

func TestCatalogHandlers(t *testing.T) {
	t.Parallel()

	t.Run("meal periods are public", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter(testDeps{})
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/meal-periods", nil))

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", recorder.Code)
		}
		body := decodeBody[mealPeriodListResponse](t, recorder)
		if len(body.MealPeriods) != 7 || body.MealPeriods[0].ID != "before_breakfast" || body.MealPeriods[6].Hint != "22:00" {
			t.Fatalf("unexpected catalog %+v", body.MealPeriods)
		}
	})

	t.Run("drug suggestions require a session", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter(testDeps{})
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/drugs/suggestions?q=met", nil))

		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", recorder.Code)
		}
	})

	t.Run("upstream failures map to bad gateway", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter(testDeps{drugs: fakeDrugSearcher{err: drugsearch.ErrUpstream}})
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, authed(httptest.NewRequest(http.MethodGet, "/drugs/suggestions?q=met", nil)))

		if recorder.Code != http.StatusBadGateway {
			t.Fatalf("expected 502, got %d", recorder.Code)
		}
	})

	t.Run("throttled upstream lookups map to gateway timeout", func(t *testing.T) {
		t.Parallel()

		throttled := fmt.Errorf("%w: rate limit wait: %w", drugsearch.ErrUpstream, context.DeadlineExceeded)
		router := newTestRouter(testDeps{drugs: fakeDrugSearcher{err: throttled}})
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, authed(httptest.NewRequest(http.MethodGet, "/drugs/suggestions?q=met", nil)))

		if recorder.Code != http.StatusGatewayTimeout {
			t.Fatalf("expected 504, got %d", recorder.Code)
		}
	})

	t.Run("empty lookups render an empty list", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter(testDeps{})
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, authed(httptest.NewRequest(http.MethodGet, "/drugs/suggestions?q=m", nil)))

		if got := strings.TrimSpace(recorder.Body.String()); got != `{"suggestions":[]}` {
			t.Fatalf("unexpected body %s", got)
		}
	})
}
