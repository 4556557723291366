package http

import (
	"net/http"
)

type RouterConfig struct {
	Auth         *AuthHandler
	Profiles     *ProfileHandler
	Medications  *MedicationHandler
	Timetable    *TimetableHandler
	Appointments *AppointmentHandler
	Catalog      *CatalogHandler
	// RequireSession guards every route except registration, sign-in and
	// the meal-period catalog.
	RequireSession func(http.Handler) http.Handler
	Middleware     []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	protect := func(h http.HandlerFunc) http.Handler {
		if cfg.RequireSession == nil {
			return h
		}
		return cfg.RequireSession(h)
	}

	if cfg.Auth != nil {
		mux.HandleFunc("POST /accounts", cfg.Auth.Register)
		mux.HandleFunc("POST /sessions", cfg.Auth.CreateSession)
		mux.Handle("DELETE /sessions/current", protect(cfg.Auth.DeleteCurrentSession))
	}

	if cfg.Profiles != nil {
		mux.Handle("GET /profiles", protect(cfg.Profiles.List))
		mux.Handle("POST /profiles", protect(cfg.Profiles.Create))
		mux.Handle("PUT /profiles/{profileID}", protect(cfg.Profiles.Update))
		mux.Handle("DELETE /profiles/{profileID}", protect(cfg.Profiles.Delete))
		mux.Handle("POST /profiles/{profileID}/activate", protect(cfg.Profiles.Activate))
		mux.Handle("DELETE /profiles/active", protect(cfg.Profiles.Deactivate))
		mux.Handle("GET /profiles/{profileID}/notifications", protect(cfg.Profiles.Notifications))
	}

	if cfg.Medications != nil {
		mux.Handle("GET /profiles/{profileID}/medications", protect(cfg.Medications.List))
		mux.Handle("POST /profiles/{profileID}/medications", protect(cfg.Medications.Create))
		mux.Handle("PUT /profiles/{profileID}/medications/{medicationID}", protect(cfg.Medications.Update))
		mux.Handle("DELETE /profiles/{profileID}/medications/{medicationID}", protect(cfg.Medications.Delete))
	}

	if cfg.Timetable != nil {
		mux.Handle("GET /profiles/{profileID}/timetable", protect(cfg.Timetable.Day))
		mux.Handle("POST /profiles/{profileID}/timetable/actions", protect(cfg.Timetable.ApplyAction))
	}

	if cfg.Appointments != nil {
		mux.Handle("GET /profiles/{profileID}/appointments", protect(cfg.Appointments.List))
		mux.Handle("POST /profiles/{profileID}/appointments", protect(cfg.Appointments.Create))
		mux.Handle("PUT /profiles/{profileID}/appointments/{appointmentID}", protect(cfg.Appointments.Update))
		mux.Handle("DELETE /profiles/{profileID}/appointments/{appointmentID}", protect(cfg.Appointments.Delete))
	}

	if cfg.Catalog != nil {
		mux.HandleFunc("GET /meal-periods", cfg.Catalog.MealPeriods)
		mux.Handle("GET /drugs/suggestions", protect(cfg.Catalog.DrugSuggestions))
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}
