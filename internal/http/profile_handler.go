package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/medtracker/internal/application"
	"github.com/example/medtracker/internal/reminder"
)

type profileService interface {
	List(ctx context.Context, principal application.Principal) ([]application.Profile, error)
	Create(ctx context.Context, params application.CreateProfileParams) (application.Profile, error)
	Update(ctx context.Context, params application.UpdateProfileParams) (application.Profile, error)
	Delete(ctx context.Context, principal application.Principal, profileID string) error
	Activate(ctx context.Context, principal application.Principal, profileID string) (application.Profile, error)
	Deactivate(ctx context.Context, principal application.Principal) error
	Notifications(ctx context.Context, principal application.Principal, profileID string) ([]reminder.Notification, error)
}

// ProfileHandler serves the profiles of the signed-in account.
type ProfileHandler struct {
	service   profileService
	responder responder
	logger    *slog.Logger
}

func NewProfileHandler(service profileService, logger *slog.Logger) *ProfileHandler {
	base := defaultLogger(logger)
	return &ProfileHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	profiles, err := h.service.List(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := profileListResponse{Profiles: make([]profileDTO, 0, len(profiles)), ActiveProfileID: principal.ActiveProfileID}
	for _, profile := range profiles {
		resp.Profiles = append(resp.Profiles, toProfileDTO(profile))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

func (h *ProfileHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	input, err := req.toInput()
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	profile, err := h.service.Create(r.Context(), application.CreateProfileParams{Principal: principal, Input: input})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toProfileDTO(profile))
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	input, err := req.toInput()
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	profile, err := h.service.Update(r.Context(), application.UpdateProfileParams{
		Principal: principal,
		ProfileID: r.PathValue("profileID"),
		Input:     input,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toProfileDTO(profile))
}

func (h *ProfileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.Delete(r.Context(), principal, r.PathValue("profileID")); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *ProfileHandler) Activate(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	profile, err := h.service.Activate(r.Context(), principal, r.PathValue("profileID"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	handlerLogger(r, h.logger, "ProfileHandler", "Activate").
		InfoContext(r.Context(), "profile activated", "reminders", profile.AlarmEnabled)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toProfileDTO(profile))
}

func (h *ProfileHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.Deactivate(r.Context(), principal); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *ProfileHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	notifications, err := h.service.Notifications(r.Context(), principal, r.PathValue("profileID"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := notificationListResponse{Notifications: make([]notificationDTO, 0, len(notifications))}
	for _, n := range notifications {
		resp.Notifications = append(resp.Notifications, notificationDTO{
			MedicationID: n.MedicationID,
			MealPeriod:   string(n.MealPeriod),
			Title:        n.Title,
			Body:         n.Body,
			Tag:          n.Tag,
			FireAt:       formatTimestamp(n.FireAt),
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

type profileRequest struct {
	Name         string  `json:"name"`
	DateOfBirth  *string `json:"date_of_birth"`
	Language     string  `json:"language"`
	AlarmEnabled *bool   `json:"alarm_enabled"`
}

func (req profileRequest) toInput() (application.ProfileInput, error) {
	dob, err := parseOptionalDate(req.DateOfBirth, time.UTC)
	if err != nil {
		return application.ProfileInput{}, err
	}
	alarm := true
	if req.AlarmEnabled != nil {
		alarm = *req.AlarmEnabled
	}
	return application.ProfileInput{
		Name:         req.Name,
		DateOfBirth:  dob,
		Language:     req.Language,
		AlarmEnabled: alarm,
	}, nil
}

type profileDTO struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	DateOfBirth  *string `json:"date_of_birth,omitempty"`
	IsPrimary    bool    `json:"is_primary"`
	Language     string  `json:"language"`
	AlarmEnabled bool    `json:"alarm_enabled"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

func toProfileDTO(profile application.Profile) profileDTO {
	return profileDTO{
		ID:           profile.ID,
		Name:         profile.Name,
		DateOfBirth:  formatOptionalDate(profile.DateOfBirth),
		IsPrimary:    profile.IsPrimary,
		Language:     string(profile.Language),
		AlarmEnabled: profile.AlarmEnabled,
		CreatedAt:    formatTimestamp(profile.CreatedAt),
		UpdatedAt:    formatTimestamp(profile.UpdatedAt),
	}
}

type profileListResponse struct {
	Profiles        []profileDTO `json:"profiles"`
	ActiveProfileID string       `json:"active_profile_id,omitempty"`
}

type notificationDTO struct {
	MedicationID string `json:"medication_id"`
	MealPeriod   string `json:"meal_period"`
	Title        string `json:"title"`
	Body         string `json:"body"`
	Tag          string `json:"tag"`
	FireAt       string `json:"fire_at"`
}

type notificationListResponse struct {
	Notifications []notificationDTO `json:"notifications"`
}
