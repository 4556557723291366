package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/example/medtracker/internal/application"
	"github.com/example/medtracker/internal/mealperiod"
)

type appointmentService interface {
	List(ctx context.Context, principal application.Principal, profileID string) (application.AppointmentList, error)
	Create(ctx context.Context, params application.CreateAppointmentParams) (application.Appointment, error)
	Update(ctx context.Context, params application.UpdateAppointmentParams) (application.Appointment, error)
	Delete(ctx context.Context, principal application.Principal, profileID, appointmentID string) error
}

// AppointmentHandler serves a profile's appointments.
type AppointmentHandler struct {
	service   appointmentService
	location  *time.Location
	now       func() time.Time
	responder responder
}

// NewAppointmentHandler builds a handler that reads dates in location and
// describes them relative to now.
func NewAppointmentHandler(service appointmentService, location *time.Location, now func() time.Time, logger *slog.Logger) *AppointmentHandler {
	if location == nil {
		location = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &AppointmentHandler{service: service, location: location, now: now, responder: newResponder(logger)}
}

func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	list, err := h.service.List(r.Context(), principal, r.PathValue("profileID"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	now := h.now()
	resp := appointmentListResponse{
		Upcoming: make([]appointmentDTO, 0, len(list.Upcoming)),
		Past:     make([]appointmentDTO, 0, len(list.Past)),
	}
	for _, a := range list.Upcoming {
		resp.Upcoming = append(resp.Upcoming, h.toDTO(a, now))
	}
	for _, a := range list.Past {
		resp.Past = append(resp.Past, h.toDTO(a, now))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req appointmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	input, err := req.toInput(h.location)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	appointment, err := h.service.Create(r.Context(), application.CreateAppointmentParams{
		Principal: principal,
		ProfileID: r.PathValue("profileID"),
		Input:     input,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, h.toDTO(appointment, h.now()))
}

func (h *AppointmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req appointmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	input, err := req.toInput(h.location)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	appointment, err := h.service.Update(r.Context(), application.UpdateAppointmentParams{
		Principal:     principal,
		ProfileID:     r.PathValue("profileID"),
		AppointmentID: r.PathValue("appointmentID"),
		Input:         input,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, h.toDTO(appointment, h.now()))
}

func (h *AppointmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.Delete(r.Context(), principal, r.PathValue("profileID"), r.PathValue("appointmentID")); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// startsAt places the appointment on the wall clock of location. Appointments
// without a time are anchored at the start of their day.
func (h *AppointmentHandler) startsAt(a application.Appointment) time.Time {
	start := time.Date(a.Date.Year(), a.Date.Month(), a.Date.Day(), 0, 0, 0, 0, h.location)
	if a.Time != nil {
		if clock, err := mealperiod.ParseClock(*a.Time); err == nil {
			start = start.Add(time.Duration(clock.Hour)*time.Hour + time.Duration(clock.Minute)*time.Minute)
		}
	}
	return start
}

func (h *AppointmentHandler) toDTO(a application.Appointment, now time.Time) appointmentDTO {
	return appointmentDTO{
		ID:        a.ID,
		Title:     a.Title,
		Date:      formatDate(a.Date),
		Time:      a.Time,
		Location:  a.Location,
		Notes:     a.Notes,
		Reminded:  a.Reminded,
		Relative:  humanize.RelTime(h.startsAt(a), now, "ago", "from now"),
		CreatedAt: formatTimestamp(a.CreatedAt),
		UpdatedAt: formatTimestamp(a.UpdatedAt),
	}
}

type appointmentRequest struct {
	Title    string  `json:"title"`
	Date     string  `json:"date"`
	Time     *string `json:"time"`
	Location string  `json:"location"`
	Notes    *string `json:"notes"`
}

func (req appointmentRequest) toInput(loc *time.Location) (application.AppointmentInput, error) {
	date, err := parseDate(req.Date, loc)
	if err != nil {
		return application.AppointmentInput{}, err
	}
	return application.AppointmentInput{
		Title:    req.Title,
		Date:     date,
		Time:     req.Time,
		Location: req.Location,
		Notes:    req.Notes,
	}, nil
}

type appointmentDTO struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Date      string  `json:"date"`
	Time      *string `json:"time,omitempty"`
	Location  string  `json:"location,omitempty"`
	Notes     *string `json:"notes,omitempty"`
	Reminded  bool    `json:"reminded"`
	Relative  string  `json:"relative"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

type appointmentListResponse struct {
	Upcoming []appointmentDTO `json:"upcoming"`
	Past     []appointmentDTO `json:"past"`
}
