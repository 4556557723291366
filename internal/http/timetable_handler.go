package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/medtracker/internal/application"
	"github.com/example/medtracker/internal/dosing"
	"github.com/example/medtracker/internal/logging"
	"github.com/example/medtracker/internal/reminder"
)

type timetableService interface {
	Day(ctx context.Context, principal application.Principal, profileID string, date time.Time) (application.TimetableDay, error)
	ApplyAction(ctx context.Context, params application.ApplyActionParams) (application.TimetableDay, error)
}

// TimetableHandler serves the reconciled dose list of a day and records
// actions against it.
type TimetableHandler struct {
	service   timetableService
	location  *time.Location
	responder responder
	logger    *slog.Logger
}

// NewTimetableHandler builds a handler that reads dates in location.
func NewTimetableHandler(service timetableService, location *time.Location, logger *slog.Logger) *TimetableHandler {
	if location == nil {
		location = time.Local
	}
	base := defaultLogger(logger)
	return &TimetableHandler{service: service, location: location, responder: newResponder(base), logger: base}
}

func (h *TimetableHandler) Day(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	date, err := parseDate(r.URL.Query().Get("date"), h.location)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	day, err := h.service.Day(r.Context(), principal, r.PathValue("profileID"), date)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toTimetableDTO(day))
}

func (h *TimetableHandler) ApplyAction(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req doseActionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	date, err := parseDate(req.Date, h.location)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	profileID := r.PathValue("profileID")
	logger := handlerLogger(r, h.logger, "TimetableHandler", "ApplyAction",
		logging.MedicationIDKey, req.MedicationID,
		logging.MealPeriodKey, req.MealPeriod,
		"action", req.Action,
	)

	day, err := h.service.ApplyAction(r.Context(), application.ApplyActionParams{
		Principal:    principal,
		ProfileID:    profileID,
		MedicationID: req.MedicationID,
		MealPeriod:   req.MealPeriod,
		Date:         date,
		Action:       req.Action,
	})
	if err != nil {
		logger.WarnContext(r.Context(), "dose action rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toTimetableDTO(day))
}

type doseActionRequest struct {
	MedicationID string `json:"medication_id"`
	MealPeriod   string `json:"meal_period"`
	Date         string `json:"date"`
	Action       string `json:"action"`
}

type timetableDTO struct {
	ProfileID string         `json:"profile_id"`
	Date      string         `json:"date"`
	Total     int            `json:"total"`
	Resolved  int            `json:"resolved"`
	Groups    []doseGroupDTO `json:"groups"`
}

type doseGroupDTO struct {
	MealPeriod string    `json:"meal_period"`
	Label      string    `json:"label"`
	Doses      []doseDTO `json:"doses"`
}

type doseDTO struct {
	MedicationID string  `json:"medication_id"`
	Name         string  `json:"name"`
	Dosage       string  `json:"dosage"`
	Notes        *string `json:"notes,omitempty"`
	MealPeriod   string  `json:"meal_period"`
	ReminderTime string  `json:"reminder_time,omitempty"`
	Status       string  `json:"status"`
	Resolved     bool    `json:"resolved"`
	LogID        string  `json:"log_id,omitempty"`
	TakenAt      *string `json:"taken_at,omitempty"`
	MissedAt     *string `json:"missed_at,omitempty"`
}

func toTimetableDTO(day application.TimetableDay) timetableDTO {
	dto := timetableDTO{
		ProfileID: day.ProfileID,
		Date:      formatDate(day.Date),
		Total:     len(day.Doses),
		Groups:    make([]doseGroupDTO, 0, len(day.Groups)),
	}
	for _, dose := range day.Doses {
		if dose.Resolved() {
			dto.Resolved++
		}
	}
	for _, group := range day.Groups {
		g := doseGroupDTO{
			MealPeriod: string(group.Period),
			Label:      group.Label,
			Doses:      make([]doseDTO, 0, len(group.Doses)),
		}
		for _, dose := range group.Doses {
			g.Doses = append(g.Doses, toDoseDTO(dose))
		}
		dto.Groups = append(dto.Groups, g)
	}
	return dto
}

func toDoseDTO(dose dosing.ScheduledDose) doseDTO {
	dto := doseDTO{
		MedicationID: dose.Medication.ID,
		Name:         dose.Medication.Name,
		Dosage:       dose.Medication.Dosage,
		Notes:        dose.Medication.Notes,
		MealPeriod:   string(dose.MealPeriod),
		Status:       string(dose.Status()),
		Resolved:     dose.Resolved(),
	}
	if clock, ok := reminder.ReminderClock(dose.Medication, dose.MealPeriod); ok {
		dto.ReminderTime = clock.String()
	}
	if dose.Log != nil {
		dto.LogID = dose.Log.ID
		dto.TakenAt = formatOptionalTimestamp(dose.Log.TakenAt)
		dto.MissedAt = formatOptionalTimestamp(dose.Log.MissedAt)
	}
	return dto
}
