package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/medtracker/internal/application"
)

type medicationService interface {
	List(ctx context.Context, principal application.Principal, profileID string) ([]application.Medication, error)
	Create(ctx context.Context, params application.CreateMedicationParams) (application.Medication, error)
	Update(ctx context.Context, params application.UpdateMedicationParams) (application.Medication, error)
	Deactivate(ctx context.Context, principal application.Principal, profileID, medicationID string) error
}

// MedicationHandler serves a profile's medications.
type MedicationHandler struct {
	service   medicationService
	responder responder
}

func NewMedicationHandler(service medicationService, logger *slog.Logger) *MedicationHandler {
	return &MedicationHandler{service: service, responder: newResponder(logger)}
}

func (h *MedicationHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	medications, err := h.service.List(r.Context(), principal, r.PathValue("profileID"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := medicationListResponse{Medications: make([]medicationDTO, 0, len(medications))}
	for _, m := range medications {
		resp.Medications = append(resp.Medications, toMedicationDTO(m))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

func (h *MedicationHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req medicationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	medication, err := h.service.Create(r.Context(), application.CreateMedicationParams{
		Principal: principal,
		ProfileID: r.PathValue("profileID"),
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toMedicationDTO(medication))
}

func (h *MedicationHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req medicationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	medication, err := h.service.Update(r.Context(), application.UpdateMedicationParams{
		Principal:    principal,
		ProfileID:    r.PathValue("profileID"),
		MedicationID: r.PathValue("medicationID"),
		Input:        req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toMedicationDTO(medication))
}

func (h *MedicationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.Deactivate(r.Context(), principal, r.PathValue("profileID"), r.PathValue("medicationID")); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type medicationRequest struct {
	Name          string            `json:"name"`
	Dosage        string            `json:"dosage"`
	Frequency     string            `json:"frequency"`
	FrequencyType string            `json:"frequency_type"`
	MealTimes     []string          `json:"meal_times"`
	CustomTimes   map[string]string `json:"custom_times"`
	Notes         *string           `json:"notes"`
}

func (req medicationRequest) toInput() application.MedicationInput {
	return application.MedicationInput{
		Name:          req.Name,
		Dosage:        req.Dosage,
		Frequency:     req.Frequency,
		FrequencyType: req.FrequencyType,
		MealTimes:     req.MealTimes,
		CustomTimes:   req.CustomTimes,
		Notes:         req.Notes,
	}
}

type medicationDTO struct {
	ID            string            `json:"id"`
	ProfileID     string            `json:"profile_id"`
	Name          string            `json:"name"`
	Dosage        string            `json:"dosage"`
	Frequency     string            `json:"frequency,omitempty"`
	FrequencyType string            `json:"frequency_type"`
	MealTimes     []string          `json:"meal_times"`
	CustomTimes   map[string]string `json:"custom_times,omitempty"`
	Notes         *string           `json:"notes,omitempty"`
	Active        bool              `json:"active"`
	CreatedAt     string            `json:"created_at"`
	UpdatedAt     string            `json:"updated_at"`
}

func toMedicationDTO(m application.Medication) medicationDTO {
	dto := medicationDTO{
		ID:            m.ID,
		ProfileID:     m.ProfileID,
		Name:          m.Name,
		Dosage:        m.Dosage,
		Frequency:     m.Frequency,
		FrequencyType: string(m.FrequencyType),
		MealTimes:     make([]string, 0, len(m.MealTimes)),
		Notes:         m.Notes,
		Active:        m.Active,
		CreatedAt:     formatTimestamp(m.CreatedAt),
		UpdatedAt:     formatTimestamp(m.UpdatedAt),
	}
	for _, p := range m.MealTimes {
		dto.MealTimes = append(dto.MealTimes, string(p))
	}
	if len(m.CustomTimes) > 0 {
		dto.CustomTimes = make(map[string]string, len(m.CustomTimes))
		for p, clock := range m.CustomTimes {
			dto.CustomTimes[string(p)] = clock
		}
	}
	return dto
}

type medicationListResponse struct {
	Medications []medicationDTO `json:"medications"`
}
