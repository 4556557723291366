package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/example/medtracker/internal/drugsearch"
	"github.com/example/medtracker/internal/mealperiod"
)

type drugSearcher interface {
	Search(ctx context.Context, term string) ([]drugsearch.Suggestion, error)
}

// CatalogHandler serves the static meal-period catalog and drug-name
// suggestions for the medication form.
type CatalogHandler struct {
	drugs     drugSearcher
	responder responder
	logger    *slog.Logger
}

func NewCatalogHandler(drugs drugSearcher, logger *slog.Logger) *CatalogHandler {
	base := defaultLogger(logger)
	return &CatalogHandler{drugs: drugs, responder: newResponder(base), logger: base}
}

func (h *CatalogHandler) MealPeriods(w http.ResponseWriter, r *http.Request) {
	entries := mealperiod.All()
	resp := mealPeriodListResponse{MealPeriods: make([]mealPeriodDTO, 0, len(entries))}
	for _, entry := range entries {
		resp.MealPeriods = append(resp.MealPeriods, mealPeriodDTO{
			ID:    string(entry.Period),
			Label: entry.Label,
			Hint:  entry.Hint.String(),
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

func (h *CatalogHandler) DrugSuggestions(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.drugs == nil {
		h.responder.writeJSON(r.Context(), w, http.StatusOK, drugSuggestionResponse{Suggestions: []drugsearch.Suggestion{}})
		return
	}

	term := r.URL.Query().Get("q")
	suggestions, err := h.drugs.Search(r.Context(), term)
	if err != nil {
		handlerLogger(r, h.logger, "CatalogHandler", "DrugSuggestions", "term", term).
			WarnContext(r.Context(), "drug suggestion lookup failed", "error", err)
		status := http.StatusBadGateway
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		h.responder.writeJSON(r.Context(), w, status, errorResponse{
			ErrorCode: "LOOKUP_UNAVAILABLE",
			Message:   "Drug suggestions are unavailable right now. You can still type the name.",
		})
		return
	}
	if suggestions == nil {
		suggestions = []drugsearch.Suggestion{}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, drugSuggestionResponse{Suggestions: suggestions})
}

type mealPeriodDTO struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Hint  string `json:"hint"`
}

type mealPeriodListResponse struct {
	MealPeriods []mealPeriodDTO `json:"meal_periods"`
}

type drugSuggestionResponse struct {
	Suggestions []drugsearch.Suggestion `json:"suggestions"`
}
