package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/isdelr/resumai-be/internal/services"
	"github.com/rs/zerolog/log"
)

// EventHandler handles HTTP requests related to account activity.
type EventHandler struct {
	service services.EventServiceProvider
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(service services.EventServiceProvider) *EventHandler {
	return &EventHandler{service: service}
}

// GetRecent handles the request to get the caller's recent activity.
func (h *EventHandler) GetRecent(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	limitStr := r.URL.Query().Get("limit")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20 // Default limit
	}

	events, err := h.service.GetRecentEvents(r.Context(), user.ID, limit)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to retrieve events")
		http.Error(w, "Failed to retrieve events", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(events)
}
