package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/taskping/taskping/internal/database"
	"github.com/taskping/taskping/internal/request"
	"github.com/taskping/taskping/internal/validation"
)

// SettingsHandler handles notification preference requests
type SettingsHandler struct {
	settingsRepo database.SettingsRepositoryInterface
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(settingsRepo database.SettingsRepositoryInterface) *SettingsHandler {
	return &SettingsHandler{settingsRepo: settingsRepo}
}

// RegisterRoutes registers settings routes on the given router.
// The router should already carry the /settings prefix.
func (h *SettingsHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.GetSettings).Methods("GET")
	r.HandleFunc("", h.UpdateSettings).Methods("PUT")
}

// UpdateSettingsRequest represents a settings update. All fields are
// required so a PUT always describes the full preference set.
type UpdateSettingsRequest struct {
	NotificationsEnabled  bool `json:"notifications_enabled"`
	DailySummaryEnabled   bool `json:"daily_summary_enabled"`
	DigestHour            int  `json:"digest_hour" validate:"min=0,max=23"`
	FollowUpDelayMinutes  int  `json:"follow_up_delay_minutes" validate:"min=1,max=1440"`
	FollowUpWindowMinutes int  `json:"follow_up_window_minutes" validate:"min=1,max=60"`
}

// GetSettings returns the user's notification preferences, falling back
// to defaults when no row exists
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	settings, err := h.settingsRepo.Get(r.Context(), user.ID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve settings")
		return
	}

	respondJSON(w, http.StatusOK, settings)
}

// UpdateSettings replaces the user's notification preferences
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req UpdateSettingsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := validation.Validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	ctx := r.Context()
	settings, err := h.settingsRepo.Get(ctx, user.ID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve settings")
		return
	}

	settings.NotificationsEnabled = req.NotificationsEnabled
	settings.DailySummaryEnabled = req.DailySummaryEnabled
	settings.DigestHour = req.DigestHour
	settings.FollowUpDelayMinutes = req.FollowUpDelayMinutes
	settings.FollowUpWindowMinutes = req.FollowUpWindowMinutes

	if err := h.settingsRepo.Upsert(ctx, settings); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update settings")
		return
	}

	respondJSON(w, http.StatusOK, settings)
}
