package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/taskping/taskping/internal/models"
	"github.com/taskping/taskping/internal/notify"
	"github.com/taskping/taskping/internal/request"
)

// ActionHandler routes notification action taps back onto tasks
type ActionHandler struct {
	router *notify.Router
	logger *zap.Logger
}

// NewActionHandler creates a new action handler
func NewActionHandler(router *notify.Router, logger *zap.Logger) *ActionHandler {
	return &ActionHandler{router: router, logger: logger}
}

// RegisterRoutes registers action routes on the given router.
// The router should already carry the /notifications/actions prefix.
func (h *ActionHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ApplyAction).Methods("POST")
}

// ApplyAction applies a complete or snooze action from a delivered alert.
// Duplicate taps inside the suppression window return 200 without
// reapplying the action.
func (h *ActionHandler) ApplyAction(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var action models.NotificationAction
	if !decodeBody(w, r, &action) {
		return
	}

	if err := action.Validate(); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	if err := h.router.Route(r.Context(), user.ID, action); err != nil {
		h.logger.Error("notification_action_failed",
			zap.Error(err),
			zap.String("action", action.Action),
			zap.String("task_id", action.TaskID.String()),
		)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to apply action")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"action":  action.Action,
		"task_id": action.TaskID,
	})
}
