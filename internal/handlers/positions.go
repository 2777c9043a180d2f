package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/taskping/taskping/internal/geofence"
	"github.com/taskping/taskping/internal/request"
)

// PositionHandler ingests client location fixes for geofence evaluation
type PositionHandler struct {
	monitor *geofence.Monitor
	logger  *zap.Logger
}

// NewPositionHandler creates a new position handler
func NewPositionHandler(monitor *geofence.Monitor, logger *zap.Logger) *PositionHandler {
	return &PositionHandler{monitor: monitor, logger: logger}
}

// RegisterRoutes registers position routes on the given router.
// The router should already carry the /positions prefix.
func (h *PositionHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ReportPosition).Methods("POST")
	r.HandleFunc("/error", h.ReportError).Methods("POST")
	r.HandleFunc("/config", h.WatchConfig).Methods("GET")
}

// PositionErrorRequest represents a client-side geolocation failure
type PositionErrorRequest struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// PositionStatusResponse describes the monitor state echoed to clients
type PositionStatusResponse struct {
	Watching       bool   `json:"watching"`
	Permission     string `json:"permission"`
	StalenessMaxMS int64  `json:"staleness_max_ms"`
	AcquireTimeout int64  `json:"acquire_timeout_ms"`
}

// ReportPosition evaluates one location fix against the user's geofences
func (h *PositionHandler) ReportPosition(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var pos geofence.Position
	if !decodeBody(w, r, &pos) {
		return
	}

	if pos.Lat < -90 || pos.Lat > 90 || pos.Lng < -180 || pos.Lng > 180 {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid coordinates")
		return
	}

	if err := h.monitor.OnPosition(r.Context(), user.ID, pos); err != nil {
		switch {
		case errors.Is(err, geofence.ErrNotWatching):
			respondJSONError(w, http.StatusConflict, "Conflict", "Location monitoring is not active")
		case errors.Is(err, geofence.ErrStalePosition):
			respondJSONError(w, http.StatusUnprocessableEntity, "Unprocessable Entity", "Position fix is too old")
		default:
			h.logger.Error("position_evaluation_failed", zap.Error(err))
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to evaluate position")
		}
		return
	}

	respondJSON(w, http.StatusAccepted, h.status(user.ID))
}

// ReportError records a client geolocation failure. A permission denial
// parks the monitor until the user re-enables location access.
func (h *PositionHandler) ReportError(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req PositionErrorRequest
	if !decodeBody(w, r, &req) {
		return
	}

	h.logger.Warn("client_geolocation_error",
		zap.String("code", req.Code),
		zap.String("user_id", user.ID.String()),
	)

	if req.Code == "permission_denied" {
		h.monitor.ReportPermissionDenied(user.ID)
	}

	respondJSON(w, http.StatusOK, h.status(user.ID))
}

// WatchConfig echoes the monitor state and acquisition constraints so
// clients configure their position watch to match
func (h *PositionHandler) WatchConfig(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	respondJSON(w, http.StatusOK, h.status(user.ID))
}

func (h *PositionHandler) status(userID uuid.UUID) PositionStatusResponse {
	cfg := h.monitor.Config()
	return PositionStatusResponse{
		Watching:       h.monitor.IsWatching(),
		Permission:     string(h.monitor.Permission(userID)),
		StalenessMaxMS: cfg.StalenessMax.Milliseconds(),
		AcquireTimeout: cfg.AcquireTimeout.Milliseconds(),
	}
}
