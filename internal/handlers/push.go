package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/taskping/taskping/internal/database"
	logpkg "github.com/taskping/taskping/internal/logger"
	"github.com/taskping/taskping/internal/models"
	"github.com/taskping/taskping/internal/notify"
	"github.com/taskping/taskping/internal/request"
	"github.com/taskping/taskping/internal/validation"
)

// PushHandler manages push subscriptions and test notifications
type PushHandler struct {
	subRepo database.SubscriptionRepositoryInterface
	gateway notify.Gateway
	logger  *zap.Logger
}

// NewPushHandler creates a new push handler
func NewPushHandler(subRepo database.SubscriptionRepositoryInterface, gateway notify.Gateway, logger *zap.Logger) *PushHandler {
	return &PushHandler{subRepo: subRepo, gateway: gateway, logger: logger}
}

// RegisterRoutes registers push routes on the given router.
// The router should already carry the /notifications prefix.
func (h *PushHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/subscriptions", h.ListSubscriptions).Methods("GET")
	r.HandleFunc("/subscriptions", h.CreateSubscription).Methods("POST")
	r.HandleFunc("/subscriptions", h.DeleteSubscription).Methods("DELETE")
	r.HandleFunc("/test", h.SendTest).Methods("POST")
}

// CreateSubscriptionRequest registers a push delivery target
type CreateSubscriptionRequest struct {
	Token    string `json:"token" validate:"required,min=8,max=4096"`
	Platform string `json:"platform" validate:"required,oneof=web android ios"`
}

// DeleteSubscriptionRequest removes a push delivery target by token
type DeleteSubscriptionRequest struct {
	Token string `json:"token" validate:"required"`
}

// ListSubscriptions lists the user's registered push targets
func (h *PushHandler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	subs, err := h.subRepo.GetByUserID(r.Context(), user.ID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve subscriptions")
		return
	}

	respondJSON(w, http.StatusOK, subs)
}

// CreateSubscription registers a push token. Re-registering an existing
// token reassigns it to the calling user.
func (h *PushHandler) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req CreateSubscriptionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := validation.Validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	sub := &models.PushSubscription{
		ID:       uuid.New(),
		UserID:   user.ID,
		Token:    req.Token,
		Platform: req.Platform,
	}

	if err := h.subRepo.Create(r.Context(), sub); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to register subscription")
		return
	}

	h.logger.Info("push_subscription_registered",
		zap.String("user_id", user.ID.String()),
		zap.String("platform", req.Platform),
		zap.String("token", logpkg.SanitizePushToken(req.Token)),
	)

	respondJSON(w, http.StatusCreated, sub)
}

// DeleteSubscription removes a push token
func (h *PushHandler) DeleteSubscription(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req DeleteSubscriptionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := validation.Validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	if err := h.subRepo.DeleteByToken(r.Context(), req.Token); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to remove subscription")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SendTest fires a test notification through the full delivery path so
// users can verify their setup end to end.
func (h *PushHandler) SendTest(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	alert := notify.Alert{
		Kind:   notify.KindTest,
		UserID: user.ID,
		Title:  "🔔 Test Notification",
		Body:   "Notifications are working!",
		Tag:    "test-notification",
	}

	if err := h.gateway.Notify(r.Context(), alert); err != nil {
		if errors.Is(err, notify.ErrNotEnabled) {
			respondJSONError(w, http.StatusConflict, "Conflict", "Notifications are not enabled for this user")
			return
		}
		h.logger.Error("test_notification_failed", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to send test notification")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"sent": true})
}
