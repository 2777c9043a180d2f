package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/taskping/taskping/internal/notify"
	"github.com/taskping/taskping/internal/request"
)

// FeedHandler streams in-app alerts to connected clients over
// server-sent events. Each client sees only its own user's alerts.
type FeedHandler struct {
	toasts *notify.ToastChannel
	logger *zap.Logger
}

// NewFeedHandler creates a new feed handler
func NewFeedHandler(toasts *notify.ToastChannel, logger *zap.Logger) *FeedHandler {
	return &FeedHandler{toasts: toasts, logger: logger}
}

// RegisterRoutes registers the feed route on the given router.
// The router should already carry the /notifications prefix.
func (h *FeedHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/feed", h.Stream).Methods("GET")
}

type feedEvent struct {
	Kind   string `json:"kind"`
	TaskID string `json:"task_id,omitempty"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	Tag    string `json:"tag"`
}

// Stream holds the connection open and forwards the user's alerts as SSE
// events until the client disconnects.
func (h *FeedHandler) Stream(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Streaming not supported")
		return
	}

	feed, cancel := h.toasts.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	h.logger.Debug("alert_feed_opened", zap.String("user_id", user.ID.String()))

	for {
		select {
		case <-r.Context().Done():
			h.logger.Debug("alert_feed_closed", zap.String("user_id", user.ID.String()))
			return
		case alert, open := <-feed:
			if !open {
				return
			}
			if alert.UserID != user.ID {
				continue
			}
			event := feedEvent{
				Kind:  alert.Kind,
				Title: alert.Title,
				Body:  alert.Body,
				Tag:   alert.Tag,
			}
			if alert.TaskID != nil {
				event.TaskID = alert.TaskID.String()
			}
			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: alert\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}
}
