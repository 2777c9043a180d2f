package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/taskping/taskping/internal/request"
	"github.com/taskping/taskping/internal/services/parser"
	"github.com/taskping/taskping/internal/validation"
)

// ParseHandler handles natural-language task parsing requests
type ParseHandler struct {
	provider parser.Provider
	logger   *zap.Logger
}

// NewParseHandler creates a new parse handler
func NewParseHandler(provider parser.Provider, logger *zap.Logger) *ParseHandler {
	return &ParseHandler{provider: provider, logger: logger}
}

// RegisterRoutes registers parse routes on the given router.
// The router should already carry the /tasks/parse prefix.
func (h *ParseHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ParseTask).Methods("POST")
}

// MaxParseInputLength is the maximum length of a parse input
const MaxParseInputLength = 2000

// ParseTaskRequest represents a parse request
type ParseTaskRequest struct {
	Input string `json:"input" validate:"required,min=1,max=2000"`
}

// ParseTask turns free-form text into a structured task draft. The draft
// is returned to the client for confirmation; nothing is persisted here.
func (h *ParseHandler) ParseTask(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req ParseTaskRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := validation.Validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	req.Input = validation.SanitizeText(req.Input)
	if req.Input == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Input is required and cannot be empty after sanitization")
		return
	}

	parsed, err := h.provider.ParseTask(r.Context(), req.Input, time.Now())
	if err != nil {
		h.logger.Error("task_parse_failed",
			zap.Error(err),
			zap.String("user_id", user.ID.String()),
		)
		if parser.IsRateLimitError(err) || parser.IsQuotaError(err) {
			respondJSONError(w, http.StatusTooManyRequests, "Too Many Requests", "Parsing is temporarily unavailable, try again later")
			return
		}
		respondJSONError(w, http.StatusBadGateway, "Bad Gateway", "Failed to parse task input")
		return
	}

	respondJSON(w, http.StatusOK, parsed)
}
