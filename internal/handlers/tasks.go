package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/taskping/taskping/internal/database"
	"github.com/taskping/taskping/internal/models"
	"github.com/taskping/taskping/internal/request"
	"github.com/taskping/taskping/internal/validation"
)

// TaskHandler handles task-related requests
type TaskHandler struct {
	taskRepo database.TaskRepositoryInterface
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskRepo database.TaskRepositoryInterface) *TaskHandler {
	return &TaskHandler{taskRepo: taskRepo}
}

// RegisterRoutes registers task routes on the given router.
// The router should already carry the /tasks prefix.
func (h *TaskHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListTasks).Methods("GET")
	r.HandleFunc("", h.CreateTask).Methods("POST")
	r.HandleFunc("/{id}", h.GetTask).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateTask).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteTask).Methods("DELETE")
	r.HandleFunc("/{id}/complete", h.CompleteTask).Methods("POST")
	r.HandleFunc("/{id}/snooze", h.SnoozeTask).Methods("POST")
}

const (
	// MaxTaskTitleLength is the maximum length for a task title
	MaxTaskTitleLength = 500
	// MaxReminderTimes is the maximum number of reminder entries per task
	MaxReminderTimes = 20
)

// CreateTaskRequest represents a create task request
type CreateTaskRequest struct {
	Title         string               `json:"title" validate:"required,min=1,max=500"`
	TaskType      models.TaskType      `json:"task_type" validate:"required,task_type"`
	Priority      models.TaskPriority  `json:"priority" validate:"omitempty,task_priority"`
	StartDate     *string              `json:"start_date,omitempty"`
	EndDate       *string              `json:"end_date,omitempty"`
	ReminderTimes []string             `json:"reminder_times"`
	RepeatRule    *string              `json:"repeat_rule,omitempty"`
	Location      *models.TaskLocation `json:"location,omitempty"`
}

// UpdateTaskRequest represents a partial task update
type UpdateTaskRequest struct {
	Title         *string              `json:"title,omitempty"`
	Status        *models.TaskStatus   `json:"status,omitempty"`
	Priority      *models.TaskPriority `json:"priority,omitempty"`
	StartDate     *string              `json:"start_date,omitempty"`
	EndDate       *string              `json:"end_date,omitempty"`
	ReminderTimes *[]string            `json:"reminder_times,omitempty"`
	RepeatRule    *string              `json:"repeat_rule,omitempty"`
	Location      *models.TaskLocation `json:"location,omitempty"`
}

// SnoozeTaskRequest carries an optional snooze duration
type SnoozeTaskRequest struct {
	Minutes int `json:"minutes,omitempty" validate:"omitempty,min=1,max=1440"`
}

// ListTasks lists tasks for the authenticated user, optionally filtered
// by status
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var status *models.TaskStatus
	if s := r.URL.Query().Get("status"); s != "" {
		if err := validation.ValidateTaskStatus(s); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		sEnum := models.TaskStatus(s)
		status = &sEnum
	}

	tasks, err := h.taskRepo.GetByUserID(r.Context(), user.ID, status)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve tasks")
		return
	}

	respondJSON(w, http.StatusOK, tasks)
}

// CreateTask creates a new task
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req CreateTaskRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := validation.Validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	req.Title = validation.SanitizeText(req.Title)
	if req.Title == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Title is required and cannot be empty after sanitization")
		return
	}

	if len(req.ReminderTimes) > MaxReminderTimes {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("At most %d reminder times allowed", MaxReminderTimes))
		return
	}

	if req.Location != nil {
		if err := validation.ValidateLocation(req.Location); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
	}

	priority := req.Priority
	if priority == "" {
		priority = models.TaskPriorityMedium
	}

	reminders := req.ReminderTimes
	if reminders == nil {
		reminders = []string{}
	}

	task := &models.Task{
		ID:            uuid.New(),
		UserID:        user.ID,
		Title:         req.Title,
		Status:        models.TaskStatusActive,
		Priority:      priority,
		TaskType:      req.TaskType,
		ReminderTimes: reminders,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		RepeatRule:    req.RepeatRule,
		Location:      req.Location,
	}

	if err := h.taskRepo.Create(r.Context(), task); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create task")
		return
	}

	respondJSON(w, http.StatusCreated, task)
}

// GetTask retrieves a task by ID
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	_, task, ok := h.loadOwnedTask(w, r)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// UpdateTask updates an existing task
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	_, task, ok := h.loadOwnedTask(w, r)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if req.Title != nil {
		sanitized := validation.SanitizeText(*req.Title)
		if sanitized == "" {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Title cannot be empty after sanitization")
			return
		}
		if len(sanitized) > MaxTaskTitleLength {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Title exceeds maximum length of %d characters", MaxTaskTitleLength))
			return
		}
		task.Title = sanitized
	}
	if req.Status != nil {
		if err := validation.ValidateTaskStatus(string(*req.Status)); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		task.Status = *req.Status
		if task.Status == models.TaskStatusCompleted && task.CompletedAt == nil {
			now := time.Now()
			task.CompletedAt = &now
		}
		if task.Status != models.TaskStatusCompleted {
			task.CompletedAt = nil
		}
	}
	if req.Priority != nil {
		if err := validation.ValidateTaskPriority(string(*req.Priority)); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		task.Priority = *req.Priority
	}
	if req.StartDate != nil {
		task.StartDate = req.StartDate
	}
	if req.EndDate != nil {
		task.EndDate = req.EndDate
	}
	if req.ReminderTimes != nil {
		if len(*req.ReminderTimes) > MaxReminderTimes {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("At most %d reminder times allowed", MaxReminderTimes))
			return
		}
		task.ReminderTimes = *req.ReminderTimes
	}
	if req.RepeatRule != nil {
		task.RepeatRule = req.RepeatRule
	}
	if req.Location != nil {
		if err := validation.ValidateLocation(req.Location); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		task.Location = req.Location
	}

	if err := h.taskRepo.Update(r.Context(), task); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update task")
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// DeleteTask deletes a task
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	_, task, ok := h.loadOwnedTask(w, r)
	if !ok {
		return
	}

	if err := h.taskRepo.Delete(r.Context(), task.ID); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete task")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CompleteTask marks a task as completed
func (h *TaskHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	user, task, ok := h.loadOwnedTask(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	if err := h.taskRepo.Complete(ctx, user.ID, task.ID); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to complete task")
		return
	}

	updated, err := h.taskRepo.GetByID(ctx, task.ID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve task")
		return
	}

	respondJSON(w, http.StatusOK, updated)
}

// SnoozeTask pushes the task's reminder forward
func (h *TaskHandler) SnoozeTask(w http.ResponseWriter, r *http.Request) {
	user, task, ok := h.loadOwnedTask(w, r)
	if !ok {
		return
	}

	var req SnoozeTaskRequest
	if r.ContentLength > 0 {
		if !decodeBody(w, r, &req) {
			return
		}
		if err := validation.Validate.Struct(req); err != nil {
			respondValidationError(w, err)
			return
		}
	}
	if req.Minutes <= 0 {
		req.Minutes = models.DefaultSnoozeMinutes
	}

	ctx := r.Context()
	if err := h.taskRepo.Snooze(ctx, user.ID, task.ID, req.Minutes); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to snooze task")
		return
	}

	updated, err := h.taskRepo.GetByID(ctx, task.ID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve task")
		return
	}

	respondJSON(w, http.StatusOK, updated)
}

// loadOwnedTask resolves the {id} path variable to a task owned by the
// authenticated user, writing the appropriate error response otherwise.
func (h *TaskHandler) loadOwnedTask(w http.ResponseWriter, r *http.Request) (*models.User, *models.Task, bool) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return nil, nil, false
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid task ID")
		return nil, nil, false
	}

	task, err := h.taskRepo.GetByID(r.Context(), id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
		return nil, nil, false
	}

	if task.UserID != user.ID {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "Task does not belong to user")
		return nil, nil, false
	}

	return user, task, true
}

// decodeBody decodes a JSON request body, reporting oversize and syntax
// errors to the client. Returns false when a response was already written.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if maxBytesErr, ok := err.(*http.MaxBytesError); ok {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return false
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return false
	}
	return true
}

// respondValidationError reports the first struct validation failure.
func respondValidationError(w http.ResponseWriter, err error) {
	if validationErrors, ok := err.(validator.ValidationErrors); ok && len(validationErrors) > 0 {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Validation failed: %s", validationErrors[0].Error()))
		return
	}
	respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed")
}
