package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/taskping/taskping/internal/models"
	"github.com/taskping/taskping/internal/request"
)

// mockTaskRepo is an in-memory TaskRepositoryInterface for handler tests.
type mockTaskRepo struct {
	tasks map[uuid.UUID]*models.Task
	fail  bool
}

func newMockTaskRepo() *mockTaskRepo {
	return &mockTaskRepo{tasks: make(map[uuid.UUID]*models.Task)}
}

func (m *mockTaskRepo) Create(_ context.Context, task *models.Task) error {
	if m.fail {
		return fmt.Errorf("storage unavailable")
	}
	m.tasks[task.ID] = task
	return nil
}

func (m *mockTaskRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Task, error) {
	task, ok := m.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task not found")
	}
	return task, nil
}

func (m *mockTaskRepo) GetByUserID(_ context.Context, userID uuid.UUID, status *models.TaskStatus) ([]*models.Task, error) {
	if m.fail {
		return nil, fmt.Errorf("storage unavailable")
	}
	var out []*models.Task
	for _, task := range m.tasks {
		if task.UserID != userID {
			continue
		}
		if status != nil && task.Status != *status {
			continue
		}
		out = append(out, task)
	}
	return out, nil
}

func (m *mockTaskRepo) ListLive(_ context.Context) ([]*models.Task, error) {
	var out []*models.Task
	for _, task := range m.tasks {
		if task.IsLive() {
			out = append(out, task)
		}
	}
	return out, nil
}

func (m *mockTaskRepo) Update(_ context.Context, task *models.Task) error {
	if m.fail {
		return fmt.Errorf("storage unavailable")
	}
	m.tasks[task.ID] = task
	return nil
}

func (m *mockTaskRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.tasks, id)
	return nil
}

func (m *mockTaskRepo) Complete(_ context.Context, userID, taskID uuid.UUID) error {
	task, ok := m.tasks[taskID]
	if !ok || task.UserID != userID {
		return fmt.Errorf("task not found")
	}
	now := time.Now()
	task.Status = models.TaskStatusCompleted
	task.CompletedAt = &now
	return nil
}

func (m *mockTaskRepo) Snooze(_ context.Context, userID, taskID uuid.UUID, minutes int) error {
	task, ok := m.tasks[taskID]
	if !ok || task.UserID != userID {
		return fmt.Errorf("task not found")
	}
	task.Status = models.TaskStatusSnoozed
	wakeAt := time.Now().Add(time.Duration(minutes) * time.Minute).Format(time.RFC3339)
	task.ReminderTimes = append(task.ReminderTimes, wakeAt)
	return nil
}

// newTaskRouter wires a TaskHandler the way the server does.
func newTaskRouter(repo *mockTaskRepo) *mux.Router {
	r := mux.NewRouter()
	NewTaskHandler(repo).RegisterRoutes(r.PathPrefix("/tasks").Subrouter())
	return r
}

// authedRequest builds a request with the user already in context.
func authedRequest(method, target string, body any, user *models.User) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req = req.WithContext(request.WithUser(req.Context(), user))
	}
	return req
}

func testUser() *models.User {
	return &models.User{ID: uuid.New(), Email: "user@example.com"}
}

func TestCreateTask(t *testing.T) {
	t.Parallel()

	repo := newMockTaskRepo()
	router := newTaskRouter(repo)
	user := testUser()

	req := authedRequest("POST", "/tasks", CreateTaskRequest{
		Title:         "Team standup",
		TaskType:      models.TaskTypeMeeting,
		ReminderTimes: []string{"2025-06-02T04:00:00Z"},
	}, user)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	if len(repo.tasks) != 1 {
		t.Fatalf("Expected 1 stored task, got %d", len(repo.tasks))
	}
	for _, task := range repo.tasks {
		if task.UserID != user.ID {
			t.Error("Expected task assigned to authenticated user")
		}
		if task.Status != models.TaskStatusActive {
			t.Errorf("Expected status active, got %s", task.Status)
		}
		if task.Priority != models.TaskPriorityMedium {
			t.Errorf("Expected default priority medium, got %s", task.Priority)
		}
	}
}

func TestCreateTask_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		req  CreateTaskRequest
	}{
		{
			name: "missing title",
			req:  CreateTaskRequest{TaskType: models.TaskTypeMeeting},
		},
		{
			name: "invalid task type",
			req:  CreateTaskRequest{Title: "x", TaskType: "party"},
		},
		{
			name: "geofence radius too small",
			req: CreateTaskRequest{
				Title:    "Pick up parcel",
				TaskType: models.TaskTypeLocation,
				Location: &models.TaskLocation{Name: "Depot", Lat: 12.9, Lng: 77.6, RadiusMeters: 5},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			router := newTaskRouter(newMockTaskRepo())
			w := httptest.NewRecorder()
			router.ServeHTTP(w, authedRequest("POST", "/tasks", tt.req, testUser()))

			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestCreateTask_Unauthorized(t *testing.T) {
	t.Parallel()

	router := newTaskRouter(newMockTaskRepo())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest("POST", "/tasks", CreateTaskRequest{Title: "x", TaskType: models.TaskTypeOneTime}, nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestGetTask_Ownership(t *testing.T) {
	t.Parallel()

	repo := newMockTaskRepo()
	router := newTaskRouter(repo)

	owner := testUser()
	task := &models.Task{
		ID:       uuid.New(),
		UserID:   owner.ID,
		Title:    "Private task",
		Status:   models.TaskStatusActive,
		Priority: models.TaskPriorityMedium,
		TaskType: models.TaskTypeOneTime,
	}
	repo.tasks[task.ID] = task

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest("GET", "/tasks/"+task.ID.String(), nil, owner))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for owner, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest("GET", "/tasks/"+task.ID.String(), nil, testUser()))
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for other user, got %d", w.Code)
	}
}

func TestListTasks_StatusFilter(t *testing.T) {
	t.Parallel()

	repo := newMockTaskRepo()
	router := newTaskRouter(repo)
	user := testUser()

	for _, status := range []models.TaskStatus{models.TaskStatusActive, models.TaskStatusCompleted} {
		id := uuid.New()
		repo.tasks[id] = &models.Task{ID: id, UserID: user.ID, Title: string(status), Status: status, Priority: models.TaskPriorityMedium, TaskType: models.TaskTypeOneTime}
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest("GET", "/tasks?status=active", nil, user))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var body struct {
		Data []*models.Task `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(body.Data) != 1 || body.Data[0].Status != models.TaskStatusActive {
		t.Errorf("Expected exactly the active task, got %v", body.Data)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest("GET", "/tasks?status=bogus", nil, user))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for invalid status, got %d", w.Code)
	}
}

func TestCompleteTask(t *testing.T) {
	t.Parallel()

	repo := newMockTaskRepo()
	router := newTaskRouter(repo)
	user := testUser()

	task := &models.Task{ID: uuid.New(), UserID: user.ID, Title: "Finish report", Status: models.TaskStatusActive, Priority: models.TaskPriorityHigh, TaskType: models.TaskTypeDeadline}
	repo.tasks[task.ID] = task

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest("POST", "/tasks/"+task.ID.String()+"/complete", nil, user))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if task.Status != models.TaskStatusCompleted {
		t.Errorf("Expected status completed, got %s", task.Status)
	}
	if task.CompletedAt == nil {
		t.Error("Expected completed_at to be set")
	}
}

func TestSnoozeTask_DefaultMinutes(t *testing.T) {
	t.Parallel()

	repo := newMockTaskRepo()
	router := newTaskRouter(repo)
	user := testUser()

	task := &models.Task{ID: uuid.New(), UserID: user.ID, Title: "Water plants", Status: models.TaskStatusActive, Priority: models.TaskPriorityLow, TaskType: models.TaskTypeOneTime}
	repo.tasks[task.ID] = task

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest("POST", "/tasks/"+task.ID.String()+"/snooze", nil, user))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if task.Status != models.TaskStatusSnoozed {
		t.Errorf("Expected status snoozed, got %s", task.Status)
	}
	if len(task.ReminderTimes) != 1 {
		t.Errorf("Expected a wake reminder to be appended, got %v", task.ReminderTimes)
	}
}
