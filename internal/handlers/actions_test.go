package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/taskping/taskping/internal/models"
	"github.com/taskping/taskping/internal/notify"
)

type recordingActor struct {
	mu        sync.Mutex
	completed []uuid.UUID
	snoozed   map[uuid.UUID]int
}

func newRecordingActor() *recordingActor {
	return &recordingActor{snoozed: make(map[uuid.UUID]int)}
}

func (a *recordingActor) Complete(_ context.Context, _ uuid.UUID, taskID uuid.UUID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.completed = append(a.completed, taskID)
	return nil
}

func (a *recordingActor) Snooze(_ context.Context, _ uuid.UUID, taskID uuid.UUID, minutes int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.snoozed[taskID] = minutes
	return nil
}

func newActionRouter(actor *recordingActor) *mux.Router {
	r := mux.NewRouter()
	router := notify.NewRouter(actor, time.Minute, zap.NewNop())
	NewActionHandler(router, zap.NewNop()).RegisterRoutes(r.PathPrefix("/notifications/actions").Subrouter())
	return r
}

func TestApplyAction_Complete(t *testing.T) {
	t.Parallel()

	actor := newRecordingActor()
	router := newActionRouter(actor)
	taskID := uuid.New()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest("POST", "/notifications/actions", models.NotificationAction{
		Action: models.ActionComplete,
		TaskID: taskID,
	}, testUser()))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(actor.completed) != 1 || actor.completed[0] != taskID {
		t.Errorf("Expected complete applied to %s, got %v", taskID, actor.completed)
	}
}

func TestApplyAction_SnoozeDefault(t *testing.T) {
	t.Parallel()

	actor := newRecordingActor()
	router := newActionRouter(actor)
	taskID := uuid.New()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest("POST", "/notifications/actions", models.NotificationAction{
		Action: models.ActionSnooze,
		TaskID: taskID,
	}, testUser()))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if actor.snoozed[taskID] != models.DefaultSnoozeMinutes {
		t.Errorf("Expected default snooze of %d minutes, got %d", models.DefaultSnoozeMinutes, actor.snoozed[taskID])
	}
}

func TestApplyAction_UnknownVerb(t *testing.T) {
	t.Parallel()

	router := newActionRouter(newRecordingActor())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest("POST", "/notifications/actions", map[string]any{
		"action": "archive",
		"taskId": uuid.New(),
	}, testUser()))

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestApplyAction_DuplicateTapSuppressed(t *testing.T) {
	t.Parallel()

	actor := newRecordingActor()
	router := newActionRouter(actor)
	user := testUser()
	taskID := uuid.New()

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, authedRequest("POST", "/notifications/actions", models.NotificationAction{
			Action: models.ActionComplete,
			TaskID: taskID,
		}, user))
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200 on tap %d, got %d", i+1, w.Code)
		}
	}

	if len(actor.completed) != 1 {
		t.Errorf("Expected exactly one applied action, got %d", len(actor.completed))
	}
}
