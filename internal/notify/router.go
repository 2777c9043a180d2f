package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskping/taskping/internal/models"
)

// TaskActor applies notification actions to tasks.
type TaskActor interface {
	Complete(ctx context.Context, userID, taskID uuid.UUID) error
	Snooze(ctx context.Context, userID, taskID uuid.UUID, minutes int) error
}

// Router dispatches actions taken on delivered alerts. Each action is
// applied at most once per (task, action) within a short suppression
// window, so a double-tapped button does not snooze a task twice while a
// snooze followed by a complete still lands.
type Router struct {
	actor       TaskActor
	suppressFor time.Duration
	logger      *zap.Logger

	mu       sync.Mutex
	consumed map[string]time.Time
}

// DefaultSuppressWindow bounds how long a repeat of the same action on the
// same task is ignored.
const DefaultSuppressWindow = 30 * time.Second

func NewRouter(actor TaskActor, suppressFor time.Duration, logger *zap.Logger) *Router {
	if suppressFor <= 0 {
		suppressFor = DefaultSuppressWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		actor:       actor,
		suppressFor: suppressFor,
		logger:      logger,
		consumed:    make(map[string]time.Time),
	}
}

// Route applies one action. A snooze without minutes defaults to
// models.DefaultSnoozeMinutes. Duplicate actions inside the suppression
// window are dropped silently.
func (r *Router) Route(ctx context.Context, userID uuid.UUID, action models.NotificationAction) error {
	if err := action.Validate(); err != nil {
		return err
	}

	if !r.claim(action.TaskID, action.Action) {
		r.logger.Debug("duplicate_action_suppressed",
			zap.String("task_id", action.TaskID.String()),
			zap.String("action", action.Action))
		return nil
	}

	switch action.Action {
	case models.ActionComplete:
		if err := r.actor.Complete(ctx, userID, action.TaskID); err != nil {
			r.release(action.TaskID, action.Action)
			return fmt.Errorf("complete task: %w", err)
		}
	case models.ActionSnooze:
		minutes := action.Minutes
		if minutes <= 0 {
			minutes = models.DefaultSnoozeMinutes
		}
		if err := r.actor.Snooze(ctx, userID, action.TaskID, minutes); err != nil {
			r.release(action.TaskID, action.Action)
			return fmt.Errorf("snooze task: %w", err)
		}
	default:
		r.release(action.TaskID, action.Action)
		return fmt.Errorf("unknown action %q", action.Action)
	}

	r.logger.Info("notification_action_applied",
		zap.String("task_id", action.TaskID.String()),
		zap.String("action", action.Action),
		zap.Int("minutes", action.Minutes))
	return nil
}

// claim records the action as applied to the task. Returns false if the
// same action on the same task already landed inside the suppression
// window. A different action on the same task is never suppressed.
func (r *Router) claim(taskID uuid.UUID, action string) bool {
	key := claimKey(taskID, action)
	now := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	if at, ok := r.consumed[key]; ok && now.Sub(at) < r.suppressFor {
		return false
	}
	r.consumed[key] = now
	for k, at := range r.consumed {
		if now.Sub(at) >= r.suppressFor {
			delete(r.consumed, k)
		}
	}
	return true
}

// release undoes a claim after a failed action so the user can retry.
func (r *Router) release(taskID uuid.UUID, action string) {
	r.mu.Lock()
	delete(r.consumed, claimKey(taskID, action))
	r.mu.Unlock()
}

func claimKey(taskID uuid.UUID, action string) string {
	return taskID.String() + ":" + action
}
