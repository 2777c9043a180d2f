package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/taskping/taskping/internal/models"
	"github.com/taskping/taskping/internal/timeist"
)

// TaskRepository handles task database operations
type TaskRepository struct {
	db *DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create creates a new task
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	query := `
		INSERT INTO tasks (id, user_id, title, status, priority, task_type, reminder_times, next_reminder, start_date, end_date, repeat_rule, location, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at, updated_at
	`

	remindersJSON, locationJSON, err := encodeTaskColumns(task)
	if err != nil {
		return err
	}

	now := time.Now()
	err = r.db.QueryRowContext(ctx, query,
		task.ID,
		task.UserID,
		task.Title,
		task.Status,
		task.Priority,
		task.TaskType,
		remindersJSON,
		task.NextReminder,
		task.StartDate,
		task.EndDate,
		task.RepeatRule,
		locationJSON,
		now,
		now,
	).Scan(&task.CreatedAt, &task.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	return nil
}

const taskColumns = `id, user_id, title, status, priority, task_type, reminder_times, next_reminder, start_date, end_date, repeat_rule, location, created_at, updated_at, completed_at`

// GetByID retrieves a task by ID
func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// GetByUserID retrieves all tasks for a user, optionally filtered by status
func (r *TaskRepository) GetByUserID(ctx context.Context, userID uuid.UUID, status *models.TaskStatus) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1`
	args := []any{userID}

	if status != nil {
		query += " AND status = $2"
		args = append(args, string(*status))
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	return collectTasks(rows)
}

// ListLive retrieves every non-completed task across all users. This is
// the scheduler's poll snapshot.
func (r *TaskRepository) ListLive(ctx context.Context) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE status != 'completed' ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query live tasks: %w", err)
	}
	defer rows.Close()

	return collectTasks(rows)
}

// Update updates an existing task
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	query := `
		UPDATE tasks
		SET title = $2, status = $3, priority = $4, task_type = $5, reminder_times = $6, next_reminder = $7, start_date = $8, end_date = $9, repeat_rule = $10, location = $11, updated_at = $12, completed_at = $13
		WHERE id = $1
		RETURNING updated_at
	`

	remindersJSON, locationJSON, err := encodeTaskColumns(task)
	if err != nil {
		return err
	}

	var completedAt sql.NullTime
	if task.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *task.CompletedAt, Valid: true}
	}

	now := time.Now()
	err = r.db.QueryRowContext(ctx, query,
		task.ID,
		task.Title,
		task.Status,
		task.Priority,
		task.TaskType,
		remindersJSON,
		task.NextReminder,
		task.StartDate,
		task.EndDate,
		task.RepeatRule,
		locationJSON,
		now,
		completedAt,
	).Scan(&task.UpdatedAt)

	if err == sql.ErrNoRows {
		return fmt.Errorf("task not found")
	}
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	return nil
}

// Delete deletes a task by ID
func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("task not found")
	}

	return nil
}

// Complete marks the user's task completed and stamps completed_at.
func (r *TaskRepository) Complete(ctx context.Context, userID, taskID uuid.UUID) error {
	query := `
		UPDATE tasks
		SET status = 'completed', completed_at = $3, updated_at = $3
		WHERE id = $1 AND user_id = $2
	`

	result, err := r.db.ExecContext(ctx, query, taskID, userID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to complete task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("task not found")
	}

	return nil
}

// Snooze sets the task to snoozed and appends a new reminder instant
// minutes from now. The display projection follows the new instant.
func (r *TaskRepository) Snooze(ctx context.Context, userID, taskID uuid.UUID, minutes int) error {
	task, err := r.GetByID(ctx, taskID)
	if err != nil {
		return err
	}
	if task.UserID != userID {
		return fmt.Errorf("task not found")
	}

	wakeAt := time.Now().Add(time.Duration(minutes) * time.Minute)
	task.Status = models.TaskStatusSnoozed
	task.ReminderTimes = append(task.ReminderTimes, wakeAt.Format(time.RFC3339))
	display := timeist.FormatTime(wakeAt)
	task.NextReminder = &display
	task.CompletedAt = nil

	return r.Update(ctx, task)
}

func encodeTaskColumns(task *models.Task) (remindersJSON, locationJSON []byte, err error) {
	reminders := task.ReminderTimes
	if reminders == nil {
		reminders = []string{}
	}
	remindersJSON, err = json.Marshal(reminders)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal reminder times: %w", err)
	}
	if task.Location != nil {
		locationJSON, err = json.Marshal(task.Location)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal location: %w", err)
		}
	}
	return remindersJSON, locationJSON, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	task := &models.Task{}
	var remindersJSON []byte
	var locationJSON []byte
	var completedAt sql.NullTime

	err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&task.Status,
		&task.Priority,
		&task.TaskType,
		&remindersJSON,
		&task.NextReminder,
		&task.StartDate,
		&task.EndDate,
		&task.RepeatRule,
		&locationJSON,
		&task.CreatedAt,
		&task.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(remindersJSON) > 0 {
		if err := json.Unmarshal(remindersJSON, &task.ReminderTimes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal reminder times: %w", err)
		}
	}
	if len(locationJSON) > 0 {
		task.Location = &models.TaskLocation{}
		if err := json.Unmarshal(locationJSON, task.Location); err != nil {
			return nil, fmt.Errorf("failed to unmarshal location: %w", err)
		}
	}
	if completedAt.Valid {
		task.CompletedAt = &completedAt.Time
	}

	return task, nil
}

func collectTasks(rows *sql.Rows) ([]*models.Task, error) {
	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}
