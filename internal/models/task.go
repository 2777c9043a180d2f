package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle state of a task
type TaskStatus string

const (
	TaskStatusActive    TaskStatus = "active"
	TaskStatusSnoozed   TaskStatus = "snoozed"
	TaskStatusCompleted TaskStatus = "completed"
)

// TaskPriority represents the display priority of a task
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityUrgent TaskPriority = "urgent"
)

// Glyph returns the display glyph for a priority. Priority has no
// scheduling effect; it only decorates alert titles.
func (p TaskPriority) Glyph() string {
	switch p {
	case TaskPriorityUrgent:
		return "🔴"
	case TaskPriorityHigh:
		return "🟠"
	case TaskPriorityMedium:
		return "🟡"
	default:
		return "🔵"
	}
}

// TaskType categorizes a task. Meetings and calls additionally get a
// pre-alert ahead of their reminder time.
type TaskType string

const (
	TaskTypeMeeting   TaskType = "meeting"
	TaskTypeCall      TaskType = "call"
	TaskTypeDeadline  TaskType = "deadline"
	TaskTypeRecurring TaskType = "recurring"
	TaskTypeLocation  TaskType = "location"
	TaskTypeOneTime   TaskType = "one-time"
)

// NeedsPreAlert reports whether tasks of this type get a pre-alert before
// the nominal reminder time.
func (t TaskType) NeedsPreAlert() bool {
	return t == TaskTypeMeeting || t == TaskTypeCall
}

// TaskLocation is a circular geofence attached to a task. Presence of a
// location on a live task arms location-arrival alerts for it.
type TaskLocation struct {
	Name         string  `json:"name"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	RadiusMeters float64 `json:"radius_meters"`
}

// Task represents a reminder task. The scheduler and geofence monitor
// treat tasks as immutable snapshots; all mutation goes through the
// repository.
type Task struct {
	ID       uuid.UUID    `json:"id"`
	UserID   uuid.UUID    `json:"user_id"`
	Title    string       `json:"title"`
	Status   TaskStatus   `json:"status"`
	Priority TaskPriority `json:"priority"`
	TaskType TaskType     `json:"task_type"`

	// ReminderTimes holds the authoritative reminder instants. Entries are
	// RFC3339 timestamps, or legacy clock strings like "9:00 AM" that are
	// resolved against StartDate/EndDate at poll time. All entries are
	// independent live reminders.
	ReminderTimes []string `json:"reminder_times"`

	// NextReminder is a display projection derived from ReminderTimes.
	// It is never parsed back for firing decisions.
	NextReminder *string `json:"next_reminder,omitempty"`

	// StartDate and EndDate are civil dates (YYYY-MM-DD) in IST, used as
	// anchors for legacy reminder strings and for end-of-day digest
	// membership.
	StartDate *string `json:"start_date,omitempty"`
	EndDate   *string `json:"end_date,omitempty"`

	RepeatRule *string       `json:"repeat_rule,omitempty"`
	Location   *TaskLocation `json:"location,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// IsLive reports whether the task is still eligible for scheduling.
// Completed is terminal: no reminders, no geofencing.
func (t *Task) IsLive() bool {
	return t.Status == TaskStatusActive || t.Status == TaskStatusSnoozed
}

// HasGeofence reports whether the task should participate in location
// monitoring.
func (t *Task) HasGeofence() bool {
	return t.Location != nil && t.IsLive()
}

// ParsedTask is the result of natural-language task parsing.
type ParsedTask struct {
	Title         string       `json:"task_title"`
	TaskType      TaskType     `json:"task_type"`
	Priority      TaskPriority `json:"priority,omitempty"`
	StartDate     *string      `json:"start_date,omitempty"`
	EndDate       *string      `json:"end_date,omitempty"`
	ReminderTimes []string     `json:"reminder_times"`
	RepeatRule    *string      `json:"repeat_rule,omitempty"`

	// Location tasks trigger on arrival, not on a clock; they carry a
	// location name and no reminder times.
	IsLocationTask bool   `json:"is_location_task,omitempty"`
	LocationName   string `json:"location_name,omitempty"`
}
