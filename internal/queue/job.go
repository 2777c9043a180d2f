package queue

import (
	"time"

	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeNotification is a job that delivers one alert to a user's
	// registered push subscriptions
	JobTypeNotification JobType = "notification_delivery"
)

// ActionButton is an action rendered on a delivered alert. The button ID
// round-trips through the client back to the action routing endpoint.
type ActionButton struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Job represents a notification delivery job in the queue.
type Job struct {
	ID     uuid.UUID  `json:"id"`
	Type   JobType    `json:"type"`
	UserID uuid.UUID  `json:"user_id"`
	TaskID *uuid.UUID `json:"task_id,omitempty"`

	// Alert payload. Tag carries the platform replace-by-tag identity so
	// repeated alerts for one task collapse instead of stacking.
	Kind    string         `json:"kind"`
	Title   string         `json:"title"`
	Body    string         `json:"body"`
	Tag     string         `json:"tag"`
	Actions []ActionButton `json:"actions,omitempty"`

	NotBefore  *time.Time `json:"not_before,omitempty"` // Earliest time to deliver (nil = immediate)
	NotAfter   *time.Time `json:"not_after,omitempty"`  // Latest useful delivery time (nil = no expiration)
	CreatedAt  time.Time  `json:"created_at"`
	RetryCount int        `json:"retry_count"`
	MaxRetries int        `json:"max_retries"`
}

// NewNotificationJob creates a delivery job for one alert.
func NewNotificationJob(userID uuid.UUID, taskID *uuid.UUID, kind, title, body, tag string, actions []ActionButton) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       JobTypeNotification,
		UserID:     userID,
		TaskID:     taskID,
		Kind:       kind,
		Title:      title,
		Body:       body,
		Tag:        tag,
		Actions:    actions,
		CreatedAt:  time.Now(),
		RetryCount: 0,
		MaxRetries: 3,
	}
}

// ShouldProcess checks if the job should be processed now
func (j *Job) ShouldProcess() bool {
	now := time.Now()

	if j.NotBefore != nil && now.Before(*j.NotBefore) {
		return false
	}

	if j.NotAfter != nil && now.After(*j.NotAfter) {
		return false
	}

	return true
}

// IsExpired checks if the job has expired. Late delivery of a reminder is
// worse than no delivery, so expired jobs are dropped rather than retried.
func (j *Job) IsExpired() bool {
	if j.NotAfter == nil {
		return false
	}

	return time.Now().After(*j.NotAfter)
}

// CanRetry checks if the job can be retried
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// IncrementRetry increments the retry count
func (j *Job) IncrementRetry() {
	j.RetryCount++
}
