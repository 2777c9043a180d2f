package models

import (
	"fmt"

	"github.com/google/uuid"
)

// Notification action verbs. These are the only verbs notification
// clients may relay back, regardless of delivery channel.
const (
	ActionComplete = "complete"
	ActionSnooze   = "snooze"
)

// DefaultSnoozeMinutes is used when a snooze action arrives without a
// minutes value.
const DefaultSnoozeMinutes = 30

// NotificationAction is the out-of-band message a client sends when the
// user taps an action button on a delivered alert. The shape is fixed so
// routing behaves the same whichever channel produced it.
type NotificationAction struct {
	Action  string    `json:"action" validate:"required,oneof=complete snooze"`
	TaskID  uuid.UUID `json:"taskId" validate:"required"`
	Minutes int       `json:"minutes,omitempty" validate:"omitempty,min=1,max=1440"`
}

// Validate checks the action verb and its arguments.
func (a *NotificationAction) Validate() error {
	switch a.Action {
	case ActionComplete:
		return nil
	case ActionSnooze:
		if a.Minutes < 0 {
			return fmt.Errorf("invalid snooze minutes: %d", a.Minutes)
		}
		return nil
	default:
		return fmt.Errorf("unknown action: %q", a.Action)
	}
}
