package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultDigestHour is the civil hour (IST) for the end-of-day digest
	DefaultDigestHour = 20
	// DefaultFollowUpDelayMinutes is how long after a missed reminder the
	// single follow-up nudge fires
	DefaultFollowUpDelayMinutes = 60
	// DefaultFollowUpWindowMinutes is the width of the follow-up window
	DefaultFollowUpWindowMinutes = 6
)

// UserSettings holds per-user notification preferences. A user without a
// settings row gets DefaultSettings.
type UserSettings struct {
	UserID                uuid.UUID `json:"user_id"`
	NotificationsEnabled  bool      `json:"notifications_enabled"`
	DailySummaryEnabled   bool      `json:"daily_summary_enabled"`
	DigestHour            int       `json:"digest_hour"`
	FollowUpDelayMinutes  int       `json:"follow_up_delay_minutes"`
	FollowUpWindowMinutes int       `json:"follow_up_window_minutes"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// DefaultSettings returns the settings applied to users without a stored
// settings row. Notifications stay off until the client registers a push
// subscription and the user opts in.
func DefaultSettings(userID uuid.UUID) *UserSettings {
	return &UserSettings{
		UserID:                userID,
		NotificationsEnabled:  false,
		DailySummaryEnabled:   true,
		DigestHour:            DefaultDigestHour,
		FollowUpDelayMinutes:  DefaultFollowUpDelayMinutes,
		FollowUpWindowMinutes: DefaultFollowUpWindowMinutes,
	}
}

// PushSubscription is a registered delivery target for background alerts.
type PushSubscription struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Token     string    `json:"token"`
	Platform  string    `json:"platform"` // "web", "android", "ios"
	CreatedAt time.Time `json:"created_at"`
}
