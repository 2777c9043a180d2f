package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/taskping/taskping/internal/models"
)

// SettingsRepository handles per-user notification settings
type SettingsRepository struct {
	db *DB
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get retrieves a user's settings, falling back to defaults when the user
// has no stored row.
func (r *SettingsRepository) Get(ctx context.Context, userID uuid.UUID) (*models.UserSettings, error) {
	settings := &models.UserSettings{}
	query := `
		SELECT user_id, notifications_enabled, daily_summary_enabled, digest_hour, follow_up_delay_minutes, follow_up_window_minutes, created_at, updated_at
		FROM user_settings
		WHERE user_id = $1
	`

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&settings.UserID,
		&settings.NotificationsEnabled,
		&settings.DailySummaryEnabled,
		&settings.DigestHour,
		&settings.FollowUpDelayMinutes,
		&settings.FollowUpWindowMinutes,
		&settings.CreatedAt,
		&settings.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return models.DefaultSettings(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	return settings, nil
}

// GetSettings adapts Get to the notification gateway's settings source.
func (r *SettingsRepository) GetSettings(ctx context.Context, userID uuid.UUID) (*models.UserSettings, error) {
	return r.Get(ctx, userID)
}

// Upsert stores a user's settings, creating the row on first write.
func (r *SettingsRepository) Upsert(ctx context.Context, settings *models.UserSettings) error {
	query := `
		INSERT INTO user_settings (user_id, notifications_enabled, daily_summary_enabled, digest_hour, follow_up_delay_minutes, follow_up_window_minutes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (user_id) DO UPDATE
		SET notifications_enabled = EXCLUDED.notifications_enabled,
		    daily_summary_enabled = EXCLUDED.daily_summary_enabled,
		    digest_hour = EXCLUDED.digest_hour,
		    follow_up_delay_minutes = EXCLUDED.follow_up_delay_minutes,
		    follow_up_window_minutes = EXCLUDED.follow_up_window_minutes,
		    updated_at = EXCLUDED.updated_at
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		settings.UserID,
		settings.NotificationsEnabled,
		settings.DailySummaryEnabled,
		settings.DigestHour,
		settings.FollowUpDelayMinutes,
		settings.FollowUpWindowMinutes,
		time.Now(),
	).Scan(&settings.CreatedAt, &settings.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert settings: %w", err)
	}

	return nil
}
