package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/taskping/taskping/internal/models"
)

// SubscriptionRepository handles push subscription storage
type SubscriptionRepository struct {
	db *DB
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db *DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Create registers a push subscription. Re-registering the same token
// moves it to the given user instead of failing.
func (r *SubscriptionRepository) Create(ctx context.Context, sub *models.PushSubscription) error {
	query := `
		INSERT INTO push_subscriptions (id, user_id, token, platform, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (token) DO UPDATE
		SET user_id = EXCLUDED.user_id, platform = EXCLUDED.platform
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		sub.ID,
		sub.UserID,
		sub.Token,
		sub.Platform,
		time.Now(),
	).Scan(&sub.ID, &sub.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	return nil
}

// GetByUserID retrieves all subscriptions for a user
func (r *SubscriptionRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.PushSubscription, error) {
	query := `
		SELECT id, user_id, token, platform, created_at
		FROM push_subscriptions
		WHERE user_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*models.PushSubscription
	for rows.Next() {
		sub := &models.PushSubscription{}
		err := rows.Scan(&sub.ID, &sub.UserID, &sub.Token, &sub.Platform, &sub.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subscriptions: %w", err)
	}

	return subs, nil
}

// DeleteByToken removes a subscription. Used both for explicit
// unsubscribe and for pruning tokens the push service reports dead.
func (r *SubscriptionRepository) DeleteByToken(ctx context.Context, token string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM push_subscriptions WHERE token = $1`, token)
	if err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("subscription not found")
	}

	return nil
}
