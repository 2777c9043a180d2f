package database

import (
	"context"

	"github.com/google/uuid"

	"github.com/taskping/taskping/internal/models"
)

// TaskRepositoryInterface defines the interface for task repository operations
// This interface enables better testability by allowing mock implementations
type TaskRepositoryInterface interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	GetByUserID(ctx context.Context, userID uuid.UUID, status *models.TaskStatus) ([]*models.Task, error)
	ListLive(ctx context.Context) ([]*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id uuid.UUID) error
	Complete(ctx context.Context, userID, taskID uuid.UUID) error
	Snooze(ctx context.Context, userID, taskID uuid.UUID, minutes int) error
}

// SettingsRepositoryInterface defines the interface for settings repository operations
type SettingsRepositoryInterface interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.UserSettings, error)
	Upsert(ctx context.Context, settings *models.UserSettings) error
}

// SubscriptionRepositoryInterface defines the interface for push subscription storage
type SubscriptionRepositoryInterface interface {
	Create(ctx context.Context, sub *models.PushSubscription) error
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.PushSubscription, error)
	DeleteByToken(ctx context.Context, token string) error
}

// UserRepositoryInterface defines the interface for user repository operations
type UserRepositoryInterface interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByProviderID(ctx context.Context, providerID string) (*models.User, error)
}

// Ensure concrete types implement the interfaces
var (
	_ TaskRepositoryInterface         = (*TaskRepository)(nil)
	_ SettingsRepositoryInterface     = (*SettingsRepository)(nil)
	_ SubscriptionRepositoryInterface = (*SubscriptionRepository)(nil)
	_ UserRepositoryInterface         = (*UserRepository)(nil)
)
