package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/taskping/taskping/internal/config"
	"github.com/taskping/taskping/internal/queue"
)

// NewNotifyCmd creates the notify command
func NewNotifyCmd() *cobra.Command {
	var (
		userFlag string
		title    string
		body     string
	)

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Enqueue a test notification for a user",
		Long:  "Enqueue a notification delivery job so the full queue-to-push path can be verified",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(userFlag)
			if err != nil {
				return fmt.Errorf("invalid --user: %w", err)
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			jobQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL)
			if err != nil {
				return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
			}
			defer func() {
				if err := jobQueue.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close queue: %v\n", err)
				}
			}()

			job := queue.NewNotificationJob(userID, nil, "test", title, body, "test-notification", nil)
			if err := jobQueue.Enqueue(context.Background(), job); err != nil {
				return fmt.Errorf("failed to enqueue notification: %w", err)
			}

			fmt.Printf("✓ Enqueued test notification %s for user %s\n", job.ID, userID)
			return nil
		},
	}

	cmd.Flags().StringVar(&userFlag, "user", "", "User ID (required)")
	cmd.Flags().StringVar(&title, "title", "🔔 Test Notification", "Notification title")
	cmd.Flags().StringVar(&body, "body", "Notifications are working!", "Notification body")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
