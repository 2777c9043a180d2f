package commands

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/taskping/taskping/internal/database"
	"github.com/taskping/taskping/internal/logger"
)

// NewSubscriptionsCmd creates the subscriptions command
func NewSubscriptionsCmd() *cobra.Command {
	var userFlag string

	cmd := &cobra.Command{
		Use:   "subscriptions",
		Short: "List a user's push subscriptions",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(userFlag)
			if err != nil {
				return fmt.Errorf("invalid --user: %w", err)
			}

			db, err := openDatabase()
			if err != nil {
				return err
			}
			defer closeDatabase(db)

			subs, err := database.NewSubscriptionRepository(db).GetByUserID(context.Background(), userID)
			if err != nil {
				return fmt.Errorf("failed to list subscriptions: %w", err)
			}

			if len(subs) == 0 {
				fmt.Println("No push subscriptions registered")
				return nil
			}

			fmt.Printf("Push subscriptions for user %s:\n", userID)
			for _, sub := range subs {
				fmt.Printf("  - Platform: %s\n", sub.Platform)
				fmt.Printf("    Token:    %s\n", logger.SanitizePushToken(sub.Token))
				fmt.Printf("    Created:  %s\n", sub.CreatedAt.Format("2006-01-02 15:04:05"))
				fmt.Println()
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&userFlag, "user", "", "User ID (required)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
