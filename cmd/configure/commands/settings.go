package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/taskping/taskping/internal/config"
	"github.com/taskping/taskping/internal/database"
)

// NewSettingsCmd creates the settings command group
func NewSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect or change a user's notification settings",
	}

	cmd.AddCommand(newSettingsGetCmd())
	cmd.AddCommand(newSettingsSetCmd())

	return cmd
}

func newSettingsGetCmd() *cobra.Command {
	var userFlag string

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show a user's notification settings",
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

			settings, err := database.NewSettingsRepository(db).Get(context.Background(), userID)
			if err != nil {
				return fmt.Errorf("failed to get settings: %w", err)
			}

			fmt.Printf("Settings for user %s:\n", userID)
			fmt.Printf("  Notifications enabled:  %v\n", settings.NotificationsEnabled)
			fmt.Printf("  Daily summary enabled:  %v\n", settings.DailySummaryEnabled)
			fmt.Printf("  Digest hour (IST):      %d\n", settings.DigestHour)
			fmt.Printf("  Follow-up delay (min):  %d\n", settings.FollowUpDelayMinutes)
			fmt.Printf("  Follow-up window (min): %d\n", settings.FollowUpWindowMinutes)

			return nil
		},
	}

	cmd.Flags().StringVar(&userFlag, "user", "", "User ID (required)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func newSettingsSetCmd() *cobra.Command {
	var (
		userFlag    string
		enableFlag  bool
		summaryFlag bool
		digestHour  int
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update a user's notification settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(userFlag)
			if err != nil {
				return fmt.Errorf("invalid --user: %w", err)
			}
			if digestHour < 0 || digestHour > 23 {
				return fmt.Errorf("--digest-hour must be 0-23, got %d", digestHour)
			}

			db, err := openDatabase()
			if err != nil {
				return err
			}
			defer closeDatabase(db)

			repo := database.NewSettingsRepository(db)
			ctx := context.Background()

			settings, err := repo.Get(ctx, userID)
			if err != nil {
				return fmt.Errorf("failed to get settings: %w", err)
			}

			if cmd.Flags().Changed("enable-notifications") {
				settings.NotificationsEnabled = enableFlag
			}
			if cmd.Flags().Changed("enable-daily-summary") {
				settings.DailySummaryEnabled = summaryFlag
			}
			if cmd.Flags().Changed("digest-hour") {
				settings.DigestHour = digestHour
			}

			if err := repo.Upsert(ctx, settings); err != nil {
				return fmt.Errorf("failed to update settings: %w", err)
			}

			fmt.Printf("✓ Settings updated for user %s\n", userID)
			return nil
		},
	}

	cmd.Flags().StringVar(&userFlag, "user", "", "User ID (required)")
	cmd.Flags().BoolVar(&enableFlag, "enable-notifications", false, "Enable or disable notifications")
	cmd.Flags().BoolVar(&summaryFlag, "enable-daily-summary", false, "Enable or disable the end-of-day digest")
	cmd.Flags().IntVar(&digestHour, "digest-hour", 20, "IST hour for the end-of-day digest (0-23)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func openDatabase() (*database.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func closeDatabase(db *database.DB) {
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
	}
}
