package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/taskping/taskping/cmd/configure/commands"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "taskping-configure",
		Short: "Configuration tool for the TaskPing API",
		Long:  "CLI tool for inspecting user notification settings, push subscriptions and auth configuration",
	}

	rootCmd.AddCommand(commands.NewSettingsCmd())
	rootCmd.AddCommand(commands.NewSubscriptionsCmd())
	rootCmd.AddCommand(commands.NewNotifyCmd())
	rootCmd.AddCommand(commands.NewAuthTestCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
