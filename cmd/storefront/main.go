package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/storefront/config"
	"github.com/shashiranjanraj/storefront/pkg/logger"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var flushLogs = func() {}

var rootCmd = &cobra.Command{
	Use:           "storefront",
	Short:         "Storefront API server and maintenance commands",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Load(); err != nil {
			return fmt.Errorf("config: %w", err)
		}
		closer, err := logger.Setup()
		if err != nil {
			logger.Warn("logger: mongo sink disabled", "error", err)
		}
		flushLogs = closer
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		flushLogs()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(routesCmd)

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(migrateRollbackCmd)
	rootCmd.AddCommand(migrateStatusCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(userAdminCmd)

	rootCmd.AddCommand(queueWorkCmd)
	rootCmd.AddCommand(scheduleRunCmd)
}
