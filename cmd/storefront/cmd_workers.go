package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/storefront/config"
	"github.com/shashiranjanraj/storefront/internal/kernel"
)

var queueWorkersFlag int

// storefront queue:work
var queueWorkCmd = &cobra.Command{
	Use:   "queue:work",
	Short: "Run queue workers (use QUEUE_DRIVER=redis to share jobs with the API)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		app, err := kernel.Boot(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		workers := queueWorkersFlag
		if workers < 1 {
			workers = config.QueueWorkers()
		}
		fmt.Printf("Queue worker started (%d workers). Press Ctrl+C to stop.\n", workers)
		app.StartWorkers(ctx, workers)

		<-ctx.Done()
		fmt.Println("Queue worker stopped.")
		return nil
	},
}

// storefront schedule:run
var scheduleRunCmd = &cobra.Command{
	Use:   "schedule:run",
	Short: "Run the task scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		app, err := kernel.Boot(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		fmt.Println("Registered scheduled tasks:")
		for _, t := range app.Scheduler.List() {
			fmt.Println("  •", t)
		}

		// An in-memory queue is private to this process, so it needs its
		// own workers.
		if config.QueueDriver() != "redis" {
			app.StartWorkers(ctx, config.QueueWorkers())
		}

		fmt.Println("Scheduler started. Press Ctrl+C to stop.")
		app.Scheduler.Run(ctx)
		fmt.Println("Scheduler stopped.")
		return nil
	},
}

func init() {
	queueWorkCmd.Flags().IntVarP(&queueWorkersFlag, "workers", "w", 0, "number of concurrent workers (default QUEUE_WORKERS)")
}
