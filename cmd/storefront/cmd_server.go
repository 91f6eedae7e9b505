package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/storefront/internal/kernel"
	"github.com/shashiranjanraj/storefront/internal/server"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// storefront serve
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API (and gRPC health when GRPC_PORT is set)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()
		return server.Start(ctx)
	},
}

// storefront routes
var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "List all registered routes",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := kernel.New(kernel.Options{})
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "METHOD\tPATH\tNAME")
		fmt.Fprintln(w, "------\t----\t----")
		for _, ri := range app.Routes() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", ri.Method, ri.Path, ri.Name)
		}
		return w.Flush()
	},
}
