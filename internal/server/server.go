// Package server runs the HTTP API and the optional gRPC health listener
// until the context is cancelled, then shuts both down gracefully.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/shashiranjanraj/storefront/config"
	"github.com/shashiranjanraj/storefront/internal/kernel"
	"github.com/shashiranjanraj/storefront/pkg/grpc"
	"github.com/shashiranjanraj/storefront/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// Start boots the application from config and serves until ctx is done.
func Start(ctx context.Context) error {
	app, err := kernel.Boot(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	app.Start(ctx, config.QueueWorkers(), config.SchedulerEnabled())

	lis, err := net.Listen("tcp", ":"+config.AppPort())
	if err != nil {
		return fmt.Errorf("server: listen on :%s: %w", config.AppPort(), err)
	}
	return Serve(ctx, lis, app.Handler(), config.GRPCPort())
}

// Serve runs h on lis, plus the gRPC health server when grpcPort is set.
func Serve(ctx context.Context, lis net.Listener, h http.Handler, grpcPort string) error {
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("http: serving", "addr", lis.Addr().String(), "env", config.AppEnv())
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http: %w", err)
		}
	}()

	var gs *grpc.Server
	if grpcPort != "" {
		glis, err := grpc.Listen(grpcPort)
		if err != nil {
			_ = srv.Close()
			return err
		}
		gs = grpc.New()
		go func() {
			if err := gs.Serve(glis); err != nil {
				errCh <- fmt.Errorf("grpc: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	logger.Info("server: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if gs != nil {
		gs.Stop(shutdownCtx)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http: forced shutdown", "error", err)
	}
	return runErr
}
