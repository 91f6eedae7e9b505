// Package grpc runs the gRPC side listener that exposes the standard
// grpc.health.v1.Health service and server reflection.
//
// Unary calls pass through recovery, logging and metrics interceptors.
package grpc

import (
	"context"
	"fmt"
	"net"
	"runtime/debug"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/shashiranjanraj/storefront/pkg/logger"
)

var (
	handledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "grpc",
		Name:      "handled_total",
		Help:      "gRPC calls completed by method and code.",
	}, []string{"method", "code"})

	handlingSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "storefront",
		Subsystem: "grpc",
		Name:      "handling_seconds",
		Help:      "gRPC handler latency.",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method"})
)

// Server wraps a grpc.Server with the health service registered.
type Server struct {
	srv    *grpc.Server
	health *health.Server
}

// New builds the server. It reports SERVING until Stop.
func New() *Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(recoveryInterceptor, loggingInterceptor, metricsInterceptor),
		grpc.MaxRecvMsgSize(4<<20),
		grpc.MaxSendMsgSize(4<<20),
	)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	return &Server{srv: srv, health: hs}
}

// Listen opens a TCP listener on port.
func Listen(port string) (net.Listener, error) {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return nil, fmt.Errorf("grpc: listen on :%s: %w", port, err)
	}
	return lis, nil
}

// Serve blocks serving lis until Stop.
func (s *Server) Serve(lis net.Listener) error {
	logger.Info("grpc: serving", "addr", lis.Addr().String())
	return s.srv.Serve(lis)
}

// SetServing flips the overall health status.
func (s *Server) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
}

// Stop marks the server NOT_SERVING and drains in-flight calls. If ctx ends
// first the remaining calls are cut.
func (s *Server) Stop(ctx context.Context) {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.srv.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.srv.Stop()
	}
}

func recoveryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithCtx(ctx).Error("grpc: panic recovered",
				"method", info.FullMethod,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			err = status.Errorf(codes.Internal, "internal server error")
		}
	}()
	return handler(ctx, req)
}

func loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	logger.WithCtx(ctx).Debug("grpc: request",
		"method", info.FullMethod,
		"duration_ms", time.Since(start).Milliseconds(),
		"code", status.Code(err).String(),
	)
	return resp, err
}

func metricsInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	handledTotal.WithLabelValues(info.FullMethod, status.Code(err).String()).Inc()
	handlingSeconds.WithLabelValues(info.FullMethod).Observe(time.Since(start).Seconds())
	return resp, err
}
