// Package logger provides the structured, levelled application logger built
// on log/slog.
//
// Every HTTP request gets its own logger tagged with the request ID (see
// middleware.Logger); services retrieve it with WithCtx so log lines from the
// same checkout or status change can be correlated:
//
//	log := logger.WithCtx(ctx)
//	log.Info("order placed", "order_id", order.ID, "items", len(order.Items))
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/shashiranjanraj/storefront/config"
)

var L *slog.Logger

func init() {
	L = slog.New(stdoutHandler())
	slog.SetDefault(L)
}

func stdoutHandler() slog.Handler {
	opts := &slog.HandlerOptions{Level: level()}

	switch config.AppEnv() {
	case "production", "prod":
		return slog.NewJSONHandler(os.Stdout, opts)
	default:
		return slog.NewTextHandler(os.Stdout, opts)
	}
}

func level() slog.Level {
	switch strings.ToLower(config.LogLevel()) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	switch config.AppEnv() {
	case "production", "prod":
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// Setup rebuilds the base logger after config has been loaded. When
// LOG_MONGO_URI is set, records are also shipped to MongoDB; the returned
// func flushes and disconnects that sink.
func Setup() (func(), error) {
	handler := stdoutHandler()
	closer := func() {}

	if uri := config.LogMongoURI(); uri != "" {
		mh, err := NewMongoHandler(uri, config.LogMongoDatabase(), config.LogMongoCollection())
		if err != nil {
			L = slog.New(handler)
			slog.SetDefault(L)
			return closer, err
		}
		handler = NewMultiHandler(handler, mh)
		closer = mh.Close
	}

	L = slog.New(handler)
	slog.SetDefault(L)
	return closer, nil
}

// ctxKey is the unexported key used to store a per-request *slog.Logger.
type ctxKey struct{}

// WithCtx returns the request-scoped logger stored in ctx, or the base
// logger when there is none.
func WithCtx(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return L
	}
	if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return L
}

// InjectLogger stores log in ctx. Called by the Logger middleware.
func InjectLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

func Debug(msg string, args ...any) { L.Debug(msg, args...) }
func Info(msg string, args ...any)  { L.Info(msg, args...) }
func Warn(msg string, args ...any)  { L.Warn(msg, args...) }
func Error(msg string, args ...any) { L.Error(msg, args...) }
