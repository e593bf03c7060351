// Package logctx carries a *slog.Logger through context.Context so handlers,
// stores and streams log with the attributes their callers attached.
package logctx

import (
	"context"
	"log/slog"
)

type loggerKey struct{}

func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// LoggerFromContext falls back to slog.Default when ctx carries no logger.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if logger, _ := ctx.Value(loggerKey{}).(*slog.Logger); logger != nil {
		return logger
	}

	return slog.Default()
}

// With scopes the context logger: every later log through the returned
// context includes args.
func With(ctx context.Context, args ...any) context.Context {
	return WithLogger(ctx, LoggerFromContext(ctx).With(args...))
}
