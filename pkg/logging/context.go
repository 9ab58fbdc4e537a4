package logging

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey struct{ name string }

var (
	loggerKey = ctxKey{"logger"}
	runIDKey  = ctxKey{"run_id"}
)

// WithLogger stores logger in ctx. A nil logger stores the default.
func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, OrDefault(logger))
}

// FromContext returns the logger stored in ctx, or the default logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(*zerolog.Logger); ok && l != nil {
			return l
		}
	}
	return Default()
}

// WithRunID records the lookup run id in ctx and on its logger.
func WithRunID(ctx context.Context, id string) context.Context {
	return with(context.WithValue(ctx, runIDKey, id), "run_id", id)
}

// RunID returns the run id recorded by WithRunID, if any.
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey).(string)
	return id
}

// WithSource tags the context logger with a source id.
func WithSource(ctx context.Context, source string) context.Context {
	return with(ctx, "source", source)
}

// WithCode tags the context logger with a product code.
func WithCode(ctx context.Context, code string) context.Context {
	return with(ctx, "code", code)
}

func with(ctx context.Context, key, value string) context.Context {
	l := FromContext(ctx).With().Str(key, value).Logger()
	return context.WithValue(ctx, loggerKey, &l)
}
