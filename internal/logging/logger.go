// Package logging configures the process-wide zerolog logger and carries a
// request-scoped logger through context.Context.
package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global logger.  The dev environment gets a human
// readable console writer; everything else logs JSON with caller info.
func Init(serviceName, env string) {
	InitWithWriter(serviceName, env, os.Stdout)
}

// InitWithWriter is Init with an explicit destination.
func InitWithWriter(serviceName, env string, w io.Writer) {
	zerolog.TimeFieldFormat = time.RFC3339

	if env == "dev" || env == "development" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Str("service", serviceName).
			Logger()
		return
	}
	log.Logger = zerolog.New(w).
		With().
		Timestamp().
		Caller().
		Str("service", serviceName).
		Logger()
}

// WithContext stores l in ctx.
func WithContext(ctx context.Context, l zerolog.Logger) context.Context {
	return l.WithContext(ctx)
}

// FromContext returns the logger stored in ctx, or the global logger when
// none was attached.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
			return l
		}
	}
	return &log.Logger
}
