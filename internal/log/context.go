// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey int

const (
	jobIDKey ctxKey = iota
	runIDKey
)

// correlation lists the context keys copied onto loggers, in field order.
var correlation = []struct {
	key   ctxKey
	field string
}{
	{jobIDKey, FieldJobID},
	{runIDKey, FieldRunID},
}

func withValue(ctx context.Context, key ctxKey, v string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, v)
}

func stringValue(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

// ContextWithJobID tags ctx with the job being planned or run.
func ContextWithJobID(ctx context.Context, id string) context.Context {
	return withValue(ctx, jobIDKey, id)
}

// ContextWithRunID tags ctx with one execution attempt of a job.
func ContextWithRunID(ctx context.Context, id string) context.Context {
	return withValue(ctx, runIDKey, id)
}

// JobIDFromContext returns the job ID, or "".
func JobIDFromContext(ctx context.Context) string { return stringValue(ctx, jobIDKey) }

// RunIDFromContext returns the run ID, or "".
func RunIDFromContext(ctx context.Context) string { return stringValue(ctx, runIDKey) }

// WithContext adds the correlation IDs carried by ctx to logger. The logger
// is returned unchanged when ctx carries none.
func WithContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	b := logger.With()
	added := false
	for _, c := range correlation {
		if v := stringValue(ctx, c.key); v != "" {
			b = b.Str(c.field, v)
			added = true
		}
	}
	if !added {
		return logger
	}
	return b.Logger()
}
