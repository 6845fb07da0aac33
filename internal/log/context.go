// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	submissionIDKey
)

func withValue(ctx context.Context, key ctxKey, v string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, v)
}

func value(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

// ContextWithRequestID attaches the HTTP request ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return withValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request ID or "".
func RequestIDFromContext(ctx context.Context) string { return value(ctx, requestIDKey) }

// ContextWithSubmissionID attaches the submission being scored.
func ContextWithSubmissionID(ctx context.Context, id string) context.Context {
	return withValue(ctx, submissionIDKey, id)
}

// SubmissionIDFromContext returns the submission ID or "".
func SubmissionIDFromContext(ctx context.Context) string { return value(ctx, submissionIDKey) }

// WithContext adds the request ID, submission ID and trace ID found in ctx.
// The logger is returned unchanged when ctx carries none of them.
func WithContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	if ctx == nil {
		return logger
	}
	fields := make(map[string]any, 3)
	if rid := RequestIDFromContext(ctx); rid != "" {
		fields[FieldRequestID] = rid
	}
	if sid := SubmissionIDFromContext(ctx); sid != "" {
		fields[FieldSubmissionID] = sid
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		fields[FieldTraceID] = sc.TraceID().String()
	}
	if len(fields) == 0 {
		return logger
	}
	return logger.With().Fields(fields).Logger()
}

// WithComponentFromContext is WithContext over WithComponent(component).
func WithComponentFromContext(ctx context.Context, component string) zerolog.Logger {
	return WithContext(ctx, WithComponent(component))
}
