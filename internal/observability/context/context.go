package context

import (
	"context"

	"github.com/oklog/ulid/v2"
)

type ctxKey string

const (
	requestIDKey ctxKey = "obs.request_id"
	runIDKey     ctxKey = "obs.report_run_id"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey).(string)
	return value
}

// WithRunID tags the context with the identifier of the report run in progress.
func WithRunID(ctx context.Context, runID string) context.Context {
	if runID == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, runID)
}

func RunIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(runIDKey).(string)
	return value
}

// EnsureRunID returns ctx tagged with a run id, generating a ULID when none is set.
func EnsureRunID(ctx context.Context) (context.Context, string) {
	runID := RunIDFromContext(ctx)
	if runID == "" {
		runID = ulid.Make().String()
	}
	return WithRunID(ctx, runID), runID
}
