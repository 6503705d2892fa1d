package context

import (
	"context"
	"testing"
)

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Fatalf("expected req-1, got %q", got)
	}
	if got := RequestIDFromContext(WithRequestID(context.Background(), "")); got != "" {
		t.Fatalf("expected empty request id, got %q", got)
	}
}

func TestRunIDMissing(t *testing.T) {
	if got := RunIDFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty run id, got %q", got)
	}
	if got := RunIDFromContext(WithRunID(context.Background(), "01HX")); got != "01HX" {
		t.Fatalf("expected run id, got %q", got)
	}
}

func TestEnsureRunIDKeepsExisting(t *testing.T) {
	ctx, runID := EnsureRunID(context.Background())
	if len(runID) != 26 {
		t.Fatalf("expected a ULID, got %q", runID)
	}
	_, again := EnsureRunID(ctx)
	if again != runID {
		t.Fatalf("expected run id %q to be kept, got %q", runID, again)
	}
}
