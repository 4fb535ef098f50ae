package services_test

import (
	"context"
	"testing"

	"clipsync/internal/services"
)

func TestContextannotations(t *testing.T) {
	ctx := context.Background()

	if _, ok := services.SessionIDFromContext(ctx); ok {
		t.Fatal("expected no session id on bare context")
	}

	ctx = services.WithSessionID(ctx, "sess-1")
	ctx = services.WithVideoID(ctx, "abc123")
	ctx = services.WithStep(ctx, "segment")
	ctx = services.WithRequestID(ctx, "req-9")

	if got, ok := services.SessionIDFromContext(ctx); !ok || got != "sess-1" {
		t.Fatalf("session id: got %q ok=%v", got, ok)
	}
	if got, ok := services.VideoIDFromContext(ctx); !ok || got != "abc123" {
		t.Fatalf("video id: got %q ok=%v", got, ok)
	}
	if got, ok := services.StepFromContext(ctx); !ok || got != "segment" {
		t.Fatalf("step: got %q ok=%v", got, ok)
	}
	if got, ok := services.RequestIDFromContext(ctx); !ok || got != "req-9" {
		t.Fatalf("request id: got %q ok=%v", got, ok)
	}
}

func TestWithEmptyValuesLeaveContextUnchanged(t *testing.T) {
	ctx := context.Background()
	if services.WithSessionID(ctx, "") != ctx {
		t.Fatal("empty session id should not allocate")
	}
	if services.WithStep(ctx, "") != ctx {
		t.Fatal("empty step should not allocate")
	}
}
