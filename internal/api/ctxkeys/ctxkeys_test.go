package ctxkeys

import (
	"context"
	"testing"
)

func TestWithValue_SetsAndGetsTypedKey(t *testing.T) {
	t.Parallel()

	ctx := WithValue(context.Background(), UserID, "user-42")
	if got := Value(ctx, UserID); got != "user-42" {
		t.Fatalf("expected user-42, got %q", got)
	}
}

func TestValue_EmptyWhenAbsent(t *testing.T) {
	t.Parallel()

	if got := Value(context.Background(), DefenderUserJSON); got != "" {
		t.Fatalf("expected empty value, got %q", got)
	}
}
