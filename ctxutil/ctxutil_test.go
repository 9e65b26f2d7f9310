// Copyright (c) 2025 BVK Chaitanya

package ctxutil

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryTimeout(t *testing.T) {
	ctx := context.Background()

	n := 0
	if err := RetryTimeout(ctx, time.Millisecond, 5*time.Second, func() error {
		if n++; n < 3 {
			return errors.New("not yet")
		}
		return nil
	}); err != nil {
		t.Fatalf("want success, got %v", err)
	}
	if n != 3 {
		t.Fatalf("want 3 attempts, got %d", n)
	}

	failure := errors.New("always")
	if err := RetryTimeout(ctx, time.Millisecond, 20*time.Millisecond, func() error { return failure }); !errors.Is(err, failure) {
		t.Fatalf("want last error from the function, got %v", err)
	}
}
