// Copyright (c) 2025 BVK Chaitanya

package daemonize

import (
	"context"
	"errors"
	"os"
	"testing"
)

func TestDaemonizeInvalid(t *testing.T) {
	if err := Daemonize(context.Background(), "", nil); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("want os.ErrInvalid, got %v", err)
	}
}
