// Copyright (c) 2025 BVK Chaitanya

package envfile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	input := `
# sniper identity
ID=sniper
AUCTION_URL=ws://localhost:8080/auctions?x=y

SERVER_PORT=10001
`
	vars, err := parse(strings.NewReader(input), "SNIPER_")
	if err != nil {
		t.Fatal(err)
	}
	want := []assignment{
		{"SNIPER_ID", "sniper"},
		{"SNIPER_AUCTION_URL", "ws://localhost:8080/auctions?x=y"},
		{"SNIPER_SERVER_PORT", "10001"},
	}
	if len(vars) != len(want) {
		t.Fatalf("want %v, got %v", want, vars)
	}
	for i := range want {
		if vars[i] != want[i] {
			t.Fatalf("%d: want %v, got %v", i, want[i], vars[i])
		}
	}

	for _, bad := range []string{"NOVALUE", "1X=y", "BAD-NAME=x"} {
		if _, err := parse(strings.NewReader(bad), ""); !errors.Is(err, os.ErrInvalid) {
			t.Fatalf("%q: want os.ErrInvalid, got %v", bad, err)
		}
	}
}

func TestUpdateEnv(t *testing.T) {
	dir := t.TempDir()
	data := "ID=from-file\nURL=ws://example.com\n"
	if err := os.WriteFile(filepath.Join(dir, ".testenv"), []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("ENVFILETEST_ID", "from-env")
	t.Setenv("ENVFILETEST_URL", "")

	if err := UpdateEnv(".testenv", SearchDir(dir), VariableNamePrefix("ENVFILETEST_")); err != nil {
		t.Fatal(err)
	}
	if v := os.Getenv("ENVFILETEST_ID"); v != "from-env" {
		t.Fatalf("want existing value to be kept, got %q", v)
	}
	if v := os.Getenv("ENVFILETEST_URL"); v != "ws://example.com" {
		t.Fatalf("want value from file, got %q", v)
	}

	if err := UpdateEnv(".testenv", SearchDir(dir), VariableNamePrefix("ENVFILETEST_"), OverwriteIfExists(true)); err != nil {
		t.Fatal(err)
	}
	if v := os.Getenv("ENVFILETEST_ID"); v != "from-file" {
		t.Fatalf("want overwritten value, got %q", v)
	}

	if err := UpdateEnv("a/b"); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("want os.ErrInvalid for path separator, got %v", err)
	}
	if err := UpdateEnv(".missing", SearchDir(dir)); err != nil {
		t.Fatalf("want nil for missing files, got %v", err)
	}
}
