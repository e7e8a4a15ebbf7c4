package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cuebridge/internal/logs"
)

func TestLogsPrintsTrailingLines(t *testing.T) {
	env := setupCLITestEnv(t)

	if err := os.MkdirAll(env.cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("mkdir logs: %v", err)
	}
	target := filepath.Join(env.cfg.Paths.LogDir, "cuebridge-20261019T120000.log")
	if err := os.WriteFile(target, []byte("first\nsecond\nthird\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	if err := os.Symlink(target, filepath.Join(env.cfg.Paths.LogDir, logs.PointerName)); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	out, err := env.run(t, "logs", "-n", "2")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if strings.TrimSpace(out) != "second\nthird" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestLogsWithoutRunLog(t *testing.T) {
	env := setupCLITestEnv(t)
	_, err := env.run(t, "logs")
	if !errors.Is(err, logs.ErrNoLog) {
		t.Fatalf("expected ErrNoLog, got %v", err)
	}
}
