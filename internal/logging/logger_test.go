package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cuebridge/internal/logging"
)

func TestConsoleLoggerWritesComponentAndVideo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := logging.WithVideoID(context.Background(), "abc123")
	logging.WithContext(ctx, logging.NewComponentLogger(logger, "player")).
		Info("transcript loaded", logging.Int("cues", 4))
	logger.Debug("hidden")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	for _, want := range []string{"INFO player: transcript loaded", "[video=abc123]", "cues=4"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
	if strings.Contains(line, "hidden") {
		t.Fatalf("debug line should be filtered at info: %q", line)
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no source info at info level: %q", line)
	}
}

func TestJSONLoggerUsesShortKeys(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}, SessionID: "run-1"})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "fetch failed", "transcript_fetch_failed", logging.String("url", "https://x"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(content, &record); err != nil {
		t.Fatalf("decode %q: %v", content, err)
	}
	if record["level"] != "warn" || record["msg"] != "fetch failed" {
		t.Fatalf("unexpected record: %v", record)
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key: %v", record)
	}
	if record[logging.FieldSessionID] != "run-1" {
		t.Fatalf("expected session id, got %v", record)
	}
	if record[logging.FieldEventType] != "transcript_fetch_failed" {
		t.Fatalf("expected event type, got %v", record)
	}
	if record[logging.FieldImpact] == nil || record[logging.FieldErrorHint] == nil {
		t.Fatalf("expected default hint and impact: %v", record)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestContextFields(t *testing.T) {
	ctx := logging.WithTabID(context.Background(), 7)
	ctx = logging.WithSessionID(ctx, "s")
	ctx = logging.WithVideoID(ctx, "  ")
	fields := logging.ContextFields(ctx)
	if len(fields) != 2 {
		t.Fatalf("expected tab and session fields, got %v", fields)
	}
	if id, ok := logging.TabIDFromContext(ctx); !ok || id != 7 {
		t.Fatalf("unexpected tab id %d %v", id, ok)
	}
	if _, ok := logging.VideoIDFromContext(ctx); ok {
		t.Fatal("blank video id should not be stored")
	}
}

func TestPruneRunLogs(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	old := filepath.Join(dir, "cuebridge-20200101T000000.log")
	current := logging.RunLogPath(dir, now)
	unrelated := filepath.Join(dir, "notes.log")
	for _, path := range []string{old, current, unrelated} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	stale := now.AddDate(0, 0, -10)
	for _, path := range []string{old, current, unrelated} {
		if err := os.Chtimes(path, stale, stale); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	removed := logging.PruneRunLogs(logging.NewNop(), dir, 5, now, current)
	if removed != 1 {
		t.Fatalf("expected one file removed, got %d", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected old run log removed: %v", err)
	}
	for _, path := range []string{current, unrelated} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s kept: %v", path, err)
		}
	}
	if logging.PruneRunLogs(nil, dir, 0, now) != 0 {
		t.Fatal("zero retention should disable pruning")
	}
}
