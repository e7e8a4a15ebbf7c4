package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cuebridge/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckCommand(t *testing.T) {
	if result := CheckCommand("open", "sh -c true"); !result.Passed {
		t.Fatalf("expected sh on PATH, got: %s", result.Detail)
	}
	if result := CheckCommand("open", "definitely-not-a-command-xyz --flag"); result.Passed {
		t.Fatal("expected missing command to fail")
	}
	if result := CheckCommand("open", "  "); result.Passed {
		t.Fatal("expected empty command to fail")
	}
}

func TestCheckRemoteSource(t *testing.T) {
	notFound := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer notFound.Close()
	if result := CheckRemoteSource(context.Background(), notFound.URL+"/x.json", time.Second); !result.Passed {
		t.Fatalf("404 should count as reachable, got: %s", result.Detail)
	}

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer broken.Close()
	if result := CheckRemoteSource(context.Background(), broken.URL+"/x.json", time.Second); result.Passed {
		t.Fatal("expected 502 to fail")
	}
}

func TestRunAllSkipsUnconfiguredChecks(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = base
	cfg.Paths.LogDir = filepath.Join(base, "missing")
	cfg.Remote.TranscriptURLTemplate = ""

	results := RunAll(context.Background(), &cfg)
	if len(results) != 2 {
		t.Fatalf("expected only directory checks, got %+v", results)
	}
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "Log directory" {
		t.Fatalf("unexpected failures %+v", failed)
	}
}
