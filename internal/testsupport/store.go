package testsupport

import (
	"context"
	"testing"

	"cuebridge/internal/config"
	"cuebridge/internal/cue"
	"cuebridge/internal/kv"
)

// MustOpenStore opens the SQLite store named by cfg and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *kv.SQLite {
	t.Helper()

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store, err := kv.OpenSQLite(cfg.DatabasePath())
	if err != nil {
		t.Fatalf("kv.OpenSQLite: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// PutTranscript stores tr and lists it under its domain the way an import
// does.
func PutTranscript(t testing.TB, store kv.Store, tr cue.Transcript) {
	t.Helper()

	ctx := context.Background()
	keys, err := kv.GetTranscriptList(ctx, store, tr.Source.Domain)
	if err != nil {
		t.Fatalf("GetTranscriptList: %v", err)
	}
	keys = append(keys, tr.Key())
	if err := kv.SetTranscriptList(ctx, store, tr.Source.Domain, keys); err != nil {
		t.Fatalf("SetTranscriptList: %v", err)
	}
	if err := kv.SetTranscript(ctx, store, tr); err != nil {
		t.Fatalf("SetTranscript: %v", err)
	}
}
