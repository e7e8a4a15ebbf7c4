package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"cuebridge/internal/cue"
)

// Transcript returns a valid single-script transcript with one cue per text,
// spaced five seconds apart from zero.
func Transcript(domain, id string, texts ...string) cue.Transcript {
	tracks := make([]cue.Cue, len(texts))
	for i, text := range texts {
		tracks[i] = cue.Cue{Timestamp: float64(i * 5), Text: text}
	}
	return cue.Transcript{
		Source:   cue.Source{Domain: domain, ID: id},
		Metadata: cue.Metadata{Type: cue.Other, Title: id},
		Scripts:  []cue.Script{{Language: "en-US", Tracks: tracks}},
	}
}

// WriteTranscript encodes tr at path, choosing JSON or YAML from the
// extension.
func WriteTranscript(t testing.TB, path string, tr cue.Transcript) {
	t.Helper()

	data, err := cue.Encode(tr, cue.FormatFromPath(path))
	if err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
