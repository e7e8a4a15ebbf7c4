package cue

import (
	"fmt"
	"strings"
)

const (
	transcriptKeyPrefix = "script-"
	transcriptKeyInfix  = "-info-"
	listKeySuffix       = "-list"
)

// TranscriptKey returns the storage key for a video's transcript and drafts:
// script-<domain>-info-<id>.
func TranscriptKey(domain, id string) string {
	return transcriptKeyPrefix + domain + transcriptKeyInfix + id
}

// ListKey returns the storage key listing every stored transcript for domain.
func ListKey(domain string) string {
	return transcriptKeyPrefix + domain + listKeySuffix
}

// ParseTranscriptKey splits a key built by TranscriptKey. The domain may not
// contain a dash; the id may.
func ParseTranscriptKey(key string) (domain, id string, err error) {
	rest, ok := strings.CutPrefix(key, transcriptKeyPrefix)
	if !ok {
		return "", "", fmt.Errorf("transcript key %q: missing %q prefix", key, transcriptKeyPrefix)
	}
	domain, id, ok = strings.Cut(rest, transcriptKeyInfix)
	if !ok || domain == "" || id == "" || strings.Contains(domain, "-") {
		return "", "", fmt.Errorf("transcript key %q: want script-<domain>-info-<id>", key)
	}
	return domain, id, nil
}
