package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cuebridge/internal/cue"
)

// Keys shared by player, editor, and the library.
const (
	KeyTrackUpdates      = "trackUpdates"
	KeyCurrentlyEditing  = "currentlyEditingId"
	KeyDraftUpdates      = "draftUpdates"
	KeyKeyboardShortcuts = "keyboardShortcuts"
	KeyShowIndicator     = "showIndicator"
)

// TrackUpdate is the value of trackUpdates.
type TrackUpdate struct {
	Tracks      []cue.Cue `json:"tracks"`
	LastTouched float64   `json:"lastTouched"`
	Timestamp   int64     `json:"timestamp"`
}

// EditingID is the value of currentlyEditingId.
type EditingID struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
}

// Drafts is the value of draftUpdates, keyed by transcript key.
type Drafts map[string]cue.DraftRecord

// GetJSON decodes the value at key into out. It returns false when the key is
// absent and an error when the stored value does not decode.
func GetJSON(ctx context.Context, s Store, key string, out any) (bool, error) {
	raw, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode %q: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it at key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	return s.Set(ctx, key, data)
}

// Decode unmarshals a change value.
func Decode[T any](raw json.RawMessage) (T, error) {
	var out T
	if raw == nil {
		return out, ErrNotFound
	}
	err := json.Unmarshal(raw, &out)
	return out, err
}

func GetTrackUpdate(ctx context.Context, s Store) (TrackUpdate, bool, error) {
	var out TrackUpdate
	ok, err := GetJSON(ctx, s, KeyTrackUpdates, &out)
	return out, ok, err
}

func SetTrackUpdate(ctx context.Context, s Store, update TrackUpdate) error {
	if update.Tracks == nil {
		update.Tracks = []cue.Cue{}
	}
	return SetJSON(ctx, s, KeyTrackUpdates, update)
}

func GetEditingID(ctx context.Context, s Store) (EditingID, bool, error) {
	var out EditingID
	ok, err := GetJSON(ctx, s, KeyCurrentlyEditing, &out)
	return out, ok, err
}

func SetEditingID(ctx context.Context, s Store, id EditingID) error {
	return SetJSON(ctx, s, KeyCurrentlyEditing, id)
}

// GetDrafts returns every saved draft; an absent key yields an empty map.
func GetDrafts(ctx context.Context, s Store) (Drafts, error) {
	out := Drafts{}
	if _, err := GetJSON(ctx, s, KeyDraftUpdates, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = Drafts{}
	}
	return out, nil
}

func SetDrafts(ctx context.Context, s Store, drafts Drafts) error {
	if drafts == nil {
		drafts = Drafts{}
	}
	return SetJSON(ctx, s, KeyDraftUpdates, drafts)
}

// UpdateDrafts applies fn to the stored drafts and writes the result back.
// The read-modify-write is not atomic across processes; the last writer wins.
func UpdateDrafts(ctx context.Context, s Store, fn func(Drafts)) error {
	drafts, err := GetDrafts(ctx, s)
	if err != nil {
		return err
	}
	fn(drafts)
	return SetDrafts(ctx, s, drafts)
}

// GetShortcuts returns the stored action → key overrides.
func GetShortcuts(ctx context.Context, s Store) (map[string]string, error) {
	out := map[string]string{}
	if _, err := GetJSON(ctx, s, KeyKeyboardShortcuts, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func SetShortcuts(ctx context.Context, s Store, shortcuts map[string]string) error {
	return SetJSON(ctx, s, KeyKeyboardShortcuts, shortcuts)
}

// ShowIndicator returns the indicator preference, defaulting to fallback.
func ShowIndicator(ctx context.Context, s Store, fallback bool) (bool, error) {
	out := fallback
	if _, err := GetJSON(ctx, s, KeyShowIndicator, &out); err != nil {
		return fallback, err
	}
	return out, nil
}

func SetShowIndicator(ctx context.Context, s Store, show bool) error {
	return SetJSON(ctx, s, KeyShowIndicator, show)
}

// GetTranscriptList returns the transcript keys recorded for domain.
func GetTranscriptList(ctx context.Context, s Store, domain string) ([]string, error) {
	var out []string
	if _, err := GetJSON(ctx, s, cue.ListKey(domain), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func SetTranscriptList(ctx context.Context, s Store, domain string, keys []string) error {
	if keys == nil {
		keys = []string{}
	}
	return SetJSON(ctx, s, cue.ListKey(domain), keys)
}

// GetTranscript loads the transcript document stored at key.
func GetTranscript(ctx context.Context, s Store, key string) (cue.Transcript, bool, error) {
	raw, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return cue.Transcript{}, false, nil
	}
	if err != nil {
		return cue.Transcript{}, false, err
	}
	t, err := cue.Decode(raw, cue.FormatJSON)
	if err != nil {
		return cue.Transcript{}, false, fmt.Errorf("decode %q: %w", key, err)
	}
	return t, true, nil
}

func SetTranscript(ctx context.Context, s Store, t cue.Transcript) error {
	data, err := cue.Encode(t, cue.FormatJSON)
	if err != nil {
		return err
	}
	return s.Set(ctx, t.Key(), data)
}
