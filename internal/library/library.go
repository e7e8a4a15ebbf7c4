// Package library manages the transcripts and drafts kept in the shared
// store, along with the keyboard and indicator preferences.
//
// Imported transcripts live under script-<domain>-info-<id>; each domain's
// script-<domain>-list records which keys exist. Drafts are the entries of
// draftUpdates written while no editor was bridged.
package library

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"

	"cuebridge/internal/cue"
	"cuebridge/internal/editsession"
	"cuebridge/internal/kv"
	"cuebridge/internal/logging"
)

// ErrInvalidTranscript is returned when a transcript fails validation.
var ErrInvalidTranscript = cue.ErrInvalidTranscript

// ErrNotFound is returned for unknown transcripts and drafts.
var ErrNotFound = errors.New("not found")

// Option customizes a Library.
type Option func(*Library)

// WithDomains sets the platforms the library expects transcripts for.
func WithDomains(domains []string) Option {
	return func(l *Library) {
		l.domains = append([]string(nil), domains...)
	}
}

// WithDraftDefaults sets the language and author given to promoted drafts.
func WithDraftDefaults(d cue.DraftDefaults) Option {
	return func(l *Library) {
		l.draftDefaults = d
	}
}

// WithShortcutDefaults sets configured shortcut overrides that sit beneath
// the stored ones.
func WithShortcutDefaults(overrides map[string]string) Option {
	return func(l *Library) {
		l.shortcutDefaults = overrides
	}
}

// WithIndicatorDefault sets the indicator preference used when none is
// stored.
func WithIndicatorDefault(show bool) Option {
	return func(l *Library) {
		l.indicatorDefault = show
	}
}

// WithLogger sets the library logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Library) {
		l.logger = logging.NewComponentLogger(logger, "library")
	}
}

// Library operates on transcripts, drafts, and preferences in a kv.Store.
type Library struct {
	store            kv.Store
	domains          []string
	draftDefaults    cue.DraftDefaults
	shortcutDefaults map[string]string
	indicatorDefault bool
	logger           *slog.Logger
}

// New builds a library over store.
func New(store kv.Store, opts ...Option) *Library {
	l := &Library{
		store:            store,
		indicatorDefault: true,
		logger:           logging.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Store returns the backing store.
func (l *Library) Store() kv.Store {
	return l.store
}

// Entry is a stored transcript.
type Entry struct {
	Key        string         `json:"key"`
	Transcript cue.Transcript `json:"transcript"`
}

// ListTranscripts returns every stored transcript ordered by domain, series
// title, season, episode, then title. Keys listed without a document are
// skipped.
func (l *Library) ListTranscripts(ctx context.Context) ([]Entry, error) {
	domains, err := l.listedDomains(ctx)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for _, domain := range domains {
		keys, err := kv.GetTranscriptList(ctx, l.store, domain)
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			t, ok, err := kv.GetTranscript(ctx, l.store, key)
			if err != nil {
				logging.WarnWithContext(l.logger, "skipping unreadable transcript", "transcript_decode_failed",
					logging.String("key", key),
					logging.Error(err),
					logging.String(logging.FieldImpact, "transcript hidden from listing"),
				)
				continue
			}
			if !ok {
				continue
			}
			entries = append(entries, Entry{Key: key, Transcript: t})
		}
	}
	slices.SortStableFunc(entries, compareEntries)
	return entries, nil
}

func compareEntries(a, b Entry) int {
	am, bm := a.Transcript.Metadata, b.Transcript.Metadata
	return cmp.Or(
		strings.Compare(a.Transcript.Source.Domain, b.Transcript.Source.Domain),
		strings.Compare(am.SeriesTitle, bm.SeriesTitle),
		cmp.Compare(intOr(am.Season), intOr(bm.Season)),
		cmp.Compare(intOr(am.Episode), intOr(bm.Episode)),
		strings.Compare(am.Title, bm.Title),
	)
}

func intOr(p *int) int {
	if p == nil {
		return -1
	}
	return *p
}

// GetTranscript returns the transcript stored for domain and id.
func (l *Library) GetTranscript(ctx context.Context, domain, id string) (cue.Transcript, error) {
	key := cue.TranscriptKey(domain, id)
	t, ok, err := kv.GetTranscript(ctx, l.store, key)
	if err != nil {
		return cue.Transcript{}, err
	}
	if !ok {
		return cue.Transcript{}, fmt.Errorf("transcript %s: %w", key, ErrNotFound)
	}
	return t, nil
}

// ImportTranscript validates t, stores it, and records its key in the
// domain list. Importing an existing key replaces the document.
func (l *Library) ImportTranscript(ctx context.Context, t cue.Transcript) (string, error) {
	t.Normalize()
	if err := t.Validate(); err != nil {
		return "", err
	}
	domain := t.Source.Domain
	if len(l.domains) > 0 && !slices.Contains(l.domains, domain) {
		logging.WarnWithContext(l.logger, "importing transcript for unconfigured domain", "transcript_domain_unknown",
			logging.String("domain", domain),
			logging.String(logging.FieldErrorHint, "add the domain to remote.domains"),
			logging.String(logging.FieldImpact, "players for this domain are not configured"),
		)
	}

	key := t.Key()
	keys, err := kv.GetTranscriptList(ctx, l.store, domain)
	if err != nil {
		return "", err
	}
	if !slices.Contains(keys, key) {
		keys = append(keys, key)
		if err := kv.SetTranscriptList(ctx, l.store, domain, keys); err != nil {
			return "", err
		}
	}
	if err := kv.SetTranscript(ctx, l.store, t); err != nil {
		return "", err
	}
	l.logger.Info("transcript imported",
		logging.String("key", key),
		logging.Int("cues", len(t.Tracks())),
		logging.String(logging.FieldEventType, "transcript_imported"),
	)
	return key, nil
}

// DeleteTranscript removes the document and its list entry.
func (l *Library) DeleteTranscript(ctx context.Context, domain, id string) error {
	key := cue.TranscriptKey(domain, id)
	keys, err := kv.GetTranscriptList(ctx, l.store, domain)
	if err != nil {
		return err
	}
	_, exists, err := kv.GetTranscript(ctx, l.store, key)
	if err != nil {
		return err
	}
	listed := slices.Contains(keys, key)
	if !exists && !listed {
		return fmt.Errorf("transcript %s: %w", key, ErrNotFound)
	}
	if listed {
		keys = slices.DeleteFunc(keys, func(k string) bool { return k == key })
		if err := kv.SetTranscriptList(ctx, l.store, domain, keys); err != nil {
			return err
		}
	}
	if err := l.store.Remove(ctx, key); err != nil {
		return err
	}
	l.logger.Info("transcript deleted", logging.String("key", key))
	return nil
}

// listedDomains returns every domain with a transcript list plus the
// configured ones.
func (l *Library) listedDomains(ctx context.Context) ([]string, error) {
	keys, err := l.store.Keys(ctx, "script-")
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	for _, key := range keys {
		if domain, ok := strings.CutSuffix(strings.TrimPrefix(key, "script-"), "-list"); ok && domain != "" && !strings.Contains(domain, "-") {
			seen[domain] = struct{}{}
		}
	}
	for _, domain := range l.domains {
		seen[domain] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for domain := range seen {
		out = append(out, domain)
	}
	sort.Strings(out)
	return out, nil
}

// Draft is a saved draft with its parsed key.
type Draft struct {
	Key    string          `json:"key"`
	Domain string          `json:"domain"`
	ID     string          `json:"id"`
	Record cue.DraftRecord `json:"record"`
}

// ListDrafts returns saved drafts ordered by key. Entries whose key does not
// parse are still listed with empty domain and id.
func (l *Library) ListDrafts(ctx context.Context) ([]Draft, error) {
	drafts, err := kv.GetDrafts(ctx, l.store)
	if err != nil {
		return nil, err
	}
	out := make([]Draft, 0, len(drafts))
	for key, record := range drafts {
		domain, id, _ := cue.ParseTranscriptKey(key)
		out = append(out, Draft{Key: key, Domain: domain, ID: id, Record: record})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// DraftTranscript converts the draft at key into a transcript document.
func (l *Library) DraftTranscript(ctx context.Context, key string) (cue.Transcript, error) {
	drafts, err := kv.GetDrafts(ctx, l.store)
	if err != nil {
		return cue.Transcript{}, err
	}
	record, ok := drafts[key]
	if !ok {
		return cue.Transcript{}, fmt.Errorf("draft %s: %w", key, ErrNotFound)
	}
	return record.Transcript(key, l.draftDefaults)
}

// PromoteDraft imports the draft at key as a transcript and deletes the
// draft.
func (l *Library) PromoteDraft(ctx context.Context, key string) (string, error) {
	t, err := l.DraftTranscript(ctx, key)
	if err != nil {
		return "", err
	}
	imported, err := l.ImportTranscript(ctx, t)
	if err != nil {
		return "", fmt.Errorf("promote %s: %w", key, err)
	}
	if err := l.DeleteDraft(ctx, key); err != nil {
		return imported, err
	}
	return imported, nil
}

// DeleteDraft removes one draft.
func (l *Library) DeleteDraft(ctx context.Context, key string) error {
	drafts, err := kv.GetDrafts(ctx, l.store)
	if err != nil {
		return err
	}
	if _, ok := drafts[key]; !ok {
		return fmt.Errorf("draft %s: %w", key, ErrNotFound)
	}
	delete(drafts, key)
	return kv.SetDrafts(ctx, l.store, drafts)
}

// ClearDrafts removes every draft and returns how many there were.
func (l *Library) ClearDrafts(ctx context.Context) (int, error) {
	drafts, err := kv.GetDrafts(ctx, l.store)
	if err != nil {
		return 0, err
	}
	if err := kv.SetDrafts(ctx, l.store, kv.Drafts{}); err != nil {
		return 0, err
	}
	return len(drafts), nil
}

// LoadShortcuts returns the defaults merged with configured and stored
// overrides.
func (l *Library) LoadShortcuts(ctx context.Context) (editsession.Shortcuts, error) {
	merged := make(map[string]string, len(l.shortcutDefaults))
	for action, key := range l.shortcutDefaults {
		merged[action] = key
	}
	stored, err := kv.GetShortcuts(ctx, l.store)
	if err != nil {
		return nil, err
	}
	for action, key := range stored {
		merged[action] = key
	}
	return editsession.ParseShortcuts(merged)
}

// SaveShortcuts validates overrides and stores the full resulting map.
func (l *Library) SaveShortcuts(ctx context.Context, overrides map[string]string) (editsession.Shortcuts, error) {
	current, err := l.LoadShortcuts(ctx)
	if err != nil {
		current = editsession.DefaultShortcuts()
	}
	merged := current.Map()
	for action, key := range overrides {
		merged[action] = key
	}
	parsed, err := editsession.ParseShortcuts(merged)
	if err != nil {
		return nil, err
	}
	if err := kv.SetShortcuts(ctx, l.store, parsed.Map()); err != nil {
		return nil, err
	}
	return parsed, nil
}

// ResetShortcuts drops stored overrides so the configured and built-in
// bindings apply again.
func (l *Library) ResetShortcuts(ctx context.Context) (editsession.Shortcuts, error) {
	if err := l.store.Remove(ctx, kv.KeyKeyboardShortcuts); err != nil {
		return nil, err
	}
	return l.LoadShortcuts(ctx)
}

// ShowIndicator returns the indicator preference.
func (l *Library) ShowIndicator(ctx context.Context) (bool, error) {
	return kv.ShowIndicator(ctx, l.store, l.indicatorDefault)
}

// SetShowIndicator stores the indicator preference.
func (l *Library) SetShowIndicator(ctx context.Context, show bool) error {
	return kv.SetShowIndicator(ctx, l.store, show)
}
