package api

import (
	"time"

	"cuebridge/internal/bridge"
	"cuebridge/internal/cue"
	"cuebridge/internal/library"
)

// FromEntry converts a library entry to its listing form.
func FromEntry(e library.Entry) TranscriptSummary {
	t := e.Transcript
	languages := make([]string, 0, len(t.Scripts))
	cues := 0
	for _, script := range t.Scripts {
		languages = append(languages, script.Language)
		cues += len(script.Tracks)
	}
	return TranscriptSummary{
		Key:         e.Key,
		Domain:      t.Source.Domain,
		ID:          t.Source.ID,
		Title:       cue.Title(t.Metadata),
		Type:        string(t.Metadata.Type),
		SeriesTitle: t.Metadata.SeriesTitle,
		Season:      t.Metadata.Season,
		Episode:     t.Metadata.Episode,
		Languages:   languages,
		Cues:        cues,
		Length:      cue.DisplaySeconds(t.LastTimestamp()),
	}
}

// FromEntries converts a slice of library entries, preserving order.
func FromEntries(entries []library.Entry) []TranscriptSummary {
	out := make([]TranscriptSummary, 0, len(entries))
	for _, e := range entries {
		out = append(out, FromEntry(e))
	}
	return out
}

// FromDraft converts a saved draft.
func FromDraft(d library.Draft) DraftSummary {
	title := d.Record.Metadata.Title
	if title != "" {
		title = cue.Title(d.Record.Metadata.Metadata)
	}
	return DraftSummary{
		Key:    d.Key,
		Domain: d.Domain,
		ID:     d.ID,
		Title:  title,
		Cues:   len(d.Record.Tracks),
	}
}

// FromDrafts converts drafts, preserving order.
func FromDrafts(drafts []library.Draft) []DraftSummary {
	out := make([]DraftSummary, 0, len(drafts))
	for _, d := range drafts {
		out = append(out, FromDraft(d))
	}
	return out
}

// FromTabs converts coordinator tabs.
func FromTabs(tabs []bridge.TabInfo) []Tab {
	out := make([]Tab, 0, len(tabs))
	for _, tab := range tabs {
		out = append(out, Tab{
			ID:      int64(tab.ID),
			URL:     tab.URL,
			Role:    string(tab.Role),
			Partner: int64(tab.Partner),
		})
	}
	return out
}

// FormatTime renders ts for API payloads; the zero time renders empty.
func FormatTime(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(dateTimeFormat)
}
