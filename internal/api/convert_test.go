package api

import (
	"testing"

	"cuebridge/internal/bridge"
	"cuebridge/internal/cue"
	"cuebridge/internal/library"
)

func TestFromEntrySummarizesScripts(t *testing.T) {
	season, episode := 2, 7
	entry := library.Entry{
		Key: "script-youtube-info-abc",
		Transcript: cue.Transcript{
			Source: cue.Source{Domain: "youtube", ID: "abc"},
			Metadata: cue.Metadata{
				Type:        cue.TelevisionEpisode,
				Title:       "Pilot",
				SeriesTitle: "Show",
				Season:      &season,
				Episode:     &episode,
			},
			Scripts: []cue.Script{
				{Language: "en-US", Tracks: []cue.Cue{{Timestamp: 1, Text: "a"}, {Timestamp: 65, Text: "b"}}},
				{Language: "fr-FR", Tracks: []cue.Cue{{Timestamp: 2, Text: "c"}}},
			},
		},
	}

	got := FromEntry(entry)
	if got.Title != "Show S2E7 - Pilot" {
		t.Fatalf("unexpected title %q", got.Title)
	}
	if got.Cues != 3 || len(got.Languages) != 2 || got.Languages[1] != "fr-FR" {
		t.Fatalf("unexpected script summary %+v", got)
	}
	if got.Length != cue.DisplaySeconds(65) {
		t.Fatalf("unexpected length %q", got.Length)
	}
	if got.Domain != "youtube" || got.ID != "abc" || got.Type != string(cue.TelevisionEpisode) {
		t.Fatalf("unexpected identity %+v", got)
	}
}

func TestFromDraftAndTabs(t *testing.T) {
	d := FromDraft(library.Draft{
		Key:    "script-hidive-info-9",
		Domain: "hidive",
		ID:     "9",
		Record: cue.DraftRecord{Tracks: []cue.Cue{{Timestamp: 1, Text: "x"}}},
	})
	if d.Cues != 1 || d.Title != "" || d.Domain != "hidive" {
		t.Fatalf("unexpected draft summary %+v", d)
	}

	tabs := FromTabs([]bridge.TabInfo{{ID: 3, URL: "https://example.test/v", Role: bridge.RolePlayer, Partner: 4}})
	if len(tabs) != 1 || tabs[0].Role != "player" || tabs[0].Partner != 4 {
		t.Fatalf("unexpected tabs %+v", tabs)
	}
}
