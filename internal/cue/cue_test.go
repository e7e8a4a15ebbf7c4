package cue_test

import (
	"errors"
	"strings"
	"testing"

	"cuebridge/internal/cue"
)

func intPtr(v int) *int { return &v }

func TestSortIsStable(t *testing.T) {
	list := []cue.Cue{
		{Timestamp: 5, Text: "b"},
		{Timestamp: 1, Text: "first"},
		{Timestamp: 5, Text: "c"},
		{Timestamp: 0, Text: "a"},
	}
	cue.Sort(list)
	want := []string{"a", "first", "b", "c"}
	for i, c := range list {
		if c.Text != want[i] {
			t.Fatalf("position %d: got %q want %q (%v)", i, c.Text, want[i], list)
		}
	}
	if !cue.IsSorted(list) {
		t.Fatal("expected sorted list")
	}
}

func TestEqualIgnoresIDs(t *testing.T) {
	a := []cue.Cue{{ID: "1", Timestamp: 0, Text: "a"}}
	b := []cue.Cue{{ID: "2", Timestamp: 0, Text: "a"}}
	if !cue.Equal(a, b) {
		t.Fatal("ids should not affect equality")
	}
	if cue.Equal(a, []cue.Cue{{Timestamp: 0, Text: "b"}}) {
		t.Fatal("different text should not be equal")
	}
	if cue.Equal(a, nil) {
		t.Fatal("different lengths should not be equal")
	}
	if !cue.Equal(nil, []cue.Cue{}) {
		t.Fatal("nil and empty should be equal")
	}
}

func TestFromIncludesBoundary(t *testing.T) {
	list := []cue.Cue{{Timestamp: 0, Text: "a"}, {Timestamp: 2, Text: "b"}, {Timestamp: 2, Text: "c"}, {Timestamp: 5, Text: "d"}}
	got := cue.From(list, 2)
	if len(got) != 3 || got[0].Text != "b" || got[2].Text != "d" {
		t.Fatalf("unexpected cues: %v", got)
	}
	if got := cue.From(list, 6); len(got) != 0 {
		t.Fatalf("expected nothing after the end, got %v", got)
	}
	got[0].Text = "mutated"
	if list[1].Text != "b" {
		t.Fatal("From should return a copy")
	}
}

func TestIndexOfAndRound(t *testing.T) {
	list := []cue.Cue{{Timestamp: 1.5}, {Timestamp: 3}}
	if cue.IndexOf(list, 3) != 1 || cue.IndexOf(list, 2) != -1 {
		t.Fatal("unexpected IndexOf result")
	}
	if got := cue.RoundMillis(0.1 + 0.2); got != 0.3 {
		t.Fatalf("unexpected rounding %v", got)
	}
}

func TestTranscriptKeys(t *testing.T) {
	key := cue.TranscriptKey("youtube", "abc-def")
	if key != "script-youtube-info-abc-def" {
		t.Fatalf("unexpected key %q", key)
	}
	domain, id, err := cue.ParseTranscriptKey(key)
	if err != nil || domain != "youtube" || id != "abc-def" {
		t.Fatalf("unexpected parse %q %q %v", domain, id, err)
	}
	if cue.ListKey("emby") != "script-emby-list" {
		t.Fatalf("unexpected list key %q", cue.ListKey("emby"))
	}
	for _, bad := range []string{"draft-x", "script-youtube-abc", "script--info-1"} {
		if _, _, err := cue.ParseTranscriptKey(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func validTranscript() cue.Transcript {
	return cue.Transcript{
		Source:   cue.Source{URL: "https://www.youtube.com/watch?v=abc", Domain: "youtube", ID: "abc"},
		Metadata: cue.Metadata{Type: cue.Movie, Title: "Film"},
		Scripts: []cue.Script{{
			Language: "en-us",
			Author:   "me",
			Tracks:   []cue.Cue{{Timestamp: 4, Text: "later"}, {Timestamp: 1, Text: "first"}},
		}},
	}
}

func TestTranscriptNormalizeAndValidate(t *testing.T) {
	doc := validTranscript()
	doc.Normalize()
	if doc.Scripts[0].Language != "en-US" {
		t.Fatalf("expected canonical language, got %q", doc.Scripts[0].Language)
	}
	if doc.Tracks()[0].Text != "first" {
		t.Fatalf("expected sorted tracks, got %v", doc.Tracks())
	}
	if doc.LastTimestamp() != 4 {
		t.Fatalf("unexpected last timestamp %v", doc.LastTimestamp())
	}
	if err := doc.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if doc.Key() != "script-youtube-info-abc" {
		t.Fatalf("unexpected key %q", doc.Key())
	}
}

func TestTranscriptValidateFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*cue.Transcript)
		want   string
	}{
		{name: "type", mutate: func(d *cue.Transcript) { d.Metadata.Type = "podcast" }, want: "mediatype"},
		{name: "title", mutate: func(d *cue.Transcript) { d.Metadata.Title = "" }, want: "Title"},
		{name: "domain", mutate: func(d *cue.Transcript) { d.Source.Domain = "" }, want: "Domain"},
		{name: "scripts", mutate: func(d *cue.Transcript) { d.Scripts = nil }, want: "Scripts"},
		{name: "language", mutate: func(d *cue.Transcript) { d.Scripts[0].Language = "not a tag!" }, want: "langtag"},
		{name: "negative", mutate: func(d *cue.Transcript) { d.Scripts[0].Tracks[0].Timestamp = -1 }, want: "Timestamp"},
		{name: "season", mutate: func(d *cue.Transcript) { d.Metadata.Season = intPtr(-2) }, want: "Season"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			doc := validTranscript()
			tc.mutate(&doc)
			err := doc.Validate()
			if !errors.Is(err, cue.ErrInvalidTranscript) {
				t.Fatalf("expected ErrInvalidTranscript, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestTitleAndExportFilename(t *testing.T) {
	tests := []struct {
		name     string
		meta     cue.Metadata
		title    string
		filename string
	}{
		{
			name:     "music video",
			meta:     cue.Metadata{Type: cue.MusicVideo, Title: "Song", Creator: " Band "},
			title:    "[Band] Song",
			filename: "Song.json",
		},
		{
			name:     "episode",
			meta:     cue.Metadata{Type: cue.TelevisionEpisode, Title: "Pilot: Part 1", SeriesTitle: "Show", Season: intPtr(1), Episode: intPtr(2)},
			title:    "Show S1E2 - Pilot: Part 1",
			filename: "S01E02 - Pilot Part 1.json",
		},
		{
			name:     "episode without season",
			meta:     cue.Metadata{Type: cue.TelevisionEpisode, Title: "Pilot", SeriesTitle: "Show", Episode: intPtr(3)},
			title:    "Show E3 - Pilot",
			filename: "E03 - Pilot.json",
		},
		{
			name:     "movie",
			meta:     cue.Metadata{Type: cue.Movie, Title: `What?  "Now"`},
			title:    `What?  "Now"`,
			filename: "What Now.json",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := cue.Title(tc.meta); got != tc.title {
				t.Fatalf("Title = %q, want %q", got, tc.title)
			}
			if got := cue.ExportFilename(tc.meta, ".json"); got != tc.filename {
				t.Fatalf("ExportFilename = %q, want %q", got, tc.filename)
			}
		})
	}
}

func TestTimestampFormatting(t *testing.T) {
	if got := cue.RenderTimestamp(125.9); got != "02:05" {
		t.Fatalf("RenderTimestamp = %q", got)
	}
	tests := map[float64]string{
		-1:        "0:00",
		9.7:       "0:09",
		75:        "1:15",
		3725:      "1:02:05",
		500000000: "99:59:59",
	}
	for in, want := range tests {
		if got := cue.DisplaySeconds(in); got != want {
			t.Fatalf("DisplaySeconds(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestDraftTranscript(t *testing.T) {
	draft := cue.DraftRecord{
		Tracks:   []cue.Cue{{Timestamp: 3, Text: "b"}, {Timestamp: 1, Text: "a"}},
		Metadata: cue.DraftMetadata{URL: "https://emby.local/v/42"},
	}
	doc, err := draft.Transcript("script-emby-info-42", cue.DraftDefaults{Language: "fr", Author: "anon"})
	if err != nil {
		t.Fatalf("Transcript: %v", err)
	}
	if doc.Source.Domain != "emby" || doc.Source.ID != "42" {
		t.Fatalf("unexpected source %+v", doc.Source)
	}
	if doc.Metadata.Type != cue.Other || doc.Metadata.Title != "42" {
		t.Fatalf("expected fallback metadata, got %+v", doc.Metadata)
	}
	if doc.Scripts[0].Language != "fr" || doc.Scripts[0].Author != "anon" {
		t.Fatalf("unexpected script defaults %+v", doc.Scripts[0])
	}
	if doc.Tracks()[0].Text != "a" {
		t.Fatalf("expected sorted tracks %v", doc.Tracks())
	}
	if err := doc.Validate(); err != nil {
		t.Fatalf("expected promoted draft to validate: %v", err)
	}
	if _, err := draft.Transcript("bogus", cue.DraftDefaults{}); err == nil {
		t.Fatal("expected bad key error")
	}
}

func TestCodecRoundTripYAML(t *testing.T) {
	doc := validTranscript()
	doc.Metadata.Season = intPtr(2)
	data, err := cue.Encode(doc, cue.FormatYAML)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(string(data), "title: Film") {
		t.Fatalf("unexpected yaml:\n%s", data)
	}
	back, err := cue.Decode(data, cue.FormatYAML)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if back.Metadata.Season == nil || *back.Metadata.Season != 2 {
		t.Fatalf("season lost: %+v", back.Metadata)
	}
	if !cue.Equal(back.Tracks(), cue.Sorted(doc.Tracks())) {
		t.Fatalf("tracks differ: %v", back.Tracks())
	}
}

func TestDecodeJSONOriginalShape(t *testing.T) {
	raw := `{"source":{"url":"https://www.youtube.com/watch?v=x","domain":"youtube","id":"x"},
"metadata":{"title":"T","type":"music video","creator":"C"},
"scripts":[{"language":"en-US","author":"a","tracks":[{"text":"hi","timestamp":1.5}]}]}`
	doc, err := cue.Decode([]byte(raw), cue.FormatJSON)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if err := doc.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if doc.Tracks()[0].Timestamp != 1.5 {
		t.Fatalf("unexpected tracks %v", doc.Tracks())
	}
	if _, err := cue.ParseFormat("xml"); err == nil {
		t.Fatal("expected unsupported format")
	}
	if cue.FormatFromPath("a.YML") != cue.FormatYAML {
		t.Fatal("expected yaml from extension")
	}
}
