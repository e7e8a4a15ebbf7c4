package cue

import "strings"

// DraftMetadata is the loose metadata attached to an unpublished draft. Every
// field may be empty.
type DraftMetadata struct {
	Metadata `yaml:",inline"`
	URL      string `json:"url,omitempty" yaml:"url,omitempty"`
	Author   string `json:"author,omitempty" yaml:"author,omitempty"`
	Language string `json:"language,omitempty" yaml:"language,omitempty"`
}

// DraftRecord is a work-in-progress cue list saved while no editor is bridged.
type DraftRecord struct {
	Tracks   []Cue         `json:"tracks" yaml:"tracks"`
	Metadata DraftMetadata `json:"metadata" yaml:"metadata"`
}

// DraftDefaults fill gaps when a draft becomes a transcript.
type DraftDefaults struct {
	Language string
	Author   string
}

// Transcript converts the draft stored under key into a transcript document.
// Missing language, author, type, and title fall back to defaults, Other, and
// the video id.
func (d DraftRecord) Transcript(key string, defaults DraftDefaults) (Transcript, error) {
	domain, id, err := ParseTranscriptKey(key)
	if err != nil {
		return Transcript{}, err
	}
	meta := d.Metadata.Metadata
	if !meta.Type.Valid() {
		meta.Type = Other
	}
	if strings.TrimSpace(meta.Title) == "" {
		meta.Title = id
	}
	lang := firstNonEmpty(d.Metadata.Language, defaults.Language, "en-US")
	author := firstNonEmpty(d.Metadata.Author, defaults.Author)

	t := Transcript{
		Source:   Source{URL: d.Metadata.URL, Domain: domain, ID: id},
		Metadata: meta,
		Scripts: []Script{{
			Language: lang,
			Author:   author,
			Tracks:   Clone(d.Tracks),
		}},
	}
	t.Normalize()
	return t, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
