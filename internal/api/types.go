package api

import "cuebridge/internal/cue"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running        bool   `json:"running"`
	PID            int    `json:"pid"`
	StartedAt      string `json:"startedAt,omitempty"`
	RelayAddress   string `json:"relayAddress,omitempty"`
	DatabasePath   string `json:"databasePath"`
	LockFilePath   string `json:"lockFilePath"`
	LogPath        string `json:"logPath,omitempty"`
	Tabs           int    `json:"tabs"`
	PendingBridges int    `json:"pendingBridges"`
	Transcripts    int    `json:"transcripts"`
	Drafts         int    `json:"drafts"`
	EditingID      string `json:"editingId,omitempty"`
}

// Tab describes one browsing context registered with the coordinator.
type Tab struct {
	ID      int64  `json:"id"`
	URL     string `json:"url"`
	Role    string `json:"role"`
	Partner int64  `json:"partner,omitempty"`
}

// TranscriptSummary describes a stored transcript for listings.
type TranscriptSummary struct {
	Key         string   `json:"key"`
	Domain      string   `json:"domain"`
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Type        string   `json:"type"`
	SeriesTitle string   `json:"seriesTitle,omitempty"`
	Season      *int     `json:"season,omitempty"`
	Episode     *int     `json:"episode,omitempty"`
	Languages   []string `json:"languages"`
	Cues        int      `json:"cues"`
	Length      string   `json:"length"`
}

// DraftSummary describes a saved draft.
type DraftSummary struct {
	Key    string `json:"key"`
	Domain string `json:"domain"`
	ID     string `json:"id"`
	Title  string `json:"title,omitempty"`
	Cues   int    `json:"cues"`
}

// TranscriptListResponse wraps a collection of transcripts.
type TranscriptListResponse struct {
	Transcripts []TranscriptSummary `json:"transcripts"`
}

// TranscriptResponse wraps a single transcript document.
type TranscriptResponse struct {
	Key        string         `json:"key"`
	Transcript cue.Transcript `json:"transcript"`
}

// TabListResponse wraps the registered tabs.
type TabListResponse struct {
	Tabs []Tab `json:"tabs"`
}
