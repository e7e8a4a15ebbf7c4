package ipc

import (
	"cuebridge/internal/api"
	"cuebridge/internal/cue"
)

// ServiceName is the RPC service the daemon registers.
const ServiceName = "Cuebridge"

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse wraps the daemon status DTO.
type StatusResponse struct {
	Status api.DaemonStatus `json:"status"`
}

// TabsRequest lists connected tabs.
type TabsRequest struct{}

// TabsResponse contains the coordinator's tabs.
type TabsResponse struct {
	Tabs []api.Tab `json:"tabs"`
}

// TranscriptListRequest filters the listing by domain when set.
type TranscriptListRequest struct {
	Domain string `json:"domain"`
}

// TranscriptListResponse contains stored transcripts in listing order.
type TranscriptListResponse struct {
	Transcripts []api.TranscriptSummary `json:"transcripts"`
}

// TranscriptGetRequest names one transcript.
type TranscriptGetRequest struct {
	Domain string `json:"domain"`
	ID     string `json:"id"`
}

// TranscriptGetResponse contains a full transcript document.
type TranscriptGetResponse struct {
	Key        string         `json:"key"`
	Transcript cue.Transcript `json:"transcript"`
}

// TranscriptImportRequest stores a transcript document.
type TranscriptImportRequest struct {
	Transcript cue.Transcript `json:"transcript"`
}

// TranscriptImportResponse reports the storage key used.
type TranscriptImportResponse struct {
	Key string `json:"key"`
}

// TranscriptDeleteRequest names the transcript to delete.
type TranscriptDeleteRequest struct {
	Domain string `json:"domain"`
	ID     string `json:"id"`
}

// TranscriptDeleteResponse reports deletion.
type TranscriptDeleteResponse struct {
	Deleted bool `json:"deleted"`
}

// DraftListRequest lists saved drafts.
type DraftListRequest struct{}

// DraftListResponse contains saved drafts ordered by key.
type DraftListResponse struct {
	Drafts []api.DraftSummary `json:"drafts"`
}

// DraftKeyRequest names one draft by transcript key.
type DraftKeyRequest struct {
	Key string `json:"key"`
}

// DraftExportResponse contains the draft converted to a transcript.
type DraftExportResponse struct {
	Transcript cue.Transcript `json:"transcript"`
}

// DraftPromoteResponse reports the key the draft was imported under.
type DraftPromoteResponse struct {
	Key string `json:"key"`
}

// DraftDeleteResponse reports deletion.
type DraftDeleteResponse struct {
	Deleted bool `json:"deleted"`
}

// DraftClearRequest removes every draft.
type DraftClearRequest struct{}

// DraftClearResponse reports how many drafts were removed.
type DraftClearResponse struct {
	Removed int `json:"removed"`
}

// ShortcutBinding is one action's key.
type ShortcutBinding struct {
	Action      string `json:"action"`
	Key         string `json:"key"`
	Description string `json:"description"`
}

// ShortcutsGetRequest fetches the effective key map.
type ShortcutsGetRequest struct{}

// ShortcutsSetRequest stores overrides and optionally the indicator
// preference.
type ShortcutsSetRequest struct {
	Overrides     map[string]string `json:"overrides"`
	ShowIndicator *bool             `json:"showIndicator,omitempty"`
}

// ShortcutsResetRequest drops stored overrides.
type ShortcutsResetRequest struct{}

// ShortcutsResponse contains the effective bindings in help order.
type ShortcutsResponse struct {
	Bindings      []ShortcutBinding `json:"bindings"`
	ShowIndicator bool              `json:"showIndicator"`
}
