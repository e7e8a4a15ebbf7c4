// Package api defines wire-format types and converters for the IPC and HTTP
// API layer. It translates library entries, drafts, and coordinator tabs into
// transport-friendly DTOs that the CLI and browser clients can render without
// coupling to internal types.
//
// # Key Types
//
// DaemonStatus: runtime information including relay address, store path,
// connected tabs, and library counts.
//
// TranscriptSummary: one stored transcript as listed by the library, with the
// display title and cue count precomputed.
//
// DraftSummary and Tab: drafts saved while no editor was bridged, and the
// browsing contexts registered with the coordinator.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for JavaScript consumers, matching the keys the
// shared store already uses. Timestamps use RFC3339 with milliseconds. Full
// transcript documents are passed through as cue.Transcript since their JSON
// form is already the exchange format.
package api
