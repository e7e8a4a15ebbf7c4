// Package main hosts the cuebridge CLI entrypoint and command graph.
//
// The Cobra-based command tree runs the coordinator daemon in the foreground
// and translates every other invocation into IPC calls against it: status
// and tab listings, transcript library maintenance, saved drafts, and
// keyboard shortcut preferences. `play` and `transcripts validate` work on
// local files and do not need a running daemon.
//
// Keep this package lean: add behavior to the internal packages first, then
// surface it through dedicated commands or flags here.
package main
