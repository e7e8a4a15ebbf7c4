// Package kv provides the shared key-value store that player and editor
// contexts use to exchange cue lists, the currently edited video id, drafts,
// and preferences.
//
// Values are raw JSON documents. Every write that changes a value is reported
// to subscribers synchronously and in write order; writes made from inside a
// subscriber are queued and delivered after the current notification returns.
// Memory backs tests and single-process wiring, SQLite backs the daemon.
package kv
