// Package daemon coordinates the long-running cuebridge process.
//
// It wires configuration, the persisted key-value store, the bridge
// coordinator, and the relay/HTTP listener into a single lifecycle with
// flock-based locking to prevent multiple instances. The daemon exposes the
// transcript library and coordinator state to the IPC server and the HTTP
// API.
//
// Keep orchestration logic here: cue editing, bridging, and storage rules
// live in their own packages while the daemon focuses on startup, shutdown,
// and high level coordination.
package daemon
