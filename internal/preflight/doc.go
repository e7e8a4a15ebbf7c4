// Package preflight provides readiness checks for the paths, commands, and
// remote services cuebridge depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and logs every failure; a failed
//     data directory check aborts the start.
//   - The CLI "cuebridge status" command prints the same results next to the
//     daemon status.
//
// Checks for optional features (remote transcripts, open command) are skipped
// when the feature is not configured.
package preflight
