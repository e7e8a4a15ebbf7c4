// Package logs reads the daemon's per-run log files for the CLI.
//
// The daemon keeps a cuebridge.log pointer in its log directory aimed at the
// current run. CurrentPath resolves it; Last and From read with bounded
// memory; Follow polls for appended lines until its context ends.
package logs
