package preflight

import (
	"context"
	"strings"

	"cuebridge/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}

	if command := strings.TrimSpace(cfg.Relay.OpenCommand); command != "" {
		results = append(results, CheckCommand("Open command", command))
	}

	if probe := cfg.TranscriptURL(probeDomain(cfg), probeID); probe != "" {
		results = append(results, CheckRemoteSource(ctx, probe, cfg.RemoteTimeout()))
	}

	return results
}

const probeID = "cuebridge-preflight"

func probeDomain(cfg *config.Config) string {
	if len(cfg.Remote.Domains) > 0 {
		return cfg.Remote.Domains[0]
	}
	return "youtube"
}
