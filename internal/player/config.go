package player

import (
	"strings"

	"cuebridge/internal/config"
	"cuebridge/internal/editsession"
)

// NewFromConfig builds a Player with the playback steps, shortcut overrides,
// and indicator default from cfg. When deps has no Fetcher and a remote
// template is configured, transcripts missing locally are fetched from it.
func NewFromConfig(cfg *config.Config, deps Dependencies, opts ...Option) (*Player, error) {
	if cfg == nil {
		return New(deps, opts...)
	}
	if deps.Fetcher == nil && strings.TrimSpace(cfg.Remote.TranscriptURLTemplate) != "" {
		deps.Fetcher = NewHTTPFetcher(cfg, nil)
	}
	base := []Option{
		WithSteps(StepsFromConfig(cfg.Playback)),
		WithShortcutDefaults(cfg.Shortcuts),
		WithIndicatorDefault(cfg.Editor.ShowIndicator),
	}
	return New(deps, append(base, opts...)...)
}

// StepsFromConfig converts the [playback] section to edit session distances.
func StepsFromConfig(p config.Playback) editsession.Steps {
	return editsession.Steps{
		LeadIn:   p.LeadInSeconds,
		Seek:     p.SeekStepSeconds,
		SeekFine: p.SeekFineStepSeconds,
		Move:     p.MoveStepSeconds,
		MoveFine: p.MoveFineStepSeconds,
	}
}
