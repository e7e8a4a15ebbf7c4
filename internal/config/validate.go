package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strings"
	"unicode/utf8"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRelay(); err != nil {
		return err
	}
	if err := c.validateRemote(); err != nil {
		return err
	}
	if err := c.validatePlayback(); err != nil {
		return err
	}
	if err := c.validateShortcuts(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateRelay() error {
	if _, _, err := net.SplitHostPort(c.Relay.Bind); err != nil {
		return fmt.Errorf("relay.bind %q must be host:port: %w", c.Relay.Bind, err)
	}
	return nil
}

func (c *Config) validateRemote() error {
	tmpl := c.Remote.TranscriptURLTemplate
	if tmpl == "" {
		return nil
	}
	if !strings.Contains(tmpl, "{id}") {
		return errors.New("remote.transcript_url_template must contain an {id} placeholder")
	}
	parsed, err := url.Parse(strings.NewReplacer("{domain}", "d", "{id}", "i").Replace(tmpl))
	if err != nil {
		return fmt.Errorf("remote.transcript_url_template: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("remote.transcript_url_template must use http or https, got %q", parsed.Scheme)
	}
	return nil
}

func (c *Config) validatePlayback() error {
	if c.Playback.LeadInSeconds < 0 {
		return errors.New("playback.lead_in_seconds must be >= 0")
	}
	steps := map[string]float64{
		"playback.seek_step_seconds":      c.Playback.SeekStepSeconds,
		"playback.seek_fine_step_seconds": c.Playback.SeekFineStepSeconds,
		"playback.move_step_seconds":      c.Playback.MoveStepSeconds,
		"playback.move_fine_step_seconds": c.Playback.MoveFineStepSeconds,
	}
	for _, name := range sortedKeys(steps) {
		if steps[name] <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}

func (c *Config) validateShortcuts() error {
	owners := make(map[string]string, len(c.Shortcuts))
	for _, action := range sortedKeys(c.Shortcuts) {
		key := c.Shortcuts[action]
		if utf8.RuneCountInString(key) != 1 {
			return fmt.Errorf("shortcuts.%s must be a single character, got %q", action, key)
		}
		if other, ok := owners[key]; ok {
			return fmt.Errorf("shortcuts.%s and shortcuts.%s both use %q", other, action, key)
		}
		owners[key] = action
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
