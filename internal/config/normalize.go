package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRelay()
	c.normalizeRemote()
	c.normalizeEditor()
	c.normalizeShortcuts()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.SocketPath) == "" {
		c.Paths.SocketPath = filepath.Join(c.Paths.DataDir, socketFileName)
	}
	if c.Paths.SocketPath, err = expandPath(c.Paths.SocketPath); err != nil {
		return fmt.Errorf("paths.socket_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeRelay() {
	c.Relay.Bind = strings.TrimSpace(c.Relay.Bind)
	if c.Relay.Bind == "" {
		c.Relay.Bind = defaultRelayBind
	}
	c.Relay.APIToken = strings.TrimSpace(c.Relay.APIToken)
	if c.Relay.APIToken == "" {
		if value, ok := os.LookupEnv("CUEBRIDGE_API_TOKEN"); ok {
			c.Relay.APIToken = strings.TrimSpace(value)
		}
	}
	c.Relay.OpenCommand = strings.TrimSpace(c.Relay.OpenCommand)
	origins := c.Relay.AllowedOrigins[:0]
	for _, origin := range c.Relay.AllowedOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	c.Relay.AllowedOrigins = origins
}

func (c *Config) normalizeRemote() {
	c.Remote.TranscriptURLTemplate = strings.TrimSpace(c.Remote.TranscriptURLTemplate)
	if c.Remote.TimeoutSeconds <= 0 {
		c.Remote.TimeoutSeconds = defaultRemoteTimeoutSeconds
	}
	seen := make(map[string]struct{}, len(c.Remote.Domains))
	domains := make([]string, 0, len(c.Remote.Domains))
	for _, domain := range c.Remote.Domains {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain == "" {
			continue
		}
		if _, ok := seen[domain]; ok {
			continue
		}
		seen[domain] = struct{}{}
		domains = append(domains, domain)
	}
	if len(domains) == 0 {
		domains = append(domains, defaultDomains...)
	}
	c.Remote.Domains = domains
}

func (c *Config) normalizeEditor() {
	c.Editor.DefaultLanguage = strings.TrimSpace(c.Editor.DefaultLanguage)
	if c.Editor.DefaultLanguage == "" {
		c.Editor.DefaultLanguage = defaultLanguage
	}
	c.Editor.DefaultAuthor = strings.TrimSpace(c.Editor.DefaultAuthor)
}

func (c *Config) normalizeShortcuts() {
	if len(c.Shortcuts) == 0 {
		c.Shortcuts = nil
		return
	}
	normalized := make(map[string]string, len(c.Shortcuts))
	for action, key := range c.Shortcuts {
		action = strings.TrimSpace(action)
		if action == "" {
			continue
		}
		normalized[action] = strings.ToLower(strings.TrimSpace(key))
	}
	c.Shortcuts = normalized
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
