package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and socket configuration.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	LogDir     string `toml:"log_dir"`
	SocketPath string `toml:"socket_path"`
}

// Relay contains configuration for the coordinator HTTP/WebSocket listener.
type Relay struct {
	Bind     string `toml:"bind"`
	APIToken string `toml:"api_token"`
	// OpenCommand launches a page when a bridge targets a URL no connected
	// context is serving. Empty leaves the bridge pending until one connects.
	OpenCommand string `toml:"open_command"`
	// AllowedOrigins lists extra browser origin patterns accepted on the
	// relay WebSocket. Same-origin requests are always accepted.
	AllowedOrigins []string `toml:"allowed_origins"`
}

// Remote contains configuration for the fallback transcript source.
type Remote struct {
	TranscriptURLTemplate string   `toml:"transcript_url_template"`
	TimeoutSeconds        int      `toml:"timeout_seconds"`
	Domains               []string `toml:"domains"`
}

// Playback contains timing knobs for the scheduler and edit session.
type Playback struct {
	LeadInSeconds       float64 `toml:"lead_in_seconds"`
	SeekStepSeconds     float64 `toml:"seek_step_seconds"`
	SeekFineStepSeconds float64 `toml:"seek_fine_step_seconds"`
	MoveStepSeconds     float64 `toml:"move_step_seconds"`
	MoveFineStepSeconds float64 `toml:"move_fine_step_seconds"`
}

// Editor contains defaults applied to new drafts and the player overlay.
type Editor struct {
	ShowIndicator   bool   `toml:"show_indicator"`
	DefaultLanguage string `toml:"default_language"`
	DefaultAuthor   string `toml:"default_author"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for cuebridge.
//
// Configuration sections by subsystem:
//   - Paths: data, log, and IPC socket locations
//   - Relay: coordinator listener and optional bearer token
//   - Remote: fallback transcript fetch settings
//   - Playback: lead-in, seek, and move step sizes
//   - Editor: indicator and draft defaults
//   - Shortcuts: action name to single-character overrides
//   - Logging: log format, level, and retention
type Config struct {
	Paths     Paths             `toml:"paths"`
	Relay     Relay             `toml:"relay"`
	Remote    Remote            `toml:"remote"`
	Playback  Playback          `toml:"playback"`
	Editor    Editor            `toml:"editor"`
	Shortcuts map[string]string `toml:"shortcuts"`
	Logging   Logging           `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/cuebridge/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("cuebridge.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, filepath.Dir(c.Paths.SocketPath)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the persisted key-value store.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, databaseFileName)
}

// LockPath returns the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, lockFileName)
}

// RemoteTimeout returns the transcript fetch timeout.
func (c *Config) RemoteTimeout() time.Duration {
	return time.Duration(c.Remote.TimeoutSeconds) * time.Second
}

// TranscriptURL expands the remote template for one video.
func (c *Config) TranscriptURL(domain, id string) string {
	tmpl := strings.TrimSpace(c.Remote.TranscriptURLTemplate)
	if tmpl == "" {
		return ""
	}
	return strings.NewReplacer("{domain}", domain, "{id}", id).Replace(tmpl)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
