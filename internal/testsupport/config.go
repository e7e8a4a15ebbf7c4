package testsupport

import (
	"path/filepath"
	"testing"

	"cuebridge/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The relay binds an ephemeral loopback port and remote fetches are disabled
// unless WithRemoteTemplate is given.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.SocketPath = filepath.Join(base, "run", "cuebridge.sock")
	cfgVal.Relay.Bind = "127.0.0.1:0"
	cfgVal.Remote.TranscriptURLTemplate = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithAPIToken sets the relay bearer token on the test config.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Relay.APIToken = token
	}
}

// WithRemoteTemplate points remote transcript fetches at tmpl.
func WithRemoteTemplate(tmpl string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Remote.TranscriptURLTemplate = tmpl
	}
}

// WithDomains replaces the configured platforms.
func WithDomains(domains ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Remote.Domains = domains
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
