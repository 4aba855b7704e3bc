// Package config holds the scanner's configuration surface.
package config

import (
	"time"

	"github.com/wildicedemon/patrol/internal/pattern"
)

// Defaults applied when a field is unset.
const (
	DefaultContinuousInterval = "60s"
	DefaultMaxFindingsPerPass = 100
	DefaultMaxFileSize        = 1 << 20 // 1 MiB
	DefaultStateFile          = ".patrol/scanner-state.md"
	DefaultRepertoireFile     = ".patrol/patterns.md"
)

// Config is the scanner engine configuration. Enabled and CacheEnabled
// are pointers so a config file that omits them can be told apart from
// one that sets them to false; nil means the default (true).
type Config struct {
	Enabled            *bool          `yaml:"enabled,omitempty"`
	Passes             []pattern.Pass `yaml:"passes,omitempty"`
	Continuous         bool           `yaml:"continuous"`
	ContinuousInterval string         `yaml:"continuous_interval,omitempty"`
	StateFile          string         `yaml:"state_file,omitempty"`
	RepertoireFile     string         `yaml:"repertoire_file,omitempty"`
	HistoryFile        string         `yaml:"history_file,omitempty"`
	ExcludePatterns    []string       `yaml:"exclude_patterns,omitempty"`
	MaxFindingsPerPass int            `yaml:"max_findings_per_pass,omitempty"`
	MaxFileSize        int64          `yaml:"max_file_size,omitempty"`
	Verbose            bool           `yaml:"verbose"`

	// CacheEnabled selects the process-wide shared repertoire/regex
	// cache. Disable it for pattern isolation between engine instances
	// in the same process.
	CacheEnabled *bool `yaml:"cache_enabled,omitempty"`

	// MCPServers is carried through for external tooling; the engine
	// never reads it.
	MCPServers map[string]any `yaml:"mcp_servers,omitempty"`
}

// DefaultConfig returns the default scanner configuration.
func DefaultConfig() *Config {
	return &Config{
		Passes:             pattern.AllPasses(),
		ContinuousInterval: DefaultContinuousInterval,
		StateFile:          DefaultStateFile,
		RepertoireFile:     DefaultRepertoireFile,
		ExcludePatterns: []string{
			"**/.patrol/**",
			"**/node_modules/**",
			"**/dist/**",
			"**/build/**",
			"**/.git/**",
			"**/vendor/**",
			"**/*.min.js",
			"**/*.min.css",
		},
		MaxFindingsPerPass: DefaultMaxFindingsPerPass,
		MaxFileSize:        DefaultMaxFileSize,
	}
}

// IsEnabled reports whether scanning is enabled; an unset flag counts
// as enabled.
func (c *Config) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// IsCacheEnabled reports whether the shared cache is selected; an
// unset flag counts as enabled.
func (c *Config) IsCacheEnabled() bool {
	return c.CacheEnabled == nil || *c.CacheEnabled
}

// Bool is a convenience for building flag overrides in code.
func Bool(v bool) *bool {
	return &v
}

// Interval parses the continuous-scan interval, falling back to the
// default when unset or malformed.
func (c *Config) Interval() time.Duration {
	d, err := time.ParseDuration(c.ContinuousInterval)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(DefaultContinuousInterval)
	}
	return d
}
