package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	globalConfigDir  = ".patrol"
	projectConfigDir = ".patrol"
	configFileName   = "config.yaml"
)

// Loader handles loading and merging configuration files
type Loader struct {
	globalPath  string
	projectPath string
}

// NewLoader creates a new configuration loader
func NewLoader(projectDir string) (*Loader, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	if projectDir == "" {
		projectDir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
	}

	return &Loader{
		globalPath:  filepath.Join(homeDir, globalConfigDir, configFileName),
		projectPath: filepath.Join(projectDir, projectConfigDir, configFileName),
	}, nil
}

// Load loads and merges configuration from all sources
func (l *Loader) Load() (*Config, error) {
	// Start with defaults
	cfg := DefaultConfig()

	// Load global config if exists
	globalCfg, err := l.loadFile(l.globalPath)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load global config: %w", err)
	}
	if globalCfg != nil {
		cfg = mergeConfigs(cfg, globalCfg)
	}

	// Load project config if exists
	projectCfg, err := l.loadFile(l.projectPath)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load project config: %w", err)
	}
	if projectCfg != nil {
		cfg = mergeConfigs(cfg, projectCfg)
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a specific file, merged over
// the defaults.
func (l *Loader) LoadFromFile(path string) (*Config, error) {
	cfg, err := l.loadFile(path)
	if err != nil {
		return nil, err
	}
	return mergeConfigs(DefaultConfig(), cfg), nil
}

func (l *Loader) loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return &cfg, nil
}

// mergeConfigs merges two configurations, with override taking
// precedence for set values. The pointer flags distinguish unset from
// false, so an override only moves a flag it actually mentions.
func mergeConfigs(base, override *Config) *Config {
	result := *base

	if len(override.Passes) > 0 {
		result.Passes = override.Passes
	}
	if override.ContinuousInterval != "" {
		result.ContinuousInterval = override.ContinuousInterval
	}
	if override.StateFile != "" {
		result.StateFile = override.StateFile
	}
	if override.RepertoireFile != "" {
		result.RepertoireFile = override.RepertoireFile
	}
	if override.HistoryFile != "" {
		result.HistoryFile = override.HistoryFile
	}
	if len(override.ExcludePatterns) > 0 {
		result.ExcludePatterns = override.ExcludePatterns
	}
	if override.MaxFindingsPerPass != 0 {
		result.MaxFindingsPerPass = override.MaxFindingsPerPass
	}
	if override.MaxFileSize != 0 {
		result.MaxFileSize = override.MaxFileSize
	}
	if override.MCPServers != nil {
		result.MCPServers = override.MCPServers
	}

	result.Continuous = base.Continuous || override.Continuous
	result.Verbose = base.Verbose || override.Verbose

	if override.Enabled != nil {
		result.Enabled = override.Enabled
	}
	if override.CacheEnabled != nil {
		result.CacheEnabled = override.CacheEnabled
	}

	return &result
}

// GlobalConfigPath returns the path to the global config file
func (l *Loader) GlobalConfigPath() string {
	return l.globalPath
}

// ProjectConfigPath returns the path to the project config file
func (l *Loader) ProjectConfigPath() string {
	return l.projectPath
}

// Exists checks if a config file exists at the given path
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
