package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/wildicedemon/patrol/internal/pattern"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ".patrol", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.IsEnabled() {
		t.Error("default config must be enabled")
	}
	if len(cfg.Passes) != 4 {
		t.Errorf("got %d default passes, want 4", len(cfg.Passes))
	}
	if cfg.MaxFindingsPerPass != 100 {
		t.Errorf("maxFindingsPerPass = %d, want 100", cfg.MaxFindingsPerPass)
	}
	if cfg.StateFile != ".patrol/scanner-state.md" {
		t.Errorf("stateFile = %q", cfg.StateFile)
	}
	if !cfg.IsCacheEnabled() {
		t.Error("cache must be enabled by default")
	}

	var excludesPatrol bool
	for _, p := range cfg.ExcludePatterns {
		if p == "**/.patrol/**" {
			excludesPatrol = true
		}
	}
	if !excludesPatrol {
		t.Error("the scanner's own state directory must be excluded by default")
	}
}

func TestInterval(t *testing.T) {
	tests := []struct {
		name     string
		interval string
		want     time.Duration
	}{
		{"valid duration", "5m", 5 * time.Minute},
		{"unset falls back", "", time.Minute},
		{"malformed falls back", "soon", time.Minute},
		{"negative falls back", "-10s", time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{ContinuousInterval: tt.interval}
			if got := cfg.Interval(); got != tt.want {
				t.Errorf("Interval() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadFromFileMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
enabled: true
passes:
  - security
  - performance
continuous_interval: 2m
max_findings_per_pass: 25
history_file: .patrol/history.db
cache_enabled: true
`)

	loader, err := NewLoader(dir)
	if err != nil {
		t.Fatalf("loader creation failed: %v", err)
	}
	cfg, err := loader.LoadFromFile(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if len(cfg.Passes) != 2 || cfg.Passes[0] != pattern.PassSecurity {
		t.Errorf("passes = %v, want [security performance]", cfg.Passes)
	}
	if cfg.ContinuousInterval != "2m" {
		t.Errorf("interval = %q, want 2m", cfg.ContinuousInterval)
	}
	if cfg.MaxFindingsPerPass != 25 {
		t.Errorf("maxFindingsPerPass = %d, want 25", cfg.MaxFindingsPerPass)
	}
	if cfg.HistoryFile != ".patrol/history.db" {
		t.Errorf("historyFile = %q", cfg.HistoryFile)
	}

	// Fields the file does not set keep their defaults
	if cfg.StateFile != DefaultStateFile {
		t.Errorf("stateFile = %q, want default", cfg.StateFile)
	}
	if len(cfg.ExcludePatterns) == 0 {
		t.Error("default excludes lost in merge")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	loader, err := NewLoader(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := loader.LoadFromFile("/nonexistent/config.yaml"); err == nil {
		t.Error("expected an error for a missing explicit config file")
	}
}

func TestLoadFromFileMalformed(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "enabled: [not a bool")

	loader, err := NewLoader(dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := loader.LoadFromFile(path); err == nil {
		t.Error("expected an error for malformed yaml")
	}
}

func TestMergeConfigs(t *testing.T) {
	base := DefaultConfig()
	override := &Config{
		Enabled:      Bool(true),
		Passes:       []pattern.Pass{pattern.PassSecurity},
		Continuous:   true,
		CacheEnabled: Bool(false),
	}

	merged := mergeConfigs(base, override)

	if len(merged.Passes) != 1 || merged.Passes[0] != pattern.PassSecurity {
		t.Errorf("passes = %v, want [security]", merged.Passes)
	}
	if !merged.Continuous {
		t.Error("continuous flag lost in merge")
	}
	if merged.IsCacheEnabled() {
		t.Error("an explicit cache_enabled: false must survive the merge")
	}
	if merged.MaxFindingsPerPass != DefaultMaxFindingsPerPass {
		t.Errorf("maxFindingsPerPass = %d, want default", merged.MaxFindingsPerPass)
	}
}

func TestMergeConfigsEmptyOverride(t *testing.T) {
	base := DefaultConfig()
	merged := mergeConfigs(base, &Config{})

	if !merged.IsEnabled() || !merged.IsCacheEnabled() {
		t.Error("an empty override must not flip the enabled flags")
	}
	if len(merged.Passes) != len(base.Passes) {
		t.Errorf("passes = %v, want base defaults", merged.Passes)
	}
}

func TestMergeConfigsLeavesUnmentionedFlagsAlone(t *testing.T) {
	// An override that only narrows the passes must not move the
	// enabled or cache flags
	merged := mergeConfigs(DefaultConfig(), &Config{
		Passes: []pattern.Pass{pattern.PassSecurity},
	})

	if !merged.IsEnabled() {
		t.Error("enabled flipped by an override that never mentioned it")
	}
	if !merged.IsCacheEnabled() {
		t.Error("cache_enabled flipped by an override that never mentioned it")
	}

	merged = mergeConfigs(DefaultConfig(), &Config{
		StateFile: "custom-state.md",
	})
	if !merged.IsEnabled() || !merged.IsCacheEnabled() {
		t.Error("enabled flags flipped by a state_file override")
	}

	merged = mergeConfigs(DefaultConfig(), &Config{Enabled: Bool(false)})
	if merged.IsEnabled() {
		t.Error("an explicit enabled: false must survive the merge")
	}
	if !merged.IsCacheEnabled() {
		t.Error("cache_enabled must not follow an unrelated enabled override")
	}
}

func TestLoadFromFilePartialFlagsKeepDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "passes:\n  - security\n")

	loader, err := NewLoader(dir)
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := loader.LoadFromFile(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if !cfg.IsEnabled() {
		t.Error("a config that only sets passes must stay enabled")
	}
	if !cfg.IsCacheEnabled() {
		t.Error("a config that only sets passes must keep the shared cache")
	}

	path = writeConfig(t, dir, "enabled: false\n")
	cfg, err = loader.LoadFromFile(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.IsEnabled() {
		t.Error("enabled: false in the file must disable scanning")
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "enabled: true\n")

	if !Exists(path) {
		t.Error("Exists = false for a present file")
	}
	if Exists(filepath.Join(dir, "missing.yaml")) {
		t.Error("Exists = true for a missing file")
	}
}
