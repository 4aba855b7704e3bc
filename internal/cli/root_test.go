package cli

import (
	"testing"

	"github.com/wildicedemon/patrol/internal/config"
)

func TestNewEngineRejectsDisabledConfig(t *testing.T) {
	prev := workspace
	workspace = t.TempDir()
	defer func() { workspace = prev }()

	cfg := config.DefaultConfig()
	cfg.Enabled = config.Bool(false)

	if _, err := newEngine(cfg); err == nil {
		t.Error("expected an error when scanning is disabled in the configuration")
	}

	cfg.Enabled = nil
	engine, err := newEngine(cfg)
	if err != nil {
		t.Fatalf("enabled config rejected: %v", err)
	}
	_ = engine.Close()
}
