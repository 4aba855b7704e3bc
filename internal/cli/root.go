package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wildicedemon/patrol/internal/config"
	"github.com/wildicedemon/patrol/internal/logger"
)

// Version information set via ldflags
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var (
	verbose    bool
	configFile string
	workspace  string
)

var rootCmd = &cobra.Command{
	Use:   "patrol",
	Short: "Pattern-based static analysis scanner",
	Long: `Patrol walks a workspace, matches file contents against a repertoire
of named patterns (regex, semantic heuristics, hybrid), and reports
severity-classified findings across four analysis passes:
anti-patterns, architecture, performance and security.

Configure the scanner in:
  - ~/.patrol/config.yaml (global)
  - .patrol/config.yaml (project-specific)`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("patrol %s\n", Version)
		fmt.Printf("  commit: %s\n", Commit)
		fmt.Printf("  built:  %s\n", Date)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Override config file path")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory to scan (default: cwd)")

	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig resolves the effective configuration for a command.
func loadConfig() (*config.Config, error) {
	loader, err := config.NewLoader(workspace)
	if err != nil {
		return nil, err
	}

	var cfg *config.Config
	if configFile != "" {
		cfg, err = loader.LoadFromFile(configFile)
	} else {
		cfg, err = loader.Load()
	}
	if err != nil {
		return nil, err
	}

	if verbose {
		cfg.Verbose = true
	}
	return cfg, nil
}

// initLogging configures the global logger from the effective config.
func initLogging(cfg *config.Config, quiet bool) {
	if quiet {
		logger.InitQuiet()
		return
	}
	level := "info"
	if cfg.Verbose {
		level = "debug"
	}
	if err := logger.Init(level, ""); err != nil {
		logger.InitQuiet()
	}
}
