package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/wildicedemon/patrol/internal/pattern"
	"github.com/wildicedemon/patrol/internal/scan"
)

var stateJSON bool

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show the persisted scanner state",
	Long: `Decode and display the scanner's persisted state file.

Example:
  patrol state
  patrol state --json`,
	RunE: runState,
}

func init() {
	stateCmd.Flags().BoolVar(&stateJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(stateCmd)
}

func runState(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	initLogging(cfg, true)

	root := workspace
	if root == "" {
		if root, err = os.Getwd(); err != nil {
			return err
		}
	}

	path := cfg.StateFile
	if path != "" && !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		fmt.Println("No scanner state recorded yet.")
		return nil
	}
	if err != nil {
		return err
	}

	var codec scan.StateCodec
	state := codec.Decode(data)

	if stateJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	}

	fmt.Printf("Workspace:       %s\n", state.WorkspacePath)
	fmt.Printf("Version:         %s\n", state.Version)
	fmt.Printf("Total scans:     %d\n", state.TotalScans)
	fmt.Printf("Continuous mode: %t\n", state.ContinuousMode)
	fmt.Printf("Updated:         %s\n", state.UpdatedAt.Format(time.RFC3339))
	fmt.Printf("Last findings:   %d\n", len(state.LastFindings))
	fmt.Println()
	for _, p := range pattern.AllPasses() {
		ps, ok := state.Passes[p]
		if !ok {
			continue
		}
		if ps.LastRun.IsZero() {
			fmt.Printf("  %-14s never run\n", p)
			continue
		}
		fmt.Printf("  %-14s %d findings, %dms, last run %s", p, ps.FindingsCount, ps.LastDurationMS, ps.LastRun.Format(time.RFC3339))
		if ps.Error != "" {
			fmt.Printf(" (error: %s)", ps.Error)
		}
		fmt.Println()
	}
	return nil
}
