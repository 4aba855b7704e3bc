package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wildicedemon/patrol/internal/pattern"
)

var patternsJSON bool

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Inspect the pattern repertoire",
	Long: `Inspect the pattern repertoire the scanner would use.

The repertoire is read from the configured repertoire file, falling
back to the built-in defaults when no file exists.

Example:
  patrol patterns list
  patrol patterns show hardcoded-secret`,
}

var patternsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all patterns",
	RunE:  runPatternsList,
}

var patternsShowCmd = &cobra.Command{
	Use:   "show <pattern-id>",
	Short: "Show one pattern definition",
	Args:  cobra.ExactArgs(1),
	RunE:  runPatternsShow,
}

func init() {
	patternsListCmd.Flags().BoolVar(&patternsJSON, "json", false, "Output as JSON")
	patternsShowCmd.Flags().BoolVar(&patternsJSON, "json", false, "Output as JSON")

	patternsCmd.AddCommand(patternsListCmd)
	patternsCmd.AddCommand(patternsShowCmd)
	rootCmd.AddCommand(patternsCmd)
}

func loadRepertoire() (*pattern.Repertoire, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	initLogging(cfg, true)

	root := workspace
	if root == "" {
		if root, err = os.Getwd(); err != nil {
			return nil, err
		}
	}

	path := cfg.RepertoireFile
	if path != "" && !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	store := pattern.NewStore(path, nil)
	return store.Load()
}

func runPatternsList(cmd *cobra.Command, args []string) error {
	repertoire, err := loadRepertoire()
	if err != nil {
		return err
	}

	if patternsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(repertoire)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPASS\tTYPE\tSEVERITY\tENABLED\tNAME")
	for _, d := range repertoire.Patterns {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%s\n",
			d.ID, d.Pass, d.MatchType, d.Severity, d.Enabled, d.Name)
	}
	return w.Flush()
}

func runPatternsShow(cmd *cobra.Command, args []string) error {
	repertoire, err := loadRepertoire()
	if err != nil {
		return err
	}

	def := repertoire.Get(args[0])
	if def == nil {
		return fmt.Errorf("pattern %q not found", args[0])
	}

	if patternsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(def)
	}

	fmt.Printf("%s (%s)\n", def.Name, def.ID)
	fmt.Printf("  pass:      %s\n", def.Pass)
	fmt.Printf("  type:      %s\n", def.MatchType)
	fmt.Printf("  severity:  %s\n", def.Severity)
	fmt.Printf("  enabled:   %t\n", def.Enabled)
	if def.Description != "" {
		fmt.Printf("  about:     %s\n", def.Description)
	}
	if def.Pattern != "" {
		fmt.Printf("  pattern:   %s\n", def.Pattern)
	}
	if len(def.FilePatterns) > 0 {
		fmt.Printf("  files:     %v\n", def.FilePatterns)
	}
	if len(def.ExcludePatterns) > 0 {
		fmt.Printf("  excludes:  %v\n", def.ExcludePatterns)
	}
	if def.Suggestion != "" {
		fmt.Printf("  suggest:   %s\n", def.Suggestion)
	}
	return nil
}
