package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/wildicedemon/patrol/internal/config"
	"github.com/wildicedemon/patrol/internal/pattern"
	"github.com/wildicedemon/patrol/internal/report"
	"github.com/wildicedemon/patrol/internal/scan"
)

var (
	scanFormat   string
	scanOutput   string
	scanProgress bool
)

var scanCmd = &cobra.Command{
	Use:   "scan [pass]",
	Short: "Run a one-shot scan",
	Long: `Run a one-shot scan of the workspace.

Without arguments every configured pass runs in order. Naming a pass
restricts the scan to it.

Example:
  patrol scan                    # All configured passes
  patrol scan security           # Security pass only
  patrol scan --format sarif -o findings.sarif`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVarP(&scanFormat, "format", "f", "text", "Output format: text, json or sarif")
	scanCmd.Flags().StringVarP(&scanOutput, "output", "o", "", "Write the report to a file instead of stdout")
	scanCmd.Flags().BoolVar(&scanProgress, "progress", false, "Print progress events to stderr")

	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(scanFormat)
	if err != nil {
		return err
	}

	var passes []pattern.Pass
	if len(args) == 1 {
		pass, err := pattern.ParsePass(args[0])
		if err != nil {
			return err
		}
		passes = append(passes, pass)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// Machine-readable stdout output stays clean of log lines
	initLogging(cfg, format != report.FormatText && scanOutput == "")

	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = engine.Close() }()

	if scanProgress {
		events := engine.Subscribe()
		defer engine.Unsubscribe(events)
		go printProgress(events)
	}

	findings, err := engine.Run(cmd.Context(), passes...)
	if err != nil {
		return err
	}

	repertoire, _ := engine.PatternStore().Load()

	var out io.Writer = os.Stdout
	if scanOutput != "" {
		file, err := os.Create(scanOutput)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() { _ = file.Close() }()
		out = file
	}

	if err := report.Write(out, format, findings, repertoire); err != nil {
		return err
	}

	// With the report going to a file, the terminal still gets the outcome
	if scanOutput != "" {
		fmt.Printf("%s, report written to %s\n", report.Summary(findings, engine.LastScanBytes()), scanOutput)
	}
	return nil
}

func newEngine(cfg *config.Config) (*scan.Engine, error) {
	if !cfg.IsEnabled() {
		return nil, fmt.Errorf("scanning is disabled in the configuration (enabled: false)")
	}

	root := workspace
	if root == "" {
		var err error
		root, err = os.Getwd()
		if err != nil {
			return nil, err
		}
	}

	engine := scan.NewEngine(root, cfg)
	if err := engine.Initialize(); err != nil {
		return nil, err
	}
	return engine, nil
}

func printProgress(events chan scan.Event) {
	for ev := range events {
		switch ev.Type {
		case scan.EventPassProgress:
			fmt.Fprintf(os.Stderr, "\r[%s] %d/%d files", ev.Pass, ev.FilesProcessed, ev.TotalFiles)
		case scan.EventPassCompleted:
			fmt.Fprintf(os.Stderr, "\r%s\n", ev.Message)
		case scan.EventScanError:
			fmt.Fprintf(os.Stderr, "\r%s: %s\n", ev.Message, ev.Error)
		case scan.EventScanCompleted:
			fmt.Fprintf(os.Stderr, "%s\n", ev.Message)
		}
	}
}
