package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/wildicedemon/patrol/internal/history"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse recorded scan history",
	Long: `Browse the scan history database.

History recording is enabled by setting history_file in the config:
  history_file: .patrol/history.db

Example:
  patrol history list
  patrol history show 3
  patrol history clear`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent scans",
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <scan-id>",
	Short: "Show the findings of one recorded scan",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all recorded scans",
	RunE:  runHistoryClear,
}

func init() {
	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of scans to show")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyClearCmd)
	rootCmd.AddCommand(historyCmd)
}

func openHistory() (*history.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	initLogging(cfg, true)

	if cfg.HistoryFile == "" {
		return nil, fmt.Errorf("history recording is not configured (set history_file in the config)")
	}

	root := workspace
	if root == "" {
		if root, err = os.Getwd(); err != nil {
			return nil, err
		}
	}

	path := cfg.HistoryFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	return history.Open(path)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	scans, err := store.ListScans(historyLimit)
	if err != nil {
		return err
	}
	if len(scans) == 0 {
		fmt.Println("No scans recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tWHEN\tDURATION\tPASSES\tFINDINGS")
	for _, s := range scans {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\n",
			s.ID, humanize.Time(s.StartedAt), s.Duration.Round(time.Millisecond), len(s.Passes), s.FindingsCount)
	}
	return w.Flush()
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	scanID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid scan id %q", args[0])
	}

	store, err := openHistory()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	findings, err := store.Findings(scanID)
	if err != nil {
		return err
	}
	if len(findings) == 0 {
		fmt.Println("No findings recorded for that scan.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FILE\tLINE\tSEVERITY\tPATTERN\tMESSAGE")
	for _, f := range findings {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", f.File, f.Line, f.Severity, f.PatternID, f.Message)
	}
	return w.Flush()
}

func runHistoryClear(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.Clear(); err != nil {
		return err
	}
	fmt.Println("Scan history cleared.")
	return nil
}
