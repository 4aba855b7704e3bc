package cli

import (
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/wildicedemon/patrol/internal/logger"
	"github.com/wildicedemon/patrol/internal/pattern"
)

var watchDebounce string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rescan the workspace whenever it changes",
	Long: `Watch the workspace and rerun the scan after file changes.

Changes are debounced so a burst of writes triggers a single rescan.
Directories matching the configured exclude patterns are not watched.

Example:
  patrol watch
  patrol watch --debounce 1s`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchDebounce, "debounce", "300ms", "Quiet period before a rescan")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	initLogging(cfg, false)

	debounce, err := time.ParseDuration(watchDebounce)
	if err != nil || debounce <= 0 {
		debounce = 300 * time.Millisecond
	}

	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = engine.Close() }()

	events := engine.Subscribe()
	defer engine.Unsubscribe(events)
	go printProgress(events)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	root := workspace
	if root == "" {
		if root, err = os.Getwd(); err != nil {
			return err
		}
	}
	if err := addWatchRecursive(watcher, root, cfg.ExcludePatterns); err != nil {
		return err
	}

	ctx := cmd.Context()
	trigger := func() {
		if _, err := engine.Run(ctx); err != nil {
			logger.Warn().Err(err).Msg("Watch-triggered scan failed")
		}
	}

	// Initial scan before settling into the watch loop
	trigger()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	logger.Info().Str("workspace", root).Msg("Watching for changes")

	var timer *time.Timer
	for {
		select {
		case sig := <-sigCh:
			logger.Info().Str("signal", sig.String()).Msg("Stopping watch")
			if timer != nil {
				timer.Stop()
			}
			return nil
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			rel, relErr := filepath.Rel(root, ev.Name)
			if relErr == nil && pattern.GlobAny(cfg.ExcludePatterns, filepath.ToSlash(rel)) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, trigger)
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(watchErr).Msg("Watch error")
		}
	}
}

// addWatchRecursive registers every non-excluded directory under root.
func addWatchRecursive(w *fsnotify.Watcher, root string, excludes []string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr == nil && rel != "." {
			if pattern.GlobAny(excludes, filepath.ToSlash(rel)+"/") {
				return fs.SkipDir
			}
		}
		return w.Add(path)
	})
}
