package cli

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wildicedemon/patrol/internal/logger"
)

var continuousInterval string

var continuousCmd = &cobra.Command{
	Use:   "continuous",
	Short: "Scan the workspace on a timer until interrupted",
	Long: `Run the scanner in continuous mode.

One scan runs immediately; subsequent scans are scheduled on a fixed
interval after each completion, so scans never overlap. Ctrl-C stops
the loop; a scan already in flight completes first.

Example:
  patrol continuous
  patrol continuous --interval 5m`,
	RunE: runContinuous,
}

func init() {
	continuousCmd.Flags().StringVarP(&continuousInterval, "interval", "i", "", "Delay between scans (e.g. 60s, 5m)")
	rootCmd.AddCommand(continuousCmd)
}

func runContinuous(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Continuous = true
	if continuousInterval != "" {
		cfg.ContinuousInterval = continuousInterval
	}
	initLogging(cfg, false)

	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = engine.Close() }()

	events := engine.Subscribe()
	defer engine.Unsubscribe(events)
	go printProgress(events)

	ctx := cmd.Context()
	if err := engine.ContinuousScan(ctx); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("Stopping continuous scan")
	case <-ctx.Done():
	}

	engine.Stop()

	// Let an in-flight scan drain before exiting
	for engine.IsCurrentlyScanning() {
		time.Sleep(100 * time.Millisecond)
	}
	return nil
}
