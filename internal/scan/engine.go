package scan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/wildicedemon/patrol/internal/config"
	"github.com/wildicedemon/patrol/internal/history"
	"github.com/wildicedemon/patrol/internal/logger"
	"github.com/wildicedemon/patrol/internal/match"
	"github.com/wildicedemon/patrol/internal/pattern"
)

// Lifecycle misuse is always rejected immediately; these are
// programmer errors, not environmental ones.
var (
	ErrNotInitialized    = errors.New("scanner not initialized")
	ErrScanInProgress    = errors.New("scan already in progress")
	ErrContinuousRunning = errors.New("continuous scanning already running")
)

// Engine is the scan orchestrator. It owns configuration and state,
// drives one-shot and continuous scans, and emits the progress stream.
// At most one scan runs per Engine instance at a time; overlapping
// calls fail fast instead of queuing.
type Engine struct {
	mu  sync.Mutex
	cfg *config.Config

	workspace   string
	store       *pattern.Store
	matcher     *match.Matcher
	codec       StateCodec
	state       *State
	broadcaster *Broadcaster
	hist        *history.Store

	initialized bool
	scanning    bool
	continuous  bool
	stopCh      chan struct{}
	scanBytes   uint64
}

// NewEngine creates an engine for a workspace. The cache backing the
// repertoire and compiled regexes is process-wide unless the config
// disables sharing.
func NewEngine(workspace string, cfg *config.Config) *Engine {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	var cache *pattern.Cache
	if !cfg.IsCacheEnabled() {
		cache = pattern.NewCache(pattern.DefaultTTL)
	}
	store := pattern.NewStore(resolvePath(workspace, cfg.RepertoireFile), cache)

	return &Engine{
		cfg:         cfg,
		workspace:   workspace,
		store:       store,
		matcher:     match.NewMatcher(store),
		broadcaster: NewBroadcaster(),
	}
}

// Initialize loads or creates the scanner state and eagerly loads the
// repertoire so configuration errors surface before the first scan.
func (e *Engine) Initialize() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	statePath := e.statePath()
	if err := os.MkdirAll(filepath.Dir(statePath), 0755); err != nil {
		return fmt.Errorf("failed to initialize scanner: %w", err)
	}

	data, err := os.ReadFile(statePath)
	switch {
	case os.IsNotExist(err):
		e.state = NewState(e.workspace)
	case err != nil:
		return fmt.Errorf("failed to initialize scanner: %w", err)
	default:
		e.state = e.codec.Decode(data)
		if e.state.WorkspacePath == "" {
			e.state.WorkspacePath = e.workspace
		}
	}

	if _, err := e.store.Load(); err != nil {
		return fmt.Errorf("failed to initialize scanner: %w", err)
	}

	if e.cfg.HistoryFile != "" {
		hist, err := history.Open(resolvePath(e.workspace, e.cfg.HistoryFile))
		if err != nil {
			return fmt.Errorf("failed to initialize scanner: %w", err)
		}
		e.hist = hist
	}

	e.initialized = true
	logger.Debug().
		Str("workspace", e.workspace).
		Int("total_scans", e.state.TotalScans).
		Msg("Scanner initialized")
	return nil
}

// Run executes the requested passes sequentially, in the given order.
// With no arguments it runs every configured pass. A failing pass is
// recorded on its own state slice and does not abort its siblings; the
// call resolves with the findings of the passes that succeeded.
func (e *Engine) Run(ctx context.Context, passes ...pattern.Pass) ([]match.Finding, error) {
	if err := e.beginScan(); err != nil {
		return nil, err
	}
	defer e.endScan()

	if len(passes) == 0 {
		passes = e.cfg.Passes
	}
	if len(passes) == 0 {
		passes = pattern.AllPasses()
	}

	started := time.Now()
	e.mu.Lock()
	e.scanBytes = 0
	e.mu.Unlock()

	ev := newEvent(EventScanStarted)
	ev.Message = fmt.Sprintf("Scanning %s (%d passes)", e.workspace, len(passes))
	e.broadcaster.Broadcast(ev)

	var aggregated []match.Finding
	for _, pass := range passes {
		if err := ctx.Err(); err != nil {
			break
		}
		findings, err := e.runPass(ctx, pass)
		if err != nil {
			// Recorded on the pass state; siblings still run
			continue
		}
		aggregated = append(aggregated, findings...)
	}

	e.mu.Lock()
	e.state.LastFindings = aggregated
	e.state.TotalScans++
	e.state.UpdatedAt = time.Now().UTC()
	e.mu.Unlock()

	if err := e.persistState(); err != nil {
		logger.Error().Err(err).Msg("Failed to persist scanner state")
	}

	if e.hist != nil {
		if _, err := e.hist.RecordScan(started, time.Since(started), passes, aggregated); err != nil {
			logger.Warn().Err(err).Msg("Failed to record scan history")
		}
	}

	done := newEvent(EventScanCompleted)
	done.Progress = 100
	done.Message = fmt.Sprintf("Scan completed with %d findings", len(aggregated))
	done.Findings = aggregated
	e.broadcaster.Broadcast(done)

	logger.Info().
		Int("findings", len(aggregated)).
		Dur("duration", time.Since(started)).
		Msg("Scan completed")

	return aggregated, nil
}

// Thin pass aliases for external callers.

func (e *Engine) RunAntiPatternPass(ctx context.Context) ([]match.Finding, error) {
	return e.Run(ctx, pattern.PassAntiPatterns)
}

func (e *Engine) RunArchitecturePass(ctx context.Context) ([]match.Finding, error) {
	return e.Run(ctx, pattern.PassArchitecture)
}

func (e *Engine) RunPerformancePass(ctx context.Context) ([]match.Finding, error) {
	return e.Run(ctx, pattern.PassPerformance)
}

func (e *Engine) RunSecurityPass(ctx context.Context) ([]match.Finding, error) {
	return e.Run(ctx, pattern.PassSecurity)
}

// runPass scans every candidate file with the pass's patterns. The
// pass state is updated whether the pass succeeds or fails.
func (e *Engine) runPass(ctx context.Context, pass pattern.Pass) ([]match.Finding, error) {
	started := time.Now()
	ps := e.passState(pass)

	ev := newEvent(EventPassStarted)
	ev.Pass = pass
	ev.Message = fmt.Sprintf("Starting %s pass", pass)
	e.broadcaster.Broadcast(ev)

	walker := &Walker{
		Root:            e.workspace,
		ExcludePatterns: e.cfg.ExcludePatterns,
		MaxFileSize:     e.cfg.MaxFileSize,
	}
	files, err := walker.FilesToScan()
	if err != nil {
		return nil, e.failPass(pass, ps, started, err)
	}

	var findings []match.Finding
	var passBytes uint64
	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, e.failPass(pass, ps, started, err)
		}

		content, err := file.LoadContent()
		if err != nil {
			// One unreadable file must not fail the pass
			logger.Debug().Err(err).Str("file", file.Path).Msg("Skipping unreadable file")
			continue
		}
		if file.IsBinary {
			// The extension filter misses binaries with text-looking
			// names; the content sniff catches them here
			file.ReleaseContent()
			continue
		}
		passBytes += uint64(file.Size)

		matched, err := e.matcher.MatchFile(file.Path, content, pass)
		file.ReleaseContent()
		if err != nil {
			return nil, e.failPass(pass, ps, started, err)
		}
		findings = append(findings, matched...)

		progress := newEvent(EventPassProgress)
		progress.Pass = pass
		progress.FilesProcessed = i + 1
		progress.TotalFiles = len(files)
		progress.Progress = (i + 1) * 100 / len(files)
		e.broadcaster.Broadcast(progress)
	}

	if limit := e.cfg.MaxFindingsPerPass; limit > 0 && len(findings) > limit {
		logger.Debug().
			Str("pass", string(pass)).
			Int("dropped", len(findings)-limit).
			Msg("Truncating findings to per-pass cap")
		findings = findings[:limit]
	}

	e.mu.Lock()
	e.scanBytes += passBytes
	ps.LastRun = time.Now().UTC()
	ps.FindingsCount = len(findings)
	ps.LastDurationMS = time.Since(started).Milliseconds()
	ps.Error = ""
	e.mu.Unlock()

	done := newEvent(EventPassCompleted)
	done.Pass = pass
	done.Progress = 100
	done.Message = fmt.Sprintf("%s pass found %d issues in %d files", pass, len(findings), len(files))
	e.broadcaster.Broadcast(done)

	return findings, nil
}

// failPass records a pass failure on its state slice and reports it on
// the progress stream.
func (e *Engine) failPass(pass pattern.Pass, ps *PassState, started time.Time, err error) error {
	e.mu.Lock()
	ps.LastRun = time.Now().UTC()
	ps.FindingsCount = 0
	ps.LastDurationMS = time.Since(started).Milliseconds()
	ps.Error = err.Error()
	e.mu.Unlock()

	ev := newEvent(EventScanError)
	ev.Pass = pass
	ev.Error = err.Error()
	ev.Message = fmt.Sprintf("%s pass failed", pass)
	e.broadcaster.Broadcast(ev)

	logger.Error().Err(err).Str("pass", string(pass)).Msg("Pass failed")
	return err
}

// ContinuousScan runs one scan immediately, then reruns on a fixed
// interval until Stop is called. The next scan is scheduled only after
// the previous one completes, so scans never overlap. Scan errors are
// reported on the progress stream but do not stop the loop.
func (e *Engine) ContinuousScan(ctx context.Context) error {
	e.mu.Lock()
	if !e.initialized {
		e.mu.Unlock()
		return ErrNotInitialized
	}
	if e.continuous {
		e.mu.Unlock()
		return ErrContinuousRunning
	}
	e.continuous = true
	e.stopCh = make(chan struct{})
	stopCh := e.stopCh
	e.state.ContinuousMode = true
	e.mu.Unlock()

	if err := e.persistState(); err != nil {
		logger.Warn().Err(err).Msg("Failed to persist continuous mode")
	}

	interval := e.cfg.Interval()
	logger.Info().
		Dur("interval", interval).
		Msg("Continuous scanning started")

	go e.continuousLoop(ctx, stopCh, interval)
	return nil
}

func (e *Engine) continuousLoop(ctx context.Context, stopCh chan struct{}, interval time.Duration) {
	defer func() {
		e.mu.Lock()
		e.continuous = false
		e.state.ContinuousMode = false
		e.mu.Unlock()
		if err := e.persistState(); err != nil {
			logger.Warn().Err(err).Msg("Failed to persist scanner state")
		}
		logger.Info().Msg("Continuous scanning stopped")
	}()

	for {
		// The stop flag wins over a due timer tick
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		if _, err := e.Run(ctx); err != nil && !errors.Is(err, ErrScanInProgress) {
			ev := newEvent(EventScanError)
			ev.Error = err.Error()
			ev.Message = "Continuous scan iteration failed"
			e.broadcaster.Broadcast(ev)
		}

		timer := time.NewTimer(interval)
		select {
		case <-stopCh:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// Stop ends continuous scanning. It is idempotent and cooperative: a
// scan already in flight completes normally, but no further scan
// starts.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopCh != nil {
		select {
		case <-e.stopCh:
		default:
			close(e.stopCh)
		}
	}
}

// beginScan acquires the single-scan-in-flight flag.
func (e *Engine) beginScan() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return ErrNotInitialized
	}
	if e.scanning {
		return ErrScanInProgress
	}
	e.scanning = true
	return nil
}

func (e *Engine) endScan() {
	e.mu.Lock()
	e.scanning = false
	e.mu.Unlock()
}

// persistState flushes the state document to disk.
func (e *Engine) persistState() error {
	e.mu.Lock()
	data, err := e.codec.Encode(e.state)
	e.mu.Unlock()
	if err != nil {
		return err
	}

	return os.WriteFile(e.statePath(), data, 0644)
}

// Subscribe attaches a consumer to the progress event stream.
func (e *Engine) Subscribe() chan Event {
	return e.broadcaster.Subscribe()
}

// Unsubscribe detaches a progress consumer.
func (e *Engine) Unsubscribe(ch chan Event) {
	e.broadcaster.Unsubscribe(ch)
}

// GetState returns the current scanner state.
func (e *Engine) GetState() *State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// GetConfig returns the engine configuration.
func (e *Engine) GetConfig() *config.Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// UpdateConfig replaces the engine configuration. It does not affect a
// scan already in flight.
func (e *Engine) UpdateConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg
}

// LastFindings returns the most recent aggregated findings.
func (e *Engine) LastFindings() []match.Finding {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil
	}
	return e.state.LastFindings
}

// IsCurrentlyScanning reports whether a scan is in flight.
func (e *Engine) IsCurrentlyScanning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scanning
}

// LastScanBytes returns the number of content bytes read by the most
// recent scan, summed across its passes.
func (e *Engine) LastScanBytes() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scanBytes
}

// IsContinuousScanning reports whether the continuous loop is running.
func (e *Engine) IsContinuousScanning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.continuous
}

// PatternStore exposes the engine's repertoire store.
func (e *Engine) PatternStore() *pattern.Store {
	return e.store
}

// History exposes the scan history store, nil when not configured.
func (e *Engine) History() *history.Store {
	return e.hist
}

// Close releases the engine's resources.
func (e *Engine) Close() error {
	e.Stop()
	e.broadcaster.Close()
	if e.hist != nil {
		return e.hist.Close()
	}
	return nil
}

func (e *Engine) statePath() string {
	return resolvePath(e.workspace, e.cfg.StateFile)
}

func (e *Engine) passState(p pattern.Pass) *PassState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Pass(p)
}

func resolvePath(workspace, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(workspace, path)
}
