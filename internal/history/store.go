// Package history persists a queryable record of past scans in
// SQLite. It is a supplementary surface; the markdown state file
// remains the scanner's authoritative round-trip format.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/wildicedemon/patrol/internal/logger"
	"github.com/wildicedemon/patrol/internal/match"
	"github.com/wildicedemon/patrol/internal/pattern"

	_ "modernc.org/sqlite" // SQLite driver for database/sql
)

// Scan is one recorded scan run.
type Scan struct {
	ID            int64
	StartedAt     time.Time
	Duration      time.Duration
	Passes        []pattern.Pass
	FindingsCount int
}

// Store is a SQLite-backed scan history.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// Open creates or opens the history database at dbPath.
func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("history database path is empty")
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{
		db:     db,
		dbPath: dbPath,
	}

	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Debug().
		Str("path", dbPath).
		Msg("Opened scan history store")

	return store, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		passes TEXT NOT NULL,
		findings_count INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS findings (
		id TEXT PRIMARY KEY,
		scan_id INTEGER NOT NULL,
		pattern_id TEXT,
		pass TEXT NOT NULL,
		severity TEXT NOT NULL,
		message TEXT,
		file TEXT NOT NULL,
		line INTEGER NOT NULL,
		col INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (scan_id) REFERENCES scans(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_findings_scan ON findings(scan_id);
	CREATE INDEX IF NOT EXISTS idx_findings_file ON findings(file);
	`

	_, err := s.db.Exec(schema)
	return err
}

// RecordScan stores a completed scan with its findings.
func (s *Store) RecordScan(startedAt time.Time, duration time.Duration, passes []pattern.Pass, findings []match.Finding) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	names := make([]string, len(passes))
	for i, p := range passes {
		names[i] = string(p)
	}

	result, err := tx.Exec(
		`INSERT INTO scans (started_at, duration_ms, passes, findings_count)
		 VALUES (?, ?, ?, ?)`,
		startedAt.Unix(), duration.Milliseconds(), strings.Join(names, ","), len(findings),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to record scan: %w", err)
	}

	scanID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get scan id: %w", err)
	}

	for _, f := range findings {
		_, err = tx.Exec(
			`INSERT INTO findings (id, scan_id, pattern_id, pass, severity, message, file, line, col, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			f.ID, scanID, f.PatternID, string(f.Pass), string(f.Severity),
			f.Message, f.File, f.Line, f.Column, f.Timestamp.Unix(),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to record finding: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return scanID, nil
}

// ListScans returns the most recent scans, newest first.
func (s *Store) ListScans(limit int) ([]*Scan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT id, started_at, duration_ms, passes, findings_count
		 FROM scans ORDER BY started_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var scans []*Scan
	for rows.Next() {
		var (
			scan       Scan
			startedAt  int64
			durationMS int64
			passes     string
		)
		if err := rows.Scan(&scan.ID, &startedAt, &durationMS, &passes, &scan.FindingsCount); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		scan.StartedAt = time.Unix(startedAt, 0)
		scan.Duration = time.Duration(durationMS) * time.Millisecond
		for _, p := range strings.Split(passes, ",") {
			if p != "" {
				scan.Passes = append(scan.Passes, pattern.Pass(p))
			}
		}
		scans = append(scans, &scan)
	}

	return scans, rows.Err()
}

// Findings returns the findings recorded for one scan.
func (s *Store) Findings(scanID int64) ([]match.Finding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT id, pattern_id, pass, severity, message, file, line, col, created_at
		 FROM findings WHERE scan_id = ? ORDER BY file, line`,
		scanID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get findings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var findings []match.Finding
	for rows.Next() {
		var (
			f         match.Finding
			pass      string
			severity  string
			createdAt int64
			patternID sql.NullString
			message   sql.NullString
		)
		if err := rows.Scan(&f.ID, &patternID, &pass, &severity, &message, &f.File, &f.Line, &f.Column, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan finding: %w", err)
		}
		f.PatternID = patternID.String
		f.Message = message.String
		f.Pass = pattern.Pass(pass)
		f.Severity = pattern.Severity(severity)
		f.Timestamp = time.Unix(createdAt, 0)
		findings = append(findings, f)
	}

	return findings, rows.Err()
}

// CleanupOld removes scans older than the given TTL.
func (s *Store) CleanupOld(ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-ttl).Unix()

	_, err := s.db.Exec("DELETE FROM findings WHERE scan_id IN (SELECT id FROM scans WHERE started_at < ?)", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old findings: %w", err)
	}

	result, err := s.db.Exec("DELETE FROM scans WHERE started_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old scans: %w", err)
	}

	deleted, _ := result.RowsAffected()
	if deleted > 0 {
		logger.Debug().
			Int64("deleted", deleted).
			Str("ttl", ttl.String()).
			Msg("Cleaned up old scans")
	}

	return deleted, nil
}

// Clear removes all recorded scans and findings.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM findings"); err != nil {
		return fmt.Errorf("failed to clear findings: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM scans"); err != nil {
		return fmt.Errorf("failed to clear scans: %w", err)
	}

	return tx.Commit()
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}
