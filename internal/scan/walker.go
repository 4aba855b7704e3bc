// Package scan owns the scan orchestrator: file selection, scanner
// state, progress events, and the one-shot/continuous scan lifecycle.
package scan

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/wildicedemon/patrol/internal/logger"
	"github.com/wildicedemon/patrol/internal/pattern"
)

// FileInfo describes one candidate file produced by the workspace
// walk. Content is loaded lazily right before matching and released
// after the pass.
type FileInfo struct {
	Path         string // workspace-relative, slash-separated
	AbsolutePath string
	Extension    string
	Size         int64
	IsBinary     bool // set by LoadContent when the content sniffs binary

	content string
	loaded  bool
}

// binarySniffWindow is how many leading bytes are inspected for a NUL
// byte when classifying loaded content.
const binarySniffWindow = 8000

// LoadContent reads the file's content on first use and classifies it.
// Binary files slip past the extension filter when they carry a
// text-looking name; a NUL byte in the leading window marks them so
// callers can skip matching.
func (f *FileInfo) LoadContent() (string, error) {
	if f.loaded {
		return f.content, nil
	}
	data, err := os.ReadFile(f.AbsolutePath)
	if err != nil {
		return "", err
	}
	window := data
	if len(window) > binarySniffWindow {
		window = window[:binarySniffWindow]
	}
	f.IsBinary = bytes.IndexByte(window, 0) >= 0
	f.content = string(data)
	f.loaded = true
	return f.content, nil
}

// ReleaseContent drops the loaded content so a long multi-pass scan
// does not hold every file in memory.
func (f *FileInfo) ReleaseContent() {
	f.content = ""
	f.loaded = false
}

// binaryExtensions are never scanned regardless of pattern filters.
var binaryExtensions = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".bmp": {}, ".ico": {}, ".webp": {},
	".pdf": {}, ".zip": {}, ".tar": {}, ".gz": {}, ".bz2": {}, ".xz": {}, ".7z": {},
	".exe": {}, ".dll": {}, ".so": {}, ".dylib": {}, ".bin": {}, ".o": {}, ".a": {},
	".woff": {}, ".woff2": {}, ".ttf": {}, ".otf": {}, ".eot": {},
	".mp3": {}, ".mp4": {}, ".avi": {}, ".mov": {}, ".wav": {},
	".db": {}, ".sqlite": {}, ".class": {}, ".jar": {}, ".pyc": {}, ".wasm": {},
}

// Walker enumerates the candidate files for a pass.
type Walker struct {
	Root            string
	ExcludePatterns []string
	MaxFileSize     int64
}

// FilesToScan walks the workspace and returns every regular file that
// survives the exclude globs, the binary-extension filter, and the
// size limit. Unreadable entries are skipped, never fatal.
func (w *Walker) FilesToScan() ([]*FileInfo, error) {
	var files []*FileInfo

	err := filepath.WalkDir(w.Root, func(current string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			// One unreadable entry must not abort the walk
			logger.Debug().Err(walkErr).Str("path", current).Msg("Skipping unreadable entry")
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(w.Root, current)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if w.excluded(rel + "/") {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if w.excluded(rel) {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(rel))
		if _, binary := binaryExtensions[ext]; binary {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if w.MaxFileSize > 0 && info.Size() > w.MaxFileSize {
			logger.Debug().
				Str("path", rel).
				Int64("size", info.Size()).
				Msg("Skipping oversized file")
			return nil
		}

		files = append(files, &FileInfo{
			Path:         rel,
			AbsolutePath: current,
			Extension:    ext,
			Size:         info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

// excluded matches a relative path against the configured exclude
// globs. Directory paths carry a trailing slash so `**/dir/**` style
// globs prune the whole subtree.
func (w *Walker) excluded(rel string) bool {
	for _, p := range w.ExcludePatterns {
		if pattern.Glob(p, rel) {
			return true
		}
	}
	return false
}
