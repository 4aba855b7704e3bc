package pattern

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/wildicedemon/patrol/internal/logger"
)

// fencedJSON extracts ```json code blocks from a markdown document
var fencedJSON = regexp.MustCompile("(?s)```json\\s*(.*?)```")

// Store loads the pattern repertoire from disk and serves lookups,
// backed by a TTL cache. A missing repertoire file is not an error:
// the built-in defaults are used instead.
type Store struct {
	path  string
	cache *Cache
}

// NewStore creates a store reading from path. A nil cache selects the
// process-wide shared cache.
func NewStore(path string, cache *Cache) *Store {
	if cache == nil {
		cache = SharedCache()
	}
	return &Store{path: path, cache: cache}
}

// Cache exposes the store's cache handle (shared with its matcher).
func (s *Store) Cache() *Cache {
	return s.cache
}

// Load returns the repertoire, reading it from disk when the cache is
// empty or stale.
func (s *Store) Load() (*Repertoire, error) {
	if r := s.cache.Repertoire(); r != nil {
		return r, nil
	}

	r, err := s.loadFromDisk()
	if err != nil {
		return nil, err
	}

	s.cache.StoreRepertoire(r)
	return r, nil
}

// PatternsForPass returns the enabled definitions for a pass.
func (s *Store) PatternsForPass(pass Pass) ([]Definition, error) {
	r, err := s.Load()
	if err != nil {
		return nil, err
	}
	return r.ForPass(pass), nil
}

// Get looks up a definition by id. Returns nil when absent.
func (s *Store) Get(id string) (*Definition, error) {
	r, err := s.Load()
	if err != nil {
		return nil, err
	}
	return r.Get(id), nil
}

// ClearCache drops the cached repertoire and compiled regexes, forcing
// a reload on next use.
func (s *Store) ClearCache() {
	s.cache.Clear()
}

func (s *Store) loadFromDisk() (*Repertoire, error) {
	if s.path == "" {
		return DefaultRepertoire(), nil
	}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		logger.Debug().
			Str("path", s.path).
			Msg("No repertoire file, using built-in defaults")
		return DefaultRepertoire(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load repertoire from %s: %w", s.path, err)
	}

	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load repertoire from %s: %w", s.path, err)
	}

	s.validate(r)
	return r, nil
}

// Parse decodes a persisted repertoire. Three shapes are accepted: a
// full repertoire JSON object, a raw JSON array of definitions, or a
// markdown document containing ```json blocks that each hold a single
// definition. Malformed markdown blocks are skipped, not fatal.
func Parse(data []byte) (*Repertoire, error) {
	// Full repertoire object
	var r Repertoire
	if err := json.Unmarshal(data, &r); err == nil {
		r.Flatten()
		if len(r.Patterns) > 0 {
			return &r, nil
		}
	}

	// Raw array of definitions
	var defs []Definition
	if err := json.Unmarshal(data, &defs); err == nil && len(defs) > 0 {
		return &Repertoire{
			Version:   DefaultRepertoireVersion,
			UpdatedAt: time.Now().UTC(),
			Patterns:  defs,
		}, nil
	}

	// Markdown with embedded pattern blocks
	blocks := fencedJSON.FindAllSubmatch(data, -1)
	if len(blocks) == 0 {
		return nil, fmt.Errorf("unrecognized repertoire format")
	}

	var patterns []Definition
	for _, block := range blocks {
		var d Definition
		if err := json.Unmarshal(block[1], &d); err != nil {
			logger.Debug().Err(err).Msg("Skipping unparseable pattern block")
			continue
		}
		if d.ID == "" || d.Name == "" || d.Pass == "" {
			logger.Debug().
				Str("id", d.ID).
				Msg("Skipping incomplete pattern block")
			continue
		}
		patterns = append(patterns, d)
	}

	if len(patterns) == 0 {
		return nil, fmt.Errorf("no valid pattern blocks found")
	}

	return &Repertoire{
		Version:   DefaultRepertoireVersion,
		UpdatedAt: time.Now().UTC(),
		Patterns:  patterns,
	}, nil
}

// validate pre-compiles regex patterns to surface configuration errors
// at load time. A bad regex disqualifies only its own pattern; matching
// later reports it as a per-pattern error.
func (s *Store) validate(r *Repertoire) {
	for i := range r.Patterns {
		d := &r.Patterns[i]
		if !d.NeedsPattern() || !d.Enabled {
			continue
		}
		if d.Pattern == "" {
			logger.Warn().
				Str("pattern", d.ID).
				Msg("Pattern requires a regex source but has none")
			continue
		}
		if _, err := s.cache.Regexp(d.Pattern); err != nil {
			logger.Warn().
				Str("pattern", d.ID).
				Err(err).
				Msg("Pattern has an invalid regex")
		}
	}
}
