package match

import (
	"fmt"

	"github.com/wildicedemon/patrol/internal/logger"
	"github.com/wildicedemon/patrol/internal/pattern"
)

// Matcher runs every applicable pattern of a pass against a file. It
// dispatches to a fixed strategy per match type; the ast strategy is a
// documented placeholder.
type Matcher struct {
	store      *pattern.Store
	strategies map[pattern.MatchType]Strategy
}

// NewMatcher creates a matcher backed by the store's repertoire and
// regex cache.
func NewMatcher(store *pattern.Store) *Matcher {
	regex := &regexStrategy{cache: store.Cache()}
	ast := astStrategy{}

	return &Matcher{
		store: store,
		strategies: map[pattern.MatchType]Strategy{
			pattern.MatchRegex:    regex,
			pattern.MatchAST:      ast,
			pattern.MatchSemantic: semanticStrategy{},
			pattern.MatchHybrid:   &hybridStrategy{regex: regex, ast: ast},
		},
	}
}

// MatchFile runs every enabled pattern of the pass whose file filters
// admit the path. A pattern that fails (bad regex) is logged and
// skipped; the remaining patterns still contribute their findings.
func (m *Matcher) MatchFile(file, content string, pass pattern.Pass) ([]Finding, error) {
	defs, err := m.store.PatternsForPass(pass)
	if err != nil {
		return nil, err
	}

	var findings []Finding
	for i := range defs {
		def := &defs[i]
		if !m.applies(def, file) {
			continue
		}

		matched, err := m.MatchPattern(file, content, def)
		if err != nil {
			logger.Warn().
				Str("pattern", def.ID).
				Str("file", file).
				Err(err).
				Msg("Pattern failed, continuing with remaining patterns")
			continue
		}
		findings = append(findings, matched...)
	}

	return findings, nil
}

// MatchPattern executes a single pattern against a file's content. A
// broken regex yields a *Error tagged with the pattern's id.
func (m *Matcher) MatchPattern(file, content string, def *pattern.Definition) ([]Finding, error) {
	strategy, ok := m.strategies[def.MatchType]
	if !ok {
		return nil, &Error{PatternID: def.ID, Err: fmt.Errorf("unknown match type %q", def.MatchType)}
	}
	return strategy.Match(file, content, def)
}

// applies checks the pattern's own file filters against the
// workspace-relative path.
func (m *Matcher) applies(def *pattern.Definition, file string) bool {
	if len(def.FilePatterns) > 0 && !pattern.GlobAny(def.FilePatterns, file) {
		return false
	}
	if pattern.GlobAny(def.ExcludePatterns, file) {
		return false
	}
	return true
}
