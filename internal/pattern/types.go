// Package pattern defines the scanner's pattern repertoire: the named,
// versionable rules consulted during a scan, and the store that loads
// and caches them.
package pattern

import (
	"fmt"
	"time"
)

// Pass identifies one of the four fixed analysis categories.
type Pass string

const (
	PassAntiPatterns Pass = "anti-patterns"
	PassArchitecture Pass = "architecture"
	PassPerformance  Pass = "performance"
	PassSecurity     Pass = "security"
)

// AllPasses returns the passes in their canonical order.
func AllPasses() []Pass {
	return []Pass{PassAntiPatterns, PassArchitecture, PassPerformance, PassSecurity}
}

// ParsePass validates a pass name.
func ParsePass(s string) (Pass, error) {
	for _, p := range AllPasses() {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown pass %q (valid: anti-patterns, architecture, performance, security)", s)
}

// Severity classifies a finding. SeverityDynamic is a sentinel on
// pattern definitions; it is resolved per-match from the matched text
// and never appears on a finding.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
	SeverityDynamic  Severity = "dynamic"
)

// MatchType selects the match strategy for a pattern.
type MatchType string

const (
	MatchRegex    MatchType = "regex"
	MatchAST      MatchType = "ast"
	MatchSemantic MatchType = "semantic"
	MatchHybrid   MatchType = "hybrid"
)

// Definition is a single named rule.
type Definition struct {
	ID              string    `json:"id" yaml:"id"`
	Name            string    `json:"name" yaml:"name"`
	Description     string    `json:"description,omitempty" yaml:"description,omitempty"`
	Pass            Pass      `json:"pass" yaml:"pass"`
	Severity        Severity  `json:"severity" yaml:"severity"`
	MatchType       MatchType `json:"matchType" yaml:"match_type"`
	Pattern         string    `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	FilePatterns    []string  `json:"filePatterns,omitempty" yaml:"file_patterns,omitempty"`
	ExcludePatterns []string  `json:"excludePatterns,omitempty" yaml:"exclude_patterns,omitempty"`
	Suggestion      string    `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
	Enabled         bool      `json:"enabled" yaml:"enabled"`
}

// NeedsPattern reports whether the definition's match type requires a
// regex source.
func (d *Definition) NeedsPattern() bool {
	return d.MatchType == MatchRegex || d.MatchType == MatchHybrid
}

// Category groups related definitions.
type Category struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Patterns    []Definition `json:"patterns"`
}

// Repertoire is the versioned collection of pattern definitions. The
// flattened Patterns list is the authoritative lookup source; the
// categories exist for presentation.
type Repertoire struct {
	Version    string       `json:"version"`
	UpdatedAt  time.Time    `json:"updated_at"`
	Categories []Category   `json:"categories,omitempty"`
	Patterns   []Definition `json:"patterns"`
}

// Flatten rebuilds the flattened pattern list from the categories when
// it is empty, keeping the two views consistent.
func (r *Repertoire) Flatten() {
	if len(r.Patterns) > 0 {
		return
	}
	for _, c := range r.Categories {
		r.Patterns = append(r.Patterns, c.Patterns...)
	}
}

// ForPass returns the enabled definitions belonging to a pass.
func (r *Repertoire) ForPass(pass Pass) []Definition {
	var defs []Definition
	for _, d := range r.Patterns {
		if d.Pass == pass && d.Enabled {
			defs = append(defs, d)
		}
	}
	return defs
}

// Get looks up a definition by id.
func (r *Repertoire) Get(id string) *Definition {
	for i := range r.Patterns {
		if r.Patterns[i].ID == id {
			return &r.Patterns[i]
		}
	}
	return nil
}
