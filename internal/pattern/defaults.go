package pattern

import "time"

// DefaultRepertoireVersion is stamped on the built-in repertoire.
const DefaultRepertoireVersion = "1.0.0"

// DefaultRepertoire returns the built-in pattern set used when no
// repertoire file exists: one category per pass with a small number of
// broadly applicable rules.
func DefaultRepertoire() *Repertoire {
	categories := []Category{
		{
			ID:          "anti-patterns",
			Name:        "Anti-Patterns",
			Description: "Common coding anti-patterns",
			Patterns: []Definition{
				{
					ID:          "eval-usage",
					Name:        "Eval Usage",
					Description: "Use of eval() on dynamic input",
					Pass:        PassAntiPatterns,
					Severity:    SeverityHigh,
					MatchType:   MatchRegex,
					Pattern:     `\beval\s*\(`,
					Suggestion:  "Avoid eval; parse input explicitly or use a safe lookup table",
					Enabled:     true,
				},
				{
					ID:          "empty-catch",
					Name:        "Empty Catch Block",
					Description: "Exception swallowed without handling",
					Pass:        PassAntiPatterns,
					Severity:    SeverityMedium,
					MatchType:   MatchRegex,
					Pattern:     `catch\s*(\([^)]*\))?\s*\{\s*\}`,
					Suggestion:  "Handle the error or at least log it",
					Enabled:     true,
				},
				{
					ID:          "todo-comment",
					Name:        "TODO Comment",
					Description: "Leftover TODO/FIXME/HACK marker",
					Pass:        PassAntiPatterns,
					Severity:    SeverityInfo,
					MatchType:   MatchRegex,
					Pattern:     `(?://|#|/\*)\s*(?:TODO|FIXME|HACK)\b`,
					Enabled:     true,
				},
			},
		},
		{
			ID:          "architecture",
			Name:        "Architecture",
			Description: "Structural and layering smells",
			Patterns: []Definition{
				{
					ID:          "large-file",
					Name:        "Large File",
					Description: "File exceeds 500 lines",
					Pass:        PassArchitecture,
					Severity:    SeverityInfo,
					MatchType:   MatchSemantic,
					Suggestion:  "Split the file into smaller, focused modules",
					Enabled:     true,
				},
				{
					ID:          "wildcard-import",
					Name:        "Wildcard Import",
					Description: "Imports an entire namespace",
					Pass:        PassArchitecture,
					Severity:    SeverityLow,
					MatchType:   MatchRegex,
					Pattern:     `import\s+\*\s+(?:as\s+\w+\s+)?from`,
					Suggestion:  "Import the specific symbols you use",
					Enabled:     true,
				},
			},
		},
		{
			ID:          "performance",
			Name:        "Performance",
			Description: "Likely performance hazards",
			Patterns: []Definition{
				{
					ID:          "nested-loops",
					Name:        "Nested Loops",
					Description: "Loop nested directly inside another loop",
					Pass:        PassPerformance,
					Severity:    SeverityMedium,
					MatchType:   MatchSemantic,
					Suggestion:  "Consider restructuring to avoid quadratic iteration",
					Enabled:     true,
				},
				{
					ID:          "sync-io",
					Name:        "Synchronous I/O",
					Description: "Blocking filesystem call on a hot path",
					Pass:        PassPerformance,
					Severity:    SeverityMedium,
					MatchType:   MatchRegex,
					Pattern:     `\b(?:readFileSync|writeFileSync|existsSync|execSync)\s*\(`,
					Suggestion:  "Use the async variant",
					Enabled:     true,
				},
			},
		},
		{
			ID:          "security",
			Name:        "Security",
			Description: "Potential security issues",
			Patterns: []Definition{
				{
					ID:          "hardcoded-secret",
					Name:        "Hardcoded Secret",
					Description: "Credential-looking literal assigned in source",
					Pass:        PassSecurity,
					Severity:    SeverityDynamic,
					MatchType:   MatchRegex,
					Pattern:     `(?i)(?:password|passwd|secret|token|api[_-]?key|key)\s*[:=]\s*["'][^"']{8,}["']`,
					Suggestion:  "Move the value to the environment or a secret manager",
					Enabled:     true,
				},
				{
					ID:          "sql-concat",
					Name:        "SQL String Concatenation",
					Description: "SQL statement built by string concatenation",
					Pass:        PassSecurity,
					Severity:    SeverityHigh,
					MatchType:   MatchRegex,
					Pattern:     `(?i)["'](?:SELECT|INSERT|UPDATE|DELETE)\b[^"']*["']\s*\+`,
					Suggestion:  "Use parameterized queries",
					Enabled:     true,
				},
				{
					ID:              "insecure-url",
					Name:            "Insecure URL",
					Description:     "Plain-HTTP URL in source",
					Pass:            PassSecurity,
					Severity:        SeverityLow,
					MatchType:       MatchRegex,
					Pattern:         `http://[^\s"'<>]+`,
					ExcludePatterns: []string{"**/*.md"},
					Suggestion:      "Prefer https",
					Enabled:         true,
				},
			},
		},
	}

	r := &Repertoire{
		Version:    DefaultRepertoireVersion,
		UpdatedAt:  time.Now().UTC(),
		Categories: categories,
	}
	r.Flatten()
	return r
}
