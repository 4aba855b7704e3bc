// Package match executes pattern definitions against file contents and
// produces severity-classified findings with precise locations.
package match

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wildicedemon/patrol/internal/pattern"
)

// Finding is one reported occurrence of a pattern match. Findings are
// immutable once created.
type Finding struct {
	ID          string           `json:"id"`
	Severity    pattern.Severity `json:"severity"`
	Message     string           `json:"message"`
	File        string           `json:"file"`
	Line        int              `json:"line"`
	Column      int              `json:"column"`
	Pass        pattern.Pass     `json:"pass"`
	CodeSnippet string           `json:"codeSnippet,omitempty"`
	Suggestion  string           `json:"suggestion,omitempty"`
	PatternID   string           `json:"patternId,omitempty"`
	Timestamp   time.Time        `json:"timestamp"`
}

func newFinding(def *pattern.Definition, file string, line, column int, severity pattern.Severity, snippet string) Finding {
	return Finding{
		ID:          uuid.NewString(),
		Severity:    severity,
		Message:     def.Name + ": " + def.Description,
		File:        file,
		Line:        line,
		Column:      column,
		Pass:        def.Pass,
		CodeSnippet: snippet,
		Suggestion:  def.Suggestion,
		PatternID:   def.ID,
		Timestamp:   time.Now().UTC(),
	}
}

// ResolveSeverity resolves a pattern's severity for one concrete match.
// The dynamic sentinel is decided from the matched text itself, so two
// matches of the same pattern may classify differently.
func ResolveSeverity(s pattern.Severity, matched string) pattern.Severity {
	if s != pattern.SeverityDynamic {
		return s
	}
	lower := strings.ToLower(matched)
	if strings.Contains(lower, "password") || strings.Contains(lower, "secret") {
		return pattern.SeverityCritical
	}
	return pattern.SeverityHigh
}

// lineColumn converts a byte offset into 1-based line and column
// coordinates within content.
func lineColumn(content string, offset int) (int, int) {
	line := 1 + strings.Count(content[:offset], "\n")
	column := offset + 1
	if idx := strings.LastIndexByte(content[:offset], '\n'); idx >= 0 {
		column = offset - idx
	}
	return line, column
}

// snippetWindow is the number of lines shown around a match.
const snippetWindow = 5

// snippet renders a small context window centered on the match line,
// with a caret indicator marking the matched line.
func snippet(content string, line int) string {
	lines := strings.Split(content, "\n")

	start := line - snippetWindow/2
	if start < 1 {
		start = 1
	}
	end := start + snippetWindow - 1
	if end > len(lines) {
		end = len(lines)
	}

	var b strings.Builder
	for n := start; n <= end; n++ {
		if n > start {
			b.WriteByte('\n')
		}
		if n == line {
			b.WriteString("> ")
		} else {
			b.WriteString("  ")
		}
		b.WriteString(lines[n-1])
	}
	return b.String()
}
