package match

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wildicedemon/patrol/internal/pattern"
)

func storeWith(t *testing.T, defs string) *pattern.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "patterns.json")
	if err := os.WriteFile(path, []byte(defs), 0644); err != nil {
		t.Fatalf("failed to write repertoire: %v", err)
	}
	return pattern.NewStore(path, pattern.NewCache(time.Minute))
}

func TestMatchPatternInvalidRegex(t *testing.T) {
	m := NewMatcher(storeWith(t, `[]`))
	def := &pattern.Definition{
		ID:        "broken",
		Name:      "Broken",
		Pass:      pattern.PassSecurity,
		Severity:  pattern.SeverityHigh,
		MatchType: pattern.MatchRegex,
		Pattern:   "[invalid",
		Enabled:   true,
	}

	_, err := m.MatchPattern("a.ts", "content", def)
	if err == nil {
		t.Fatal("expected an error for an invalid regex")
	}

	var matchErr *Error
	if !errors.As(err, &matchErr) {
		t.Fatalf("expected a *match.Error, got %T", err)
	}
	if matchErr.PatternID != "broken" {
		t.Errorf("error pattern id = %q, want %q", matchErr.PatternID, "broken")
	}
}

func TestMatchFileContinuesPastBrokenPattern(t *testing.T) {
	store := storeWith(t, `[
		{"id": "broken", "name": "Broken", "pass": "security", "severity": "high", "matchType": "regex", "pattern": "[invalid", "enabled": true},
		{"id": "eval", "name": "Eval", "pass": "security", "severity": "high", "matchType": "regex", "pattern": "\\beval\\s*\\(", "enabled": true}
	]`)
	m := NewMatcher(store)

	findings, err := m.MatchFile("a.js", `eval("1+1")`, pattern.PassSecurity)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1 from the valid pattern", len(findings))
	}
	if findings[0].PatternID != "eval" {
		t.Errorf("finding pattern = %q, want %q", findings[0].PatternID, "eval")
	}
}

func TestRegexFindingCoordinates(t *testing.T) {
	store := storeWith(t, `[
		{"id": "marker", "name": "Marker", "pass": "anti-patterns", "severity": "low", "matchType": "regex", "pattern": "NEEDLE\\w*", "enabled": true}
	]`)
	m := NewMatcher(store)

	content := "first line\nsecond NEEDLE1 here\nthird\n  NEEDLE22\n"
	findings, err := m.MatchFile("f.txt", content, pattern.PassAntiPatterns)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(findings) != 2 {
		t.Fatalf("got %d findings, want 2", len(findings))
	}

	lines := strings.Split(content, "\n")
	wantMatches := []string{"NEEDLE1", "NEEDLE22"}
	for i, f := range findings {
		if f.Line < 1 || f.Column < 1 {
			t.Fatalf("coordinates must be 1-based, got %d:%d", f.Line, f.Column)
		}
		// Re-slicing the content at the reported coordinates must land
		// exactly on the matched substring
		sliced := lines[f.Line-1][f.Column-1:]
		if !strings.HasPrefix(sliced, wantMatches[i]) {
			t.Errorf("finding %d: content at %d:%d = %q, want prefix %q", i, f.Line, f.Column, sliced, wantMatches[i])
		}
	}

	if findings[0].Line != 2 || findings[1].Line != 4 {
		t.Errorf("got lines %d and %d, want 2 and 4", findings[0].Line, findings[1].Line)
	}
}

func TestRegexFindingSnippet(t *testing.T) {
	store := storeWith(t, `[
		{"id": "marker", "name": "Marker", "pass": "anti-patterns", "severity": "low", "matchType": "regex", "pattern": "NEEDLE", "enabled": true}
	]`)
	m := NewMatcher(store)

	content := "l1\nl2\nl3\nl4 NEEDLE\nl5\nl6\nl7\n"
	findings, err := m.MatchFile("f.txt", content, pattern.PassAntiPatterns)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1", len(findings))
	}

	snippet := findings[0].CodeSnippet
	if !strings.Contains(snippet, "> l4 NEEDLE") {
		t.Errorf("snippet missing caret-marked match line:\n%s", snippet)
	}
	if !strings.Contains(snippet, "  l3") || !strings.Contains(snippet, "  l5") {
		t.Errorf("snippet missing context lines:\n%s", snippet)
	}
	if strings.Contains(snippet, "l7") {
		t.Errorf("snippet window too wide:\n%s", snippet)
	}
}

func TestDynamicSeverityResolvedPerMatch(t *testing.T) {
	store := storeWith(t, `[
		{"id": "secretish", "name": "Secretish", "pass": "security", "severity": "dynamic", "matchType": "regex", "pattern": "(?i)(password|token)\\s*=\\s*\"[^\"]+\"", "enabled": true}
	]`)
	m := NewMatcher(store)

	content := "password = \"hunter2hunter2\"\ntoken = \"abcdefgh\"\n"
	findings, err := m.MatchFile("cfg.ini", content, pattern.PassSecurity)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(findings) != 2 {
		t.Fatalf("got %d findings, want 2", len(findings))
	}

	// Same pattern, different severities: the matched text decides
	if findings[0].Severity != pattern.SeverityCritical {
		t.Errorf("password match severity = %q, want critical", findings[0].Severity)
	}
	if findings[1].Severity != pattern.SeverityHigh {
		t.Errorf("token match severity = %q, want high", findings[1].Severity)
	}
}

func TestResolveSeverity(t *testing.T) {
	tests := []struct {
		name     string
		severity pattern.Severity
		matched  string
		want     pattern.Severity
	}{
		{"fixed severity passes through", pattern.SeverityMedium, "password = 1", pattern.SeverityMedium},
		{"dynamic with password", pattern.SeverityDynamic, `key = "PASSWORD123"`, pattern.SeverityCritical},
		{"dynamic with secret", pattern.SeverityDynamic, `mySecret = "x"`, pattern.SeverityCritical},
		{"dynamic without keywords", pattern.SeverityDynamic, `token = "x"`, pattern.SeverityHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveSeverity(tt.severity, tt.matched); got != tt.want {
				t.Errorf("ResolveSeverity(%q, %q) = %q, want %q", tt.severity, tt.matched, got, tt.want)
			}
		})
	}
}

func TestSemanticLargeFile(t *testing.T) {
	store := storeWith(t, `[
		{"id": "large-file", "name": "Large File", "pass": "architecture", "severity": "info", "matchType": "semantic", "enabled": true}
	]`)
	m := NewMatcher(store)

	tests := []struct {
		name  string
		lines int
		want  int
	}{
		{"at the limit", 500, 0},
		{"one over the limit", 501, 1},
		{"small file", 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := strings.TrimSuffix(strings.Repeat("x\n", tt.lines), "\n")
			findings, err := m.MatchFile("big.go", content, pattern.PassArchitecture)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(findings) != tt.want {
				t.Fatalf("got %d findings, want %d", len(findings), tt.want)
			}
			if tt.want == 1 {
				f := findings[0]
				if f.Line != 1 || f.Column != 1 {
					t.Errorf("large-file finding at %d:%d, want 1:1", f.Line, f.Column)
				}
				if f.Severity != pattern.SeverityInfo {
					t.Errorf("severity = %q, want info", f.Severity)
				}
			}
		})
	}
}

func TestSemanticNestedLoops(t *testing.T) {
	store := storeWith(t, `[
		{"id": "nested-loops", "name": "Nested Loops", "pass": "performance", "severity": "medium", "matchType": "semantic", "enabled": true}
	]`)
	m := NewMatcher(store)

	content := "for (let i = 0; i < n; i++) {\n  for (let j = 0; j < n; j++) {\n    work(i, j);\n  }\n}\n"
	findings, err := m.MatchFile("loop.js", content, pattern.PassPerformance)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1", len(findings))
	}
	if findings[0].Line != 1 {
		t.Errorf("nested-loops finding at line %d, want 1", findings[0].Line)
	}

	flat := "for (let i = 0; i < n; i++) {\n  work(i);\n}\nfor (let j = 0; j < n; j++) {\n  work(j);\n}\n"
	findings, err = m.MatchFile("flat.js", flat, pattern.PassPerformance)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(findings) != 0 {
		t.Errorf("got %d findings for sequential loops, want 0", len(findings))
	}
}

func TestSemanticUnknownIDYieldsNothing(t *testing.T) {
	store := storeWith(t, `[
		{"id": "made-up-heuristic", "name": "Made Up", "pass": "architecture", "severity": "low", "matchType": "semantic", "enabled": true}
	]`)
	m := NewMatcher(store)

	findings, err := m.MatchFile("f.go", "anything", pattern.PassArchitecture)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(findings) != 0 {
		t.Errorf("got %d findings for an unknown semantic id, want 0", len(findings))
	}
}

func TestASTIsAPlaceholder(t *testing.T) {
	m := NewMatcher(storeWith(t, `[]`))
	def := &pattern.Definition{
		ID:        "ast-rule",
		Name:      "AST Rule",
		Pass:      pattern.PassArchitecture,
		Severity:  pattern.SeverityLow,
		MatchType: pattern.MatchAST,
		Enabled:   true,
	}

	findings, err := m.MatchPattern("f.go", "package main", def)
	if err != nil {
		t.Fatalf("ast placeholder must not error, got: %v", err)
	}
	if len(findings) != 0 {
		t.Errorf("ast placeholder must yield no findings, got %d", len(findings))
	}
}

func TestHybridReducesToRegex(t *testing.T) {
	m := NewMatcher(storeWith(t, `[]`))
	def := &pattern.Definition{
		ID:        "hybrid-eval",
		Name:      "Hybrid Eval",
		Pass:      pattern.PassSecurity,
		Severity:  pattern.SeverityHigh,
		MatchType: pattern.MatchHybrid,
		Pattern:   `\beval\s*\(`,
		Enabled:   true,
	}

	findings, err := m.MatchPattern("f.js", `eval("x"); eval("y")`, def)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(findings) != 2 {
		t.Errorf("got %d findings, want 2 from the regex half", len(findings))
	}
}

func TestUnknownMatchType(t *testing.T) {
	m := NewMatcher(storeWith(t, `[]`))
	def := &pattern.Definition{
		ID:        "weird",
		Name:      "Weird",
		Pass:      pattern.PassSecurity,
		MatchType: "quantum",
		Enabled:   true,
	}

	if _, err := m.MatchPattern("f.go", "x", def); err == nil {
		t.Fatal("expected an error for an unknown match type")
	}
}

func TestFilePatternFilters(t *testing.T) {
	store := storeWith(t, `[
		{"id": "ts-only", "name": "TS Only", "pass": "security", "severity": "high", "matchType": "regex", "pattern": "NEEDLE", "filePatterns": ["**/*.ts"], "enabled": true},
		{"id": "no-tests", "name": "No Tests", "pass": "security", "severity": "high", "matchType": "regex", "pattern": "NEEDLE", "excludePatterns": ["**/*_test.go"], "enabled": true}
	]`)
	m := NewMatcher(store)

	tests := []struct {
		name string
		file string
		want []string
	}{
		{"ts file matches both", "src/app.ts", []string{"ts-only", "no-tests"}},
		{"go file matches only the unrestricted rule", "main.go", []string{"no-tests"}},
		{"test file excluded from no-tests", "engine_test.go", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings, err := m.MatchFile(tt.file, "NEEDLE", pattern.PassSecurity)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			var got []string
			for _, f := range findings {
				got = append(got, f.PatternID)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got patterns %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got patterns %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestFindingsAreUnique(t *testing.T) {
	store := storeWith(t, `[
		{"id": "marker", "name": "Marker", "pass": "anti-patterns", "severity": "low", "matchType": "regex", "pattern": "x", "enabled": true}
	]`)
	m := NewMatcher(store)

	findings, err := m.MatchFile("f.txt", "x x x", pattern.PassAntiPatterns)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seen := make(map[string]bool)
	for _, f := range findings {
		if f.ID == "" {
			t.Fatal("finding has an empty id")
		}
		if seen[f.ID] {
			t.Fatalf("duplicate finding id %q", f.ID)
		}
		seen[f.ID] = true
	}
}
