package match

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/wildicedemon/patrol/internal/logger"
	"github.com/wildicedemon/patrol/internal/pattern"
)

// Strategy executes one match style for a pattern against a file's
// content. Implementations return zero or more findings.
type Strategy interface {
	Match(file, content string, def *pattern.Definition) ([]Finding, error)
}

// regexStrategy scans the whole content with the pattern's compiled
// regex and reports every occurrence.
type regexStrategy struct {
	cache *pattern.Cache
}

func (s *regexStrategy) Match(file, content string, def *pattern.Definition) ([]Finding, error) {
	if def.Pattern == "" {
		return nil, &Error{PatternID: def.ID, Err: errEmptyPattern}
	}

	re, err := s.cache.Regexp(def.Pattern)
	if err != nil {
		return nil, &Error{PatternID: def.ID, Err: err}
	}

	var findings []Finding
	for _, loc := range re.FindAllStringIndex(content, -1) {
		line, column := lineColumn(content, loc[0])
		severity := ResolveSeverity(def.Severity, content[loc[0]:loc[1]])
		findings = append(findings, newFinding(def, file, line, column, severity, snippet(content, line)))
	}
	return findings, nil
}

// astStrategy is a placeholder until real AST matching lands. It warns
// and yields nothing rather than failing, so hybrid patterns degrade
// to their regex half.
type astStrategy struct{}

func (astStrategy) Match(file, content string, def *pattern.Definition) ([]Finding, error) {
	logger.Warn().
		Str("pattern", def.ID).
		Msg("AST matching is not implemented, skipping")
	return nil, nil
}

// nestedFor matches a for-loop whose body opens with another for-loop
// before the block closes. Deliberately narrow: it is a textual
// heuristic, not a parse.
var nestedFor = regexp.MustCompile(`(?s)\bfor\b[^{]*\{[^{}]*?\bfor\b`)

// semanticStrategy holds the fixed heuristic rule set, keyed by
// pattern id. Unknown ids yield no findings.
type semanticStrategy struct{}

func (semanticStrategy) Match(file, content string, def *pattern.Definition) ([]Finding, error) {
	switch def.ID {
	case "large-file":
		const maxLines = 500
		if n := strings.Count(content, "\n") + 1; n > maxLines {
			f := newFinding(def, file, 1, 1, def.Severity, "")
			f.Message = def.Name + ": file has " + strconv.Itoa(n) + " lines (limit " + strconv.Itoa(maxLines) + ")"
			return []Finding{f}, nil
		}
		return nil, nil

	case "nested-loops":
		var findings []Finding
		for _, loc := range nestedFor.FindAllStringIndex(content, -1) {
			line, column := lineColumn(content, loc[0])
			findings = append(findings, newFinding(def, file, line, column, def.Severity, snippet(content, line)))
		}
		return findings, nil

	default:
		logger.Debug().
			Str("pattern", def.ID).
			Msg("No semantic heuristic registered for pattern")
		return nil, nil
	}
}

// hybridStrategy unions the regex and ast strategies on the same
// file/pattern. Until ast lands this reduces to the regex results.
type hybridStrategy struct {
	regex Strategy
	ast   Strategy
}

func (s *hybridStrategy) Match(file, content string, def *pattern.Definition) ([]Finding, error) {
	findings, err := s.regex.Match(file, content, def)
	if err != nil {
		return nil, err
	}

	astFindings, err := s.ast.Match(file, content, def)
	if err != nil {
		return nil, err
	}

	return append(findings, astFindings...), nil
}
