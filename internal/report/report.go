// Package report renders aggregated findings for the CLI: plain text,
// JSON, and SARIF 2.1.0.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/wildicedemon/patrol/internal/match"
	"github.com/wildicedemon/patrol/internal/pattern"
)

// Format names an output renderer.
type Format string

const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatSARIF Format = "sarif"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatText, FormatJSON, FormatSARIF:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown report format %q (valid: text, json, sarif)", s)
	}
}

// Write renders findings in the requested format.
func Write(w io.Writer, format Format, findings []match.Finding, repertoire *pattern.Repertoire) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, findings)
	case FormatSARIF:
		return writeSARIF(w, findings, repertoire)
	default:
		return writeText(w, findings)
	}
}

func writeJSON(w io.Writer, findings []match.Finding) error {
	if findings == nil {
		findings = []match.Finding{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(findings)
}

func writeText(w io.Writer, findings []match.Finding) error {
	if len(findings) == 0 {
		_, err := fmt.Fprintln(w, "No findings.")
		return err
	}

	byFile := make(map[string][]match.Finding)
	var files []string
	for _, f := range findings {
		if _, seen := byFile[f.File]; !seen {
			files = append(files, f.File)
		}
		byFile[f.File] = append(byFile[f.File], f)
	}
	sort.Strings(files)

	for _, file := range files {
		fs := byFile[file]
		sort.Slice(fs, func(i, j int) bool {
			ri, rj := SeverityRank(fs[i].Severity), SeverityRank(fs[j].Severity)
			if ri != rj {
				return ri < rj
			}
			if fs[i].Line != fs[j].Line {
				return fs[i].Line < fs[j].Line
			}
			return fs[i].Column < fs[j].Column
		})

		fmt.Fprintf(w, "%s\n", file)
		for _, f := range fs {
			fmt.Fprintf(w, "  %d:%d  [%s] %s", f.Line, f.Column, f.Severity, f.Message)
			if f.PatternID != "" {
				fmt.Fprintf(w, " (%s)", f.PatternID)
			}
			fmt.Fprintln(w)
			if f.Suggestion != "" {
				fmt.Fprintf(w, "         suggestion: %s\n", f.Suggestion)
			}
		}
		fmt.Fprintln(w)
	}

	_, err := fmt.Fprintf(w, "%s across %d %s\n",
		plural(len(findings), "finding"), len(byFile), pluralNoun(len(byFile), "file"))
	return err
}

func writeSARIF(w io.Writer, findings []match.Finding, repertoire *pattern.Repertoire) error {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return fmt.Errorf("failed to create SARIF report: %w", err)
	}

	run := sarif.NewRunWithInformationURI("patrol", "https://github.com/wildicedemon/patrol")
	seenRules := make(map[string]bool)

	for _, f := range findings {
		ruleID := f.PatternID
		if ruleID == "" {
			ruleID = "patrol-unclassified"
		}

		if !seenRules[ruleID] {
			seenRules[ruleID] = true
			description := f.Message
			if repertoire != nil {
				if def := repertoire.Get(f.PatternID); def != nil {
					description = def.Description
				}
			}
			run.AddRule(ruleID).
				WithDescription(description).
				WithDefaultConfiguration(&sarif.ReportingConfiguration{
					Level: sarifLevel(f.Severity),
				})
		}

		location := sarif.NewLocation().WithPhysicalLocation(
			sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewArtifactLocation().WithUri(f.File)).
				WithRegion(sarif.NewRegion().
					WithStartLine(f.Line).
					WithStartColumn(f.Column)),
		)

		result := sarif.NewRuleResult(ruleID).
			WithMessage(sarif.NewTextMessage(f.Message)).
			WithLevel(sarifLevel(f.Severity)).
			WithLocations([]*sarif.Location{location})
		run.AddResult(result)
	}

	report.AddRun(run)
	return report.PrettyWrite(w)
}

func sarifLevel(s pattern.Severity) string {
	switch s {
	case pattern.SeverityCritical, pattern.SeverityHigh:
		return "error"
	case pattern.SeverityMedium:
		return "warning"
	default:
		return "note"
	}
}

// Summary is a one-line scan summary for log and CLI output.
func Summary(findings []match.Finding, scannedBytes uint64) string {
	if scannedBytes > 0 {
		return fmt.Sprintf("%s (%s scanned)", plural(len(findings), "finding"), humanize.Bytes(scannedBytes))
	}
	return plural(len(findings), "finding")
}

func plural(n int, noun string) string {
	return fmt.Sprintf("%d %s", n, pluralNoun(n, noun))
}

func pluralNoun(n int, noun string) string {
	if n == 1 {
		return noun
	}
	return noun + "s"
}

// SeverityRank orders severities from most to least severe, for
// sorting output.
func SeverityRank(s pattern.Severity) int {
	switch s {
	case pattern.SeverityCritical:
		return 0
	case pattern.SeverityHigh:
		return 1
	case pattern.SeverityMedium:
		return 2
	case pattern.SeverityLow:
		return 3
	default:
		return 4
	}
}
