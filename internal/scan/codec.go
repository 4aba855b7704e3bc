package scan

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/wildicedemon/patrol/internal/logger"
	"github.com/wildicedemon/patrol/internal/match"
	"github.com/wildicedemon/patrol/internal/pattern"
)

// StateCodec translates scanner state to and from its on-disk form: a
// human-readable markdown document whose terminal ```json block holds
// the machine-readable payload. Decoding is best-effort by contract; a
// hand-edited or partially corrupted file degrades field by field to
// the initial-state defaults instead of failing.
type StateCodec struct{}

var (
	stateFencedJSON = regexp.MustCompile("(?s)```json\\s*(.*?)```")

	headerVersion    = regexp.MustCompile(`\*\*Version:\*\*\s*(\S+)`)
	headerCreated    = regexp.MustCompile(`\*\*Created:\*\*\s*(\S+)`)
	headerUpdated    = regexp.MustCompile(`\*\*Updated:\*\*\s*(\S+)`)
	headerTotalScans = regexp.MustCompile(`\*\*Total Scans:\*\*\s*(\d+)`)
	headerContinuous = regexp.MustCompile(`\*\*Continuous Mode:\*\*\s*(true|false)`)
	headerWorkspace  = regexp.MustCompile(`\*\*Workspace:\*\*\s*(.+)`)
)

// Encode renders the state document.
func (StateCodec) Encode(s *State) ([]byte, error) {
	payload, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scanner state: %w", err)
	}

	var b strings.Builder
	b.WriteString("# Scanner State\n\n")
	fmt.Fprintf(&b, "**Version:** %s\n", s.Version)
	fmt.Fprintf(&b, "**Created:** %s\n", s.CreatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "**Updated:** %s\n", s.UpdatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "**Total Scans:** %d\n", s.TotalScans)
	fmt.Fprintf(&b, "**Continuous Mode:** %t\n", s.ContinuousMode)
	fmt.Fprintf(&b, "**Workspace:** %s\n", s.WorkspacePath)

	b.WriteString("\n## Passes\n\n")
	for _, p := range pattern.AllPasses() {
		ps, ok := s.Passes[p]
		if !ok {
			continue
		}
		if !ps.Enabled {
			fmt.Fprintf(&b, "- **%s:** disabled\n", p)
			continue
		}
		if ps.LastRun.IsZero() {
			fmt.Fprintf(&b, "- **%s:** enabled, never run\n", p)
			continue
		}
		fmt.Fprintf(&b, "- **%s:** enabled, %d findings, last run %s, took %dms",
			p, ps.FindingsCount, ps.LastRun.UTC().Format(time.RFC3339), ps.LastDurationMS)
		if ps.Error != "" {
			fmt.Fprintf(&b, ", error: %s", ps.Error)
		}
		b.WriteByte('\n')
	}

	b.WriteString("\n## Last Findings\n\n")
	b.WriteString("```json\n")
	b.Write(payload)
	b.WriteString("\n```\n")

	return []byte(b.String()), nil
}

// Decode parses a state document. The ```json block is tried first as
// a full state object, then as a bare findings array; in the latter
// case the scalar fields are backfilled from the markdown headers.
func (StateCodec) Decode(data []byte) *State {
	state := NewState("")
	doc := string(data)

	var havePayload bool
	if m := stateFencedJSON.FindSubmatch(data); m != nil {
		var full State
		if err := json.Unmarshal(m[1], &full); err == nil && full.Version != "" {
			if full.Passes == nil {
				full.Passes = NewState("").Passes
			}
			return &full
		}

		var findings []match.Finding
		if err := json.Unmarshal(m[1], &findings); err == nil {
			state.LastFindings = findings
			havePayload = true
		}
	}
	if !havePayload {
		logger.Debug().Msg("State file has no usable JSON payload, recovering from headers")
	}

	// Header backfill: each field independently falls back to the
	// initial-state default
	if m := headerVersion.FindStringSubmatch(doc); m != nil {
		state.Version = m[1]
	}
	if m := headerCreated.FindStringSubmatch(doc); m != nil {
		if t, err := time.Parse(time.RFC3339, m[1]); err == nil {
			state.CreatedAt = t
		}
	}
	if m := headerUpdated.FindStringSubmatch(doc); m != nil {
		if t, err := time.Parse(time.RFC3339, m[1]); err == nil {
			state.UpdatedAt = t
		}
	}
	if m := headerTotalScans.FindStringSubmatch(doc); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			state.TotalScans = n
		}
	}
	if m := headerContinuous.FindStringSubmatch(doc); m != nil {
		state.ContinuousMode = m[1] == "true"
	}
	if m := headerWorkspace.FindStringSubmatch(doc); m != nil {
		state.WorkspacePath = strings.TrimSpace(m[1])
	}

	return state
}
