package scan

import (
	"time"

	"github.com/wildicedemon/patrol/internal/match"
	"github.com/wildicedemon/patrol/internal/pattern"
)

// StateVersion is stamped on newly created scanner state.
const StateVersion = "1.0.0"

// PassState is the per-pass slice of the scanner state.
type PassState struct {
	Enabled        bool      `json:"enabled"`
	LastRun        time.Time `json:"lastRun,omitzero"`
	FindingsCount  int       `json:"findingsCount"`
	LastDurationMS int64     `json:"lastDurationMs"`
	Error          string    `json:"error,omitempty"`
}

// State is the orchestrator's persisted state. It is mutated in place
// by the engine and flushed to disk after every completed scan.
type State struct {
	Version        string                      `json:"version"`
	CreatedAt      time.Time                   `json:"created_at"`
	UpdatedAt      time.Time                   `json:"updated_at"`
	TotalScans     int                         `json:"totalScans"`
	Passes         map[pattern.Pass]*PassState `json:"passes"`
	LastFindings   []match.Finding             `json:"lastFindings"`
	ContinuousMode bool                        `json:"continuousMode"`
	WorkspacePath  string                      `json:"workspacePath"`
}

// NewState returns the initial state for a workspace.
func NewState(workspace string) *State {
	now := time.Now().UTC()
	passes := make(map[pattern.Pass]*PassState, len(pattern.AllPasses()))
	for _, p := range pattern.AllPasses() {
		passes[p] = &PassState{Enabled: true}
	}
	return &State{
		Version:       StateVersion,
		CreatedAt:     now,
		UpdatedAt:     now,
		Passes:        passes,
		WorkspacePath: workspace,
	}
}

// Pass returns the state slice for a pass, creating it on first use.
func (s *State) Pass(p pattern.Pass) *PassState {
	if s.Passes == nil {
		s.Passes = make(map[pattern.Pass]*PassState)
	}
	ps, ok := s.Passes[p]
	if !ok {
		ps = &PassState{Enabled: true}
		s.Passes[p] = ps
	}
	return ps
}
