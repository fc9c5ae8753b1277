// Package workflow maps item states to pipeline phases. It has no side
// effects; the phase engine and the orchestrator both route through it.
package workflow

import (
	"fmt"
	"strings"

	"github.com/thruflo/wreckit/internal/state"
)

// Phase is one step of the pipeline.
type Phase string

// Pipeline phases, in order.
const (
	PhaseResearch  Phase = "research"
	PhasePlan      Phase = "plan"
	PhaseImplement Phase = "implement"
	PhasePR        Phase = "pr"
	PhaseComplete  Phase = "complete"
)

// Phases lists every phase in pipeline order.
var Phases = []Phase{PhaseResearch, PhasePlan, PhaseImplement, PhasePR, PhaseComplete}

// Transition describes which states a phase may start from and the state
// it leaves the item in.
type Transition struct {
	From []state.ItemState
	To   state.ItemState
}

// Allows reports whether the phase may start from s.
func (t Transition) Allows(s state.ItemState) bool {
	for _, f := range t.From {
		if f == s {
			return true
		}
	}
	return false
}

var transitions = map[Phase]Transition{
	PhaseResearch:  {From: []state.ItemState{state.StateRaw}, To: state.StateResearched},
	PhasePlan:      {From: []state.ItemState{state.StateResearched}, To: state.StatePlanned},
	PhaseImplement: {From: []state.ItemState{state.StatePlanned, state.StateImplementing}, To: state.StateImplementing},
	PhasePR:        {From: []state.ItemState{state.StateImplementing}, To: state.StateInPR},
	PhaseComplete:  {From: []state.ItemState{state.StateInPR}, To: state.StateDone},
}

var next = map[state.ItemState]Phase{
	state.StateRaw:          PhaseResearch,
	state.StateResearched:   PhasePlan,
	state.StatePlanned:      PhaseImplement,
	state.StateImplementing: PhasePR,
	state.StateInPR:         PhaseComplete,
	state.StateDone:         "",
}

// UnknownStateError is returned for a state outside the pipeline.
type UnknownStateError struct {
	State state.ItemState
}

func (e *UnknownStateError) Error() string {
	return fmt.Sprintf("unknown item state %q", e.State)
}

// NextPhase returns the phase to run for an item in state s. A done item
// returns "" with no error.
func NextPhase(s state.ItemState) (Phase, error) {
	p, ok := next[s]
	if !ok {
		return "", &UnknownStateError{State: s}
	}
	return p, nil
}

// Remaining lists the phases still ahead of an item in state s.
func Remaining(s state.ItemState) ([]Phase, error) {
	p, err := NextPhase(s)
	if err != nil {
		return nil, err
	}
	if p == "" {
		return nil, nil
	}
	for i, ph := range Phases {
		if ph == p {
			return append([]Phase(nil), Phases[i:]...), nil
		}
	}
	return nil, nil
}

// TransitionFor returns the transition rule of a phase.
func TransitionFor(p Phase) (Transition, error) {
	t, ok := transitions[p]
	if !ok {
		return Transition{}, fmt.Errorf("unknown phase %q", p)
	}
	return t, nil
}

// ParsePhase validates a phase name from user input.
func ParsePhase(s string) (Phase, error) {
	p := Phase(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := transitions[p]; !ok {
		names := make([]string, len(Phases))
		for i, ph := range Phases {
			names[i] = string(ph)
		}
		return "", fmt.Errorf("unknown phase %q (expected one of %s)", s, strings.Join(names, ", "))
	}
	return p, nil
}

func (p Phase) String() string {
	return string(p)
}
