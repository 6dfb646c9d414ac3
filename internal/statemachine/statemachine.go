// Package statemachine implements the fixed seven-state workflow pipeline
// (idea -> researched -> planned -> implementing -> critique -> in_pr ->
// done, with critique able to regress to planned, and a direct-merge
// shortcut straight to done) and the legality checks each transition
// requires, per spec §4.1.
//
// The shape mirrors the teacher's own state.State — a small persisted
// struct with a Load/Save pair — but trades the teacher's single
// PhaseIndex int for a named State, since wreckit's pipeline is fixed
// rather than configured per-project.
package statemachine

import (
	"fmt"

	"github.com/jorge-barreto/wreckit/internal/werr"
	"github.com/jorge-barreto/wreckit/internal/workitem"
)

// MergeMode controls whether the planned/implementing/critique -> done
// direct-merge shortcut is reachable.
type MergeMode string

const (
	MergeModePR     MergeMode = "pr"
	MergeModeDirect MergeMode = "direct"
)

// transition describes one legal edge and the predicate that must hold.
type transition struct {
	from workitem.State
	to   workitem.State
}

// legalEdges enumerates every edge in the table from spec §4.1, excluding
// the configuration-gated direct-merge shortcut (checked separately).
var legalEdges = []transition{
	{workitem.StateIdea, workitem.StateResearched},
	{workitem.StateResearched, workitem.StatePlanned},
	{workitem.StatePlanned, workitem.StateImplementing},
	{workitem.StateImplementing, workitem.StateCritique},
	{workitem.StateCritique, workitem.StateInPR},
	{workitem.StateCritique, workitem.StatePlanned}, // critic rejection regression
	{workitem.StateInPR, workitem.StateDone},
}

// CanReach reports whether `to` is a direct successor of `from` in the
// fixed edge table (ignoring the direct-merge shortcut).
func CanReach(from, to workitem.State) bool {
	for _, e := range legalEdges {
		if e.from == from && e.to == to {
			return true
		}
	}
	return false
}

// directMergeEligible reports whether `from` may short-circuit to done
// under direct-merge mode, per the table's last row.
func directMergeEligible(from workitem.State) bool {
	switch from {
	case workitem.StatePlanned, workitem.StateImplementing, workitem.StateCritique:
		return true
	default:
		return false
	}
}

// CheckTransition validates a proposed from->to move against the legal
// edge table and the ValidationContext predicates in spec §4.1. force
// bypasses the "from state" check but never an artifact predicate.
func CheckTransition(from, to workitem.State, vc *workitem.ValidationContext, mode MergeMode, force bool) error {
	legal := CanReach(from, to)
	directShortcut := to == workitem.StateDone && mode == MergeModeDirect && directMergeEligible(from)

	if !legal && !directShortcut && !force {
		return werr.New(werr.KindPrecondition,
			fmt.Sprintf("illegal transition %s -> %s", from, to))
	}

	switch to {
	case workitem.StateResearched:
		if !vc.HasResearchMD {
			return werr.New(werr.KindPrecondition, "research.md does not exist")
		}
	case workitem.StatePlanned:
		if !vc.HasPlanMD {
			return werr.New(werr.KindPrecondition, "plan.md does not exist")
		}
		if vc.PRD == nil {
			return werr.New(werr.KindPrecondition, "prd.json does not exist")
		}
	case workitem.StateCritique:
		if from == workitem.StateImplementing && vc.PRD != nil && !vc.PRD.AllStoriesDone() {
			return werr.New(werr.KindPrecondition, "not all PRD stories are done")
		}
	case workitem.StateInPR:
		// critic-approved transition; no artifact predicate beyond legality.
	case workitem.StateDone:
		if mode == MergeModePR {
			if !vc.HasPR {
				return werr.New(werr.KindPrecondition, "no PR exists")
			}
			if !vc.PRMerged {
				return werr.New(werr.KindPrecondition, "PR is not merged")
			}
		}
	}
	return nil
}

// NextPhase maps a state to the phase that should run next, or "" for the
// terminal state, per spec §4.9.
func NextPhase(s workitem.State) string {
	switch s {
	case workitem.StateIdea:
		return "research"
	case workitem.StateResearched:
		return "plan"
	case workitem.StatePlanned:
		return "implement"
	case workitem.StateImplementing:
		return "critique"
	case workitem.StateCritique:
		return "pr"
	case workitem.StateInPR:
		return "complete"
	case workitem.StateDone:
		return ""
	default:
		return ""
	}
}
