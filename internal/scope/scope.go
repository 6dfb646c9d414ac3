// Package scope implements the ScopeEnforcer of spec §4.4: it snapshots
// the git working tree before and after a phase's agent run, computes the
// delta, and checks it against the phase's allow-list.
//
// Git is shelled out to exactly the way the teacher shells out to the
// agent CLI and randalmurphal-orc's executor shells out to `gh` — a thin
// exec.CommandContext wrapper with CombinedOutput, no git library
// dependency appearing anywhere in the example corpus.
package scope

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/jorge-barreto/wreckit/internal/werr"
	"github.com/jorge-barreto/wreckit/internal/workitem"
)

// Phase names the allow-list is keyed on.
type Phase string

const (
	PhaseResearch    Phase = "research"
	PhasePlan        Phase = "plan"
	PhaseImplement   Phase = "implement"
	PhasePR          Phase = "pr"
	PhaseCritique    Phase = "critique"
)

// Enforcer captures filesystem snapshots via `git status --porcelain` and
// checks post-phase deltas against a per-phase allow-list.
type Enforcer struct {
	WorkDir string
}

// New returns an Enforcer rooted at workDir (the git repository root).
func New(workDir string) *Enforcer {
	return &Enforcer{WorkDir: workDir}
}

// Snapshot captures the current set of changed paths relative to HEAD.
func (e *Enforcer) Snapshot(ctx context.Context) (workitem.FilesystemSnapshot, error) {
	cmd := exec.CommandContext(ctx, "git", "status", "--porcelain")
	cmd.Dir = e.WorkDir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, werr.Wrap(werr.KindGitPreflight, err, "git status --porcelain failed: "+string(out))
	}
	return parsePorcelain(string(out)), nil
}

func parsePorcelain(out string) workitem.FilesystemSnapshot {
	var snap workitem.FilesystemSnapshot
	for _, line := range strings.Split(out, "\n") {
		if len(line) < 4 {
			continue
		}
		status := strings.TrimSpace(line[:2])
		path := strings.TrimSpace(line[3:])
		// renames are reported as "old -> new"; track the destination.
		if idx := strings.Index(path, " -> "); idx >= 0 {
			path = path[idx+4:]
		}
		snap = append(snap, workitem.FileChange{Status: status, Path: filepath.ToSlash(path)})
	}
	return snap
}

// AllowList returns the set of path prefixes a phase may modify. A nil
// slice means "no strict allow-list" (implement, pr).
func AllowList(phase Phase, itemID string) []string {
	switch phase {
	case PhaseResearch:
		return []string{fmt.Sprintf(".wreckit/items/%s/research.md", itemID)}
	case PhasePlan:
		return []string{
			fmt.Sprintf(".wreckit/items/%s/plan.md", itemID),
			fmt.Sprintf(".wreckit/items/%s/prd.json", itemID),
		}
	default:
		return nil
	}
}

// Check computes delta = after ∖ before and validates it against the
// phase's allow-list. Phases with no allow-list always pass (scope-creep
// warnings for implement are computed separately via ScopeCreepWarnings).
func Check(phase Phase, itemID string, before, after workitem.FilesystemSnapshot) error {
	allow := AllowList(phase, itemID)
	if allow == nil {
		return nil
	}
	delta := workitem.Diff(before, after)
	var offenders []string
	for _, path := range delta {
		if !allowed(path, allow) {
			offenders = append(offenders, path)
		}
	}
	if len(offenders) > 0 {
		return werr.New(werr.KindScopeViolation,
			fmt.Sprintf("phase %q modified disallowed path(s): %s", phase, strings.Join(offenders, ", ")))
	}
	return nil
}

func allowed(path string, allow []string) bool {
	for _, a := range allow {
		if path == a {
			return true
		}
	}
	return false
}

// ScopeCreepWarnings returns a non-fatal warning for every changed path,
// outside items/<id>/, that falls under the engine's metadata directory —
// the implement phase has no strict allow-list, but touching another
// item's files or the engine config is still worth flagging per §4.4.
func ScopeCreepWarnings(itemID string, before, after workitem.FilesystemSnapshot) []string {
	itemPrefix := fmt.Sprintf(".wreckit/items/%s/", itemID)
	const metaPrefix = ".wreckit/"
	var warnings []string
	for _, path := range workitem.Diff(before, after) {
		if strings.HasPrefix(path, itemPrefix) {
			continue
		}
		if strings.HasPrefix(path, metaPrefix) {
			warnings = append(warnings, fmt.Sprintf("scope-creep: implement phase modified %s outside its item directory", path))
		}
	}
	return warnings
}
