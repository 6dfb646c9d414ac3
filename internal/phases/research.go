package phases

import (
	"context"
	"strings"
	"time"

	"github.com/jorge-barreto/wreckit/internal/quality"
	"github.com/jorge-barreto/wreckit/internal/scope"
	"github.com/jorge-barreto/wreckit/internal/statemachine"
	"github.com/jorge-barreto/wreckit/internal/werr"
	"github.com/jorge-barreto/wreckit/internal/workitem"
)

// researchAllowedTools is the research phase's read-only + web-lookup
// tool allow-list, per spec §4.5.
var researchAllowedTools = []string{"Read", "Glob", "Grep", "WebFetch", "WebSearch"}

const maxQualityRetries = 3

// Research runs the research PhaseRunner of spec §4.7.1.
func (r *Runner) Research(ctx context.Context, item *workitem.Item, force bool) *workitem.PhaseResult {
	item = item.Clone()
	if item.State != workitem.StateIdea && !force {
		return &workitem.PhaseResult{Success: false, Item: item,
			Err: werr.New(werr.KindPrecondition, "research: item not in idea state")}
	}

	hasResearch := r.Artifacts.HasResearch(item.ID)
	if hasResearch && !force {
		item.State = workitem.StateResearched
		if err := r.Repo.SaveItem(item, time.Now()); err != nil {
			return &workitem.PhaseResult{Success: false, Item: item, Err: err}
		}
		return &workitem.PhaseResult{Success: true, Item: item}
	}

	itemDir := r.Repo.ItemDir(item.ID)
	vars := Vars(item, r.ProjectRoot, itemDir, projectContextVars(r.ProjectRoot))
	prompt, err := LoadTemplate(r.PromptsDir, "research", vars)
	if err != nil {
		return &workitem.PhaseResult{Success: false, Item: item, Err: werr.Wrap(werr.KindPrecondition, err, "loading research prompt")}
	}

	before, err := r.Scope.Snapshot(ctx)
	if err != nil {
		return &workitem.PhaseResult{Success: false, Item: item, Err: err}
	}

	var feedback []string
	var lastErr error

	for attempt := 1; attempt <= maxQualityRetries; attempt++ {
		attemptPrompt := appendFeedback(prompt, feedback)

		res, err := r.runAgent(ctx, r.ProjectRoot, attemptPrompt, r.baseTimeout(), researchAllowedTools, nil, nil)
		if err != nil {
			item.SetLastError(err.Error())
			return &workitem.PhaseResult{Success: false, Item: item, Err: werr.Wrap(werr.KindAgentFailure, err, "research agent invocation failed")}
		}
		if !res.Success {
			kind := werr.KindAgentFailure
			if res.TimedOut {
				kind = werr.KindAgentTimeout
			}
			wrapped := werr.New(kind, "research agent did not complete successfully")
			item.SetLastError(wrapped.Error())
			return &workitem.PhaseResult{Success: false, Item: item, Err: wrapped}
		}

		if !r.Artifacts.HasResearch(item.ID) {
			feedback = []string{"research.md was not produced"}
			lastErr = werr.New(werr.KindValidation, feedback[0])
			continue
		}

		content, err := r.Artifacts.ReadResearch(item.ID)
		if err != nil {
			return &workitem.PhaseResult{Success: false, Item: item, Err: err}
		}
		qr := quality.ValidateResearch(content)
		if !qr.Valid {
			feedback = qr.Errors
			lastErr = werr.New(werr.KindQualityGate, strings.Join(qr.Errors, "; "))
			continue
		}

		after, err := r.Scope.Snapshot(ctx)
		if err != nil {
			return &workitem.PhaseResult{Success: false, Item: item, Err: err}
		}
		if err := scope.Check(scope.PhaseResearch, item.ID, before, after); err != nil {
			item.SetLastError(err.Error())
			return &workitem.PhaseResult{Success: false, Item: item, Err: err}
		}

		vc := &workitem.ValidationContext{HasResearchMD: true}
		if err := statemachine.CheckTransition(item.State, workitem.StateResearched, vc, statemachine.MergeMode(r.Config.MergeMode), force); err != nil {
			item.SetLastError(err.Error())
			return &workitem.PhaseResult{Success: false, Item: item, Err: err}
		}

		item.State = workitem.StateResearched
		item.SetLastError("")
		if err := r.Repo.SaveItem(item, time.Now()); err != nil {
			return &workitem.PhaseResult{Success: false, Item: item, Err: err}
		}
		return &workitem.PhaseResult{Success: true, Item: item}
	}

	if lastErr == nil {
		lastErr = werr.New(werr.KindQualityGate, "research validation failed after retries")
	}
	item.SetLastError(lastErr.Error())
	if err := r.Repo.SaveItem(item, time.Now()); err != nil {
		return &workitem.PhaseResult{Success: false, Item: item, Err: err}
	}
	return &workitem.PhaseResult{Success: false, Item: item, Err: lastErr}
}
