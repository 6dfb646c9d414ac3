package phases

import (
	"context"
	"strings"
	"time"

	"github.com/jorge-barreto/wreckit/internal/agent"
	"github.com/jorge-barreto/wreckit/internal/quality"
	"github.com/jorge-barreto/wreckit/internal/scope"
	"github.com/jorge-barreto/wreckit/internal/statemachine"
	"github.com/jorge-barreto/wreckit/internal/toolserver"
	"github.com/jorge-barreto/wreckit/internal/werr"
	"github.com/jorge-barreto/wreckit/internal/workitem"
)

// planAllowedTools is the plan phase's tool allow-list: everything research
// gets, plus Write for plan.md and the save_prd capture tool, per spec §4.5.
var planAllowedTools = []string{"Read", "Glob", "Grep", "WebFetch", "WebSearch", "Write", "save_prd"}

// Plan runs the plan PhaseRunner of spec §4.7.2.
func (r *Runner) Plan(ctx context.Context, item *workitem.Item, force bool) *workitem.PhaseResult {
	item = item.Clone()
	if item.State != workitem.StateResearched && !force {
		return &workitem.PhaseResult{Success: false, Item: item,
			Err: werr.New(werr.KindPrecondition, "plan: item not in researched state")}
	}

	if r.Artifacts.HasPlan(item.ID) && r.Repo.HasPRD(item.ID) && !force {
		item.State = workitem.StatePlanned
		if err := r.Repo.SaveItem(item, time.Now()); err != nil {
			return &workitem.PhaseResult{Success: false, Item: item, Err: err}
		}
		return &workitem.PhaseResult{Success: true, Item: item}
	}

	itemDir := r.Repo.ItemDir(item.ID)
	vars := Vars(item, r.ProjectRoot, itemDir, projectContextVars(r.ProjectRoot))
	prompt, err := LoadTemplate(r.PromptsDir, "plan", vars)
	if err != nil {
		return &workitem.PhaseResult{Success: false, Item: item, Err: werr.Wrap(werr.KindPrecondition, err, "loading plan prompt")}
	}

	before, err := r.Scope.Snapshot(ctx)
	if err != nil {
		return &workitem.PhaseResult{Success: false, Item: item, Err: err}
	}

	var feedback []string
	var lastErr error

	for attempt := 1; attempt <= maxQualityRetries; attempt++ {
		attemptPrompt := appendFeedback(prompt, feedback)
		savePRD := toolserver.NewSavePRD()

		res, err := r.runAgent(ctx, r.ProjectRoot, attemptPrompt, r.baseTimeout(), planAllowedTools,
			[]agent.ToolServer{savePRD}, nil)
		if err != nil {
			item.SetLastError(err.Error())
			return &workitem.PhaseResult{Success: false, Item: item, Err: werr.Wrap(werr.KindAgentFailure, err, "plan agent invocation failed")}
		}
		if !res.Success {
			kind := werr.KindAgentFailure
			if res.TimedOut {
				kind = werr.KindAgentTimeout
			}
			wrapped := werr.New(kind, "plan agent did not complete successfully")
			item.SetLastError(wrapped.Error())
			return &workitem.PhaseResult{Success: false, Item: item, Err: wrapped}
		}

		if !r.Artifacts.HasPlan(item.ID) {
			feedback = []string{"plan.md was not produced"}
			lastErr = werr.New(werr.KindValidation, feedback[0])
			continue
		}

		content, err := r.Artifacts.ReadPlan(item.ID)
		if err != nil {
			return &workitem.PhaseResult{Success: false, Item: item, Err: err}
		}
		pr := quality.ValidatePlan(content)
		if !pr.Valid {
			feedback = pr.Errors
			lastErr = werr.New(werr.KindQualityGate, strings.Join(pr.Errors, "; "))
			continue
		}

		prd := savePRD.Captured()
		if prd == nil {
			if savePRD.LastError() != nil {
				feedback = []string{savePRD.LastError().Error()}
			} else {
				feedback = []string{"save_prd was not called"}
			}
			lastErr = werr.New(werr.KindValidation, feedback[0])
			continue
		}

		sr := quality.ValidateStories(prd)
		if !sr.Valid {
			feedback = sr.Errors
			lastErr = werr.New(werr.KindQualityGate, strings.Join(sr.Errors, "; "))
			continue
		}

		expectedBranch := workitem.ExpectedBranchName(r.Config.BranchPrefix, item.ID)
		if prd.BranchName == "" {
			prd.BranchName = expectedBranch
		} else if prd.BranchName != expectedBranch {
			feedback = []string{"prd branch_name does not match the item's expected branch name"}
			lastErr = werr.New(werr.KindValidation, feedback[0])
			continue
		}
		prd.ID = item.ID

		if err := r.Repo.SavePRD(prd); err != nil {
			feedback = []string{err.Error()}
			lastErr = werr.Wrap(werr.KindValidation, err, "saving prd")
			continue
		}

		after, err := r.Scope.Snapshot(ctx)
		if err != nil {
			return &workitem.PhaseResult{Success: false, Item: item, Err: err}
		}
		if err := scope.Check(scope.PhasePlan, item.ID, before, after); err != nil {
			item.SetLastError(err.Error())
			return &workitem.PhaseResult{Success: false, Item: item, Err: err}
		}

		vc := &workitem.ValidationContext{HasResearchMD: true, HasPlanMD: true, PRD: prd}
		if err := statemachine.CheckTransition(item.State, workitem.StatePlanned, vc, statemachine.MergeMode(r.Config.MergeMode), force); err != nil {
			item.SetLastError(err.Error())
			return &workitem.PhaseResult{Success: false, Item: item, Err: err}
		}

		item.State = workitem.StatePlanned
		item.SetLastError("")
		if err := r.Repo.SaveItem(item, time.Now()); err != nil {
			return &workitem.PhaseResult{Success: false, Item: item, Err: err}
		}
		return &workitem.PhaseResult{Success: true, Item: item}
	}

	if lastErr == nil {
		lastErr = werr.New(werr.KindQualityGate, "plan validation failed after retries")
	}
	item.SetLastError(lastErr.Error())
	if err := r.Repo.SaveItem(item, time.Now()); err != nil {
		return &workitem.PhaseResult{Success: false, Item: item, Err: err}
	}
	return &workitem.PhaseResult{Success: false, Item: item, Err: lastErr}
}
