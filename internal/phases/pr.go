package phases

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jorge-barreto/wreckit/internal/config"
	"github.com/jorge-barreto/wreckit/internal/gitint"
	"github.com/jorge-barreto/wreckit/internal/statemachine"
	"github.com/jorge-barreto/wreckit/internal/werr"
	"github.com/jorge-barreto/wreckit/internal/workitem"
)

// prAllowedTools is the pr phase's tool allow-list: read-only plus the
// shell, for gathering the diff it describes, per spec §4.5.
var prAllowedTools = []string{"Read", "Glob", "Grep", "Bash"}

// prDescription is the {title, body} object the PR-phase agent is
// instructed to emit between PR_JSON_START/PR_JSON_END markers.
type prDescription struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// PR runs the pr PhaseRunner of spec §4.7.5: ensure the branch, commit,
// run the preflight checks and pre-push quality gates, then either merge
// directly or push and open a pull request depending on Config.MergeMode.
func (r *Runner) PR(ctx context.Context, item *workitem.Item, force bool) *workitem.PhaseResult {
	item = item.Clone()
	if item.State != workitem.StateCritique && !force {
		return &workitem.PhaseResult{Success: false, Item: item,
			Err: werr.New(werr.KindPrecondition, "pr: item not in critique state")}
	}

	prd, err := r.Repo.LoadPRD(item.ID)
	if err != nil {
		return &workitem.PhaseResult{Success: false, Item: item, Err: werr.Wrap(werr.KindPrecondition, err, "loading prd")}
	}
	if !prd.AllStoriesDone() && !force {
		return &workitem.PhaseResult{Success: false, Item: item, Err: werr.New(werr.KindPrecondition, "pr: not all stories are done")}
	}

	branchName := prd.BranchName
	if branchName == "" {
		branchName = workitem.ExpectedBranchName(r.Config.BranchPrefix, item.ID)
	}
	slug := branchName
	if len(r.Config.BranchPrefix) > 0 && len(branchName) > len(r.Config.BranchPrefix) && branchName[:len(r.Config.BranchPrefix)] == r.Config.BranchPrefix {
		slug = branchName[len(r.Config.BranchPrefix):]
	}

	ensured, err := r.Git.EnsureBranch(ctx, r.Config.BaseBranch, r.Config.BranchPrefix, slug)
	if err != nil {
		item.SetLastError(err.Error())
		return &workitem.PhaseResult{Success: false, Item: item, Err: err}
	}
	item.Branch = &ensured.BranchName

	dirty, err := r.Git.HasUncommittedChanges(ctx)
	if err != nil {
		item.SetLastError(err.Error())
		return &workitem.PhaseResult{Success: false, Item: item, Err: err}
	}
	if dirty {
		if err := r.Git.CommitAll(ctx, fmt.Sprintf("wreckit: %s", item.Title)); err != nil {
			item.SetLastError(err.Error())
			return &workitem.PhaseResult{Success: false, Item: item, Err: err}
		}
	}

	if preErrs := r.Git.CheckGitPreflight(ctx, gitint.PreflightOptions{CheckRemoteSync: true}); len(preErrs) > 0 {
		err := werr.New(werr.KindGitPreflight, preErrs[0].Message).WithHint(preErrs[0].RecoveryHint)
		item.SetLastError(err.Error())
		return &workitem.PhaseResult{Success: false, Item: item, Err: err}
	}

	checks := make([]gitint.QualityCheck, 0, len(r.Config.PRChecks.Checks))
	for _, c := range r.Config.PRChecks.Checks {
		checks = append(checks, gitint.QualityCheck{Name: c.Name, Run: c.Run, Enabled: c.IsEnabled()})
	}
	gateResult := r.Git.RunPrePushQualityGates(ctx, checks)
	if !gateResult.Success {
		err := werr.New(werr.KindQualityGate, fmt.Sprintf("pre-push quality gates failed: %v", gateResult.Errors))
		item.SetLastError(err.Error())
		return &workitem.PhaseResult{Success: false, Item: item, Err: err}
	}

	remoteResult := r.Git.ValidateRemoteURL(ctx, "origin", r.Config.PRChecks.AllowedRemotePatterns)
	if !remoteResult.Valid {
		err := werr.New(werr.KindRemoteValidation, fmt.Sprintf("remote validation failed: %v", remoteResult.Errors))
		item.SetLastError(err.Error())
		return &workitem.PhaseResult{Success: false, Item: item, Err: err}
	}

	if r.Config.MergeMode == config.MergeModeDirect {
		return r.mergeDirect(ctx, item, ensured.BranchName, force)
	}
	return r.openPR(ctx, item, ensured.BranchName, force)
}

func (r *Runner) mergeDirect(ctx context.Context, item *workitem.Item, branchName string, force bool) *workitem.PhaseResult {
	if !r.Config.PRChecks.AllowUnsafeDirectMerge {
		err := werr.New(werr.KindDirectMergeUnsafe, "direct merge mode requires pr_checks.allow_unsafe_direct_merge")
		item.SetLastError(err.Error())
		return &workitem.PhaseResult{Success: false, Item: item, Err: err}
	}

	conflict := r.Git.CheckMergeConflicts(ctx, r.Config.BaseBranch, branchName)
	if conflict.HasConflicts {
		err := werr.New(werr.KindMergeConflict, "merge conflicts detected between "+branchName+" and "+r.Config.BaseBranch+": "+conflict.Err)
		item.SetLastError(err.Error())
		return &workitem.PhaseResult{Success: false, Item: item, Err: err}
	}

	rollbackSHA, err := r.Git.GetBranchSHA(ctx, r.Config.BaseBranch)
	if err != nil {
		item.SetLastError(err.Error())
		return &workitem.PhaseResult{Success: false, Item: item, Err: err}
	}

	if err := r.Git.MergeAndPushToBase(ctx, r.Config.BaseBranch, branchName, fmt.Sprintf("wreckit: merge %s", item.ID)); err != nil {
		item.SetLastError(err.Error())
		return &workitem.PhaseResult{Success: false, Item: item, Err: err}
	}

	mergeSHA, err := r.Git.GetBranchSHA(ctx, r.Config.BaseBranch)
	if err != nil {
		item.SetLastError(err.Error())
		return &workitem.PhaseResult{Success: false, Item: item, Err: err}
	}

	vc := &workitem.ValidationContext{HasResearchMD: true, HasPlanMD: true}
	if err := statemachine.CheckTransition(item.State, workitem.StateDone, vc, statemachine.MergeMode(r.Config.MergeMode), force); err != nil {
		item.SetLastError(err.Error())
		return &workitem.PhaseResult{Success: false, Item: item, Err: err}
	}

	now := time.Now()
	item.State = workitem.StateDone
	item.RollbackSHA = &rollbackSHA
	item.MergeCommitSHA = &mergeSHA
	item.CompletedAt = &now
	item.SetLastError("")
	if err := r.Repo.SaveItem(item, now); err != nil {
		return &workitem.PhaseResult{Success: false, Item: item, Err: err}
	}

	if r.Config.BranchCleanup.Enabled {
		_ = r.Git.CleanupBranch(ctx, branchName, r.Config.BaseBranch, r.Config.BranchCleanup.DeleteRemote)
	}
	return &workitem.PhaseResult{Success: true, Item: item}
}

func (r *Runner) openPR(ctx context.Context, item *workitem.Item, branchName string, force bool) *workitem.PhaseResult {
	if err := r.Git.PushBranch(ctx, branchName); err != nil {
		item.SetLastError(err.Error())
		return &workitem.PhaseResult{Success: false, Item: item, Err: err}
	}

	itemDir := r.Repo.ItemDir(item.ID)
	vars := Vars(item, r.ProjectRoot, itemDir, nil)
	prompt, err := LoadTemplate(r.PromptsDir, "pr", vars)
	if err != nil {
		return &workitem.PhaseResult{Success: false, Item: item, Err: werr.Wrap(werr.KindPrecondition, err, "loading pr prompt")}
	}

	title := fmt.Sprintf("%s: %s", item.ID, item.Title)
	body := item.Overview
	if res, err := r.runAgent(ctx, r.ProjectRoot, prompt, r.baseTimeout(), prAllowedTools, nil, nil); err == nil && res.Success {
		if desc, ok := parsePRDescription(res.Output); ok {
			title = desc.Title
			body = desc.Body
		}
	}

	result, err := r.PR.CreateOrUpdatePR(ctx, r.Config.BaseBranch, branchName, title, body)
	if err != nil {
		item.SetLastError(err.Error())
		return &workitem.PhaseResult{Success: false, Item: item, Err: werr.Wrap(werr.KindPrToolError, err, "creating pull request")}
	}

	mergeability, err := r.PR.CheckPRMergeability(ctx, result.Number)
	if err == nil && mergeability.Determined && !mergeability.Mergeable {
		r.Logger.Warn("pull request reports merge conflicts", zap.String("item_id", item.ID), zap.Int("pr_number", result.Number))
	}

	vc := &workitem.ValidationContext{HasResearchMD: true, HasPlanMD: true, HasPR: true}
	if err := statemachine.CheckTransition(item.State, workitem.StateInPR, vc, statemachine.MergeMode(r.Config.MergeMode), force); err != nil {
		item.SetLastError(err.Error())
		return &workitem.PhaseResult{Success: false, Item: item, Err: err}
	}

	item.State = workitem.StateInPR
	item.PRURL = &result.URL
	item.PRNumber = &result.Number
	item.SetLastError("")
	if err := r.Repo.SaveItem(item, time.Now()); err != nil {
		return &workitem.PhaseResult{Success: false, Item: item, Err: err}
	}

	if err := r.Git.Checkout(ctx, r.Config.BaseBranch); err != nil {
		r.Logger.Warn("failed to switch working copy back to base branch after opening pull request",
			zap.String("item_id", item.ID), zap.Error(err))
	}
	return &workitem.PhaseResult{Success: true, Item: item}
}

// parsePRDescription extracts the {title, body} object the pr prompt asks
// the agent to emit between PR_JSON_START/PR_JSON_END markers.
func parsePRDescription(output string) (prDescription, bool) {
	blob := extractDelimited(output, "PR_JSON_START", "PR_JSON_END")
	if blob == "" {
		blob = extractJSONObject(output)
	}
	if blob == "" {
		return prDescription{}, false
	}
	var d prDescription
	if err := json.Unmarshal([]byte(blob), &d); err != nil || d.Title == "" {
		return prDescription{}, false
	}
	return d, true
}
