package phases

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jorge-barreto/wreckit/internal/statemachine"
	"github.com/jorge-barreto/wreckit/internal/werr"
	"github.com/jorge-barreto/wreckit/internal/workitem"
)

// Complete runs the complete PhaseRunner of spec §4.7.6: it queries the
// open PR's merge status and, once merged into the configured base
// branch, finalizes the item and cleans up its branch. Unlike every other
// phase, complete never invokes the agent — it is pure git/PR-host
// bookkeeping, the way the teacher's pipeline ends in a plain shell step
// rather than another dispatch.
func (r *Runner) Complete(ctx context.Context, item *workitem.Item, force bool) *workitem.PhaseResult {
	item = item.Clone()
	if item.State != workitem.StateInPR && !force {
		return &workitem.PhaseResult{Success: false, Item: item,
			Err: werr.New(werr.KindPrecondition, "complete: item not in in_pr state")}
	}
	if item.PRNumber == nil {
		return &workitem.PhaseResult{Success: false, Item: item,
			Err: werr.New(werr.KindPrecondition, "complete: item has no pr_number")}
	}

	details, err := r.PR.GetPRDetails(ctx, *item.PRNumber)
	if err != nil {
		item.SetLastError(err.Error())
		return &workitem.PhaseResult{Success: false, Item: item, Err: werr.Wrap(werr.KindPrToolError, err, "querying pull request details")}
	}
	if !details.QuerySucceeded {
		err := werr.New(werr.KindPrToolError, "pull request query did not succeed: "+details.Err)
		item.SetLastError(err.Error())
		return &workitem.PhaseResult{Success: false, Item: item, Err: err}
	}
	if !details.Merged {
		return &workitem.PhaseResult{Success: false, Item: item,
			Err: werr.New(werr.KindPrecondition, "complete: pull request is not yet merged")}
	}
	if details.BaseRefName != "" && details.BaseRefName != r.Config.BaseBranch {
		err := werr.New(werr.KindPrecondition, "pull request base branch "+details.BaseRefName+" does not match configured base "+r.Config.BaseBranch)
		item.SetLastError(err.Error())
		return &workitem.PhaseResult{Success: false, Item: item, Err: err}
	}
	if item.Branch != nil && details.HeadRefName != "" && details.HeadRefName != *item.Branch {
		r.Logger.Warn("pull request head branch does not match recorded item branch",
			zap.String("item_id", item.ID), zap.String("recorded", *item.Branch), zap.String("actual", details.HeadRefName))
	}

	vc := &workitem.ValidationContext{HasResearchMD: true, HasPlanMD: true, HasPR: true, PRMerged: true}
	if err := statemachine.CheckTransition(item.State, workitem.StateDone, vc, statemachine.MergeMode(r.Config.MergeMode), force); err != nil {
		item.SetLastError(err.Error())
		return &workitem.PhaseResult{Success: false, Item: item, Err: err}
	}

	now := time.Now()
	item.State = workitem.StateDone
	item.CompletedAt = &now
	item.MergedAt = details.MergedAt
	if details.MergeCommitOID != "" {
		item.MergeCommitSHA = &details.MergeCommitOID
	}
	checksPassed := details.ChecksPassed
	item.ChecksPassed = &checksPassed
	item.SetLastError("")
	if err := r.Repo.SaveItem(item, now); err != nil {
		return &workitem.PhaseResult{Success: false, Item: item, Err: err}
	}
	if err := r.Artifacts.AppendProgress(item.ID, "complete", "merged", now); err != nil {
		return &workitem.PhaseResult{Success: false, Item: item, Err: err}
	}

	if r.Config.BranchCleanup.Enabled && item.Branch != nil {
		_ = r.Git.CleanupBranch(ctx, *item.Branch, r.Config.BaseBranch, r.Config.BranchCleanup.DeleteRemote)
	}
	return &workitem.PhaseResult{Success: true, Item: item}
}
