package phases

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jorge-barreto/wreckit/internal/agent"
	"github.com/jorge-barreto/wreckit/internal/quality"
	"github.com/jorge-barreto/wreckit/internal/scope"
	"github.com/jorge-barreto/wreckit/internal/toolserver"
	"github.com/jorge-barreto/wreckit/internal/werr"
	"github.com/jorge-barreto/wreckit/internal/workitem"
)

// implementAllowedTools is the implement phase's tool allow-list: full
// filesystem and shell access, read-only git, and the story-status capture
// tool, per spec §4.5.
var implementAllowedTools = []string{
	"Read", "Write", "Edit", "Glob", "Grep", "Bash", "git_status", "git_diff",
	"update_story_status",
}

// Implement runs the implement PhaseRunner of spec §4.7.3: it drives the
// PRD's pending stories to completion one at a time, bounded by
// Config.MaxIterations, the way the teacher's runner iterates dispatch
// attempts rather than doing the whole ticket in one shot.
func (r *Runner) Implement(ctx context.Context, item *workitem.Item, force bool) *workitem.PhaseResult {
	item = item.Clone()
	if item.State != workitem.StatePlanned && item.State != workitem.StateImplementing && !force {
		return &workitem.PhaseResult{Success: false, Item: item,
			Err: werr.New(werr.KindPrecondition, "implement: item not in planned or implementing state")}
	}

	prd, err := r.Repo.LoadPRD(item.ID)
	if err != nil {
		return &workitem.PhaseResult{Success: false, Item: item, Err: werr.Wrap(werr.KindPrecondition, err, "loading prd")}
	}
	prd.Repair()

	if item.State == workitem.StatePlanned {
		item.State = workitem.StateImplementing
		if err := r.Repo.SaveItem(item, time.Now()); err != nil {
			return &workitem.PhaseResult{Success: false, Item: item, Err: err}
		}
	}

	if prd.AllStoriesDone() {
		return &workitem.PhaseResult{Success: true, Item: item}
	}

	itemDir := r.Repo.ItemDir(item.ID)

	for iteration := 1; iteration <= r.Config.MaxIterations; iteration++ {
		story := prd.NextPending()
		if story == nil {
			break
		}

		before, err := r.Scope.Snapshot(ctx)
		if err != nil {
			return &workitem.PhaseResult{Success: false, Item: item, Err: err}
		}

		extra := map[string]string{
			"STORY_ID":                  story.ID,
			"STORY_TITLE":               story.Title,
			"STORY_ACCEPTANCE_CRITERIA": fmt.Sprintf("%v", story.AcceptanceCriteria),
		}
		vars := Vars(item, r.ProjectRoot, itemDir, extra)
		prompt, err := LoadTemplate(r.PromptsDir, "implement", vars)
		if err != nil {
			return &workitem.PhaseResult{Success: false, Item: item, Err: werr.Wrap(werr.KindPrecondition, err, "loading implement prompt")}
		}

		storyUpdates := toolserver.NewUpdateStoryStatus(prd)

		res, err := r.runAgent(ctx, r.ProjectRoot, prompt, r.baseTimeout(), implementAllowedTools,
			[]agent.ToolServer{storyUpdates}, nil)
		if err != nil {
			item.SetLastError(err.Error())
			return &workitem.PhaseResult{Success: false, Item: item, Err: werr.Wrap(werr.KindAgentFailure, err, "implement agent invocation failed")}
		}
		if !res.Success {
			kind := werr.KindAgentFailure
			if res.TimedOut {
				kind = werr.KindAgentTimeout
			}
			wrapped := werr.New(kind, fmt.Sprintf("implement agent did not complete successfully on story %s", story.ID))
			item.SetLastError(wrapped.Error())
			return &workitem.PhaseResult{Success: false, Item: item, Err: wrapped}
		}

		if err := r.Repo.SavePRD(prd); err != nil {
			return &workitem.PhaseResult{Success: false, Item: item, Err: err}
		}

		after, err := r.Scope.Snapshot(ctx)
		if err != nil {
			return &workitem.PhaseResult{Success: false, Item: item, Err: err}
		}
		for _, w := range scope.ScopeCreepWarnings(item.ID, before, after) {
			r.Logger.Warn("scope creep during implement", zap.String("item_id", item.ID), zap.String("warning", w))
		}

		evidence, _ := r.Artifacts.ReadProgress(item.ID)
		if updated := prd.FindStory(story.ID); updated != nil && updated.Status == workitem.StoryDone {
			verification := quality.VerifyStoryCompletion(updated, evidence)
			for _, w := range verification.Warnings {
				r.Logger.Warn("story completion unverified", zap.String("story_id", story.ID), zap.String("warning", w))
			}
		}

		msg := fmt.Sprintf("story %s -> %s", story.ID, story.Status)
		if err := r.Artifacts.AppendProgress(item.ID, "implement", msg, time.Now()); err != nil {
			return &workitem.PhaseResult{Success: false, Item: item, Err: err}
		}

		if prd.AllStoriesDone() {
			break
		}
	}

	if !prd.AllStoriesDone() {
		err := werr.New(werr.KindQualityGate, "implement: stories still pending after max_iterations")
		item.SetLastError(err.Error())
		if saveErr := r.Repo.SaveItem(item, time.Now()); saveErr != nil {
			return &workitem.PhaseResult{Success: false, Item: item, Err: saveErr}
		}
		return &workitem.PhaseResult{Success: false, Item: item, Err: err}
	}

	// All stories are done; item stays in StateImplementing. The critique
	// runner performs the actual transition to StateCritique once it has
	// reviewed the diff.
	item.SetLastError("")
	if err := r.Repo.SaveItem(item, time.Now()); err != nil {
		return &workitem.PhaseResult{Success: false, Item: item, Err: err}
	}
	return &workitem.PhaseResult{Success: true, Item: item}
}
