package phases

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jorge-barreto/wreckit/internal/statemachine"
	"github.com/jorge-barreto/wreckit/internal/werr"
	"github.com/jorge-barreto/wreckit/internal/workitem"
)

// critiqueAllowedTools is the critique phase's tool allow-list: read-only
// filesystem access plus the shell, for running the project's own test
// suite, per spec §4.5.
var critiqueAllowedTools = []string{"Read", "Glob", "Grep", "Bash"}

// critiqueVerdict is the {status, reason, critique} object the critique
// agent is instructed to emit, per spec §4.7.4.
type critiqueVerdict struct {
	Status    string `json:"status"`
	Reason    string `json:"reason"`
	Critique  string `json:"critique"`
}

// Critique runs the critique PhaseRunner of spec §4.7.4. Unlike every
// other phase, a technical agent failure here is self-healing: rather
// than failing the phase, it regresses the item to planned and reports
// success so the orchestrator re-enters implement, the same way the
// teacher's runner treats a malformed response as "try again" rather
// than "stop the pipeline".
func (r *Runner) Critique(ctx context.Context, item *workitem.Item, force bool) *workitem.PhaseResult {
	item = item.Clone()
	if item.State != workitem.StateImplementing && item.State != workitem.StateCritique && !force {
		return &workitem.PhaseResult{Success: false, Item: item,
			Err: werr.New(werr.KindPrecondition, "critique: item not in implementing state")}
	}
	if item.State == workitem.StateCritique && !force {
		return &workitem.PhaseResult{Success: true, Item: item}
	}

	itemDir := r.Repo.ItemDir(item.ID)
	vars := Vars(item, r.ProjectRoot, itemDir, nil)
	prompt, err := LoadTemplate(r.PromptsDir, "critique", vars)
	if err != nil {
		return &workitem.PhaseResult{Success: false, Item: item, Err: werr.Wrap(werr.KindPrecondition, err, "loading critique prompt")}
	}

	res, err := r.runAgent(ctx, r.ProjectRoot, prompt, r.baseTimeout(), critiqueAllowedTools, nil, nil)
	if err != nil || !res.Success {
		return r.regressToPlanned(item, "critique agent failed to run")
	}

	verdict, ok := parseCritiqueVerdict(res.Output)
	if !ok {
		return r.regressToPlanned(item, "critique output did not contain a parseable verdict")
	}

	if verdict.Status != "approved" {
		reason := verdict.Reason
		if reason == "" {
			reason = "no reason given"
		}
		if err := r.Artifacts.AppendProgress(item.ID, "critique", "rejected: "+reason, time.Now()); err != nil {
			return &workitem.PhaseResult{Success: false, Item: item, Err: err}
		}
		item.State = workitem.StatePlanned
		item.SetLastError("Critique Failed: " + reason)
		if err := r.Repo.SaveItem(item, time.Now()); err != nil {
			return &workitem.PhaseResult{Success: false, Item: item, Err: err}
		}
		return &workitem.PhaseResult{Success: true, Item: item}
	}

	vc := &workitem.ValidationContext{HasResearchMD: true, HasPlanMD: true}
	if prd, err := r.Repo.LoadPRD(item.ID); err == nil {
		vc.PRD = prd
	}
	if err := statemachine.CheckTransition(item.State, workitem.StateCritique, vc, statemachine.MergeMode(r.Config.MergeMode), force); err != nil {
		item.SetLastError(err.Error())
		return &workitem.PhaseResult{Success: false, Item: item, Err: err}
	}

	if err := r.Artifacts.AppendProgress(item.ID, "critique", "approved: "+verdict.Critique, time.Now()); err != nil {
		return &workitem.PhaseResult{Success: false, Item: item, Err: err}
	}
	item.State = workitem.StateCritique
	item.SetLastError("")
	if err := r.Repo.SaveItem(item, time.Now()); err != nil {
		return &workitem.PhaseResult{Success: false, Item: item, Err: err}
	}
	return &workitem.PhaseResult{Success: true, Item: item}
}

// regressToPlanned implements the self-healing path: on agent technical
// failure or unparseable output, the item returns to planned and the
// phase itself reports success so the driving loop simply tries implement
// again rather than surfacing a hard failure.
func (r *Runner) regressToPlanned(item *workitem.Item, reason string) *workitem.PhaseResult {
	if err := r.Artifacts.AppendProgress(item.ID, "critique", "self-heal: "+reason, time.Now()); err != nil {
		return &workitem.PhaseResult{Success: false, Item: item, Err: err}
	}
	item.State = workitem.StatePlanned
	item.SetLastError("Critique Failed: " + reason)
	if err := r.Repo.SaveItem(item, time.Now()); err != nil {
		return &workitem.PhaseResult{Success: false, Item: item, Err: err}
	}
	return &workitem.PhaseResult{Success: true, Item: item}
}

// parseCritiqueVerdict extracts and decodes the critique agent's
// {status, reason, critique} verdict from its raw output.
func parseCritiqueVerdict(output string) (critiqueVerdict, bool) {
	blob := extractJSONObject(output)
	if blob == "" {
		return critiqueVerdict{}, false
	}
	var v critiqueVerdict
	if err := json.Unmarshal([]byte(blob), &v); err != nil {
		return critiqueVerdict{}, false
	}
	if v.Status == "" {
		return critiqueVerdict{}, false
	}
	return v, true
}
