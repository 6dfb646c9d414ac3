// Package orchestrator implements the higher-level driver of spec §4.9:
// next_phase maps an item's state to the phase that should run next, and
// Orchestrator.Run repeatedly invokes next_phase and the corresponding
// PhaseRunner method until the item reaches done, a phase fails, or a
// caller-specified iteration cap is exceeded.
//
// The single-item loop shape is carried over from the teacher's
// internal/runner.Run loop (advance-on-success, stop-and-report-on-
// failure), generalized from the teacher's configured phase list to the
// fixed six-phase pipeline driven by statemachine.NextPhase. RunMany adds
// the SPEC_FULL.md §4.11 concurrent multi-item expansion the teacher's
// single-ticket runner never needed.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jorge-barreto/wreckit/internal/phases"
	"github.com/jorge-barreto/wreckit/internal/statemachine"
	"github.com/jorge-barreto/wreckit/internal/store"
	"github.com/jorge-barreto/wreckit/internal/ux"
	"github.com/jorge-barreto/wreckit/internal/werr"
	"github.com/jorge-barreto/wreckit/internal/workitem"
)

// Orchestrator drives items through the fixed phase pipeline using a
// shared phases.Runner, serializing access to any single item id via an
// in-process mutex keyed by id — the spec's "no internal locking is
// provided" text disclaims cross-process safety, not same-process
// goroutine safety.
type Orchestrator struct {
	Runner *phases.Runner
	Repo   *store.Repository
	Logger *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New returns an Orchestrator driving items with runner.
func New(runner *phases.Runner, repo *store.Repository, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{Runner: runner, Repo: repo, Logger: logger, locks: make(map[string]*sync.Mutex)}
}

func (o *Orchestrator) itemLock(id string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	l, ok := o.locks[id]
	if !ok {
		l = &sync.Mutex{}
		o.locks[id] = l
	}
	return l
}

// dispatch invokes the PhaseRunner method named by phase.
func (o *Orchestrator) dispatch(ctx context.Context, phase string, item *workitem.Item, force bool) *workitem.PhaseResult {
	switch phase {
	case "research":
		return o.Runner.Research(ctx, item, force)
	case "plan":
		return o.Runner.Plan(ctx, item, force)
	case "implement":
		return o.Runner.Implement(ctx, item, force)
	case "critique":
		return o.Runner.Critique(ctx, item, force)
	case "pr":
		return o.Runner.PR(ctx, item, force)
	case "complete":
		return o.Runner.Complete(ctx, item, force)
	default:
		return &workitem.PhaseResult{Success: false, Item: item,
			Err: werr.New(werr.KindPrecondition, "orchestrator: unknown phase "+phase)}
	}
}

// Run drives a single item forward, phase by phase, until it reaches
// done, a phase fails, or maxIterations phase invocations have run
// (maxIterations <= 0 means unbounded). It returns the item's final
// known state and the error from the failing phase, if any.
func (o *Orchestrator) Run(ctx context.Context, id string, maxIterations int, force bool) (*workitem.Item, error) {
	lock := o.itemLock(id)
	lock.Lock()
	defer lock.Unlock()

	item, err := o.Repo.LoadItem(id)
	if err != nil {
		return nil, werr.Wrap(werr.KindInvalidItem, err, "loading item "+id)
	}

	for iterations := 0; maxIterations <= 0 || iterations < maxIterations; iterations++ {
		if ctx.Err() != nil {
			return item, ctx.Err()
		}

		phase := statemachine.NextPhase(item.State)
		if phase == "" {
			ux.Success(id)
			return item, nil
		}

		fromState := item.State
		ux.PhaseHeader(id, phase, string(fromState))
		started := time.Now()

		o.Logger.Info("dispatching phase", zap.String("item_id", id), zap.String("phase", phase), zap.String("state", string(item.State)))
		result := o.dispatch(ctx, phase, item, force)
		item = result.Item

		if !result.Success {
			o.Logger.Error("phase failed", zap.String("item_id", id), zap.String("phase", phase), zap.Error(result.Err))
			ux.PhaseFail(id, phase, result.Err.Error())
			return item, result.Err
		}

		if phase == "critique" && item.State == workitem.StatePlanned {
			// Critique rejection or self-heal: the item regressed rather
			// than advanced, per spec §4.7.4.
			reason := ""
			if item.LastError != nil {
				reason = *item.LastError
			}
			ux.LoopBack(id, reason)
		} else {
			ux.PhaseComplete(id, phase, time.Since(started))
		}

		// force only applies to the first phase invocation in a run; once
		// the pipeline is moving normally, subsequent phases should honor
		// their own guards.
		force = false
	}

	if statemachine.NextPhase(item.State) == "" {
		ux.Success(id)
		return item, nil
	}
	return item, werr.New(werr.KindPrecondition, fmt.Sprintf("orchestrator: item %s did not reach done within %d iterations", id, maxIterations))
}

// ItemResult is one item's outcome from RunMany.
type ItemResult struct {
	ID   string
	Item *workitem.Item
	Err  error
}

// RunMany drives every id in ids concurrently, bounded by concurrency
// (clamped to at least 1), via golang.org/x/sync/errgroup — the
// SPEC_FULL.md §4.11 expansion of the single-item Run loop above. Each
// item is still driven sequentially, phase by phase, by its own call to
// Run; only the items themselves run in parallel. A failure on one item
// never cancels the others — RunMany always drives every id and reports
// per-item results.
func (o *Orchestrator) RunMany(ctx context.Context, ids []string, concurrency, maxIterations int, force bool) []ItemResult {
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]ItemResult, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			item, err := o.Run(gctx, id, maxIterations, force)
			results[i] = ItemResult{ID: id, Item: item, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}
