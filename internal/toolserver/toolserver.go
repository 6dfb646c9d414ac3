// Package toolserver implements the two in-process tool handlers the
// engine exposes to the agent during the plan and implement phases
// (spec §4.6): save_prd and update_story_status.
//
// Both follow the interior-mutable-slot strategy of SPEC_FULL.md §9: the
// runner hands the server a pointer to a slot it owns, the agent fills it
// in mid-run via Handle, and the runner decides after the agent returns
// whether to persist what landed in the slot.
package toolserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jorge-barreto/wreckit/internal/quality"
	"github.com/jorge-barreto/wreckit/internal/workitem"
)

// SavePRD is the plan-phase tool server. It checks the submitted PRD for
// duplicate story ids and runs the story validator, then stores the last
// valid submission in its buffer; it never writes to disk itself — the
// plan runner writes the buffer to prd.json once plan.md and the stories
// pass validation, before its scope and transition checks.
type SavePRD struct {
	mu     sync.Mutex
	buffer *workitem.PRD
	err    error
}

// NewSavePRD returns an empty save_prd tool server.
func NewSavePRD() *SavePRD { return &SavePRD{} }

func (s *SavePRD) Name() string { return "save_prd" }

// Handle parses and validates the incoming PRD, storing it in the buffer
// on success. A validation failure is recorded but does not abort the
// agent turn — the plan runner inspects LastError after the run.
func (s *SavePRD) Handle(ctx context.Context, input []byte) error {
	var prd workitem.PRD
	if err := json.Unmarshal(input, &prd); err != nil {
		s.record(nil, fmt.Errorf("save_prd: invalid JSON: %w", err))
		return err
	}
	prd.Repair()
	if !prd.UniqueStoryIDs() {
		err := fmt.Errorf("save_prd: duplicate story ids")
		s.record(nil, err)
		return err
	}
	res := quality.ValidateStories(&prd)
	if !res.Valid {
		err := fmt.Errorf("save_prd: story validation failed: %v", res.Errors)
		s.record(nil, err)
		return err
	}
	s.record(&prd, nil)
	return nil
}

func (s *SavePRD) record(prd *workitem.PRD, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prd != nil {
		s.buffer = prd
	}
	s.err = err
}

// Captured returns the last successfully validated PRD submission, or nil
// if none was captured this run.
func (s *SavePRD) Captured() *workitem.PRD {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer
}

// LastError returns the most recent Handle error, if any.
func (s *SavePRD) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// StoryUpdate is one buffered update_story_status call.
type StoryUpdate struct {
	StoryID      string               `json:"story_id"`
	Status       workitem.StoryStatus `json:"status"`
	Verification string               `json:"verification,omitempty"`
}

// UpdateStoryStatus is the implement-phase tool server. It applies status
// updates to an in-memory working copy of the PRD immediately, per §4.6 —
// there is no separate flush step here because the spec says the runner
// "applies the status update to an in-memory working copy of the PRD
// immediately and flushes the PRD to disk at the end of the story
// iteration"; Applied() lets the runner read back what changed so it can
// decide whether to flush.
type UpdateStoryStatus struct {
	mu      sync.Mutex
	prd     *workitem.PRD
	applied []StoryUpdate
}

// NewUpdateStoryStatus returns a tool server that mutates prd in place as
// updates arrive.
func NewUpdateStoryStatus(prd *workitem.PRD) *UpdateStoryStatus {
	return &UpdateStoryStatus{prd: prd}
}

func (u *UpdateStoryStatus) Name() string { return "update_story_status" }

// Handle applies one {story_id, status, verification} update to the
// working PRD copy. Unknown story ids are rejected without mutating state.
func (u *UpdateStoryStatus) Handle(ctx context.Context, input []byte) error {
	var upd StoryUpdate
	if err := json.Unmarshal(input, &upd); err != nil {
		return fmt.Errorf("update_story_status: invalid JSON: %w", err)
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	story := u.prd.FindStory(upd.StoryID)
	if story == nil {
		return fmt.Errorf("update_story_status: unknown story id %q", upd.StoryID)
	}
	story.Status = upd.Status
	u.applied = append(u.applied, upd)
	return nil
}

// Applied returns every update handled so far, in emission order.
func (u *UpdateStoryStatus) Applied() []StoryUpdate {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]StoryUpdate, len(u.applied))
	copy(out, u.applied)
	return out
}
