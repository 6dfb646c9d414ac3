package toolserver

import (
	"context"
	"testing"

	"github.com/jorge-barreto/wreckit/internal/workitem"
)

func TestSavePRD_CapturesValidSubmission(t *testing.T) {
	s := NewSavePRD()
	input := []byte(`{
		"schema_version": 1,
		"id": "demo",
		"branch_name": "wreckit/demo",
		"user_stories": [{"id": "US-1", "title": "t", "acceptance_criteria": ["a"], "priority": 1, "status": "pending"}]
	}`)
	if err := s.Handle(context.Background(), input); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	got := s.Captured()
	if got == nil || got.ID != "demo" {
		t.Fatalf("expected captured PRD, got %+v", got)
	}
	if s.LastError() != nil {
		t.Errorf("expected no error, got %v", s.LastError())
	}
}

func TestSavePRD_RejectsInvalidStories(t *testing.T) {
	s := NewSavePRD()
	input := []byte(`{
		"schema_version": 1,
		"id": "demo",
		"branch_name": "wreckit/demo",
		"user_stories": [{"id": "US-1", "title": "t", "acceptance_criteria": [], "priority": 1, "status": "pending"}]
	}`)
	if err := s.Handle(context.Background(), input); err == nil {
		t.Fatal("expected validation error for missing acceptance criteria")
	}
	if s.Captured() != nil {
		t.Error("expected nothing captured after a failed validation")
	}
}

func TestSavePRD_RejectsDuplicateStoryIDs(t *testing.T) {
	s := NewSavePRD()
	input := []byte(`{
		"schema_version": 1,
		"id": "demo",
		"branch_name": "wreckit/demo",
		"user_stories": [
			{"id": "US-1", "title": "t", "acceptance_criteria": ["a"], "priority": 1, "status": "pending"},
			{"id": "US-1", "title": "t2", "acceptance_criteria": ["b"], "priority": 2, "status": "pending"}
		]
	}`)
	if err := s.Handle(context.Background(), input); err == nil {
		t.Fatal("expected duplicate-id error")
	}
}

func TestUpdateStoryStatus_AppliesInOrder(t *testing.T) {
	prd := &workitem.PRD{UserStories: []workitem.UserStory{
		{ID: "US-1", Status: workitem.StoryPending},
		{ID: "US-2", Status: workitem.StoryPending},
	}}
	u := NewUpdateStoryStatus(prd)

	if err := u.Handle(context.Background(), []byte(`{"story_id":"US-1","status":"in_progress"}`)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if err := u.Handle(context.Background(), []byte(`{"story_id":"US-1","status":"done"}`)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if err := u.Handle(context.Background(), []byte(`{"story_id":"US-2","status":"done"}`)); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if prd.FindStory("US-1").Status != workitem.StoryDone {
		t.Errorf("expected US-1 done, got %s", prd.FindStory("US-1").Status)
	}
	if !prd.AllStoriesDone() {
		t.Error("expected all stories done")
	}

	applied := u.Applied()
	if len(applied) != 3 {
		t.Fatalf("expected 3 applied updates, got %d", len(applied))
	}
	if applied[0].Status != workitem.StoryInProgress || applied[2].StoryID != "US-2" {
		t.Errorf("unexpected order: %+v", applied)
	}
}

func TestUpdateStoryStatus_RejectsUnknownStory(t *testing.T) {
	prd := &workitem.PRD{UserStories: []workitem.UserStory{{ID: "US-1", Status: workitem.StoryPending}}}
	u := NewUpdateStoryStatus(prd)
	if err := u.Handle(context.Background(), []byte(`{"story_id":"US-404","status":"done"}`)); err == nil {
		t.Fatal("expected unknown-story error")
	}
}
