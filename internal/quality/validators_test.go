package quality

import (
	"strings"
	"testing"

	"github.com/jorge-barreto/wreckit/internal/workitem"
)

func longText(n int) string {
	return strings.Repeat("x", n)
}

func TestValidateResearch_Valid(t *testing.T) {
	doc := "# Summary\n" + longText(MinSummaryLen) + "\n\n# Analysis\n" + longText(MinAnalysisLen) +
		"\n\nSee `internal/dispatch/agent.go` and https://example.com/ref\n"
	res := ValidateResearch(doc)
	if !res.Valid {
		t.Fatalf("expected valid, got errors: %v", res.Errors)
	}
	if res.CitationsCount < MinCitations {
		t.Errorf("expected >= %d citations, got %d", MinCitations, res.CitationsCount)
	}
}

func TestValidateResearch_MissingSections(t *testing.T) {
	res := ValidateResearch("just some text with no headings")
	if res.Valid {
		t.Fatal("expected invalid")
	}
	if len(res.Errors) < 2 {
		t.Errorf("expected errors for missing summary and analysis, got %v", res.Errors)
	}
}

func TestValidateResearch_TooShortAndNoCitations(t *testing.T) {
	doc := "# Summary\nshort\n\n# Analysis\nalso short\n"
	res := ValidateResearch(doc)
	if res.Valid {
		t.Fatal("expected invalid")
	}
	if res.CitationsCount != 0 {
		t.Errorf("expected 0 citations, got %d", res.CitationsCount)
	}
}

func TestValidatePlan(t *testing.T) {
	res := ValidatePlan("# Phase 1: Setup\nstuff\n\n## Phase 2: Build\nmore stuff\n")
	if !res.Valid || res.PhaseCount != 2 {
		t.Fatalf("expected 2 phases valid, got %+v", res)
	}

	empty := ValidatePlan("no headings here")
	if empty.Valid {
		t.Fatal("expected invalid with no phase headings")
	}
}

func TestValidateStories(t *testing.T) {
	prd := &workitem.PRD{UserStories: []workitem.UserStory{
		{ID: "US-1", AcceptanceCriteria: []string{"does a thing"}, Priority: 2, Status: workitem.StoryPending},
		{ID: "US-2", AcceptanceCriteria: nil, Priority: 1, Status: workitem.StoryFailed},
	}}
	res := ValidateStories(prd)
	if res.Valid {
		t.Fatal("expected invalid due to US-2")
	}
	if res.StoryCount != 2 || res.FailedStoryCount != 1 {
		t.Errorf("unexpected counts: %+v", res)
	}
}

func TestValidateStories_RejectsNonConformingID(t *testing.T) {
	prd := &workitem.PRD{UserStories: []workitem.UserStory{
		{ID: "foo", AcceptanceCriteria: []string{"does a thing"}, Priority: 2, Status: workitem.StoryPending},
	}}
	res := ValidateStories(prd)
	if res.Valid {
		t.Fatal("expected invalid for a story id not matching US-<n>")
	}
}

func TestVerifyStoryCompletion_WarnsOnMissingEvidence(t *testing.T) {
	story := &workitem.UserStory{
		ID:                 "US-1",
		AcceptanceCriteria: []string{"adds retry logic to the research phase"},
	}
	v := VerifyStoryCompletion(story, "implemented the plan phase validator")
	if len(v.Warnings) == 0 {
		t.Fatal("expected a warning for unmatched criterion")
	}
	if len(v.Errors) != 0 {
		t.Errorf("story-completion verification must never produce errors, got %v", v.Errors)
	}
}

func TestVerifyStoryCompletion_NoWarningWhenEvidencePresent(t *testing.T) {
	story := &workitem.UserStory{
		ID:                 "US-1",
		AcceptanceCriteria: []string{"adds retry logic to research"},
	}
	v := VerifyStoryCompletion(story, "this iteration adds retry logic to research per the plan")
	if len(v.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", v.Warnings)
	}
}
