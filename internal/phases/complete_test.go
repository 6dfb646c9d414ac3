package phases

import (
	"context"
	"testing"
	"time"

	"github.com/jorge-barreto/wreckit/internal/gitint"
	"github.com/jorge-barreto/wreckit/internal/workitem"
)

func setupCompleteItem(t *testing.T, runner *Runner, id string) *workitem.Item {
	t.Helper()
	item := workitem.New(id, "Demo item", "", "", fixedNow)
	item.State = workitem.StateInPR
	branch := runner.Config.BranchPrefix + id
	item.Branch = &branch
	number := 7
	item.PRNumber = &number
	if err := runner.Repo.SavePRD(&workitem.PRD{
		SchemaVersion: 1, ID: id, BranchName: branch,
		UserStories: []workitem.UserStory{{ID: "US-1", Title: "t", AcceptanceCriteria: []string{"a"}, Priority: 1, Status: workitem.StoryDone}},
	}); err != nil {
		t.Fatal(err)
	}
	return item
}

func TestComplete_MergedPRFinalizesItem(t *testing.T) {
	projectRoot := initGitRepo(t)
	runner := testRunner(t, projectRoot, "/bin/true")
	mergedAt := fixedNow.Add(time.Hour)
	runner.PR = &fakePRClient{details: &gitint.PRDetails{
		QuerySucceeded: true,
		Merged:         true,
		BaseRefName:    runner.Config.BaseBranch,
		HeadRefName:    runner.Config.BranchPrefix + "demo-item",
		MergedAt:       &mergedAt,
		MergeCommitOID: "abc123",
		ChecksPassed:   true,
	}}

	item := setupCompleteItem(t, runner, "demo-item")
	result := runner.Complete(context.Background(), item, false)
	if !result.Success {
		t.Fatalf("expected success, got err=%v", result.Err)
	}
	if result.Item.State != workitem.StateDone {
		t.Fatalf("expected state done, got %s", result.Item.State)
	}
	if result.Item.MergeCommitSHA == nil || *result.Item.MergeCommitSHA != "abc123" {
		t.Fatalf("expected merge commit sha to be recorded, got %v", result.Item.MergeCommitSHA)
	}
	if result.Item.ChecksPassed == nil || !*result.Item.ChecksPassed {
		t.Fatal("expected ChecksPassed to be true")
	}
}

func TestComplete_NotYetMergedFails(t *testing.T) {
	projectRoot := initGitRepo(t)
	runner := testRunner(t, projectRoot, "/bin/true")
	runner.PR = &fakePRClient{details: &gitint.PRDetails{QuerySucceeded: true, Merged: false}}

	item := setupCompleteItem(t, runner, "demo-item")
	result := runner.Complete(context.Background(), item, false)
	if result.Success {
		t.Fatal("expected failure: pull request is not yet merged")
	}
}

func TestComplete_WrongStateIsPrecondition(t *testing.T) {
	projectRoot := initGitRepo(t)
	runner := testRunner(t, projectRoot, "/bin/true")
	item := workitem.New("demo-item", "Demo item", "", "", fixedNow)

	result := runner.Complete(context.Background(), item, false)
	if result.Success {
		t.Fatal("expected failure for item not in in_pr state")
	}
}

func TestComplete_MissingPRNumberIsPrecondition(t *testing.T) {
	projectRoot := initGitRepo(t)
	runner := testRunner(t, projectRoot, "/bin/true")
	item := workitem.New("demo-item", "Demo item", "", "", fixedNow)
	item.State = workitem.StateInPR

	result := runner.Complete(context.Background(), item, false)
	if result.Success {
		t.Fatal("expected failure when item has no pr_number")
	}
}
