package phases

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/jorge-barreto/wreckit/internal/workitem"
)

// implementAgentScript emits an update_story_status tool_use call marking
// storyID done.
func implementAgentScript(t *testing.T, storyID string) string {
	t.Helper()
	toolUse := fmt.Sprintf(`{"type":"stream_event","event":{"type":"content_block_start","content_block":{"type":"tool_use","name":"update_story_status","input":{"story_id":"%s","status":"done"}}}}`, storyID)
	script := fmt.Sprintf("cat <<'EOF'\n%s\n{\"type\":\"result\",\"result\":{}}\nEOF\nexit 0\n", toolUse)
	return fakeAgentScript(t, script)
}

func setupImplementItem(t *testing.T, runner *Runner, id string, stories ...workitem.UserStory) *workitem.Item {
	t.Helper()
	item := workitem.New(id, "Demo item", "", "", fixedNow)
	item.State = workitem.StatePlanned
	if err := runner.Repo.SaveItem(item, fixedNow); err != nil {
		t.Fatal(err)
	}
	if err := runner.Repo.SavePRD(&workitem.PRD{
		SchemaVersion: 1, ID: id, BranchName: runner.Config.BranchPrefix + id,
		UserStories: stories,
	}); err != nil {
		t.Fatal(err)
	}
	return item
}

func TestImplement_DrivesStoriesToDone(t *testing.T) {
	projectRoot := initGitRepo(t)
	writePrompt(t, filepath.Join(projectRoot, ".wreckit", "prompts"), "implement")
	runner := testRunner(t, projectRoot, "")

	item := setupImplementItem(t, runner, "demo-item", workitem.UserStory{
		ID: "US-1", Title: "t", AcceptanceCriteria: []string{"works"}, Priority: 1, Status: workitem.StoryPending,
	})
	runner.Config.Agent.Command = implementAgentScript(t, "US-1")

	result := runner.Implement(context.Background(), item, false)
	if !result.Success {
		t.Fatalf("expected success, got err=%v", result.Err)
	}
	if result.Item.State != workitem.StateImplementing {
		t.Fatalf("expected state to remain implementing (critique transitions onward), got %s", result.Item.State)
	}

	prd, err := runner.Repo.LoadPRD(item.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !prd.AllStoriesDone() {
		t.Fatal("expected all stories done")
	}
}

func TestImplement_WrongStateIsPrecondition(t *testing.T) {
	projectRoot := initGitRepo(t)
	runner := testRunner(t, projectRoot, "/bin/true")
	item := workitem.New("demo-item", "Demo item", "", "", fixedNow)

	result := runner.Implement(context.Background(), item, false)
	if result.Success {
		t.Fatal("expected failure for item not in planned or implementing state")
	}
}

func TestImplement_StoriesStillPendingAfterMaxIterationsFails(t *testing.T) {
	projectRoot := initGitRepo(t)
	writePrompt(t, filepath.Join(projectRoot, ".wreckit", "prompts"), "implement")
	runner := testRunner(t, projectRoot, "")
	runner.Config.MaxIterations = 1

	item := setupImplementItem(t, runner, "demo-item", workitem.UserStory{
		ID: "US-1", Title: "t", AcceptanceCriteria: []string{"works"}, Priority: 1, Status: workitem.StoryPending,
	}, workitem.UserStory{
		ID: "US-2", Title: "t2", AcceptanceCriteria: []string{"works too"}, Priority: 1, Status: workitem.StoryPending,
	})
	runner.Config.Agent.Command = implementAgentScript(t, "US-1")

	result := runner.Implement(context.Background(), item, false)
	if result.Success {
		t.Fatal("expected failure when stories remain pending after max_iterations")
	}
	if result.Item.LastError == nil {
		t.Fatal("expected LastError to be set")
	}
}
