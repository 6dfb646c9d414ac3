package phases

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/jorge-barreto/wreckit/internal/workitem"
)

func researchDoc() string {
	return `# Research

## Summary
` + longFiller(220) + `

## Analysis
` + longFiller(420) + `

See https://example.com/prior-art and ` + "`internal/foo.go`" + ` for context.
`
}

func longFiller(n int) string {
	s := ""
	for len(s) < n {
		s += "word "
	}
	return s
}

func TestResearch_HappyPath(t *testing.T) {
	projectRoot := initGitRepo(t)
	writePrompt(t, filepath.Join(projectRoot, ".wreckit", "prompts"), "research")

	item := workitem.New("demo-item", "Demo item", "", "", fixedNow)

	runner := testRunner(t, projectRoot, "")
	itemDir := runner.Repo.ItemDir(item.ID)
	script := fmt.Sprintf("mkdir -p '%s'\ncat > '%s/research.md' <<'EOF'\n%s\nEOF\necho '{\"type\":\"result\",\"result\":{}}'\nexit 0\n", itemDir, itemDir, researchDoc())
	runner.Config.Agent.Command = fakeAgentScript(t, script)

	result := runner.Research(context.Background(), item, false)
	if !result.Success {
		t.Fatalf("expected success, got err=%v", result.Err)
	}
	if result.Item.State != workitem.StateResearched {
		t.Fatalf("expected state researched, got %s", result.Item.State)
	}
	if !runner.Artifacts.HasResearch(item.ID) {
		t.Fatal("expected research.md to exist")
	}
}

func TestResearch_WrongStateIsPrecondition(t *testing.T) {
	projectRoot := initGitRepo(t)
	runner := testRunner(t, projectRoot, "/bin/true")
	item := workitem.New("demo-item", "Demo item", "", "", fixedNow)
	item.State = workitem.StatePlanned

	result := runner.Research(context.Background(), item, false)
	if result.Success {
		t.Fatal("expected failure for item not in idea state")
	}
}

func TestResearch_AlreadyHasResearchSkipsAgent(t *testing.T) {
	projectRoot := initGitRepo(t)
	runner := testRunner(t, projectRoot, "/bin/false")
	item := workitem.New("demo-item", "Demo item", "", "", fixedNow)
	if err := runner.Repo.SaveItem(item, fixedNow); err != nil {
		t.Fatal(err)
	}
	if err := runner.Artifacts.WriteResearch(item.ID, researchDoc()); err != nil {
		t.Fatal(err)
	}

	result := runner.Research(context.Background(), item, false)
	if !result.Success {
		t.Fatalf("expected success without invoking the agent, got err=%v", result.Err)
	}
	if result.Item.State != workitem.StateResearched {
		t.Fatalf("expected state researched, got %s", result.Item.State)
	}
}

func TestResearch_InvalidDocRetriesThenFails(t *testing.T) {
	projectRoot := initGitRepo(t)
	writePrompt(t, filepath.Join(projectRoot, ".wreckit", "prompts"), "research")
	runner := testRunner(t, projectRoot, "")
	item := workitem.New("demo-item", "Demo item", "", "", fixedNow)

	itemDir := runner.Repo.ItemDir(item.ID)
	script := fmt.Sprintf("mkdir -p '%s'\necho 'too short' > '%s/research.md'\necho '{\"type\":\"result\",\"result\":{}}'\nexit 0\n", itemDir, itemDir)
	runner.Config.Agent.Command = fakeAgentScript(t, script)

	result := runner.Research(context.Background(), item, false)
	if result.Success {
		t.Fatal("expected failure after exhausting quality retries")
	}
	if result.Item.LastError == nil {
		t.Fatal("expected LastError to be set")
	}
}
