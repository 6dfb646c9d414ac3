package phases

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"time"

	"go.uber.org/zap"

	"github.com/jorge-barreto/wreckit/internal/agent"
	"github.com/jorge-barreto/wreckit/internal/config"
	"github.com/jorge-barreto/wreckit/internal/gitint"
	"github.com/jorge-barreto/wreckit/internal/scope"
	"github.com/jorge-barreto/wreckit/internal/store"
)

// fixedNow is a stand-in for time.Now() in tests that need a deterministic
// item creation timestamp.
var fixedNow = time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

// initGitRepo creates a scratch git repository with one commit on main, the
// way gitint_test.go's own initGitRepo does, so PhaseRunners that shell out
// to git (the scope enforcer, the pr phase) have something real to run
// against.
func initGitRepo(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a real git binary")
	}
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Skipf("git not usable in this environment: %v: %s", err, out)
		}
	}
	run("init", "-b", "main")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "wreckit-test")
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello\n"), 0644); err != nil {
		t.Fatal(err)
	}
	run("add", "-A")
	run("commit", "-m", "initial")
	return dir
}

// fakeAgentScript writes a shell script masquerading as the agent binary,
// the way internal/agent/driver_test.go's own fakeAgentScript does.
func fakeAgentScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake agent script requires a POSIX shell")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-agent.sh")
	script := "#!/bin/sh\n" + body
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("writing fake agent script: %v", err)
	}
	return path
}

// writePrompt writes a trivial prompt template for phase into promptsDir.
func writePrompt(t *testing.T, promptsDir, phase string) {
	t.Helper()
	if err := os.MkdirAll(promptsDir, 0755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(promptsDir, phase+".md")
	if err := os.WriteFile(path, []byte("Work on $ITEM_ID: $ITEM_TITLE\n"), 0644); err != nil {
		t.Fatal(err)
	}
}

// testRunner wires a Runner against a scratch project directory and a
// scratch .wreckit store, with agentScript as the configured agent command.
func testRunner(t *testing.T, projectRoot, agentScript string) *Runner {
	t.Helper()
	wreckitDir := filepath.Join(projectRoot, ".wreckit")
	repo := store.New(wreckitDir)
	artifacts := store.NewArtifactStore(repo)
	sc := scope.New(projectRoot)
	git := gitint.New(projectRoot)
	pr := &fakePRClient{}

	cfg := config.Default()
	cfg.BaseBranch = "main"
	cfg.Agent.Command = agentScript
	cfg.TimeoutSeconds = 5
	cfg.PRChecks.AllowedRemotePatterns = []string{".*"}

	return New(repo, artifacts, agent.New(), sc, git, pr, &cfg, zap.NewNop(), projectRoot, filepath.Join(wreckitDir, "prompts"))
}

// fakePRClient is a scriptable gitint.PRClient for phase tests that never
// shell out to a real PR host.
type fakePRClient struct {
	createResult *gitint.CreateOrUpdatePRResult
	createErr    error
	mergeability *gitint.PRMergeabilityResult
	details      *gitint.PRDetails
	detailsErr   error
}

func (f *fakePRClient) CreateOrUpdatePR(ctx context.Context, base, head, title, body string) (*gitint.CreateOrUpdatePRResult, error) {
	if f.createResult != nil || f.createErr != nil {
		return f.createResult, f.createErr
	}
	return &gitint.CreateOrUpdatePRResult{URL: "https://example.com/pr/1", Number: 1, Created: true}, nil
}

func (f *fakePRClient) CheckPRMergeability(ctx context.Context, number int) (*gitint.PRMergeabilityResult, error) {
	if f.mergeability != nil {
		return f.mergeability, nil
	}
	return &gitint.PRMergeabilityResult{Determined: true, Mergeable: true}, nil
}

func (f *fakePRClient) GetPRDetails(ctx context.Context, number int) (*gitint.PRDetails, error) {
	if f.details != nil || f.detailsErr != nil {
		return f.details, f.detailsErr
	}
	return &gitint.PRDetails{QuerySucceeded: true}, nil
}
