package gitint

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func initGitRepo(t *testing.T) string {
	t.Helper()
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

func TestEnsureBranch_CreatesThenReuses(t *testing.T) {
	dir := initGitRepo(t)
	g := New(dir)
	ctx := context.Background()

	res, err := g.EnsureBranch(ctx, "main", "wreckit/", "demo-item")
	if err != nil {
		t.Fatalf("EnsureBranch: %v", err)
	}
	if !res.Created || res.BranchName != "wreckit/demo-item" {
		t.Fatalf("unexpected result: %+v", res)
	}

	if _, err := g.run(ctx, "checkout", "main"); err != nil {
		t.Fatalf("checkout main: %v", err)
	}

	res2, err := g.EnsureBranch(ctx, "main", "wreckit/", "demo-item")
	if err != nil {
		t.Fatalf("EnsureBranch (reuse): %v", err)
	}
	if res2.Created {
		t.Error("expected second EnsureBranch to reuse the existing branch")
	}
}

func TestHasUncommittedChanges(t *testing.T) {
	dir := initGitRepo(t)
	g := New(dir)
	ctx := context.Background()

	has, err := g.HasUncommittedChanges(ctx)
	if err != nil {
		t.Fatalf("HasUncommittedChanges: %v", err)
	}
	if has {
		t.Error("expected clean working tree immediately after init")
	}

	if err := os.WriteFile(filepath.Join(dir, "new.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	has, err = g.HasUncommittedChanges(ctx)
	if err != nil {
		t.Fatalf("HasUncommittedChanges: %v", err)
	}
	if !has {
		t.Error("expected dirty working tree after writing a new file")
	}
}

func TestCommitAllAndGetBranchSHA(t *testing.T) {
	dir := initGitRepo(t)
	g := New(dir)
	ctx := context.Background()

	if err := os.WriteFile(filepath.Join(dir, "new.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := g.CommitAll(ctx, "add new.txt"); err != nil {
		t.Fatalf("CommitAll: %v", err)
	}

	branch, err := g.GetCurrentBranch(ctx)
	if err != nil {
		t.Fatalf("GetCurrentBranch: %v", err)
	}
	if branch != "main" {
		t.Errorf("expected main, got %q", branch)
	}

	sha, err := g.GetBranchSHA(ctx, "main")
	if err != nil {
		t.Fatalf("GetBranchSHA: %v", err)
	}
	if len(sha) < 7 {
		t.Errorf("expected a commit sha, got %q", sha)
	}
}

func TestCheckMergeConflicts_CleanMergeAndRollback(t *testing.T) {
	dir := initGitRepo(t)
	g := New(dir)
	ctx := context.Background()

	if _, err := g.EnsureBranch(ctx, "main", "wreckit/", "feature"); err != nil {
		t.Fatalf("EnsureBranch: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "feature.txt"), []byte("feature"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := g.CommitAll(ctx, "add feature"); err != nil {
		t.Fatalf("CommitAll: %v", err)
	}

	result := g.CheckMergeConflicts(ctx, "main", "wreckit/feature")
	if result.HasConflicts {
		t.Fatalf("expected clean merge, got conflict: %s", result.Err)
	}

	branch, err := g.GetCurrentBranch(ctx)
	if err != nil {
		t.Fatalf("GetCurrentBranch: %v", err)
	}
	if branch != "wreckit/feature" {
		t.Errorf("expected rollback to the pre-check branch, got %q", branch)
	}

	has, err := g.HasUncommittedChanges(ctx)
	if err != nil {
		t.Fatalf("HasUncommittedChanges: %v", err)
	}
	if has {
		t.Error("expected no leftover state from the dry-run merge")
	}
}

func TestCheckMergeConflicts_DetectsConflict(t *testing.T) {
	dir := initGitRepo(t)
	g := New(dir)
	ctx := context.Background()

	if _, err := g.EnsureBranch(ctx, "main", "wreckit/", "feature"); err != nil {
		t.Fatalf("EnsureBranch: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("feature change\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := g.CommitAll(ctx, "feature edit"); err != nil {
		t.Fatalf("CommitAll: %v", err)
	}

	if _, err := g.run(ctx, "checkout", "main"); err != nil {
		t.Fatalf("checkout main: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("main change\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := g.CommitAll(ctx, "main edit"); err != nil {
		t.Fatalf("CommitAll: %v", err)
	}

	result := g.CheckMergeConflicts(ctx, "main", "wreckit/feature")
	if !result.HasConflicts {
		t.Fatal("expected a conflict between divergent README.md edits")
	}

	has, err := g.HasUncommittedChanges(ctx)
	if err != nil {
		t.Fatalf("HasUncommittedChanges: %v", err)
	}
	if has {
		t.Error("expected the aborted merge to leave a clean working tree")
	}
}

func TestMergeAndPushToBase_NoRemoteFails(t *testing.T) {
	dir := initGitRepo(t)
	g := New(dir)
	ctx := context.Background()

	if _, err := g.EnsureBranch(ctx, "main", "wreckit/", "feature"); err != nil {
		t.Fatalf("EnsureBranch: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "feature.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := g.CommitAll(ctx, "feature work"); err != nil {
		t.Fatalf("CommitAll: %v", err)
	}

	if err := g.MergeAndPushToBase(ctx, "main", "wreckit/feature", "merge feature"); err == nil {
		t.Fatal("expected push to fail with no configured remote")
	}
}

func TestValidateRemoteURL_NoRemoteConfigured(t *testing.T) {
	dir := initGitRepo(t)
	g := New(dir)
	result := g.ValidateRemoteURL(context.Background(), "origin", []string{`github\.com/acme/.*`})
	if result.Valid {
		t.Fatal("expected invalid result when no remote is configured")
	}
	if len(result.Errors) == 0 {
		t.Error("expected an explanatory error")
	}
}

func TestValidateRemoteURL_MatchesPattern(t *testing.T) {
	dir := initGitRepo(t)
	g := New(dir)
	ctx := context.Background()
	if _, err := g.run(ctx, "remote", "add", "origin", "https://github.com/acme/widgets.git"); err != nil {
		t.Fatalf("remote add: %v", err)
	}

	result := g.ValidateRemoteURL(ctx, "origin", []string{`github\.com/acme/.*`})
	if !result.Valid {
		t.Fatalf("expected match, got %+v", result)
	}
	if !strings.Contains(result.ActualURL, "acme/widgets") {
		t.Errorf("unexpected actual url: %q", result.ActualURL)
	}
}

func TestRunPrePushQualityGates_CollectsAllFailures(t *testing.T) {
	dir := initGitRepo(t)
	g := New(dir)
	checks := []QualityCheck{
		{Name: "pass", Run: "true", Enabled: true},
		{Name: "fail1", Run: "exit 1", Enabled: true},
		{Name: "skip", Run: "exit 1", Enabled: false},
		{Name: "fail2", Run: "exit 2", Enabled: true},
	}
	result := g.RunPrePushQualityGates(context.Background(), checks)
	if result.Success {
		t.Fatal("expected overall failure")
	}
	if len(result.Errors) != 2 {
		t.Fatalf("expected 2 failures, got %v", result.Errors)
	}
	if len(result.Skipped) != 1 || result.Skipped[0] != "skip" {
		t.Fatalf("expected skip to be recorded, got %v", result.Skipped)
	}
}

func TestCheckGitPreflight_CleanRepoNoErrors(t *testing.T) {
	dir := initGitRepo(t)
	g := New(dir)
	errs := g.CheckGitPreflight(context.Background(), PreflightOptions{})
	if len(errs) != 0 {
		t.Fatalf("expected no preflight errors on a fresh repo, got %+v", errs)
	}
}

func TestCleanupBranch(t *testing.T) {
	dir := initGitRepo(t)
	g := New(dir)
	ctx := context.Background()

	if _, err := g.EnsureBranch(ctx, "main", "wreckit/", "feature"); err != nil {
		t.Fatalf("EnsureBranch: %v", err)
	}
	if err := g.CleanupBranch(ctx, "wreckit/feature", "main", false); err != nil {
		t.Fatalf("CleanupBranch: %v", err)
	}

	branch, err := g.GetCurrentBranch(ctx)
	if err != nil {
		t.Fatalf("GetCurrentBranch: %v", err)
	}
	if branch != "main" {
		t.Errorf("expected main after cleanup, got %q", branch)
	}

	if _, err := g.run(ctx, "rev-parse", "--verify", "refs/heads/wreckit/feature"); err == nil {
		t.Error("expected branch to be deleted")
	}
}
