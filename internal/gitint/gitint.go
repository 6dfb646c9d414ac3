// Package gitint implements the GitIntegration contract of spec §4.8: a
// thin command-shell wrapper around git, plus a pluggable PRClient for the
// PR-tool half of the contract (see prclient.go, ghcli.go, githubapi.go).
//
// Every git operation shells out the way internal/scope shells out to git
// and randalmurphal-orc's executor shells out to gh: exec.CommandContext
// with CombinedOutput, no git library dependency. Every method returns a
// structured result rather than a bare error, per the spec's "Failure
// model" — callers (the phase runners) translate these into typed
// werr.WorkflowErrors with recovery hints.
package gitint

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"github.com/jorge-barreto/wreckit/internal/werr"
)

// GitIntegration shells out to git rooted at WorkDir.
type GitIntegration struct {
	WorkDir string
}

// New returns a GitIntegration rooted at workDir (a git repository root).
func New(workDir string) *GitIntegration {
	return &GitIntegration{WorkDir: workDir}
}

func (g *GitIntegration) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.WorkDir
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// EnsureBranchResult is the outcome of EnsureBranch.
type EnsureBranchResult struct {
	BranchName string
	Created    bool
}

// EnsureBranch checks out branchPrefix+slug if it exists locally, or
// creates it from base and checks it out otherwise.
func (g *GitIntegration) EnsureBranch(ctx context.Context, base, branchPrefix, slug string) (*EnsureBranchResult, error) {
	name := branchPrefix + slug
	if _, err := g.run(ctx, "rev-parse", "--verify", "refs/heads/"+name); err == nil {
		if out, err := g.run(ctx, "checkout", name); err != nil {
			return nil, werr.Wrap(werr.KindGitPreflight, err, "checkout existing branch "+name+": "+out)
		}
		return &EnsureBranchResult{BranchName: name, Created: false}, nil
	}
	if out, err := g.run(ctx, "checkout", "-b", name, base); err != nil {
		return nil, werr.Wrap(werr.KindGitPreflight, err, "create branch "+name+" from "+base+": "+out)
	}
	return &EnsureBranchResult{BranchName: name, Created: true}, nil
}

// HasUncommittedChanges reports whether the working tree has any changes,
// staged or not.
func (g *GitIntegration) HasUncommittedChanges(ctx context.Context) (bool, error) {
	out, err := g.run(ctx, "status", "--porcelain")
	if err != nil {
		return false, werr.Wrap(werr.KindGitPreflight, err, "git status --porcelain failed: "+out)
	}
	return strings.TrimSpace(out) != "", nil
}

// CommitAll stages and commits every working-tree change with message.
func (g *GitIntegration) CommitAll(ctx context.Context, message string) error {
	if out, err := g.run(ctx, "add", "-A"); err != nil {
		return werr.Wrap(werr.KindGitPreflight, err, "git add -A failed: "+out)
	}
	if out, err := g.run(ctx, "commit", "-m", message); err != nil {
		return werr.Wrap(werr.KindGitPreflight, err, "git commit failed: "+out)
	}
	return nil
}

// PushBranch pushes name to origin, setting the upstream if not already set.
func (g *GitIntegration) PushBranch(ctx context.Context, name string) error {
	if out, err := g.run(ctx, "push", "--set-upstream", "origin", name); err != nil {
		return werr.Wrap(werr.KindGitPreflight, err, "git push "+name+" failed: "+out)
	}
	return nil
}

// GetCurrentBranch returns the checked-out branch name.
func (g *GitIntegration) GetCurrentBranch(ctx context.Context) (string, error) {
	out, err := g.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", werr.Wrap(werr.KindGitPreflight, err, "git rev-parse HEAD failed: "+out)
	}
	return strings.TrimSpace(out), nil
}

// GetBranchSHA returns the commit SHA name currently points at.
func (g *GitIntegration) GetBranchSHA(ctx context.Context, name string) (string, error) {
	out, err := g.run(ctx, "rev-parse", name)
	if err != nil {
		return "", werr.Wrap(werr.KindGitPreflight, err, "git rev-parse "+name+" failed: "+out)
	}
	return strings.TrimSpace(out), nil
}

// PreflightOptions configures CheckGitPreflight.
type PreflightOptions struct {
	CheckRemoteSync bool
}

// PreflightError is one typed preflight failure with a recovery hint.
type PreflightError struct {
	Kind         werr.Kind
	Message      string
	RecoveryHint string
}

// CheckGitPreflight runs a battery of sanity checks before a phase that
// mutates the working tree: a resolvable HEAD, a directory inside a git
// work tree, and optionally an up-to-date remote tracking ref. Uncommitted
// changes in the working tree are not checked.
func (g *GitIntegration) CheckGitPreflight(ctx context.Context, opts PreflightOptions) []PreflightError {
	var errs []PreflightError

	if _, err := g.run(ctx, "rev-parse", "HEAD"); err != nil {
		errs = append(errs, PreflightError{
			Kind:         werr.KindGitPreflight,
			Message:      "no commits on HEAD",
			RecoveryHint: "make an initial commit before running wreckit",
		})
	}

	if out, err := g.run(ctx, "rev-parse", "--is-inside-work-tree"); err != nil || strings.TrimSpace(out) != "true" {
		errs = append(errs, PreflightError{
			Kind:         werr.KindGitPreflight,
			Message:      "not inside a git working tree",
			RecoveryHint: "run wreckit from within a git repository",
		})
	}

	if opts.CheckRemoteSync {
		branch, err := g.GetCurrentBranch(ctx)
		if err == nil {
			if out, fetchErr := g.run(ctx, "fetch", "origin", branch); fetchErr != nil {
				errs = append(errs, PreflightError{
					Kind:         werr.KindGitPreflight,
					Message:      "could not fetch origin/" + branch + ": " + out,
					RecoveryHint: "check network access and remote configuration",
				})
			} else if behind, behindErr := g.countBehind(ctx, branch); behindErr == nil && behind > 0 {
				errs = append(errs, PreflightError{
					Kind:         werr.KindGitPreflight,
					Message:      fmt.Sprintf("local %s is %d commit(s) behind origin/%s", branch, behind, branch),
					RecoveryHint: "pull or rebase before continuing",
				})
			}
		}
	}

	return errs
}

func (g *GitIntegration) countBehind(ctx context.Context, branch string) (int, error) {
	out, err := g.run(ctx, "rev-list", "--count", branch+"..origin/"+branch)
	if err != nil {
		return 0, err
	}
	var n int
	if _, scanErr := fmt.Sscanf(strings.TrimSpace(out), "%d", &n); scanErr != nil {
		return 0, scanErr
	}
	return n, nil
}

// MergeConflictResult is the outcome of CheckMergeConflicts.
type MergeConflictResult struct {
	HasConflicts bool
	Err          string
}

// CheckMergeConflicts dry-runs a merge of head into base on a disposable
// scratch ref, then unconditionally rolls back to the branch that was
// checked out beforehand — the merge attempt never survives the call.
func (g *GitIntegration) CheckMergeConflicts(ctx context.Context, base, head string) MergeConflictResult {
	original, err := g.GetCurrentBranch(ctx)
	if err != nil {
		return MergeConflictResult{Err: "could not determine current branch: " + err.Error()}
	}

	const scratch = "wreckit-merge-check-scratch"
	_, _ = g.run(ctx, "branch", "-D", scratch)
	defer func() {
		_, _ = g.run(ctx, "checkout", original)
		_, _ = g.run(ctx, "branch", "-D", scratch)
	}()

	if out, err := g.run(ctx, "checkout", "-b", scratch, base); err != nil {
		return MergeConflictResult{Err: "checkout scratch ref: " + out + ": " + err.Error()}
	}

	out, mergeErr := g.run(ctx, "merge", "--no-commit", "--no-ff", head)
	_, _ = g.run(ctx, "merge", "--abort")
	if mergeErr != nil {
		return MergeConflictResult{HasConflicts: true, Err: out}
	}
	return MergeConflictResult{HasConflicts: false}
}

// MergeAndPushToBase switches to base, merges head with message, and
// pushes base to origin.
func (g *GitIntegration) MergeAndPushToBase(ctx context.Context, base, head, message string) error {
	if out, err := g.run(ctx, "checkout", base); err != nil {
		return werr.Wrap(werr.KindGitPreflight, err, "checkout "+base+" failed: "+out)
	}
	if out, err := g.run(ctx, "merge", "--no-ff", "-m", message, head); err != nil {
		return werr.Wrap(werr.KindMergeConflict, err, "merge "+head+" into "+base+" failed: "+out)
	}
	if out, err := g.run(ctx, "push", "origin", base); err != nil {
		return werr.Wrap(werr.KindGitPreflight, err, "push "+base+" failed: "+out)
	}
	return nil
}

// QualityGateResult is the outcome of RunPrePushQualityGates.
type QualityGateResult struct {
	Success bool
	Errors  []string
	Skipped []string
}

// QualityCheck is one named shell command gating a push, per spec §6
// pr_checks.checks[].
type QualityCheck struct {
	Name    string
	Run     string
	Enabled bool
}

// RunPrePushQualityGates runs every enabled check in order, collecting
// failures rather than stopping at the first one, the way
// internal/quality validators collect every validation error.
func (g *GitIntegration) RunPrePushQualityGates(ctx context.Context, checks []QualityCheck) QualityGateResult {
	result := QualityGateResult{Success: true}
	for _, c := range checks {
		if !c.Enabled {
			result.Skipped = append(result.Skipped, c.Name)
			continue
		}
		cmd := exec.CommandContext(ctx, "sh", "-c", c.Run)
		cmd.Dir = g.WorkDir
		if out, err := cmd.CombinedOutput(); err != nil {
			result.Success = false
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v: %s", c.Name, err, strings.TrimSpace(string(out))))
		}
	}
	return result
}

// RemoteValidationResult is the outcome of ValidateRemoteURL.
type RemoteValidationResult struct {
	Valid     bool
	ActualURL string
	Errors    []string
}

// ValidateRemoteURL checks that origin's URL matches at least one of
// allowedPatterns (regular expressions), per spec §6 pr_checks.allowed_remote_patterns.
func (g *GitIntegration) ValidateRemoteURL(ctx context.Context, remoteName string, allowedPatterns []string) RemoteValidationResult {
	out, err := g.run(ctx, "remote", "get-url", remoteName)
	if err != nil {
		return RemoteValidationResult{Errors: []string{"could not resolve remote " + remoteName + ": " + out}}
	}
	url := strings.TrimSpace(out)

	if len(allowedPatterns) == 0 {
		return RemoteValidationResult{ActualURL: url, Errors: []string{"no allowed_remote_patterns configured"}}
	}
	for _, pattern := range allowedPatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			continue
		}
		if re.MatchString(url) {
			return RemoteValidationResult{Valid: true, ActualURL: url}
		}
	}
	return RemoteValidationResult{
		ActualURL: url,
		Errors:    []string{fmt.Sprintf("remote url %q matches none of %v", url, allowedPatterns)},
	}
}

// Checkout switches the working copy to branch.
func (g *GitIntegration) Checkout(ctx context.Context, branch string) error {
	if out, err := g.run(ctx, "checkout", branch); err != nil {
		return werr.Wrap(werr.KindGitPreflight, err, "checkout "+branch+" failed: "+out)
	}
	return nil
}

// CleanupBranch switches to base, deletes name locally, and optionally
// deletes it on origin.
func (g *GitIntegration) CleanupBranch(ctx context.Context, name, base string, deleteRemote bool) error {
	if err := g.Checkout(ctx, base); err != nil {
		return err
	}
	if out, err := g.run(ctx, "branch", "-D", name); err != nil {
		return werr.Wrap(werr.KindGitPreflight, err, "delete local branch "+name+" failed: "+out)
	}
	if deleteRemote {
		if out, err := g.run(ctx, "push", "origin", "--delete", name); err != nil {
			return werr.Wrap(werr.KindGitPreflight, err, "delete remote branch "+name+" failed: "+out)
		}
	}
	return nil
}
