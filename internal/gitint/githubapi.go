package gitint

import (
	"context"
	"fmt"

	"github.com/google/go-github/v68/github"

	"github.com/jorge-barreto/wreckit/internal/werr"
)

// GitHubAPIClient implements PRClient by talking to the GitHub REST API
// directly, grounded on nickmisasi-mattermost-plugin-cursor's ghclient
// package — same github.NewClient(nil).WithAuthToken(token) construction,
// same delegation to gh.PullRequests.* calls. Used in place of GHCLIClient
// when a GITHUB_TOKEN/GH_TOKEN is present, trading the gh CLI's text
// parsing for typed Mergeable/MergeableState/Merged fields.
type GitHubAPIClient struct {
	gh    *github.Client
	Owner string
	Repo  string
}

// NewGitHubAPIClient returns a PRClient backed by the GitHub REST API,
// authenticated with token, scoped to owner/repo.
func NewGitHubAPIClient(token, owner, repo string) *GitHubAPIClient {
	return &GitHubAPIClient{
		gh:    github.NewClient(nil).WithAuthToken(token),
		Owner: owner,
		Repo:  repo,
	}
}

// CreateOrUpdatePR creates a PR for head into base, or edits the title and
// body of an existing open PR for head if one is already present.
func (c *GitHubAPIClient) CreateOrUpdatePR(ctx context.Context, base, head, title, body string) (*CreateOrUpdatePRResult, error) {
	existing, _, err := c.gh.PullRequests.List(ctx, c.Owner, c.Repo, &github.PullRequestListOptions{
		Head:        c.Owner + ":" + head,
		State:       "open",
		ListOptions: github.ListOptions{PerPage: 1},
	})
	if err == nil && len(existing) > 0 {
		pr := existing[0]
		updated, _, editErr := c.gh.PullRequests.Edit(ctx, c.Owner, c.Repo, pr.GetNumber(), &github.PullRequest{
			Title: &title,
			Body:  &body,
		})
		if editErr != nil {
			return nil, werr.Wrap(werr.KindPrToolError, editErr, "editing existing pull request")
		}
		return &CreateOrUpdatePRResult{URL: updated.GetHTMLURL(), Number: updated.GetNumber(), Created: false}, nil
	}

	pr, _, err := c.gh.PullRequests.Create(ctx, c.Owner, c.Repo, &github.NewPullRequest{
		Title: &title,
		Body:  &body,
		Base:  &base,
		Head:  &head,
	})
	if err != nil {
		return nil, werr.Wrap(werr.KindPrToolError, err, "creating pull request")
	}
	return &CreateOrUpdatePRResult{URL: pr.GetHTMLURL(), Number: pr.GetNumber(), Created: true}, nil
}

// CheckPRMergeability returns GitHub's computed Mergeable field, which is
// nil while GitHub is still computing it (the "unknown" state).
func (c *GitHubAPIClient) CheckPRMergeability(ctx context.Context, number int) (*PRMergeabilityResult, error) {
	pr, _, err := c.gh.PullRequests.Get(ctx, c.Owner, c.Repo, number)
	if err != nil {
		return nil, werr.Wrap(werr.KindPrToolError, err, fmt.Sprintf("getting PR #%d", number))
	}
	if pr.Mergeable == nil {
		return &PRMergeabilityResult{Determined: false}, nil
	}
	return &PRMergeabilityResult{Determined: true, Mergeable: *pr.Mergeable}, nil
}

// GetPRDetails returns the merge state and combined check status for number.
func (c *GitHubAPIClient) GetPRDetails(ctx context.Context, number int) (*PRDetails, error) {
	pr, _, err := c.gh.PullRequests.Get(ctx, c.Owner, c.Repo, number)
	if err != nil {
		return &PRDetails{QuerySucceeded: false, Err: err.Error()}, nil
	}

	details := &PRDetails{
		QuerySucceeded: true,
		Merged:         pr.GetMerged(),
		BaseRefName:    pr.GetBase().GetRef(),
		HeadRefName:    pr.GetHead().GetRef(),
		MergeCommitOID: pr.GetMergeCommitSHA(),
		ChecksPassed:   true,
	}
	if pr.MergedAt != nil {
		t := pr.GetMergedAt().Time
		details.MergedAt = &t
	}

	status, _, err := c.gh.Repositories.GetCombinedStatus(ctx, c.Owner, c.Repo, pr.GetHead().GetSHA(), nil)
	if err == nil && status.GetState() != "" && status.GetState() != "success" {
		details.ChecksPassed = false
	}
	return details, nil
}
