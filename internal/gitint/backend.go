package gitint

import (
	"context"
	"os"
	"regexp"
	"strings"
)

var remoteOwnerRepoPattern = regexp.MustCompile(`github\.com[:/]([^/]+)/([^/]+?)(\.git)?$`)

// ParseOwnerRepo extracts owner and repo from a GitHub remote URL in either
// SSH (git@github.com:owner/repo.git) or HTTPS (https://github.com/owner/repo)
// form.
func ParseOwnerRepo(remoteURL string) (owner, repo string, ok bool) {
	m := remoteOwnerRepoPattern.FindStringSubmatch(remoteURL)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// NewPRClient selects a PRClient backend per SPEC_FULL.md §4.10: when
// GITHUB_TOKEN or GH_TOKEN is set and origin's URL can be parsed, it uses
// the typed GitHubAPIClient; otherwise it falls back to shelling out
// through the gh CLI, which relies on the operator's own `gh auth login`
// session instead of an explicit token.
func NewPRClient(ctx context.Context, g *GitIntegration) PRClient {
	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		token = os.Getenv("GH_TOKEN")
	}
	if token == "" {
		return NewGHCLIClient(g.WorkDir)
	}

	out, err := g.run(ctx, "remote", "get-url", "origin")
	if err != nil {
		return NewGHCLIClient(g.WorkDir)
	}
	owner, repo, ok := ParseOwnerRepo(strings.TrimSpace(out))
	if !ok {
		return NewGHCLIClient(g.WorkDir)
	}
	return NewGitHubAPIClient(token, owner, repo)
}
