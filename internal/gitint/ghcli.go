package gitint

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/jorge-barreto/wreckit/internal/werr"
)

// GHCLIClient implements PRClient by shelling out to the gh CLI, the way
// randalmurphal-orc's internal/executor/pr.go drives gh pr create/checks/view.
type GHCLIClient struct {
	WorkDir string
}

// NewGHCLIClient returns a PRClient backed by the gh CLI rooted at workDir.
func NewGHCLIClient(workDir string) *GHCLIClient {
	return &GHCLIClient{WorkDir: workDir}
}

func (c *GHCLIClient) runGH(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "gh", args...)
	cmd.Dir = c.WorkDir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%w: %s", err, out)
	}
	return string(out), nil
}

// CreateOrUpdatePR creates a PR via `gh pr create`, or updates the title
// and body of an existing PR for head via `gh pr edit` if one already exists.
func (c *GHCLIClient) CreateOrUpdatePR(ctx context.Context, base, head, title, body string) (*CreateOrUpdatePRResult, error) {
	if existing, err := c.runGH(ctx, "pr", "view", head, "--json", "url,number"); err == nil {
		var v struct {
			URL    string `json:"url"`
			Number int    `json:"number"`
		}
		if jsonErr := json.Unmarshal([]byte(existing), &v); jsonErr == nil && v.Number != 0 {
			if _, err := c.runGH(ctx, "pr", "edit", head, "--title", title, "--body", body); err != nil {
				return nil, werr.Wrap(werr.KindPrToolError, err, "gh pr edit failed")
			}
			return &CreateOrUpdatePRResult{URL: v.URL, Number: v.Number, Created: false}, nil
		}
	}

	out, err := c.runGH(ctx, "pr", "create", "--title", title, "--body", body, "--base", base, "--head", head)
	if err != nil {
		if isAuthError(err) {
			return nil, werr.Wrap(werr.KindPrToolError, err, "gh not authenticated").
				WithHint("run: gh auth login")
		}
		return nil, werr.Wrap(werr.KindPrToolError, err, "gh pr create failed")
	}

	prURL := strings.TrimSpace(out)
	number := 0
	if parts := strings.Split(prURL, "/pull/"); len(parts) == 2 {
		number, _ = strconv.Atoi(strings.TrimSpace(parts[1]))
	}
	return &CreateOrUpdatePRResult{URL: prURL, Number: number, Created: true}, nil
}

// CheckPRMergeability queries gh pr view for the mergeable field.
func (c *GHCLIClient) CheckPRMergeability(ctx context.Context, number int) (*PRMergeabilityResult, error) {
	out, err := c.runGH(ctx, "pr", "view", strconv.Itoa(number), "--json", "mergeable")
	if err != nil {
		return nil, werr.Wrap(werr.KindPrToolError, err, "gh pr view --json mergeable failed")
	}
	var v struct {
		Mergeable string `json:"mergeable"`
	}
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		return nil, werr.Wrap(werr.KindPrToolError, err, "parsing gh pr view output")
	}
	switch strings.ToUpper(v.Mergeable) {
	case "MERGEABLE":
		return &PRMergeabilityResult{Determined: true, Mergeable: true}, nil
	case "CONFLICTING":
		return &PRMergeabilityResult{Determined: true, Mergeable: false}, nil
	default:
		return &PRMergeabilityResult{Determined: false}, nil
	}
}

// GetPRDetails queries gh pr view for merge state and checks status.
func (c *GHCLIClient) GetPRDetails(ctx context.Context, number int) (*PRDetails, error) {
	out, err := c.runGH(ctx, "pr", "view", strconv.Itoa(number),
		"--json", "state,baseRefName,headRefName,mergedAt,mergeCommit,statusCheckRollup")
	if err != nil {
		return &PRDetails{QuerySucceeded: false, Err: err.Error()}, nil
	}

	var v struct {
		State       string `json:"state"`
		BaseRefName string `json:"baseRefName"`
		HeadRefName string `json:"headRefName"`
		MergedAt    string `json:"mergedAt"`
		MergeCommit struct {
			OID string `json:"oid"`
		} `json:"mergeCommit"`
		StatusCheckRollup []struct {
			Conclusion string `json:"conclusion"`
		} `json:"statusCheckRollup"`
	}
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		return &PRDetails{QuerySucceeded: false, Err: "parsing gh pr view output: " + err.Error()}, nil
	}

	details := &PRDetails{
		QuerySucceeded: true,
		Merged:         strings.EqualFold(v.State, "MERGED"),
		BaseRefName:    v.BaseRefName,
		HeadRefName:    v.HeadRefName,
		MergeCommitOID: v.MergeCommit.OID,
		ChecksPassed:   true,
	}
	if v.MergedAt != "" {
		if t, err := time.Parse(time.RFC3339, v.MergedAt); err == nil {
			details.MergedAt = &t
		}
	}
	for _, check := range v.StatusCheckRollup {
		if check.Conclusion != "" && !strings.EqualFold(check.Conclusion, "SUCCESS") {
			details.ChecksPassed = false
		}
	}
	return details, nil
}

func isAuthError(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not logged in") ||
		strings.Contains(s, "not authenticated") ||
		strings.Contains(s, "authentication required") ||
		strings.Contains(s, "401") ||
		strings.Contains(s, "unauthorized")
}
