package gitint

import (
	"context"
	"time"
)

// CreateOrUpdatePRResult is the outcome of PRClient.CreateOrUpdatePR.
type CreateOrUpdatePRResult struct {
	URL     string
	Number  int
	Created bool
}

// PRMergeabilityResult is the outcome of PRClient.CheckPRMergeability.
// Determined is false when the host is still computing mergeability
// (GitHub reports this as a transient "unknown" state).
type PRMergeabilityResult struct {
	Determined bool
	Mergeable  bool
}

// PRDetails is the outcome of PRClient.GetPRDetails, per spec §4.8.
type PRDetails struct {
	QuerySucceeded bool
	Merged         bool
	BaseRefName    string
	HeadRefName    string
	MergedAt       *time.Time
	MergeCommitOID string
	ChecksPassed   bool
	Err            string
}

// PRClient is the PR-tool interface of spec §4.8 / §6: something that can
// create or update a PR and query its status. ghcli.go and githubapi.go
// are the two concrete backends; NewPRClient picks one at construction
// time and PhaseRunners never know which.
type PRClient interface {
	CreateOrUpdatePR(ctx context.Context, base, head, title, body string) (*CreateOrUpdatePRResult, error)
	CheckPRMergeability(ctx context.Context, number int) (*PRMergeabilityResult, error)
	GetPRDetails(ctx context.Context, number int) (*PRDetails, error)
}
