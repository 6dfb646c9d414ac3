// Package workitem defines the Item and PRD aggregate roots driven through
// the workflow pipeline, and the transient ValidationContext snapshot used
// to decide whether a state transition is legal.
package workitem

import (
	"regexp"
	"time"
)

// State is one position in the fixed workflow pipeline.
type State string

const (
	StateIdea        State = "idea"
	StateResearched   State = "researched"
	StatePlanned      State = "planned"
	StateImplementing State = "implementing"
	StateCritique     State = "critique"
	StateInPR         State = "in_pr"
	StateDone         State = "done"
)

var idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9\-/]*$`)

// ValidID reports whether s is a legal item id: lowercase, digits, '-', '/'.
func ValidID(s string) bool {
	return s != "" && idPattern.MatchString(s)
}

// Item is a single unit of work tracked from idea to merged change.
type Item struct {
	ID      string `json:"id" validate:"required"`
	Title   string `json:"title" validate:"required"`
	Section string `json:"section,omitempty"`
	Overview string `json:"overview,omitempty"`
	State   State  `json:"state" validate:"required"`

	Branch   *string `json:"branch,omitempty"`
	PRURL    *string `json:"pr_url,omitempty"`
	PRNumber *int    `json:"pr_number,omitempty"`

	LastError *string `json:"last_error,omitempty"`

	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	MergedAt       *time.Time `json:"merged_at,omitempty"`
	MergeCommitSHA *string    `json:"merge_commit_sha,omitempty"`
	ChecksPassed   *bool      `json:"checks_passed,omitempty"`
	RollbackSHA    *string    `json:"rollback_sha,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates a fresh Item in the idea state.
func New(id, title, section, overview string, now time.Time) *Item {
	return &Item{
		ID:        id,
		Title:     title,
		Section:   section,
		Overview:  overview,
		State:     StateIdea,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// DoneInvariantSatisfied reports whether the item satisfies the §3 invariant for state=done:
// either (pr_url set and merged_at set) or (rollback_sha set, direct-merge mode).
func (it *Item) DoneInvariantSatisfied() bool {
	if it.State != StateDone {
		return true
	}
	prMerged := it.PRURL != nil && it.MergedAt != nil
	directMerged := it.RollbackSHA != nil
	return prMerged || directMerged
}

// Clone returns a deep-enough copy for safe mutation by a runner.
func (it *Item) Clone() *Item {
	cp := *it
	if it.Branch != nil {
		b := *it.Branch
		cp.Branch = &b
	}
	if it.PRURL != nil {
		v := *it.PRURL
		cp.PRURL = &v
	}
	if it.PRNumber != nil {
		v := *it.PRNumber
		cp.PRNumber = &v
	}
	if it.LastError != nil {
		v := *it.LastError
		cp.LastError = &v
	}
	if it.CompletedAt != nil {
		v := *it.CompletedAt
		cp.CompletedAt = &v
	}
	if it.MergedAt != nil {
		v := *it.MergedAt
		cp.MergedAt = &v
	}
	if it.MergeCommitSHA != nil {
		v := *it.MergeCommitSHA
		cp.MergeCommitSHA = &v
	}
	if it.ChecksPassed != nil {
		v := *it.ChecksPassed
		cp.ChecksPassed = &v
	}
	if it.RollbackSHA != nil {
		v := *it.RollbackSHA
		cp.RollbackSHA = &v
	}
	return &cp
}

// SetLastError sets LastError to msg, or clears it when msg is empty.
func (it *Item) SetLastError(msg string) {
	if msg == "" {
		it.LastError = nil
		return
	}
	it.LastError = &msg
}
