package workitem

import "regexp"

// StoryStatus is the lifecycle state of a single UserStory.
type StoryStatus string

const (
	StoryPending    StoryStatus = "pending"
	StoryInProgress StoryStatus = "in_progress"
	StoryDone       StoryStatus = "done"
	StoryFailed     StoryStatus = "failed"
)

var storyIDPattern = regexp.MustCompile(`^US-\d+$`)

// ValidStoryID reports whether s matches the US-\d+ convention.
func ValidStoryID(s string) bool {
	return storyIDPattern.MatchString(s)
}

// UserStory is one atomic unit of implementation within a PRD.
type UserStory struct {
	ID                 string      `json:"id" validate:"required"`
	Title              string      `json:"title" validate:"required"`
	AcceptanceCriteria []string    `json:"acceptance_criteria" validate:"required,min=1"`
	Priority           int         `json:"priority" validate:"min=1,max=4"`
	Status             StoryStatus `json:"status" validate:"required"`
	Notes              string      `json:"notes,omitempty"`
}

// ClampPriority clamps Priority into [1,4] in place, per §3's load/repair invariant.
func (s *UserStory) ClampPriority() {
	if s.Priority < 1 {
		s.Priority = 1
	}
	if s.Priority > 4 {
		s.Priority = 4
	}
}

// PRD is the structured product-requirements document produced by the plan
// phase and mutated by the implement phase as stories complete.
type PRD struct {
	SchemaVersion int         `json:"schema_version" validate:"min=1"`
	ID            string      `json:"id" validate:"required"`
	BranchName    string      `json:"branch_name" validate:"required"`
	UserStories   []UserStory `json:"user_stories" validate:"required,min=1,dive"`
}

// Repair clamps every story's priority into range. Called on load per §3.
func (p *PRD) Repair() {
	for i := range p.UserStories {
		p.UserStories[i].ClampPriority()
	}
}

// AllStoriesDone reports whether every story has reached StoryDone.
func (p *PRD) AllStoriesDone() bool {
	for _, s := range p.UserStories {
		if s.Status != StoryDone {
			return false
		}
	}
	return true
}

// NextPending returns the pending story of lowest priority (ties broken by
// ascending story id, which matches insertion order), or nil if none remain.
func (p *PRD) NextPending() *UserStory {
	var best *UserStory
	for i := range p.UserStories {
		s := &p.UserStories[i]
		if s.Status != StoryPending {
			continue
		}
		if best == nil || s.Priority < best.Priority ||
			(s.Priority == best.Priority && s.ID < best.ID) {
			best = s
		}
	}
	return best
}

// FindStory returns a pointer to the story with the given id, or nil.
func (p *PRD) FindStory(id string) *UserStory {
	for i := range p.UserStories {
		if p.UserStories[i].ID == id {
			return &p.UserStories[i]
		}
	}
	return nil
}

// UniqueStoryIDs reports whether all story ids are distinct.
func (p *PRD) UniqueStoryIDs() bool {
	seen := make(map[string]bool, len(p.UserStories))
	for _, s := range p.UserStories {
		if seen[s.ID] {
			return false
		}
		seen[s.ID] = true
	}
	return true
}

// ExpectedBranchName computes the branch name a PRD must carry: the
// configured prefix concatenated with the item id, slashes replaced with
// dashes (branch names cannot safely carry nested refs for every VCS host).
func ExpectedBranchName(prefix, itemID string) string {
	slug := make([]byte, 0, len(itemID))
	for i := 0; i < len(itemID); i++ {
		if itemID[i] == '/' {
			slug = append(slug, '-')
		} else {
			slug = append(slug, itemID[i])
		}
	}
	return prefix + string(slug)
}
