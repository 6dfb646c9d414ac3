// Package quality implements the four pure, string-in/result-out
// validators that gate the research and plan phases and, non-blockingly,
// story completion during implement — spec §4.3.
//
// Each validator is a plain function with no I/O, grounded on the
// teacher's internal/config.validate.go pattern of returning a slice of
// human-readable error strings rather than failing fast on the first
// problem, so a phase runner can surface every defect to the agent in one
// retry prompt.
package quality

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jorge-barreto/wreckit/internal/workitem"
)

const (
	// MinSummaryLen and MinAnalysisLen are measured in characters after
	// trimming whitespace, matching how the teacher measures prompt-size
	// budgets in internal/dispatch/expand.go.
	MinSummaryLen  = 200
	MinAnalysisLen = 400
	MinCitations   = 2
)

var (
	headingPattern   = regexp.MustCompile(`(?m)^#{1,3}\s+.+$`)
	summaryHeading   = regexp.MustCompile(`(?mi)^#{1,3}\s*summary\b.*$`)
	analysisHeading  = regexp.MustCompile(`(?mi)^#{1,3}\s*analysis\b.*$`)
	citationPattern  = regexp.MustCompile(`(?i)(https?://\S+|` + "`" + `[^` + "`" + `\n]+` + "`" + `|\[[^\]]+\]\([^)]+\))`)
	phaseHeadingText = regexp.MustCompile(`(?mi)^#{1,3}\s*phase\b.*$`)
)

// ResearchResult is the output of ValidateResearch.
type ResearchResult struct {
	Valid          bool     `json:"valid"`
	Errors         []string `json:"errors,omitempty"`
	CitationsCount int      `json:"citations_count"`
	SummaryLen     int      `json:"summary_len"`
	AnalysisLen    int      `json:"analysis_len"`
}

// ValidateResearch checks that doc has a summary section, an analysis
// section, each of sufficient length, and a minimum number of citations
// (URLs, inline code references, or markdown links to prior art/files).
func ValidateResearch(doc string) ResearchResult {
	var errs []string

	summary := sectionBody(doc, summaryHeading)
	analysis := sectionBody(doc, analysisHeading)
	summaryLen := len(strings.TrimSpace(summary))
	analysisLen := len(strings.TrimSpace(analysis))
	citations := len(citationPattern.FindAllString(doc, -1))

	if summary == "" {
		errs = append(errs, "missing a Summary section")
	} else if summaryLen < MinSummaryLen {
		errs = append(errs, fmt.Sprintf("Summary section too short (%d chars, need %d)", summaryLen, MinSummaryLen))
	}
	if analysis == "" {
		errs = append(errs, "missing an Analysis section")
	} else if analysisLen < MinAnalysisLen {
		errs = append(errs, fmt.Sprintf("Analysis section too short (%d chars, need %d)", analysisLen, MinAnalysisLen))
	}
	if citations < MinCitations {
		errs = append(errs, fmt.Sprintf("only %d citation(s) found, need at least %d", citations, MinCitations))
	}

	return ResearchResult{
		Valid:          len(errs) == 0,
		Errors:         errs,
		CitationsCount: citations,
		SummaryLen:     summaryLen,
		AnalysisLen:    analysisLen,
	}
}

// PlanResult is the output of ValidatePlan.
type PlanResult struct {
	Valid      bool     `json:"valid"`
	Errors     []string `json:"errors,omitempty"`
	PhaseCount int      `json:"phase_count"`
}

// ValidatePlan checks that doc declares at least one distinct
// implementation-phase heading.
func ValidatePlan(doc string) PlanResult {
	headings := phaseHeadingText.FindAllString(doc, -1)
	distinct := make(map[string]bool, len(headings))
	for _, h := range headings {
		distinct[strings.ToLower(strings.TrimSpace(h))] = true
	}
	count := len(distinct)
	if count == 0 {
		return PlanResult{Valid: false, Errors: []string{"plan has no implementation-phase headings (expected headings starting with \"Phase\")"}}
	}
	return PlanResult{Valid: true, PhaseCount: count}
}

// StoryResult is the output of ValidateStories.
type StoryResult struct {
	Valid            bool     `json:"valid"`
	Errors           []string `json:"errors,omitempty"`
	StoryCount       int      `json:"story_count"`
	FailedStoryCount int      `json:"failed_story_count"`
}

// ValidateStories checks every story in prd has non-empty acceptance
// criteria, a priority already clamped into [1,4], and a non-failed
// status at creation time.
func ValidateStories(prd *workitem.PRD) StoryResult {
	var errs []string
	failed := 0
	for _, s := range prd.UserStories {
		if !workitem.ValidStoryID(s.ID) {
			errs = append(errs, fmt.Sprintf("%s: id does not match the US-<n> convention", s.ID))
		}
		if len(s.AcceptanceCriteria) == 0 {
			errs = append(errs, fmt.Sprintf("%s: missing acceptance criteria", s.ID))
		}
		if s.Priority < 1 || s.Priority > 4 {
			errs = append(errs, fmt.Sprintf("%s: priority %d out of range [1,4]", s.ID, s.Priority))
		}
		if s.Status == workitem.StoryFailed {
			errs = append(errs, fmt.Sprintf("%s: must not start as failed", s.ID))
			failed++
		}
	}
	return StoryResult{
		Valid:            len(errs) == 0,
		Errors:           errs,
		StoryCount:       len(prd.UserStories),
		FailedStoryCount: failed,
	}
}

// VerifyStoryCompletion inspects a story's acceptance criteria against the
// text evidence accumulated in progress.log for that story and emits
// warnings only — per §4.3/§9, completion verification never blocks the
// mark-done tool call.
func VerifyStoryCompletion(story *workitem.UserStory, progressEvidence string) workitem.StoryCompletionVerification {
	var v workitem.StoryCompletionVerification
	lower := strings.ToLower(progressEvidence)
	for _, c := range story.AcceptanceCriteria {
		needle := strings.ToLower(strings.TrimSpace(c))
		if needle == "" {
			continue
		}
		if !strings.Contains(lower, firstWords(needle, 4)) {
			v.Warnings = append(v.Warnings, fmt.Sprintf("no progress-log evidence found for criterion %q", c))
		}
	}
	return v
}

func firstWords(s string, n int) string {
	fields := strings.Fields(s)
	if len(fields) > n {
		fields = fields[:n]
	}
	return strings.ToLower(strings.Join(fields, " "))
}

// sectionBody returns the text following the first heading matched by re,
// up to the next heading of any level, or to the end of the document.
func sectionBody(doc string, re *regexp.Regexp) string {
	loc := re.FindStringIndex(doc)
	if loc == nil {
		return ""
	}
	rest := doc[loc[1]:]
	if next := headingPattern.FindStringIndex(rest); next != nil {
		return rest[:next[0]]
	}
	return rest
}
