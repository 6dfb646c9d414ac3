package scaffold

import (
	"fmt"
	"os"
	"path/filepath"
)

const defaultConfig = `{
  "base_branch": "main",
  "branch_prefix": "wreckit/",
  "merge_mode": "pr",
  "max_iterations": 10,
  "timeout_seconds": 600,
  "pr_checks": {
    "allow_unsafe_direct_merge": false,
    "allowed_remote_patterns": [
      "github.com"
    ],
    "checks": [
      {"name": "test", "run": "go test ./..."},
      {"name": "vet", "run": "go vet ./..."}
    ]
  },
  "branch_cleanup": {
    "enabled": true,
    "delete_remote": true
  },
  "agent": {
    "command": "claude",
    "model": "opus"
  }
}
`

const defaultResearchPrompt = `You are a research agent investigating item $ITEM_ID: $ITEM_TITLE.

## Instructions

1. Read the item overview and explore the codebase under $PROJECT_ROOT.
2. Identify the relevant files, existing patterns, and constraints that bear
   on this work.
3. Write your findings to $ITEM_DIR/research.md.

The write-up should include a summary of the problem, an analysis of the
relevant code, and citations (file paths) backing each claim. Do not modify
any files outside $ITEM_DIR.

$PROJECT_CONTEXT
`

const defaultPlanPrompt = `You are a planning agent working on item $ITEM_ID: $ITEM_TITLE.

## Instructions

1. Read $ITEM_DIR/research.md.
2. Write an implementation plan to $ITEM_DIR/plan.md, organized into
   numbered "Phase" sections.
3. Call the save_prd tool with a JSON object: {"schema_version": 1,
   "branch_name": "...", "user_stories": [{"id": "US-1", "title": "...",
   "acceptance_criteria": ["..."], "priority": 1, "status": "pending"}]}.
   Every story needs at least one acceptance criterion and a priority
   between 1 and 4.

Do not modify any files outside $ITEM_DIR.

$PROJECT_CONTEXT
`

const defaultImplementPrompt = `You are an implementation agent working on item $ITEM_ID: $ITEM_TITLE.

## Current story

$STORY_ID: $STORY_TITLE

Acceptance criteria: $STORY_ACCEPTANCE_CRITERIA

## Instructions

1. Implement the story in $PROJECT_ROOT, following existing code conventions.
2. Run any relevant tests to verify your change satisfies the acceptance
   criteria.
3. Call update_story_status with {"story_id": "$STORY_ID", "status": "done",
   "verification": "<what you ran and observed>"} once satisfied, or
   "status": "failed" with a reason if you cannot complete it.
`

const defaultCritiquePrompt = `You are a critic reviewing the implementation for item $ITEM_ID: $ITEM_TITLE.

## Instructions

1. Inspect the working tree diff under $PROJECT_ROOT against the plan at
   $ITEM_DIR/plan.md.
2. Decide whether the implementation satisfies the plan's acceptance
   criteria.
3. Respond with a single fenced json block:

` + "```json\n{\"status\": \"approved\" | \"rejected\", \"reason\": \"...\", \"critique\": \"...\"}\n```" + `
`

const defaultPRPrompt = `You are writing the pull request description for item $ITEM_ID: $ITEM_TITLE.

## Instructions

Summarize the change from the diff under $PROJECT_ROOT and respond with:

PR_JSON_START
{"title": "...", "body": "..."}
PR_JSON_END
`

// writeDefaultConfig writes the fixed .wreckit/ layout: config.json, one
// prompt template per agent-driven phase, and an empty items/ directory.
func writeDefaultConfig(targetDir string) error {
	files := map[string]string{
		".wreckit/config.json":          defaultConfig,
		".wreckit/prompts/research.md":  defaultResearchPrompt,
		".wreckit/prompts/plan.md":      defaultPlanPrompt,
		".wreckit/prompts/implement.md": defaultImplementPrompt,
		".wreckit/prompts/critique.md":  defaultCritiquePrompt,
		".wreckit/prompts/pr.md":        defaultPRPrompt,
	}

	var written []string
	for relPath, content := range files {
		fullPath := filepath.Join(targetDir, relPath)
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", relPath, err)
		}
		if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", relPath, err)
		}
		written = append(written, relPath)
	}

	itemsDir := filepath.Join(targetDir, ".wreckit", "items")
	if err := os.MkdirAll(itemsDir, 0755); err != nil {
		return fmt.Errorf("creating .wreckit/items: %w", err)
	}
	written = append(written, ".wreckit/items")

	gitignorePath := filepath.Join(targetDir, ".wreckit", ".gitignore")
	if err := os.WriteFile(gitignorePath, []byte("items/\n"), 0644); err != nil {
		return fmt.Errorf("writing .wreckit/.gitignore: %w", err)
	}
	written = append(written, ".wreckit/.gitignore")

	printSuccess(written)
	return nil
}
