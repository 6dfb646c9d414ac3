// Package phases implements the six PhaseRunners of spec §4.7: research,
// plan, implement, critique, pr, and complete. Each runner is a guard
// check followed by a bounded retry loop around one or more agent
// invocations, validated and scope-checked before the item's state
// advances.
//
// The retry-loop and prompt-variable-substitution shapes are carried over
// from the teacher's runner.Run loop and dispatch.Environment.Vars/
// ExpandVars, generalized from the teacher's single configured pipeline
// to wreckit's fixed six-phase one.
package phases

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jorge-barreto/wreckit/internal/contextgather"
	"github.com/jorge-barreto/wreckit/internal/workitem"
)

// Vars builds the $VAR substitution map available to every prompt
// template, mirroring the teacher's Environment.Vars() — ITEM_ID takes
// the place of TICKET, the rest carry over unchanged in spirit.
func Vars(item *workitem.Item, projectRoot, itemDir string, extra map[string]string) map[string]string {
	m := make(map[string]string, 6+len(extra))
	for k, v := range extra {
		m[k] = v
	}
	m["ITEM_ID"] = item.ID
	m["ITEM_TITLE"] = item.Title
	m["ITEM_SECTION"] = item.Section
	m["PROJECT_ROOT"] = projectRoot
	m["ITEM_DIR"] = itemDir
	return m
}

// Render expands $VAR / ${VAR} references in template using vars, falling
// back to the process environment for anything not in vars — the same
// fallback chain as the teacher's dispatch.ExpandVars.
func Render(template string, vars map[string]string) string {
	return os.Expand(template, func(key string) string {
		if v, ok := vars[key]; ok {
			return v
		}
		return os.Getenv(key)
	})
}

// LoadTemplate reads .wreckit/prompts/<phase>.md and renders it with vars.
func LoadTemplate(promptsDir, phase string, vars map[string]string) (string, error) {
	path := filepath.Join(promptsDir, phase+".md")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("loading %s prompt template: %w", phase, err)
	}
	return Render(string(data), vars), nil
}

// projectContextVars gathers a best-effort project context snapshot and
// renders it as a PROJECT_CONTEXT prompt variable. Gathering failures are
// not fatal to a phase — an empty PROJECT_CONTEXT just means the prompt
// template's $PROJECT_CONTEXT expands to nothing.
func projectContextVars(projectRoot string) map[string]string {
	pc, err := contextgather.Gather(projectRoot)
	if err != nil {
		return map[string]string{"PROJECT_CONTEXT": ""}
	}
	return map[string]string{"PROJECT_CONTEXT": pc.Render()}
}

// appendFeedback prepends a "CRITICAL: previous attempt failed" preamble
// listing prior validation errors, per spec §4.3's retry policy. feedback
// is empty on the first attempt.
func appendFeedback(prompt string, feedback []string) string {
	if len(feedback) == 0 {
		return prompt
	}
	preamble := "CRITICAL: previous attempt failed with the following issues:\n"
	for _, f := range feedback {
		preamble += "- " + f + "\n"
	}
	return preamble + "\n" + prompt
}
