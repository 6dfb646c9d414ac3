package ux

import (
	"fmt"
	"strings"
	"time"
)

// ANSI color helpers
const (
	Reset  = "\033[0m"
	Bold   = "\033[1m"
	Dim    = "\033[2m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"
)

func timestamp() string {
	return time.Now().Format("15:04:05")
}

// PhaseHeader prints a timestamped phase header naming the item, the
// phase about to run, and the state it is currently in.
func PhaseHeader(itemID, phase, fromState string) {
	fmt.Printf("\n%s[%s]%s %s══════════════════════════════════════%s\n",
		Dim, timestamp(), Reset, Cyan, Reset)
	fmt.Printf("%s[%s]%s  %s%s: %s (from %s)%s\n",
		Dim, timestamp(), Reset, Bold, itemID, phase, fromState, Reset)
	fmt.Printf("%s[%s]%s %s══════════════════════════════════════%s\n",
		Dim, timestamp(), Reset, Cyan, Reset)
}

// PhaseComplete prints a phase completion message.
func PhaseComplete(itemID, phase string, duration time.Duration) {
	m := int(duration.Minutes())
	s := int(duration.Seconds()) % 60
	fmt.Printf("%s[%s]%s  %s✓ %s: %s complete (%dm %02ds)%s\n",
		Dim, timestamp(), Reset, Green, itemID, phase, m, s, Reset)
}

// PhaseFail prints a phase failure message.
func PhaseFail(itemID, phase, errMsg string) {
	fmt.Printf("%s[%s]%s  %s✗ %s: %s failed: %s%s\n",
		Dim, timestamp(), Reset, Red, itemID, phase, errMsg, Reset)
}

// ResumeHint prints a resume command hint.
func ResumeHint(itemID string) {
	fmt.Printf("\n%sResume:%s wreckit run %s\n", Yellow, Reset, itemID)
}

// LoopBack prints the critique-rejection regression message: critique
// sent the item back to planned rather than failing the pipeline.
func LoopBack(itemID, reason string) {
	fmt.Printf("%s[%s]%s  %s↺ %s: critique rejected, returning to planned: %s%s\n",
		Dim, timestamp(), Reset, Yellow, itemID, reason, Reset)
}

// ToolUse prints an inline tool call.
func ToolUse(name, input string) {
	summary := input
	if len(summary) > 80 {
		summary = summary[:77] + "..."
	}
	fmt.Printf("  %s⚡ %s%s %s\n", Cyan, name, Reset, summary)
}

// ToolDenied prints a denied tool call.
func ToolDenied(name, input string) {
	summary := input
	if len(summary) > 80 {
		summary = summary[:77] + "..."
	}
	fmt.Printf("  %s✗ %s(denied)%s %s\n", Red, name, Reset, summary)
}

// PermissionPrompt prints a permission denial prompt header.
func PermissionPrompt(tools []string) {
	fmt.Printf("\n  %s⚠ Tools denied: %s%s\n", Yellow, strings.Join(tools, ", "), Reset)
}

// Success prints a final success message for an item that reached done.
func Success(itemID string) {
	fmt.Printf("\n%s[%s]%s  %s%s══ %s done ══%s\n\n",
		Dim, timestamp(), Reset, Bold, Green, itemID, Reset)
}
