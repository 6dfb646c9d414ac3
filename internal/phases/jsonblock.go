package phases

import (
	"regexp"
	"strings"
)

// jsonFenceOpenRe matches a fenced-code opening line tagged json, the way
// fileblocks.Parse matches a file= annotated opening fence — adapted here
// to look for the json language tag instead of a path.
var jsonFenceOpenRe = regexp.MustCompile("^```\\s*json\\s*$")

// extractLastJSONFence scans text line by line for ```json ... ``` fences
// and returns the content of the last one found, or "" if none exist.
func extractLastJSONFence(text string) string {
	lines := strings.Split(text, "\n")
	var current *strings.Builder
	var last string
	inFence := false

	for _, line := range lines {
		if inFence {
			if strings.TrimSpace(line) == "```" {
				last = current.String()
				inFence = false
				current = nil
				continue
			}
			if current.Len() > 0 {
				current.WriteByte('\n')
			}
			current.WriteString(line)
			continue
		}
		if jsonFenceOpenRe.MatchString(strings.TrimSpace(line)) {
			inFence = true
			current = &strings.Builder{}
		}
	}
	return strings.TrimSpace(last)
}

// extractDelimited returns the text between the last occurrence of start
// and the following occurrence of end, trimmed. Used for the
// PR_JSON_START/PR_JSON_END markers of spec §4.7.5's PR-description
// protocol.
func extractDelimited(text, start, end string) string {
	startIdx := strings.LastIndex(text, start)
	if startIdx == -1 {
		return ""
	}
	rest := text[startIdx+len(start):]
	endIdx := strings.Index(rest, end)
	if endIdx == -1 {
		return ""
	}
	return strings.TrimSpace(rest[:endIdx])
}

// extractJSONObject returns the best-effort JSON object found in text: a
// fenced ```json block if present, otherwise the last top-level {...}
// span in the text.
func extractJSONObject(text string) string {
	if fenced := extractLastJSONFence(text); fenced != "" {
		return fenced
	}
	return lastBraceSpan(text)
}

// lastBraceSpan returns the last top-level balanced {...} substring of
// text found by a single forward scan, or "" if braces never balance.
func lastBraceSpan(text string) string {
	depth := 0
	start := -1
	var lastSpan string
	for i, c := range text {
		switch c {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start != -1 {
					lastSpan = text[start : i+1]
				}
			}
		}
	}
	return lastSpan
}
