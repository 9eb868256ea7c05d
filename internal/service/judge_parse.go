// Package service contains the core pipeline logic: mention analysis,
// score aggregation, recommendation drafting and the run orchestrator.
package service

import (
	"encoding/json"
	"fmt"
	"strings"
)

// decodeJudgeArray parses a JSON array out of judge output. The judge is an
// untrusted external system whose output format is a best-effort contract,
// so parsing runs through explicit tiers, each with its own precondition:
//
//	tier 1: strict parse of the trimmed text
//	tier 2: strip markdown code fences, strict parse again
//	tier 3: extract the outermost [...] substring and parse that
//
// Callers layer their own last-resort fallback (textual heuristic or
// placeholder) on top of a returned error.
func decodeJudgeArray(text string, v any) error {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return fmt.Errorf("empty judge output")
	}

	if err := json.Unmarshal([]byte(cleaned), v); err == nil {
		return nil
	}

	cleaned = stripCodeFences(cleaned)
	if err := json.Unmarshal([]byte(cleaned), v); err == nil {
		return nil
	}

	first := strings.Index(cleaned, "[")
	last := strings.LastIndex(cleaned, "]")
	if first == -1 || last <= first {
		return fmt.Errorf("no JSON array found in judge output (%d chars)", len(text))
	}
	if err := json.Unmarshal([]byte(cleaned[first:last+1]), v); err != nil {
		return fmt.Errorf("parsing extracted array: %w", err)
	}
	return nil
}

// stripCodeFences removes a leading ```json (or bare ```) line and a
// trailing ``` line, if present.
func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	end := len(lines)
	for i := len(lines) - 1; i > 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			end = i
			break
		}
	}
	if len(lines) < 2 {
		return text
	}
	return strings.TrimSpace(strings.Join(lines[1:end], "\n"))
}

// truncateRunes bounds a string to at most n runes. Used to cap response
// texts before embedding them in judge prompts — the stored text is never
// touched, only what the judge sees.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
