package agent

import (
	"encoding/json"
	"regexp"
	"strings"
)

// FallbackFunc synthesizes findings from model output that did not parse as
// JSON. The keyword-sniffing heuristics live behind this type so they can be
// tested and swapped independently of the analyzer loop.
type FallbackFunc[F any] func(raw, filePath string) []F

// parseFindingsOrFallback implements the permissive response-parsing policy
// shared by the structured analyzer roles.
//
// The model response is expected to contain a JSON array of finding objects,
// optionally wrapped in a markdown code fence. The fence is stripped and the
// remainder parsed strictly; on success each object element is decoded with
// per-field defaults. On parse failure the fallback strategy decides whether
// to synthesize a low-confidence finding. A parse failure is never an error:
// at worst the file silently yields no findings.
func parseFindingsOrFallback[F any](
	raw, filePath string,
	decode func(item map[string]any, filePath string) F,
	fallback FallbackFunc[F],
) []F {
	var items []any
	if err := json.Unmarshal([]byte(stripFence(raw)), &items); err != nil {
		if fallback != nil {
			return fallback(raw, filePath)
		}
		return nil
	}

	var findings []F
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		findings = append(findings, decode(obj, filePath))
	}
	return findings
}

// stripFence removes a leading ```json (or bare ```) fence and a trailing
// ``` fence, if present. Stripping is idempotent: unfenced input passes
// through unchanged.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = s[len("```json"):]
	} else if strings.HasPrefix(s, "```") {
		s = s[len("```"):]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// containsAny reports whether the lowercased text contains any of the words.
func containsAny(text string, words ...string) bool {
	lower := strings.ToLower(text)
	for _, word := range words {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

// truncate shortens a free-text response for use as a finding description.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

var codeBlockRE = regexp.MustCompile("(?s)```[\\w]*\\n(.*?)\\n```")

// parseCodeBlocks extracts the contents of all fenced code blocks from a
// free-text model response.
func parseCodeBlocks(response string) []string {
	matches := codeBlockRE.FindAllStringSubmatch(response, -1)
	blocks := make([]string, 0, len(matches))
	for _, m := range matches {
		blocks = append(blocks, m[1])
	}
	return blocks
}

// JSON object field accessors with defaults. Model responses are untyped
// maps; numbers arrive as float64 per encoding/json.

func stringField(m map[string]any, key, def string) string {
	if v, ok := m[key].(string); ok && v != "" {
		return v
	}
	return def
}

func intField(m map[string]any, key string, def int) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}

func floatField(m map[string]any, key string, def float64) float64 {
	if v, ok := m[key].(float64); ok {
		return v
	}
	return def
}
