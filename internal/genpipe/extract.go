package genpipe

import (
	"fmt"
	"strings"
)

// extractJSON pulls a JSON document of the expected shape ('{' object or
// '[' array) out of raw model text. Models wrap JSON in markdown fences,
// prepend prose, or append commentary; extraction scans for the first
// opening bracket of the wanted shape and the last matching closer.
func extractJSON(raw string, wantArray bool) (string, error) {
	s := strings.TrimSpace(raw)

	// Strip a markdown code fence if the whole payload is fenced.
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	open, close := byte('{'), byte('}')
	if wantArray {
		open, close = '[', ']'
	}

	start := strings.IndexByte(s, open)
	end := strings.LastIndexByte(s, close)
	if start < 0 || end < 0 || end <= start {
		return "", fmt.Errorf("no %c...%c document found in model output", open, close)
	}
	return s[start : end+1], nil
}

// unescapeArtifacts cleans literal escape artifacts that survive when a
// model double-encodes its JSON (e.g. "\\n" inside an already-decoded
// string field).
func unescapeArtifacts(s string) string {
	replacer := strings.NewReplacer(
		`\\n`, `\n`,
		`\\"`, `\"`,
		`\\t`, `\t`,
	)
	return replacer.Replace(s)
}
