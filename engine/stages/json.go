package stages

import (
	"encoding/json"
	"fmt"
)

// extractJSON returns the first complete JSON object found in text.
// Completion services often wrap structured replies in prose or code
// fences; this is the single repair attempt before a parse failure
// becomes terminal.
func extractJSON(text string) (string, error) {
	// Direct parse first
	var probe map[string]any
	if err := json.Unmarshal([]byte(text), &probe); err == nil {
		return text, nil
	}

	start := -1
	depth := 0
	inString := false
	escaped := false
	for i, c := range text {
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if start != -1 {
				inString = true
			}
		case '{':
			if start == -1 {
				start = i
			}
			depth++
		case '}':
			if start == -1 {
				continue
			}
			depth--
			if depth == 0 {
				candidate := text[start : i+1]
				if err := json.Unmarshal([]byte(candidate), &probe); err == nil {
					return candidate, nil
				}
				start = -1
			}
		}
	}

	return "", fmt.Errorf("no valid JSON object found in response")
}

// decodeStructured parses a completion reply into T, applying the
// brace-scan repair when the reply is not pure JSON.
func decodeStructured[T any](text string) (*T, error) {
	raw, err := extractJSON(text)
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("json parsing failed: %w", err)
	}
	return &v, nil
}

// truncate shortens s for log and progress previews.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
