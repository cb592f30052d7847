package utils

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var (
	fencedBlockPattern = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")
	bareObjectPattern  = regexp.MustCompile(`(?s)\{.*\}`)
)

var ErrNoJSONFound = errors.New("no JSON object found in response")

// ExtractJSON decodes an LLM response into out. It tries the raw text first,
// then the first fenced code block, then the outermost {...} span.
func ExtractJSON(response string, out any) error {
	trimmed := strings.TrimSpace(response)
	if trimmed == "" {
		return ErrNoJSONFound
	}

	if err := json.Unmarshal([]byte(trimmed), out); err == nil {
		return nil
	}

	if m := fencedBlockPattern.FindStringSubmatch(trimmed); len(m) > 1 {
		if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), out); err == nil {
			return nil
		}
	}

	if m := bareObjectPattern.FindString(trimmed); m != "" {
		if err := json.Unmarshal([]byte(m), out); err == nil {
			return nil
		}
		// Greedy match can swallow trailing prose containing braces; retry on the balanced span.
		if start := strings.Index(trimmed, "{"); start >= 0 {
			if end := findMatchingBrace(trimmed, start); end > start {
				if err := json.Unmarshal([]byte(trimmed[start:end+1]), out); err == nil {
					return nil
				}
			}
		}
	}

	return ErrNoJSONFound
}

// findMatchingBrace finds the matching closing brace for an opening brace
func findMatchingBrace(s string, start int) int {
	if start >= len(s) || s[start] != '{' {
		return -1
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		char := s[i]

		if escaped {
			escaped = false
			continue
		}
		if char == '\\' && inString {
			escaped = true
			continue
		}
		if char == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch char {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}

	return -1
}

// Truncate shortens s to at most n runes, appending "..." when cut.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
