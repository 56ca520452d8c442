package llm

import (
	"errors"
	"fmt"
	"strings"
)

// completion-service error kinds recognized by callers
var (
	// ErrCompletionTimeout signals the completion call hit its hard deadline
	ErrCompletionTimeout = errors.New("completion service timeout")
	// ErrMalformedCompletion signals an empty or unparsable completion response
	ErrMalformedCompletion = errors.New("malformed completion response")
)

// extractJSONObject strips markdown code-fence wrapping if present and
// returns the first top-level JSON object in the content. Models routinely
// wrap JSON in fences or prepend prose despite instructions.
func extractJSONObject(content string) (string, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		if idx := strings.LastIndex(content, "```"); idx >= 0 {
			content = content[:idx]
		}
		content = strings.TrimSpace(content)
	}

	start := strings.Index(content, "{")
	if start < 0 {
		return "", fmt.Errorf("no json object in response: %w", ErrMalformedCompletion)
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		c := content[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return content[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unbalanced json object in response: %w", ErrMalformedCompletion)
}

// truncate cuts a string to at most n bytes, appending an ellipsis
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
