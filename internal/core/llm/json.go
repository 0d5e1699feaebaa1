package llm

import (
	"encoding/json"
	"regexp"
	"strings"

	apperrors "github.com/vukovicluka/sheepai/internal/core/errors"
)

var codeFencePattern = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*\\n?(.*?)\\n?\\s*```")

// StripCodeFence returns the body of the first fenced code block, or the
// trimmed text when there is none.
func StripCodeFence(text string) string {
	if m := codeFencePattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}

	return strings.TrimSpace(text)
}

// ExtractJSON locates a JSON object (or, failing that, an array) in a model
// reply that may carry a code fence or prose around it.
func ExtractJSON(text string) (string, error) {
	body := StripCodeFence(text)

	if json.Valid([]byte(body)) && (strings.HasPrefix(body, "{") || strings.HasPrefix(body, "[")) {
		return body, nil
	}

	for _, delims := range [][2]string{{"{", "}"}, {"[", "]"}} {
		start := strings.Index(body, delims[0])
		end := strings.LastIndex(body, delims[1])

		if start != -1 && end > start {
			candidate := body[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate, nil
			}
		}
	}

	return "", apperrors.ErrNoJSON
}
