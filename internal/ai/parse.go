package ai

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// extractJSONObject locates the first balanced {...} block in a model answer.
func extractJSONObject(input string) (string, bool) {
	trimmed := strings.TrimSpace(input)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
		if idx := strings.IndexRune(trimmed, '\n'); idx >= 0 {
			trimmed = trimmed[idx+1:]
		}
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	}

	start := strings.IndexByte(trimmed, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(trimmed); i++ {
		ch := trimmed[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return trimmed[start : i+1], true
			}
		}
	}
	return "", false
}

// errNoJSONObject marks an answer without any {...} block. Only such answers fall back to
// keyword heuristics; a block that fails to decode does not.
var errNoJSONObject = errors.New("no json object found")

// parseStructured decodes the first JSON object of text into T.
func parseStructured[T any](text string) (T, error) {
	var out T
	block, ok := extractJSONObject(text)
	if !ok {
		return out, fmt.Errorf("%w: %w", ErrMalformedResponse, errNoJSONObject)
	}
	if err := json.Unmarshal([]byte(block), &out); err != nil {
		return out, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return out, nil
}

// flexBool accepts JSON booleans as well as "true"/"false" strings and 0/1 numbers.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	raw := strings.ToLower(strings.Trim(string(bytes.TrimSpace(data)), `"`))
	switch raw {
	case "true", "1", "yes":
		*b = true
	case "false", "0", "no", "null", "":
		*b = false
	default:
		return fmt.Errorf("invalid boolean %q", raw)
	}
	return nil
}

type moderationPayload struct {
	Inappropriate flexBool `json:"is_inappropriate"`
	ThinContent   flexBool `json:"is_thin_content"`
	Reason        string   `json:"reason"`
}

type categoryPayload struct {
	Category string `json:"category"`
}

type fusionPayload struct {
	Title    string `json:"title"`
	Detail   string `json:"detail"`
	Category string `json:"category"`
}

// moderationHeuristic reads a verdict from free text. It never fails; without a keyword
// signal it returns a neutral verdict.
func moderationHeuristic(text string) Verdict {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(text, "不適切") || strings.Contains(lower, "inappropriate"):
		return Verdict{Inappropriate: true, Reason: reasonHeuristicInappropriate}
	case strings.Contains(text, "薄い") || strings.Contains(lower, "thin"):
		return Verdict{ThinContent: true, Reason: reasonHeuristicThin}
	default:
		return Verdict{Reason: reasonParseFailed}
	}
}

// categoryHeuristic returns the first taxonomy label mentioned in text.
func categoryHeuristic(text string) string {
	for _, c := range taxonomy {
		if strings.Contains(text, c) {
			return c
		}
	}
	return ""
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
