package ai

import (
	"errors"
	"testing"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		found    bool
	}{
		{"bare", `{"a": 1}`, `{"a": 1}`, true},
		{"fenced", "```json\n{\"a\": 1}\n```", `{"a": 1}`, true},
		{"surrounded", `結果は {"a": {"b": 2}} です。{"c": 3}`, `{"a": {"b": 2}}`, true},
		{"brace in string", `{"reason": "記号 } を含む"}`, `{"reason": "記号 } を含む"}`, true},
		{"escaped quote", `{"reason": "引用 \" と }"}`, `{"reason": "引用 \" と }"}`, true},
		{"none", "JSONはありません", "", false},
		{"unbalanced", `{"a": 1`, "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, found := extractJSONObject(tc.input)
			if found != tc.found || got != tc.expected {
				t.Fatalf("expected (%q, %v) got (%q, %v)", tc.expected, tc.found, got, found)
			}
		})
	}
}

func TestParseStructuredMalformed(t *testing.T) {
	for _, input := range []string{"no json", `{"category": 12}`} {
		if _, err := parseStructured[categoryPayload](input); !errors.Is(err, ErrMalformedResponse) {
			t.Fatalf("%q: expected malformed response, got %v", input, err)
		}
	}
}

func TestParseStructuredSeparatesMissingFromInvalid(t *testing.T) {
	if _, err := parseStructured[categoryPayload]("no json"); !errors.Is(err, errNoJSONObject) {
		t.Fatalf("expected missing object, got %v", err)
	}
	if _, err := parseStructured[categoryPayload](`{"category": 12}`); err == nil || errors.Is(err, errNoJSONObject) {
		t.Fatalf("expected decode failure, got %v", err)
	}
}

func TestFlexBoolRejectsGarbage(t *testing.T) {
	if _, err := parseStructured[moderationPayload](`{"is_inappropriate": "maybe"}`); err == nil {
		t.Fatalf("expected error for non-boolean value")
	}
	payload, err := parseStructured[moderationPayload](`{"is_inappropriate": 1, "is_thin_content": null}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !bool(payload.Inappropriate) || bool(payload.ThinContent) {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes("あいうえお", 3); got != "あいう" {
		t.Fatalf("expected あいう got %q", got)
	}
	if got := truncateRunes("abc", 10); got != "abc" {
		t.Fatalf("expected abc got %q", got)
	}
}
