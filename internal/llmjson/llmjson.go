// Package llmjson extracts JSON objects from LLM response text. Responses
// may contain the object directly, inside a markdown code fence, or buried
// in surrounding prose; extraction tries each strategy in order.
package llmjson

import (
	"encoding/json"
	"strings"
)

// strategy attempts to pull a JSON object out of text. Returns the raw
// object and true on success.
type strategy func(text string) (json.RawMessage, bool)

// strategies are tried in order: cheapest and strictest first.
var strategies = []strategy{
	directParse,
	fencedBlock,
	braceScan,
}

// ExtractObject returns the first JSON object found in text. The returned
// RawMessage is guaranteed to unmarshal as a JSON object.
func ExtractObject(text string) (json.RawMessage, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, false
	}
	for _, s := range strategies {
		if raw, ok := s(text); ok {
			return raw, true
		}
	}
	return nil, false
}

// DecodeObject extracts a JSON object from text and unmarshals it into out.
// Returns false if no parseable object is found or decoding fails.
func DecodeObject(text string, out any) bool {
	raw, ok := ExtractObject(text)
	if !ok {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

// directParse succeeds only when the whole text is a JSON object.
func directParse(text string) (json.RawMessage, bool) {
	if !strings.HasPrefix(text, "{") {
		return nil, false
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &m); err != nil {
		return nil, false
	}
	return json.RawMessage(text), true
}

// fencedBlock looks for a markdown code fence and parses its contents.
func fencedBlock(text string) (json.RawMessage, bool) {
	idx := strings.Index(text, "```")
	if idx < 0 {
		return nil, false
	}
	rest := text[idx+3:]
	// Skip an optional language tag on the fence line.
	if nl := strings.Index(rest, "\n"); nl >= 0 {
		tag := strings.TrimSpace(rest[:nl])
		if tag == "json" || tag == "" {
			rest = rest[nl+1:]
		}
	}
	end := strings.Index(rest, "```")
	if end < 0 {
		return nil, false
	}
	return directParse(strings.TrimSpace(rest[:end]))
}

// braceScan finds the first balanced top-level {...} substring, skipping
// braces inside string literals.
func braceScan(text string) (json.RawMessage, bool) {
	start := strings.Index(text, "{")
	if start < 0 {
		return nil, false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return directParse(text[start : i+1])
				}
			}
		}
	}
	return nil, false
}
