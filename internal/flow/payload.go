package flow

import (
	"encoding/json"
	"regexp"
	"strings"
)

// fencedJSONRe matches a fenced code block that may carry a structured payload.
var fencedJSONRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n(.*?)\\n\\s*```")

// ExtractPayload splits assistant text into prose and an optional embedded
// structured payload. A fenced JSON block is lifted out of the prose; failing
// that, text that is itself a bare JSON object or array becomes the payload.
// Anything unparseable is left in the prose untouched.
func ExtractPayload(text string) (string, json.RawMessage) {
	if m := fencedJSONRe.FindStringSubmatchIndex(text); m != nil {
		candidate := strings.TrimSpace(text[m[2]:m[3]])
		if isJSONValue(candidate) {
			prose := strings.TrimSpace(text[:m[0]] + text[m[1]:])
			return prose, json.RawMessage(candidate)
		}
	}
	trimmed := strings.TrimSpace(text)
	if isJSONValue(trimmed) {
		return "", json.RawMessage(trimmed)
	}
	return strings.TrimSpace(text), nil
}

// isJSONValue reports whether s is a complete JSON object or array.
func isJSONValue(s string) bool {
	if !strings.HasPrefix(s, "{") && !strings.HasPrefix(s, "[") {
		return false
	}
	return json.Valid([]byte(s))
}
