// Package extract pulls a JSON object out of free-form model output.
//
// Models asked for "strict JSON" still wrap it in prose or markdown fences
// often enough that the raw response can't be decoded directly. The
// extraction here is deliberately best-effort: slice between the first '{'
// and the last '}' and try to decode that. No bracket balancing, no repair.
// Unrelated braces in surrounding prose (code examples, shell snippets) can
// therefore produce a slice that fails to decode; callers must treat a
// failed extraction as "apply fallback", never as a fatal condition.
package extract

import (
	"encoding/json"
	"strings"
)

// Object returns the raw bytes of the first JSON object embedded in text,
// or ok == false if no parseable object is found. The returned RawMessage
// is guaranteed to decode as a JSON object (not an array or scalar).
func Object(text string) (json.RawMessage, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return nil, false
	}

	slice := []byte(text[start : end+1])
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(slice, &probe); err != nil {
		return nil, false
	}
	return json.RawMessage(slice), true
}
