package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrUnparseable is returned when model output cannot be decoded as JSON
// even after the repair pass.
var ErrUnparseable = errors.New("unparseable model output")

// DecodeJSON decodes freeform model output into v.
//
// Models asked for JSON frequently wrap it in markdown fences or emit
// Python-style single quotes. DecodeJSON strips fences, attempts a strict
// parse, and falls back to a single-to-double quote repair before giving
// up with ErrUnparseable.
func DecodeJSON(content string, v any) error {
	text := StripFences(content)
	if text == "" {
		return ErrUnparseable
	}

	if err := json.Unmarshal([]byte(text), v); err == nil {
		return nil
	}

	repaired := strings.ReplaceAll(text, "'", `"`)
	if err := json.Unmarshal([]byte(repaired), v); err == nil {
		return nil
	}

	return ErrUnparseable
}

// StripFences removes a surrounding markdown code fence, if any, and trims
// whitespace.
func StripFences(content string) string {
	text := strings.TrimSpace(content)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	return text
}
