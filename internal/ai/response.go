package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bilgisen/illustrate/internal/errs"
)

// StripFence unwraps a reply that starts with a markdown code fence: the text
// up to the closing fence is kept and a leading "json" language tag dropped.
// Replies without a leading fence are only trimmed.
func StripFence(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```")
	if end := strings.Index(text, "```"); end >= 0 {
		text = text[:end]
	}

	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		tag := strings.TrimSpace(text[:nl])
		if tag != "" && !strings.ContainsAny(tag, "{[") {
			text = text[nl+1:]
		}
	} else {
		text = strings.TrimPrefix(text, "json")
	}

	return strings.TrimSpace(text)
}

// Decode strips an optional code fence and unmarshals the JSON object inside.
func Decode[T any](raw string) (T, error) {
	var out T
	text := StripFence(raw)
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return out, fmt.Errorf("%w: %v (response: %s)", errs.ErrModelResponseParse, err, truncateRaw(text, 200))
	}
	return out, nil
}

func truncateRaw(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
