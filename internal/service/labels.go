package service

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/timmy/moments/internal/domain"
)

// NormalizeLabels trims, lowercases, drops empties, deduplicates, sorts and
// caps labels at domain.MaxAutoTags. The result is never nil.
func NormalizeLabels(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		l = strings.ToLower(strings.TrimSpace(l))
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	sort.Strings(out)
	if len(out) > domain.MaxAutoTags {
		out = out[:domain.MaxAutoTags]
	}
	return out
}

// TruncateAltText trims text and cuts it to domain.MaxAltTextLength characters.
func TruncateAltText(text string) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) > domain.MaxAltTextLength {
		text = string(runes[:domain.MaxAltTextLength])
	}
	return text
}

// parseObjects extracts {"objects": [...]} from a model answer. Anything
// that is not that shape yields an empty list; non-string items are dropped.
func parseObjects(text string) []string {
	text = stripCodeFence(text)
	if text == "" {
		return []string{}
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return []string{}
	}
	raw, ok := payload["objects"]
	if !ok {
		return []string{}
	}
	var items []interface{}
	if err := json.Unmarshal(raw, &items); err != nil {
		return []string{}
	}

	labels := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			labels = append(labels, s)
		}
	}
	return NormalizeLabels(labels)
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimPrefix(text, "json")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
