package reco

import (
	"encoding/json"
	"strings"
)

// ResolveInterestList maps raw model text to a list of interests. The model
// is instructed, but not guaranteed, to emit a JSON array of strings: try a
// strict parse first, then fall back to splitting on commas. The result is
// truncated, never padded, to limit entries.
func ResolveInterestList(raw string, limit int) ([]string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, &ResolutionError{Reason: "model output was empty"}
	}

	var items []string
	if err := json.Unmarshal([]byte(trimmed), &items); err != nil {
		items = items[:0]
		for _, part := range strings.Split(trimmed, ",") {
			if segment := strings.TrimSpace(part); segment != "" {
				items = append(items, segment)
			}
		}
	}

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// ResolveNarrative returns the trimmed raw text verbatim. The recommendation
// prompt asks for prose plus a bulleted list, so no structural parsing is
// attempted here.
func ResolveNarrative(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", &ResolutionError{Reason: "model output was empty"}
	}
	return trimmed, nil
}
