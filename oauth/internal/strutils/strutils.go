package strutils

import "strings"

// RemoveDuplicatesStable trims surrounding whitespace from each element and
// drops empty and duplicate ones, preserving order and case. Elements are
// optionally compared case-insensitively; the first one seen is kept.
func RemoveDuplicatesStable(items []string, caseInsensitive bool) []string {
	itemsMap := make(map[string]bool, len(items))
	deduplicated := make([]string, 0, len(items))

	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		key := trimmed
		if caseInsensitive {
			key = strings.ToLower(key)
		}
		if _, ok := itemsMap[key]; ok {
			continue
		}
		itemsMap[key] = true
		deduplicated = append(deduplicated, trimmed)
	}
	return deduplicated
}
