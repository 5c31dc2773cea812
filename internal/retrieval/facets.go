package retrieval

import (
	"slices"
	"strings"

	"github.com/benvon/smart-snippets/internal/models"
)

// Facets returns the distinct tags across records, sorted for display.
// Spellings that differ only in case collapse to the one that sorts first.
func Facets(records []*models.Snippet) []string {
	byKey := make(map[string]string)
	for _, s := range records {
		if s == nil {
			continue
		}
		for _, tag := range s.Tags {
			key := strings.ToLower(tag)
			if current, ok := byKey[key]; !ok || tag < current {
				byKey[key] = tag
			}
		}
	}
	out := make([]string, 0, len(byKey))
	for _, tag := range byKey {
		out = append(out, tag)
	}
	slices.Sort(out)
	return out
}
