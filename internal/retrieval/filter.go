// Package retrieval answers owner-scoped, multi-criteria snippet queries and
// derives the tag facets shown as filter options.
package retrieval

import (
	"context"
	"slices"
	"strings"

	"github.com/benvon/smart-snippets/internal/models"
	"github.com/google/uuid"
)

// Filter narrows an owner's snippets. Zero values disable a stage.
type Filter struct {
	Tags     models.Tags
	Language *models.Language
	Text     string
}

// Normalize trims the search text and drops blank or repeated tags
func (f Filter) Normalize() Filter {
	out := Filter{Language: f.Language, Text: strings.TrimSpace(f.Text)}
	for _, tag := range f.Tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || out.Tags.Contains(tag) {
			continue
		}
		out.Tags = append(out.Tags, tag)
	}
	return out
}

// Matches reports whether s passes every enabled stage for owner
func (f Filter) Matches(ownerID uuid.UUID, s *models.Snippet) bool {
	if s == nil || s.OwnerID != ownerID {
		return false
	}
	if f.Language != nil && s.Language != *f.Language {
		return false
	}
	for _, tag := range f.Tags {
		if !s.Tags.Contains(tag) {
			return false
		}
	}
	if f.Text != "" && !containsText(s, strings.ToLower(f.Text)) {
		return false
	}
	return true
}

func containsText(s *models.Snippet, needle string) bool {
	if strings.Contains(strings.ToLower(s.Title), needle) ||
		strings.Contains(strings.ToLower(s.Code), needle) {
		return true
	}
	for _, tag := range s.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

// Apply runs the filter pipeline over records and returns the survivors,
// most recently created first. The input slice is not modified.
func Apply(records []*models.Snippet, ownerID uuid.UUID, filter Filter) []*models.Snippet {
	f := filter.Normalize()
	out := make([]*models.Snippet, 0, len(records))
	for _, s := range records {
		if f.Matches(ownerID, s) {
			out = append(out, s)
		}
	}
	SortNewestFirst(out)
	return out
}

// SortNewestFirst orders by CreatedAt descending, ties broken by ID
func SortNewestFirst(records []*models.Snippet) {
	slices.SortStableFunc(records, func(a, b *models.Snippet) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
}

// Source fetches candidate snippets for an owner. Implementations may push
// any part of the filter down to storage; the engine re-checks every stage.
type Source interface {
	FindByOwnerAndFilter(ctx context.Context, ownerID uuid.UUID, filter Filter) ([]*models.Snippet, error)
}

// Engine runs owner-scoped queries against a Source
type Engine struct {
	source Source
}

// NewEngine creates a retrieval engine
func NewEngine(source Source) *Engine {
	return &Engine{source: source}
}

// Query returns the owner's snippets matching filter, newest first. An empty
// result is not an error; only a Source failure is returned.
func (e *Engine) Query(ctx context.Context, ownerID uuid.UUID, filter Filter) ([]*models.Snippet, error) {
	f := filter.Normalize()
	candidates, err := e.source.FindByOwnerAndFilter(ctx, ownerID, f)
	if err != nil {
		return nil, err
	}
	return Apply(candidates, ownerID, f), nil
}
