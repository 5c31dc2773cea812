package tagging

import (
	"strings"

	"github.com/benvon/smart-snippets/internal/models"
)

// Merge combines tags into a deduplicated, order-stable set.
//
// The base is explicit when the caller supplied tags (non-nil, possibly
// empty) and existing otherwise. Base entries keep their authored order,
// then inferred entries not already present are appended in inference order.
// Comparison ignores case and the first spelling seen wins. Blank entries
// are dropped and surrounding whitespace is trimmed.
func Merge(existing, explicit, inferred models.Tags) models.Tags {
	base := existing
	if explicit != nil {
		base = explicit
	}
	out := make(models.Tags, 0, len(base)+len(inferred))
	for _, group := range []models.Tags{base, inferred} {
		for _, tag := range group {
			tag = strings.TrimSpace(tag)
			if tag == "" || out.Contains(tag) {
				continue
			}
			out = append(out, tag)
		}
	}
	return out
}

// ShouldReinfer reports whether inference must run for a save. previous is
// nil when the record is being created.
func ShouldReinfer(previous *string, next string) bool {
	return previous == nil || *previous != next
}

// Merger applies inference and merging to snippet writes
type Merger struct {
	rules *RuleSet
}

// NewMerger creates a merger over the given rule set. A nil rule set uses the defaults.
func NewMerger(rules *RuleSet) *Merger {
	if rules == nil {
		rules = DefaultRuleSet()
	}
	return &Merger{rules: rules}
}

// Apply sets next.Tags and next.InferredTags for a save. previous is the
// stored record (nil on create) and explicit the tags supplied with the
// request (nil when the request did not mention tags).
//
// When the code is unchanged the rules are not consulted: with no explicit
// tags the stored set is kept as-is, otherwise the explicit tags are merged
// with the inference output recorded at the last code change. Apply reports
// whether inference ran. It only touches next, so a failed write that follows
// leaves nothing behind.
func (m *Merger) Apply(previous, next *models.Snippet, explicit models.Tags) bool {
	var prevCode *string
	var prevTags, prevInferred models.Tags
	if previous != nil {
		prevCode = &previous.Code
		prevTags = previous.Tags
		prevInferred = previous.InferredTags
	}

	if ShouldReinfer(prevCode, next.Code) {
		inferred := m.rules.Infer(next.Code, next.Language)
		next.InferredTags = inferred
		next.Tags = Merge(prevTags, explicit, inferred)
		return true
	}

	next.InferredTags = prevInferred.Clone()
	if explicit == nil {
		next.Tags = prevTags.Clone()
		return false
	}
	next.Tags = Merge(prevTags, explicit, prevInferred)
	return false
}
