// Package tagging derives descriptive tags from snippet source and merges them
// with the tags a user typed.
package tagging

import (
	"regexp"
	"strings"

	"github.com/benvon/smart-snippets/internal/models"
)

// Rule maps a concept label to a predicate over lowercased source text
type Rule struct {
	Label string
	match func(lower string) bool
}

// Matches reports whether the rule fires for the given source. A rule built
// without a predicate never fires.
func (r Rule) Matches(code string) bool {
	if r.match == nil {
		return false
	}
	return r.match(strings.ToLower(code))
}

// tokens fires when any word appears bounded by non-identifier characters
func tokens(words ...string) func(string) bool {
	re := regexp.MustCompile(`\b(` + strings.Join(quoteAll(words), "|") + `)\b`)
	return re.MatchString
}

// substrings fires when any fragment appears anywhere
func substrings(fragments ...string) func(string) bool {
	return func(lower string) bool {
		for _, f := range fragments {
			if strings.Contains(lower, f) {
				return true
			}
		}
		return false
	}
}

func either(preds ...func(string) bool) func(string) bool {
	return func(lower string) bool {
		for _, p := range preds {
			if p(lower) {
				return true
			}
		}
		return false
	}
}

func quoteAll(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = regexp.QuoteMeta(w)
	}
	return out
}

// defaultRules is evaluated in order; the order is the order tags are emitted in.
var defaultRules = []Rule{
	{Label: "function", match: tokens("function", "def", "void", "func", "fn")},
	{Label: "class", match: tokens("class")},
	{Label: "loop", match: tokens("for", "while", "do")},
	{Label: "condition", match: tokens("if", "else", "switch", "case")},
	{Label: "api", match: substrings("api", "fetch", "axios", "http")},
	{Label: "async", match: either(tokens("async", "await", "then"), substrings("promise"))},
	{Label: "database", match: either(substrings("database", "sql", "query"), tokens("db"))},
	{Label: "array ops", match: substrings(".map", ".filter", ".reduce(", ".foreach(")},
	{Label: "object", match: substrings("{}", "object", "dict")},
	{Label: "error handling", match: tokens("try", "catch", "except", "finally", "rescue")},
	{Label: "debugging", match: substrings("console.log", "print(", "println", "printf", "debugger", "pdb.set_trace")},
}

// RuleSet is an ordered list of concept rules
type RuleSet struct {
	rules []Rule
}

// DefaultRuleSet returns the built-in concept rules
func DefaultRuleSet() *RuleSet {
	return &RuleSet{rules: defaultRules}
}

// Labels returns the concept labels in evaluation order
func (rs *RuleSet) Labels() []string {
	labels := make([]string, len(rs.rules))
	for i, r := range rs.rules {
		labels[i] = r.Label
	}
	return labels
}

// Infer returns the tags implied by code, in first-fire order, followed by
// the lowercased language. It never fails: empty code yields only the
// language tag, and an unknown language contributes nothing.
func (rs *RuleSet) Infer(code string, language models.Language) models.Tags {
	lower := strings.ToLower(code)
	tags := make(models.Tags, 0, len(rs.rules)+1)
	for _, r := range rs.rules {
		if r.match(lower) && !tags.Contains(r.Label) {
			tags = append(tags, r.Label)
		}
	}
	if language.Valid() && !tags.Contains(language.Tag()) {
		tags = append(tags, language.Tag())
	}
	return tags
}

// Infer runs the default rule set
func Infer(code string, language models.Language) models.Tags {
	return DefaultRuleSet().Infer(code, language)
}
