package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Language is the declared language of a snippet
type Language string

const (
	LanguageJavaScript Language = "JavaScript"
	LanguageTypeScript Language = "TypeScript"
	LanguagePython     Language = "Python"
	LanguageBash       Language = "Bash"
	LanguageJava       Language = "Java"
	LanguageCPP        Language = "C++"
	LanguageHTML       Language = "HTML"
	LanguageCSS        Language = "CSS"
	LanguageSQL        Language = "SQL"
	LanguageJSON       Language = "JSON"
	LanguageOther      Language = "Other"
)

// Languages lists every accepted language in display order
var Languages = []Language{
	LanguageJavaScript,
	LanguageTypeScript,
	LanguagePython,
	LanguageBash,
	LanguageJava,
	LanguageCPP,
	LanguageHTML,
	LanguageCSS,
	LanguageSQL,
	LanguageJSON,
	LanguageOther,
}

// Valid reports whether l is one of the closed set of languages.
// Matching is exact: "javascript" is not a valid language.
func (l Language) Valid() bool {
	for _, known := range Languages {
		if l == known {
			return true
		}
	}
	return false
}

// Tag returns the tag label contributed by the language itself
func (l Language) Tag() string {
	return strings.ToLower(string(l))
}

// Tags is an ordered tag set. Entries keep the spelling they were authored
// with; membership is case-insensitive.
type Tags []string

// Contains reports whether tag is present, ignoring case
func (t Tags) Contains(tag string) bool {
	return t.Index(tag) >= 0
}

// Index returns the position of tag ignoring case, or -1
func (t Tags) Index(tag string) int {
	for i, existing := range t {
		if strings.EqualFold(existing, tag) {
			return i
		}
	}
	return -1
}

// Clone returns a copy that never aliases t. A nil receiver yields an empty set.
func (t Tags) Clone() Tags {
	out := make(Tags, len(t))
	copy(out, t)
	return out
}

// Equal reports whether both sets hold the same entries in the same order
func (t Tags) Equal(other Tags) bool {
	if len(t) != len(other) {
		return false
	}
	for i := range t {
		if t[i] != other[i] {
			return false
		}
	}
	return true
}

// Snippet is a stored code fragment owned by a single user
type Snippet struct {
	ID       uuid.UUID `json:"id"`
	OwnerID  uuid.UUID `json:"owner_id"`
	Title    string    `json:"title"`
	Code     string    `json:"code"`
	Language Language  `json:"language"`
	Tags     Tags      `json:"tags"`
	// InferredTags is the rule output recorded at the last save that changed Code
	InferredTags Tags      `json:"inferred_tags"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the snippet
func (s *Snippet) Clone() *Snippet {
	if s == nil {
		return nil
	}
	c := *s
	c.Tags = s.Tags.Clone()
	c.InferredTags = s.InferredTags.Clone()
	return &c
}
