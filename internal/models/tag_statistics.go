package models

import (
	"time"

	"github.com/google/uuid"
)

// TagStats holds the counts for a single tag across one owner's snippets
type TagStats struct {
	Total    int `json:"total"`    // Snippets carrying the tag
	Inferred int `json:"inferred"` // Snippets whose current code would infer the tag
	User     int `json:"user"`     // Snippets where the tag only exists because the user typed it
}

// TagStatistics is the last computed tag breakdown for an owner
type TagStatistics struct {
	UserID          uuid.UUID           `json:"user_id"`
	TagStats        map[string]TagStats `json:"tag_stats"`
	Tainted         bool                `json:"tainted"`
	LastAnalyzedAt  *time.Time          `json:"last_analyzed_at,omitempty"`
	AnalysisVersion int                 `json:"analysis_version"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}
