package retrieval

import (
	"slices"
	"testing"

	"github.com/benvon/smart-snippets/internal/models"
)

func TestFacets(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		records []*models.Snippet
		want    []string
	}{
		{
			name: "distinct and sorted",
			records: []*models.Snippet{
				{Tags: models.Tags{"loop", "python"}},
				{Tags: models.Tags{"api", "loop"}},
			},
			want: []string{"api", "loop", "python"},
		},
		{
			name: "case variants collapse",
			records: []*models.Snippet{
				{Tags: models.Tags{"loop"}},
				{Tags: models.Tags{"Loop"}},
			},
			want: []string{"Loop"},
		},
		{
			name:    "nil records are skipped",
			records: []*models.Snippet{nil, {Tags: models.Tags{"x"}}},
			want:    []string{"x"},
		},
		{
			name:    "no records",
			records: nil,
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Facets(tt.records)
			if got == nil {
				t.Fatal("Expected non-nil facets")
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestFacets_AfterFilter(t *testing.T) {
	t.Parallel()

	fx := newFixture()
	got := Facets(Apply(fx.records, fx.owner, Filter{Language: langPtr(models.LanguagePython)}))
	want := []string{"favourite", "http", "Loop", "python"}
	slices.Sort(want)
	if !slices.Equal(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}
