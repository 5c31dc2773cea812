package database

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/benvon/smart-snippets/internal/models"
	"github.com/benvon/smart-snippets/internal/retrieval"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func TestBuildFilterQuery(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	python := models.LanguagePython

	tests := []struct {
		name         string
		filter       retrieval.Filter
		wantArgs     int
		wantContains []string
		wantAbsent   []string
	}{
		{
			name:         "scope only",
			filter:       retrieval.Filter{},
			wantArgs:     1,
			wantContains: []string{"WHERE owner_id = $1", "ORDER BY created_at DESC"},
			wantAbsent:   []string{"language =", "unnest", "ILIKE"},
		},
		{
			name:         "language then tags",
			filter:       retrieval.Filter{Language: &python, Tags: models.Tags{"loop", "api"}},
			wantArgs:     4,
			wantContains: []string{"language = $2", "lower($3)", "lower($4)"},
		},
		{
			name:         "text searches title code and tags",
			filter:       retrieval.Filter{Text: "fetch"},
			wantArgs:     2,
			wantContains: []string{"title ILIKE $2", "code ILIKE $2", "t ILIKE $2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			query, args := buildFilterQuery(owner, tt.filter)
			if len(args) != tt.wantArgs {
				t.Errorf("Expected %d args, got %d (%v)", tt.wantArgs, len(args), args)
			}
			if args[0] != owner {
				t.Errorf("Expected first arg to be the owner, got %v", args[0])
			}
			for _, s := range tt.wantContains {
				if !strings.Contains(query, s) {
					t.Errorf("Expected query to contain %q, got %s", s, query)
				}
			}
			for _, s := range tt.wantAbsent {
				if strings.Contains(query, s) {
					t.Errorf("Expected query not to contain %q, got %s", s, query)
				}
			}
		})
	}
}

func TestBuildFilterQuery_TextPattern(t *testing.T) {
	t.Parallel()

	_, args := buildFilterQuery(uuid.New(), retrieval.Filter{Text: "100%_done"})
	want := `%100\%\_done%`
	if got := args[len(args)-1]; got != want {
		t.Errorf("Expected pattern %q, got %q", want, got)
	}
}

func TestEscapeLike(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"a%b", `a\%b`},
		{"snake_case", `snake\_case`},
		{`C:\path`, `C:\\path`},
	}
	for _, tt := range tests {
		if got := escapeLike(tt.in); got != tt.want {
			t.Errorf("Expected %q, got %q", tt.want, got)
		}
	}
}

func TestTagArray(t *testing.T) {
	t.Parallel()

	got := tagArray(nil)
	if got == nil {
		t.Fatal("Expected non-nil array for nil tags")
	}
	v, err := got.Value()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if v != "{}" {
		t.Errorf("Expected empty array literal, got %v", v)
	}
}

func TestTagsEqual(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b models.Tags
		want bool
	}{
		{"both empty", nil, models.Tags{}, true},
		{"same order", models.Tags{"a", "b"}, models.Tags{"a", "b"}, true},
		{"reordered", models.Tags{"a", "b"}, models.Tags{"b", "a"}, true},
		{"case differs", models.Tags{"Loop"}, models.Tags{"loop"}, true},
		{"added", models.Tags{"a"}, models.Tags{"a", "b"}, false},
		{"swapped", models.Tags{"a", "b"}, models.Tags{"a", "c"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tagsEqual(tt.a, tt.b); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestSnippetRepository_NotifyTagChange(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	repo := NewSnippetRepository(nil)
	repo.SetLogger(zap.NewNop())

	// No handler registered is a no-op
	repo.notifyTagChange(context.Background(), owner)

	var got []uuid.UUID
	repo.SetTagChangeHandler(func(ctx context.Context, ownerID uuid.UUID) error {
		got = append(got, ownerID)
		return errors.New("queue unavailable")
	})
	repo.notifyTagChange(context.Background(), owner)

	if len(got) != 1 || got[0] != owner {
		t.Errorf("Expected one notification for %s, got %v", owner, got)
	}
}

func TestSnippetRepository_Integration(t *testing.T) {
	t.Skip("Requires database setup - run against a Postgres instance with DATABASE_URL")
}
