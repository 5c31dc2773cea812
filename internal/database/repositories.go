package database

import (
	"context"

	"github.com/benvon/smart-snippets/internal/models"
	"github.com/benvon/smart-snippets/internal/retrieval"
	"github.com/google/uuid"
)

// SnippetRepositoryInterface is the storage collaborator used by the snippet
// service and the statistics worker
type SnippetRepositoryInterface interface {
	Insert(ctx context.Context, s *models.Snippet) error
	GetByOwnerAndID(ctx context.Context, ownerID, id uuid.UUID) (*models.Snippet, error)
	FindByOwnerAndFilter(ctx context.Context, ownerID uuid.UUID, filter retrieval.Filter) ([]*models.Snippet, error)
	ListAllByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Snippet, error)
	Replace(ctx context.Context, ownerID uuid.UUID, s *models.Snippet) error
	DeleteByID(ctx context.Context, ownerID, id uuid.UUID) (bool, error)
}

// TagStatisticsRepositoryInterface defines the tag statistics operations
type TagStatisticsRepositoryInterface interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.TagStatistics, error)
	GetByUserIDOrCreate(ctx context.Context, userID uuid.UUID) (*models.TagStatistics, error)
	UpdateStatistics(ctx context.Context, stats *models.TagStatistics) (bool, error)
	MarkTainted(ctx context.Context, userID uuid.UUID) (bool, error)
}

// UserRepositoryInterface resolves authenticated identities to owners
type UserRepositoryInterface interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetOrCreate(ctx context.Context, issuer, subject, email string, name *string) (*models.User, error)
}

// Ensure concrete types implement the interfaces
var (
	_ SnippetRepositoryInterface       = (*SnippetRepository)(nil)
	_ retrieval.Source                 = (*SnippetRepository)(nil)
	_ TagStatisticsRepositoryInterface = (*TagStatisticsRepository)(nil)
	_ UserRepositoryInterface          = (*UserRepository)(nil)
)
