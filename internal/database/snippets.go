package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benvon/smart-snippets/internal/apperror"
	logpkg "github.com/benvon/smart-snippets/internal/logger"
	"github.com/benvon/smart-snippets/internal/models"
	"github.com/benvon/smart-snippets/internal/retrieval"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// TagChangeHandler is called after a committed write changed an owner's tag set
type TagChangeHandler func(ctx context.Context, ownerID uuid.UUID) error

const snippetColumns = `id, owner_id, title, code, language, tags, inferred_tags, created_at, updated_at`

// SnippetRepository handles snippet database operations. Every read and write
// is scoped by owner.
type SnippetRepository struct {
	db               *DB
	logger           *zap.Logger
	tagChangeHandler TagChangeHandler
}

// NewSnippetRepository creates a new snippet repository
func NewSnippetRepository(db *DB) *SnippetRepository {
	return &SnippetRepository{db: db, logger: zap.NewNop()}
}

// SetLogger sets the logger used for tag change notifications
func (r *SnippetRepository) SetLogger(logger *zap.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// SetTagChangeHandler registers the callback fired when a write changes tags
func (r *SnippetRepository) SetTagChangeHandler(h TagChangeHandler) {
	r.tagChangeHandler = h
}

// Insert stores a new snippet
func (r *SnippetRepository) Insert(ctx context.Context, s *models.Snippet) error {
	query := `
		INSERT INTO snippets (` + snippetColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	now := time.Now().UTC()
	err := r.db.QueryRowContext(ctx, query,
		s.ID,
		s.OwnerID,
		s.Title,
		s.Code,
		string(s.Language),
		tagArray(s.Tags),
		tagArray(s.InferredTags),
		now,
		now,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert snippet: %w", err)
	}

	if len(s.Tags) > 0 {
		r.notifyTagChange(ctx, s.OwnerID)
	}
	return nil
}

// GetByOwnerAndID retrieves one snippet. A snippet owned by someone else is
// reported exactly like a missing one.
func (r *SnippetRepository) GetByOwnerAndID(ctx context.Context, ownerID, id uuid.UUID) (*models.Snippet, error) {
	query := `SELECT ` + snippetColumns + ` FROM snippets WHERE id = $1 AND owner_id = $2`

	s, err := scanSnippet(r.db.QueryRowContext(ctx, query, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snippet %s: %w", id, apperror.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snippet: %w", err)
	}
	return s, nil
}

// FindByOwnerAndFilter pushes the filter down to Postgres. Results are newest first.
func (r *SnippetRepository) FindByOwnerAndFilter(ctx context.Context, ownerID uuid.UUID, filter retrieval.Filter) ([]*models.Snippet, error) {
	query, args := buildFilterQuery(ownerID, filter.Normalize())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snippets: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	snippets := make([]*models.Snippet, 0)
	for rows.Next() {
		s, err := scanSnippet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snippet: %w", err)
		}
		snippets = append(snippets, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snippets: %w", err)
	}
	return snippets, nil
}

// ListAllByOwner returns every snippet for an owner, newest first
func (r *SnippetRepository) ListAllByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Snippet, error) {
	return r.FindByOwnerAndFilter(ctx, ownerID, retrieval.Filter{})
}

// Replace overwrites the mutable fields of an owned snippet. The previous tag
// set is read in the same statement so tag changes can be detected.
func (r *SnippetRepository) Replace(ctx context.Context, ownerID uuid.UUID, s *models.Snippet) error {
	query := `
		UPDATE snippets AS s
		SET title = $3, code = $4, language = $5, tags = $6, inferred_tags = $7, updated_at = $8
		FROM (
			SELECT id, tags AS old_tags FROM snippets WHERE id = $1 AND owner_id = $2 FOR UPDATE
		) AS prev
		WHERE s.id = prev.id
		RETURNING s.created_at, s.updated_at, prev.old_tags
	`

	var oldTags pq.StringArray
	err := r.db.QueryRowContext(ctx, query,
		s.ID,
		ownerID,
		s.Title,
		s.Code,
		string(s.Language),
		tagArray(s.Tags),
		tagArray(s.InferredTags),
		time.Now().UTC(),
	).Scan(&s.CreatedAt, &s.UpdatedAt, &oldTags)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("snippet %s: %w", s.ID, apperror.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to replace snippet: %w", err)
	}

	s.OwnerID = ownerID
	if !tagsEqual(models.Tags(oldTags), s.Tags) {
		r.notifyTagChange(ctx, ownerID)
	}
	return nil
}

// DeleteByID removes an owned snippet and reports whether a row was deleted
func (r *SnippetRepository) DeleteByID(ctx context.Context, ownerID, id uuid.UUID) (bool, error) {
	query := `DELETE FROM snippets WHERE id = $1 AND owner_id = $2 RETURNING tags`

	var tags pq.StringArray
	err := r.db.QueryRowContext(ctx, query, id, ownerID).Scan(&tags)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to delete snippet: %w", err)
	}

	if len(tags) > 0 {
		r.notifyTagChange(ctx, ownerID)
	}
	return true, nil
}

// notifyTagChange runs after the write has committed, so a handler failure
// is logged and never undoes the write.
func (r *SnippetRepository) notifyTagChange(ctx context.Context, ownerID uuid.UUID) {
	if r.tagChangeHandler == nil {
		return
	}
	if err := r.tagChangeHandler(ctx, ownerID); err != nil {
		r.logger.Warn("tag_change_handler_failed",
			zap.String("owner_id", logpkg.SanitizeUserID(ownerID.String())),
			zap.String("error", logpkg.SanitizeError(err)),
		)
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnippet(row rowScanner) (*models.Snippet, error) {
	s := &models.Snippet{}
	var language string
	err := row.Scan(
		&s.ID,
		&s.OwnerID,
		&s.Title,
		&s.Code,
		&language,
		(*pq.StringArray)(&s.Tags),
		(*pq.StringArray)(&s.InferredTags),
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Language = models.Language(language)
	s.Tags = s.Tags.Clone()
	s.InferredTags = s.InferredTags.Clone()
	return s, nil
}

// buildFilterQuery renders the filter stages as SQL. Tag membership ignores
// case and the text stage is a literal, case-insensitive substring match.
func buildFilterQuery(ownerID uuid.UUID, f retrieval.Filter) (string, []any) {
	var b strings.Builder
	b.WriteString(`SELECT ` + snippetColumns + ` FROM snippets WHERE owner_id = $1`)
	args := []any{ownerID}
	argIndex := 2

	if f.Language != nil {
		fmt.Fprintf(&b, " AND language = $%d", argIndex)
		args = append(args, string(*f.Language))
		argIndex++
	}

	for _, tag := range f.Tags {
		fmt.Fprintf(&b, " AND EXISTS (SELECT 1 FROM unnest(tags) AS t WHERE lower(t) = lower($%d))", argIndex)
		args = append(args, tag)
		argIndex++
	}

	if f.Text != "" {
		fmt.Fprintf(&b, ` AND (title ILIKE $%[1]d ESCAPE '\' OR code ILIKE $%[1]d ESCAPE '\' OR EXISTS (SELECT 1 FROM unnest(tags) AS t WHERE t ILIKE $%[1]d ESCAPE '\'))`, argIndex)
		args = append(args, "%"+escapeLike(f.Text)+"%")
	}

	b.WriteString(" ORDER BY created_at DESC, id")
	return b.String(), args
}

// escapeLike makes LIKE wildcards in s match literally
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// tagArray never yields NULL so NOT NULL array columns accept empty sets
func tagArray(t models.Tags) pq.StringArray {
	if t == nil {
		return pq.StringArray{}
	}
	return pq.StringArray(t)
}

// tagsEqual compares tag sets ignoring order and case
func tagsEqual(a, b models.Tags) bool {
	if len(a) != len(b) {
		return false
	}
	for _, tag := range a {
		if !b.Contains(tag) {
			return false
		}
	}
	for _, tag := range b {
		if !a.Contains(tag) {
			return false
		}
	}
	return true
}
