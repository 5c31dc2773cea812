// Package snippets orchestrates snippet writes and queries: input is validated
// and sanitised, tags are inferred and merged, and storage failures are mapped
// to apperror kinds.
package snippets

import (
	"context"
	"errors"

	"github.com/benvon/smart-snippets/internal/apperror"
	logpkg "github.com/benvon/smart-snippets/internal/logger"
	"github.com/benvon/smart-snippets/internal/models"
	"github.com/benvon/smart-snippets/internal/retrieval"
	"github.com/benvon/smart-snippets/internal/tagging"
	"github.com/benvon/smart-snippets/internal/telemetry"
	"github.com/benvon/smart-snippets/internal/validation"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Store is the persistence collaborator
type Store interface {
	retrieval.Source
	Insert(ctx context.Context, s *models.Snippet) error
	GetByOwnerAndID(ctx context.Context, ownerID, id uuid.UUID) (*models.Snippet, error)
	Replace(ctx context.Context, ownerID uuid.UUID, s *models.Snippet) error
	DeleteByID(ctx context.Context, ownerID, id uuid.UUID) (bool, error)
}

// StatsReader reads the derived tag statistics
type StatsReader interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.TagStatistics, error)
}

// CreateInput is the body of a create or full replace
type CreateInput struct {
	Title    string          `json:"title" validate:"required,max=200"`
	Code     string          `json:"code" validate:"required,max=100000"`
	Language models.Language `json:"language" validate:"required,snippet_language"`
	Tags     models.Tags     `json:"tags,omitempty" validate:"omitempty,max=50,dive,snippet_tag"`
}

// PatchInput carries only the fields being changed. Nil Tags means the
// caller did not mention tags.
type PatchInput struct {
	Title    *string          `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Code     *string          `json:"code,omitempty" validate:"omitempty,min=1,max=100000"`
	Language *models.Language `json:"language,omitempty" validate:"omitempty,snippet_language"`
	Tags     models.Tags      `json:"tags,omitempty" validate:"omitempty,max=50,dive,snippet_tag"`
}

// PreviewInput asks which tags a body of code would receive
type PreviewInput struct {
	Code     string          `json:"code" validate:"max=100000"`
	Language models.Language `json:"language" validate:"required,snippet_language"`
}

// Service implements the snippet operations for one request's owner
type Service struct {
	store  Store
	stats  StatsReader
	engine *retrieval.Engine
	rules  *tagging.RuleSet
	merger *tagging.Merger
	logger *zap.Logger
}

// Option configures a Service
type Option func(*Service)

// WithStatsReader enables the tag statistics read path
func WithStatsReader(stats StatsReader) Option {
	return func(s *Service) {
		s.stats = stats
	}
}

// WithRuleSet replaces the default inference rules
func WithRuleSet(rules *tagging.RuleSet) Option {
	return func(s *Service) {
		if rules != nil {
			s.rules = rules
		}
	}
}

// NewService creates a snippet service
func NewService(store Store, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:  store,
		engine: retrieval.NewEngine(store),
		rules:  tagging.DefaultRuleSet(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.merger = tagging.NewMerger(s.rules)
	return s
}

// Create validates input, infers tags and stores a new snippet
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, in CreateInput) (*models.Snippet, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	in = sanitizeCreate(in)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	snippet := &models.Snippet{
		ID:       uuid.New(),
		OwnerID:  ownerID,
		Title:    in.Title,
		Code:     in.Code,
		Language: in.Language,
	}
	s.merger.Apply(nil, snippet, in.Tags)

	if err := s.store.Insert(ctx, snippet); err != nil {
		return nil, s.storageError("create snippet", ownerID, err)
	}

	s.logger.Info("snippet_created",
		zap.String("owner_id", logpkg.SanitizeUserID(ownerID.String())),
		zap.String("snippet_id", snippet.ID.String()),
		zap.Int("tags", len(snippet.Tags)),
	)
	return snippet, nil
}

// Get returns one of the owner's snippets
func (s *Service) Get(ctx context.Context, ownerID, id uuid.UUID) (*models.Snippet, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	snippet, err := s.store.GetByOwnerAndID(ctx, ownerID, id)
	if err != nil {
		return nil, s.lookupError(ownerID, id, err)
	}
	return snippet, nil
}

// List runs a filtered query over the owner's snippets, newest first
func (s *Service) List(ctx context.Context, ownerID uuid.UUID, filter retrieval.Filter) ([]*models.Snippet, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	if filter.Language != nil {
		if err := validation.ValidateLanguage(string(*filter.Language)); err != nil {
			return nil, err
		}
	}
	filter.Tags = validation.SanitizeTags(filter.Tags)
	filter.Text = validation.SanitizeText(filter.Text)

	ctx, span := telemetry.Tracer().Start(ctx, "snippets.query", trace.WithAttributes(
		attribute.Int("filter.tags", len(filter.Tags)),
		attribute.Bool("filter.language", filter.Language != nil),
		attribute.Bool("filter.text", filter.Text != ""),
	))
	defer span.End()

	results, err := s.engine.Query(ctx, ownerID, filter)
	if err != nil {
		span.RecordError(err)
		return nil, s.storageError("list snippets", ownerID, err)
	}
	span.SetAttributes(attribute.Int("results", len(results)))
	return results, nil
}

// Replace overwrites title, code and language. Tags left out of the input
// keep their stored values.
func (s *Service) Replace(ctx context.Context, ownerID, id uuid.UUID, in CreateInput) (*models.Snippet, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	in = sanitizeCreate(in)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	return s.update(ctx, ownerID, id, PatchInput{
		Title:    &in.Title,
		Code:     &in.Code,
		Language: &in.Language,
		Tags:     in.Tags,
	})
}

// Update changes only the supplied fields
func (s *Service) Update(ctx context.Context, ownerID, id uuid.UUID, in PatchInput) (*models.Snippet, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	in = sanitizePatch(in)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	return s.update(ctx, ownerID, id, in)
}

func (s *Service) update(ctx context.Context, ownerID, id uuid.UUID, in PatchInput) (*models.Snippet, error) {
	previous, err := s.store.GetByOwnerAndID(ctx, ownerID, id)
	if err != nil {
		return nil, s.lookupError(ownerID, id, err)
	}

	next := previous.Clone()
	if in.Title != nil {
		next.Title = *in.Title
	}
	if in.Code != nil {
		next.Code = *in.Code
	}
	if in.Language != nil {
		next.Language = *in.Language
	}
	reinferred := s.merger.Apply(previous, next, in.Tags)

	if err := s.store.Replace(ctx, ownerID, next); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFound("snippet", id.String())
		}
		return nil, s.storageError("update snippet", ownerID, err)
	}

	s.logger.Info("snippet_updated",
		zap.String("owner_id", logpkg.SanitizeUserID(ownerID.String())),
		zap.String("snippet_id", id.String()),
		zap.Bool("reinferred", reinferred),
	)
	return next, nil
}

// Delete removes one of the owner's snippets
func (s *Service) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}
	deleted, err := s.store.DeleteByID(ctx, ownerID, id)
	if err != nil {
		return s.storageError("delete snippet", ownerID, err)
	}
	if !deleted {
		return apperror.NotFound("snippet", id.String())
	}
	s.logger.Info("snippet_deleted",
		zap.String("owner_id", logpkg.SanitizeUserID(ownerID.String())),
		zap.String("snippet_id", id.String()),
	)
	return nil
}

// Facets returns the distinct tags across the owner's collection
func (s *Service) Facets(ctx context.Context, ownerID uuid.UUID) ([]string, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	all, err := s.engine.Query(ctx, ownerID, retrieval.Filter{})
	if err != nil {
		return nil, s.storageError("list tags", ownerID, err)
	}
	return retrieval.Facets(all), nil
}

// PreviewTags runs inference without storing anything
func (s *Service) PreviewTags(in PreviewInput) (models.Tags, error) {
	in.Code = validation.SanitizeCode(in.Code)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	return s.rules.Infer(in.Code, in.Language), nil
}

// Stats returns the last computed tag statistics. An owner with none yet
// gets an empty, tainted result.
func (s *Service) Stats(ctx context.Context, ownerID uuid.UUID) (*models.TagStatistics, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	empty := &models.TagStatistics{
		UserID:   ownerID,
		TagStats: map[string]models.TagStats{},
		Tainted:  true,
	}
	if s.stats == nil {
		return empty, nil
	}
	stats, err := s.stats.GetByUserID(ctx, ownerID)
	if errors.Is(err, apperror.ErrNotFound) {
		return empty, nil
	}
	if err != nil {
		return nil, s.storageError("get tag statistics", ownerID, err)
	}
	return stats, nil
}

func requireOwner(ownerID uuid.UUID) error {
	if ownerID == uuid.Nil {
		return apperror.Unauthenticated("")
	}
	return nil
}

func (s *Service) lookupError(ownerID, id uuid.UUID, err error) error {
	if errors.Is(err, apperror.ErrNotFound) {
		return apperror.NotFound("snippet", id.String())
	}
	return s.storageError("get snippet", ownerID, err)
}

func (s *Service) storageError(op string, ownerID uuid.UUID, err error) error {
	s.logger.Error("snippet_storage_failed",
		zap.String("operation", op),
		zap.String("owner_id", logpkg.SanitizeUserID(ownerID.String())),
		zap.String("error", logpkg.SanitizeError(err)),
	)
	return apperror.Storage(op, err)
}

func sanitizeCreate(in CreateInput) CreateInput {
	in.Title = validation.SanitizeText(in.Title)
	in.Code = validation.SanitizeCode(in.Code)
	in.Tags = validation.SanitizeTags(in.Tags)
	return in
}

func sanitizePatch(in PatchInput) PatchInput {
	if in.Title != nil {
		title := validation.SanitizeText(*in.Title)
		in.Title = &title
	}
	if in.Code != nil {
		code := validation.SanitizeCode(*in.Code)
		in.Code = &code
	}
	in.Tags = validation.SanitizeTags(in.Tags)
	return in
}
