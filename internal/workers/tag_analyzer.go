package workers

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/benvon/smart-snippets/internal/database"
	logpkg "github.com/benvon/smart-snippets/internal/logger"
	"github.com/benvon/smart-snippets/internal/models"
	"github.com/benvon/smart-snippets/internal/queue"
	"github.com/benvon/smart-snippets/internal/tagging"
	"github.com/benvon/smart-snippets/internal/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// SnippetLister loads every snippet an owner has
type SnippetLister interface {
	ListAllByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Snippet, error)
}

// TagAnalyzer recomputes an owner's tag statistics from their snippets
type TagAnalyzer struct {
	snippets     SnippetLister
	tagStatsRepo database.TagStatisticsRepositoryInterface
	rules        *tagging.RuleSet
	logger       *zap.Logger
	now          func() time.Time
}

// NewTagAnalyzer creates a tag analyzer using the default inference rules
func NewTagAnalyzer(snippets SnippetLister, tagStatsRepo database.TagStatisticsRepositoryInterface, logger *zap.Logger) *TagAnalyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TagAnalyzer{
		snippets:     snippets,
		tagStatsRepo: tagStatsRepo,
		rules:        tagging.DefaultRuleSet(),
		logger:       logger,
		now:          time.Now,
	}
}

// Register adds the tag_statistics processor to d
func (a *TagAnalyzer) Register(d *Dispatcher) {
	d.RegisterProcessor(queue.JobTypeTagStatistics, a.ProcessTagStatisticsJob, true)
}

// ProcessTagStatisticsJob counts every tag across the owner's snippets and
// writes the result under the optimistic version check. It always
// recomputes, since a write may have marked the row tainted after an
// earlier run read it. A lost version race is not an error: the winner
// wrote counts at least as fresh.
func (a *TagAnalyzer) ProcessTagStatisticsJob(ctx context.Context, job *queue.Job) error {
	if job.UserID == uuid.Nil {
		return fmt.Errorf("user_id is required for tag statistics job")
	}
	ctx, span := telemetry.Tracer().Start(ctx, "tag_statistics.recompute",
		trace.WithAttributes(attribute.String("job.id", job.ID.String())),
	)
	defer span.End()

	err := a.recompute(ctx, job)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "recompute failed")
	}
	return err
}

func (a *TagAnalyzer) recompute(ctx context.Context, job *queue.Job) error {
	userID := logpkg.SanitizeUserID(job.UserID.String())
	a.logger.Info("processing_tag_statistics_job",
		zap.String("job_id", logpkg.SanitizeUserID(job.ID.String())),
		zap.String("user_id", userID),
	)

	stats, err := a.tagStatsRepo.GetByUserIDOrCreate(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("failed to get or create tag statistics: %w", err)
	}
	a.logger.Debug("tag_statistics_status",
		zap.String("user_id", userID),
		zap.Bool("tainted", stats.Tainted),
		zap.Int("existing_tags", len(stats.TagStats)),
	)

	records, err := a.snippets.ListAllByOwner(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("failed to list snippets: %w", err)
	}

	tagStatsMap, withTags := a.aggregate(records)
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Int("snippets", len(records)),
		attribute.Int("unique_tags", len(tagStatsMap)),
	)
	a.logger.Info("aggregated_tag_statistics",
		zap.String("user_id", userID),
		zap.Int("snippets", len(records)),
		zap.Int("snippets_with_tags", withTags),
		zap.Int("unique_tags", len(tagStatsMap)),
	)

	stats.TagStats = tagStatsMap
	now := a.now()
	stats.LastAnalyzedAt = &now
	updated, err := a.tagStatsRepo.UpdateStatistics(ctx, stats)
	if err != nil {
		return fmt.Errorf("failed to update tag statistics: %w", err)
	}
	if !updated {
		a.logger.Debug("tag_statistics_version_conflict", zap.String("user_id", userID))
		return nil
	}

	a.logTagBreakdownIfDebug(userID, tagStatsMap)
	return nil
}

// aggregate counts each tag once per snippet. A tag is inferred when the
// snippet's current code and language would produce it, user otherwise.
// Spellings differing only in case share one entry, keyed by the spelling
// that sorts first.
func (a *TagAnalyzer) aggregate(records []*models.Snippet) (map[string]models.TagStats, int) {
	counts := make(map[string]models.TagStats)
	display := make(map[string]string)
	withTags := 0

	for _, s := range records {
		if s == nil || len(s.Tags) == 0 {
			continue
		}
		withTags++
		inferred := a.rules.Infer(s.Code, s.Language)
		for _, tag := range s.Tags {
			key := strings.ToLower(tag)
			if current, ok := display[key]; !ok || tag < current {
				display[key] = tag
			}
			st := counts[key]
			st.Total++
			if inferred.Contains(tag) {
				st.Inferred++
			} else {
				st.User++
			}
			counts[key] = st
		}
	}

	out := make(map[string]models.TagStats, len(counts))
	for key, st := range counts {
		out[display[key]] = st
	}
	return out, withTags
}

func (a *TagAnalyzer) logTagBreakdownIfDebug(userID string, tagStatsMap map[string]models.TagStats) {
	if len(tagStatsMap) == 0 || !a.logger.Core().Enabled(zap.DebugLevel) {
		return
	}
	tagList := make([]string, 0, len(tagStatsMap))
	for tag := range tagStatsMap {
		tagList = append(tagList, tag)
	}
	slices.Sort(tagList)
	a.logger.Debug("tag_breakdown",
		zap.String("user_id", userID),
		zap.Strings("tags", logpkg.SanitizeTags(tagList)),
	)
}
