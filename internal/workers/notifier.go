package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	logpkg "github.com/benvon/smart-snippets/internal/logger"
	"github.com/benvon/smart-snippets/internal/queue"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Tainter flags an owner's statistics as stale
type Tainter interface {
	MarkTainted(ctx context.Context, userID uuid.UUID) (bool, error)
}

// TagChangeNotifier marks statistics tainted and schedules a debounced
// recount whenever an owner's tags change
type TagChangeNotifier struct {
	tainter  Tainter
	jobs     Enqueuer
	debounce time.Duration
	logger   *zap.Logger
}

// NewTagChangeNotifier creates a notifier. jobs may be nil when no queue is
// configured; statistics then stay tainted until a worker runs.
func NewTagChangeNotifier(tainter Tainter, jobs Enqueuer, debounce time.Duration, logger *zap.Logger) *TagChangeNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TagChangeNotifier{tainter: tainter, jobs: jobs, debounce: debounce, logger: logger}
}

// HandleTagChange matches database.TagChangeHandler. The job is enqueued
// even if tainting failed, since the recount clears the flag anyway.
func (n *TagChangeNotifier) HandleTagChange(ctx context.Context, userID uuid.UUID) error {
	user := logpkg.SanitizeUserID(userID.String())

	_, taintErr := n.tainter.MarkTainted(ctx, userID)
	if taintErr != nil {
		n.logger.Warn("failed_to_mark_tag_statistics_tainted",
			zap.String("user_id", user),
			zap.String("error", logpkg.SanitizeError(taintErr)),
		)
	}

	if n.jobs == nil {
		n.logger.Debug("job_queue_not_available", zap.String("user_id", user))
		return taintErr
	}

	if err := n.jobs.Enqueue(ctx, queue.NewTagStatisticsJob(userID, n.debounce)); err != nil {
		n.logger.Error("failed_to_enqueue_tag_statistics_job",
			zap.String("user_id", user),
			zap.String("error", logpkg.SanitizeError(err)),
		)
		return errors.Join(taintErr, fmt.Errorf("failed to enqueue tag statistics job: %w", err))
	}

	n.logger.Debug("enqueued_tag_statistics_job",
		zap.String("user_id", user),
		zap.Duration("debounce_delay", n.debounce),
	)
	return nil
}
