package workers

import (
	"context"
	"fmt"
	"time"

	logpkg "github.com/benvon/smart-snippets/internal/logger"
	"github.com/benvon/smart-snippets/internal/queue"
	"go.uber.org/zap"
)

const (
	baseRetryDelay = 5 * time.Second
	maxRetryDelay  = 5 * time.Minute
)

// JobProcessor handles one job. A returned error triggers the retry policy.
type JobProcessor func(ctx context.Context, job *queue.Job) error

type processorEntry struct {
	proc  JobProcessor
	retry bool
}

// Enqueuer re-publishes jobs for a delayed retry
type Enqueuer interface {
	Enqueue(ctx context.Context, job *queue.Job) error
}

// Dispatcher routes delivered jobs to the processor registered for their type
type Dispatcher struct {
	registry map[queue.JobType]processorEntry
	requeue  Enqueuer
	logger   *zap.Logger
}

// NewDispatcher creates an empty dispatcher. requeue may be nil, in which
// case failed jobs go straight to the dead letter queue.
func NewDispatcher(requeue Enqueuer, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		registry: make(map[queue.JobType]processorEntry),
		requeue:  requeue,
		logger:   logger,
	}
}

// RegisterProcessor registers a processor for a job type. With retry set,
// failures are re-enqueued with backoff until the job's MaxRetries is spent.
func (d *Dispatcher) RegisterProcessor(typ queue.JobType, proc JobProcessor, retry bool) {
	d.registry[typ] = processorEntry{proc: proc, retry: retry}
}

// ProcessJob runs the registered processor and settles the message
func (d *Dispatcher) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()
	jobID := logpkg.SanitizeUserID(job.ID.String())

	if job.IsExpired() {
		d.logger.Debug("job_expired", zap.String("job_id", jobID))
		d.nack(msg, false, jobID)
		return nil
	}
	if !job.ShouldProcess() {
		fields := []zap.Field{zap.String("job_id", jobID)}
		if job.NotBefore != nil {
			fields = append(fields, zap.Time("not_before", *job.NotBefore))
		}
		d.logger.Debug("job_not_ready", fields...)
		d.nack(msg, true, jobID)
		return nil
	}

	ent, ok := d.registry[job.Type]
	if !ok {
		d.nack(msg, false, jobID)
		return fmt.Errorf("unknown job type: %s", job.Type)
	}

	if err := ent.proc(ctx, job); err != nil {
		d.logger.Error("job_failed",
			zap.String("job_id", jobID),
			zap.String("job_type", string(job.Type)),
			zap.String("user_id", logpkg.SanitizeUserID(job.UserID.String())),
			zap.Int("retry_count", job.RetryCount),
			zap.String("error", logpkg.SanitizeError(err)),
		)
		if ent.retry {
			return d.handleJobError(ctx, msg, job, err)
		}
		d.nack(msg, false, jobID)
		return fmt.Errorf("%s job failed: %w", job.Type, err)
	}

	if ackErr := msg.Ack(); ackErr != nil {
		return fmt.Errorf("failed to ack %s job: %w", job.Type, ackErr)
	}
	return nil
}

// handleJobError re-enqueues a copy of job with a later NotBefore and acks the
// original. Without retries left, or without a queue, the job is dead-lettered.
func (d *Dispatcher) handleJobError(ctx context.Context, msg queue.MessageInterface, job *queue.Job, err error) error {
	jobID := logpkg.SanitizeUserID(job.ID.String())

	if !job.CanRetry() || d.requeue == nil {
		d.nack(msg, false, jobID)
		return fmt.Errorf("%s job failed after %d retries: %w", job.Type, job.RetryCount, err)
	}

	delay := retryDelay(job.RetryCount)
	retry := *job
	retry.IncrementRetry()
	notBefore := time.Now().Add(delay)
	retry.NotBefore = &notBefore

	if enqueueErr := d.requeue.Enqueue(ctx, &retry); enqueueErr != nil {
		d.logger.Warn("failed_to_reenqueue_job",
			zap.String("job_id", jobID),
			zap.String("error", logpkg.SanitizeError(enqueueErr)),
		)
		d.nack(msg, true, jobID)
		return fmt.Errorf("%s job failed, re-enqueue failed: %w", job.Type, enqueueErr)
	}
	if ackErr := msg.Ack(); ackErr != nil {
		d.logger.Warn("failed_to_ack_retried_job",
			zap.String("job_id", jobID),
			zap.String("error", logpkg.SanitizeError(ackErr)),
		)
	}

	d.logger.Info("job_scheduled_for_retry",
		zap.String("job_id", jobID),
		zap.Int("attempt", retry.RetryCount),
		zap.Int("max_retries", retry.MaxRetries),
		zap.Duration("delay", delay),
	)
	return fmt.Errorf("%s job failed (will retry): %w", job.Type, err)
}

func (d *Dispatcher) nack(msg queue.MessageInterface, requeue bool, jobID string) {
	if err := msg.Nack(requeue); err != nil {
		d.logger.Warn("failed_to_nack_job",
			zap.String("job_id", jobID),
			zap.Bool("requeue", requeue),
			zap.String("error", logpkg.SanitizeError(err)),
		)
	}
}

// retryDelay doubles from baseRetryDelay per attempt, capped at maxRetryDelay
func retryDelay(attempt int) time.Duration {
	delay := baseRetryDelay
	for range attempt {
		delay *= 2
		if delay >= maxRetryDelay {
			return maxRetryDelay
		}
	}
	return delay
}
