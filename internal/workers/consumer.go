package workers

import (
	"context"

	logpkg "github.com/benvon/smart-snippets/internal/logger"
	"github.com/benvon/smart-snippets/internal/queue"
	"go.uber.org/zap"
)

// Run feeds delivered messages to d until ctx is cancelled or msgs closes.
// Queue errors are logged. It returns once both loops have stopped.
func Run[M queue.MessageInterface](ctx context.Context, d *Dispatcher, msgs <-chan M, errs <-chan error) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-errs:
				if !ok {
					return
				}
				d.logger.Error("queue_error", zap.String("error", logpkg.SanitizeError(err)))
			}
		}
	}()
	defer func() {
		cancel()
		<-done
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				d.logger.Info("message_channel_closed")
				return
			}
			job := msg.GetJob()
			if err := d.ProcessJob(ctx, msg); err != nil {
				d.logger.Error("failed_to_process_job",
					zap.String("job_id", job.ID.String()),
					zap.String("job_type", string(job.Type)),
					zap.String("error", logpkg.SanitizeError(err)),
				)
			}
		}
	}
}
