package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benvon/smart-snippets/internal/queue"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const testJobType queue.JobType = "test_job"

func newTestJob() *queue.Job {
	return queue.NewJob(testJobType, uuid.New(), nil)
}

func TestDispatcher_ProcessJob(t *testing.T) {
	t.Parallel()

	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name      string
		mutate    func(*queue.Job)
		procErr   error
		retry     bool
		queue     *mockJobQueue
		wantErr   bool
		wantAcks  int
		wantNacks []bool
		wantRetry bool
	}{
		{name: "success acks", wantAcks: 1},
		{name: "unknown type dead-letters", mutate: func(j *queue.Job) { j.Type = "nope" }, wantErr: true, wantNacks: []bool{false}},
		{name: "not ready requeues", mutate: func(j *queue.Job) { j.NotBefore = &future }, wantNacks: []bool{true}},
		{name: "expired dead-letters", mutate: func(j *queue.Job) { j.NotAfter = &past }, wantNacks: []bool{false}},
		{name: "failure without retry dead-letters", procErr: errors.New("boom"), wantErr: true, wantNacks: []bool{false}},
		{name: "failure with retry re-enqueues", procErr: errors.New("boom"), retry: true, queue: &mockJobQueue{}, wantErr: true, wantAcks: 1, wantRetry: true},
		{name: "retries exhausted dead-letters", mutate: func(j *queue.Job) { j.RetryCount = j.MaxRetries }, procErr: errors.New("boom"), retry: true, queue: &mockJobQueue{}, wantErr: true, wantNacks: []bool{false}},
		{name: "no queue dead-letters", procErr: errors.New("boom"), retry: true, wantErr: true, wantNacks: []bool{false}},
		{name: "re-enqueue failure requeues", procErr: errors.New("boom"), retry: true, queue: &mockJobQueue{err: errors.New("closed")}, wantErr: true, wantNacks: []bool{true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var requeue Enqueuer
			if tt.queue != nil {
				requeue = tt.queue
			}
			d := NewDispatcher(requeue, zap.NewNop())

			called := 0
			d.RegisterProcessor(testJobType, func(ctx context.Context, job *queue.Job) error {
				called++
				return tt.procErr
			}, tt.retry)

			job := newTestJob()
			if tt.mutate != nil {
				tt.mutate(job)
			}
			msg := &mockMessage{job: job}

			err := d.ProcessJob(context.Background(), msg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Expected error=%v, got %v", tt.wantErr, err)
			}

			acks, nacks := msg.settled()
			if acks != tt.wantAcks {
				t.Errorf("Expected %d acks, got %d", tt.wantAcks, acks)
			}
			if len(nacks) != len(tt.wantNacks) {
				t.Fatalf("Expected nacks %v, got %v", tt.wantNacks, nacks)
			}
			for i := range nacks {
				if nacks[i] != tt.wantNacks[i] {
					t.Errorf("Expected nack requeue=%v, got %v", tt.wantNacks[i], nacks[i])
				}
			}

			if tt.queue != nil {
				jobs := tt.queue.enqueued()
				if tt.wantRetry {
					if len(jobs) != 1 {
						t.Fatalf("Expected 1 re-enqueued job, got %d", len(jobs))
					}
					retried := jobs[0]
					if retried.ID != job.ID || retried.RetryCount != job.RetryCount+1 {
						t.Errorf("Expected same job with retry %d, got %+v", job.RetryCount+1, retried)
					}
					if retried.NotBefore == nil || !retried.NotBefore.After(time.Now()) {
						t.Errorf("Expected future NotBefore, got %v", retried.NotBefore)
					}
				} else if len(jobs) != 0 {
					t.Errorf("Expected nothing re-enqueued, got %d", len(jobs))
				}
			}
		})
	}
}

func TestRetryDelay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 5 * time.Second},
		{1, 10 * time.Second},
		{3, 40 * time.Second},
		{10, maxRetryDelay},
	}
	for _, tt := range tests {
		if got := retryDelay(tt.attempt); got != tt.want {
			t.Errorf("retryDelay(%d): expected %v, got %v", tt.attempt, tt.want, got)
		}
	}
}
