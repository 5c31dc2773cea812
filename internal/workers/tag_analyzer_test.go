package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benvon/smart-snippets/internal/models"
	"github.com/benvon/smart-snippets/internal/queue"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type mockSnippetLister struct {
	records []*models.Snippet
	err     error
	calls   int
}

func (m *mockSnippetLister) ListAllByOwner(_ context.Context, ownerID uuid.UUID) ([]*models.Snippet, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]*models.Snippet, 0, len(m.records))
	for _, s := range m.records {
		if s.OwnerID == ownerID {
			out = append(out, s)
		}
	}
	return out, nil
}

func TestTagAnalyzer_ProcessTagStatisticsJob(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	other := uuid.New()
	lister := &mockSnippetLister{records: []*models.Snippet{
		{OwnerID: userID, Code: "for x in xs:\n    print(x)", Language: models.LanguagePython, Tags: models.Tags{"loop", "debugging", "python", "favourite"}},
		{OwnerID: userID, Code: "while true; do echo hi; done", Language: models.LanguageBash, Tags: models.Tags{"Loop", "bash"}},
		{OwnerID: userID, Code: "SELECT 1", Language: models.LanguageSQL, Tags: models.Tags{"loop"}},
		{OwnerID: userID, Code: "x = 1", Language: models.LanguagePython},
		{OwnerID: other, Code: "for", Language: models.LanguageBash, Tags: models.Tags{"secret"}},
	}}
	repo := newMockTagStatsRepo()
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	analyzer := NewTagAnalyzer(lister, repo, zap.NewNop())
	analyzer.now = func() time.Time { return fixed }

	job := queue.NewTagStatisticsJob(userID, 0)
	if err := analyzer.ProcessTagStatisticsJob(context.Background(), job); err != nil {
		t.Fatalf("ProcessTagStatisticsJob failed: %v", err)
	}

	row := repo.row(userID)
	if row == nil {
		t.Fatal("Expected statistics row")
	}
	if row.Tainted {
		t.Error("Expected statistics to be clean after update")
	}
	if row.AnalysisVersion != 1 {
		t.Errorf("Expected version 1, got %d", row.AnalysisVersion)
	}
	if row.LastAnalyzedAt == nil || !row.LastAnalyzedAt.Equal(fixed) {
		t.Errorf("Expected last analyzed %v, got %v", fixed, row.LastAnalyzedAt)
	}

	want := map[string]models.TagStats{
		"Loop":      {Total: 3, Inferred: 2, User: 1},
		"debugging": {Total: 1, Inferred: 1},
		"python":    {Total: 1, Inferred: 1},
		"favourite": {Total: 1, User: 1},
		"bash":      {Total: 1, Inferred: 1},
	}
	if len(row.TagStats) != len(want) {
		t.Errorf("Expected %d tags, got %v", len(want), row.TagStats)
	}
	for tag, st := range want {
		if got := row.TagStats[tag]; got != st {
			t.Errorf("Tag %q: expected %+v, got %+v", tag, st, got)
		}
	}
	if _, leaked := row.TagStats["secret"]; leaked {
		t.Error("Expected other owner's tags to be excluded")
	}
}

func TestTagAnalyzer_ProcessTagStatisticsJob_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		job    *queue.Job
		lister *mockSnippetLister
		repo   func() *mockTagStatsRepo
	}{
		{
			name:   "missing user id",
			job:    queue.NewTagStatisticsJob(uuid.Nil, 0),
			lister: &mockSnippetLister{},
			repo:   newMockTagStatsRepo,
		},
		{
			name:   "statistics read failure",
			job:    queue.NewTagStatisticsJob(uuid.New(), 0),
			lister: &mockSnippetLister{},
			repo: func() *mockTagStatsRepo {
				r := newMockTagStatsRepo()
				r.getErr = errors.New("db down")
				return r
			},
		},
		{
			name:   "snippet read failure",
			job:    queue.NewTagStatisticsJob(uuid.New(), 0),
			lister: &mockSnippetLister{err: errors.New("db down")},
			repo:   newMockTagStatsRepo,
		},
		{
			name:   "update failure",
			job:    queue.NewTagStatisticsJob(uuid.New(), 0),
			lister: &mockSnippetLister{},
			repo: func() *mockTagStatsRepo {
				r := newMockTagStatsRepo()
				r.updateErr = errors.New("db down")
				return r
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			analyzer := NewTagAnalyzer(tt.lister, tt.repo(), nil)
			if err := analyzer.ProcessTagStatisticsJob(context.Background(), tt.job); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestTagAnalyzer_VersionConflictIsNotAnError(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	repo := newMockTagStatsRepo()
	lister := &mockSnippetLister{records: []*models.Snippet{
		{OwnerID: userID, Code: "for", Language: models.LanguageBash, Tags: models.Tags{"loop", "bash"}},
	}}
	analyzer := NewTagAnalyzer(lister, repo, zap.NewNop())

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- analyzer.ProcessTagStatisticsJob(context.Background(), queue.NewTagStatisticsJob(userID, 0))
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Expected no error, got %v", err)
		}
	}
	row := repo.row(userID)
	if row.AnalysisVersion < 1 || row.AnalysisVersion > 4 {
		t.Errorf("Expected between 1 and 4 successful updates, got version %d", row.AnalysisVersion)
	}
	if row.TagStats["loop"].Total != 1 {
		t.Errorf("Expected loop total 1, got %+v", row.TagStats["loop"])
	}
}

func TestTagAnalyzer_RegisteredWithRetry(t *testing.T) {
	t.Parallel()

	q := &mockJobQueue{}
	d := NewDispatcher(q, zap.NewNop())
	repo := newMockTagStatsRepo()
	NewTagAnalyzer(&mockSnippetLister{err: errors.New("db down")}, repo, nil).Register(d)

	msg := &mockMessage{job: queue.NewTagStatisticsJob(uuid.New(), 0)}
	if err := d.ProcessJob(context.Background(), msg); err == nil {
		t.Fatal("Expected processing error")
	}
	if jobs := q.enqueued(); len(jobs) != 1 || jobs[0].Type != queue.JobTypeTagStatistics {
		t.Errorf("Expected tag_statistics retry to be enqueued, got %v", jobs)
	}
}
