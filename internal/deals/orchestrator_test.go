package deals

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"agencydesk_backend/internal/deals/ports"
	"agencydesk_backend/internal/deals/repository"
	"agencydesk_backend/platform/logger"
)

type fakeStore struct {
	mu        sync.Mutex
	threads   []repository.Thread
	insights  map[uuid.UUID]repository.Insight
	threadErr error

	runID        uuid.UUID
	createdRun   bool
	finalStatus  string
	finalSummary map[string]any
	finalContext map[string]any
}

func (f *fakeStore) CreateRun(_ context.Context, _ map[string]any) (repository.AgentRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runID = uuid.New()
	f.createdRun = true
	return repository.AgentRun{ID: f.runID, Status: repository.RunStatusRunning}, nil
}

func (f *fakeStore) FinalizeRun(_ context.Context, runID uuid.UUID, status string, summary, runContext map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if runID != f.runID {
		return errors.New("unknown run")
	}
	f.finalStatus = status
	f.finalSummary = summary
	f.finalContext = runContext
	return nil
}

func (f *fakeStore) ListActiveThreads(_ context.Context) ([]repository.Thread, error) {
	if f.threadErr != nil {
		return nil, f.threadErr
	}
	return f.threads, nil
}

func (f *fakeStore) ListInsightsForDeals(_ context.Context, _ []uuid.UUID) (map[uuid.UUID]repository.Insight, error) {
	if f.insights == nil {
		return map[uuid.UUID]repository.Insight{}, nil
	}
	return f.insights, nil
}

func (f *fakeStore) GetNegotiation(_ context.Context, _ uuid.UUID) (repository.Negotiation, error) {
	return repository.Negotiation{}, repository.ErrNotFound
}

type fakeConflicts struct {
	conflicts []ports.Conflict
	calls     int
}

func (f *fakeConflicts) DetectGlobal(_ context.Context, _ []repository.Thread) ([]ports.Conflict, error) {
	f.calls++
	return f.conflicts, nil
}

type fakeEnqueuer struct {
	mu        sync.Mutex
	replies   []uuid.UUID
	followUps []uuid.UUID
}

func (f *fakeEnqueuer) EnqueueReply(_ context.Context, threadID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, threadID)
	return nil
}

func (f *fakeEnqueuer) EnqueueFollowUp(_ context.Context, threadID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.followUps = append(f.followUps, threadID)
	return nil
}

func staleThread(now time.Time) repository.Thread {
	last := now.Add(-50 * time.Hour)
	return repository.Thread{
		ID:                 uuid.New(),
		OwnerID:            uuid.New(),
		Status:             repository.ThreadStatusActive,
		LastBrandMessageAt: &last,
	}
}

func newTestOrchestrator(store *fakeStore, conflicts *fakeConflicts, enqueuer *fakeEnqueuer, now time.Time) *Orchestrator {
	o := NewOrchestrator(store, conflicts, enqueuer, logger.New("development"))
	o.now = func() time.Time { return now }
	return o
}

func TestRunEnqueuesFollowUpForStaleMediumThread(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	thread := staleThread(now)
	store := &fakeStore{threads: []repository.Thread{thread}}
	conflicts := &fakeConflicts{}
	enqueuer := &fakeEnqueuer{}

	o := newTestOrchestrator(store, conflicts, enqueuer, now)
	run, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	o.WaitForEnqueues()

	if run.Status != repository.RunStatusCompleted {
		t.Errorf("run status = %s, want completed", run.Status)
	}
	if conflicts.calls != 1 {
		t.Errorf("conflict detector called %d times, want exactly 1", conflicts.calls)
	}
	if len(enqueuer.followUps) != 1 || enqueuer.followUps[0] != thread.ID {
		t.Errorf("follow-ups = %v, want the stale thread", enqueuer.followUps)
	}
	if len(enqueuer.replies) != 0 {
		t.Errorf("replies = %v, want none", enqueuer.replies)
	}

	actions, _ := store.finalSummary["actions"].([]map[string]any)
	if len(actions) != 1 || actions[0]["action"] != "ENQUEUE_FOLLOW_UP" {
		t.Errorf("summary actions = %v", store.finalSummary["actions"])
	}
	if got := store.finalContext["threadCount"]; got != 1 {
		t.Errorf("run context threadCount = %v, want 1", got)
	}
	if got := run.Context["threadCount"]; got != 1 {
		t.Errorf("returned run context threadCount = %v, want 1", got)
	}
	if _, ok := store.finalSummary["context"]; ok {
		t.Error("summary must not carry a context entry; that lives on the run row")
	}
}

func TestRunConflictDemotesThreadToIgnored(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	thread := staleThread(now)
	other := staleThread(now)
	store := &fakeStore{threads: []repository.Thread{thread, other}}
	conflicts := &fakeConflicts{conflicts: []ports.Conflict{
		{ThreadA: thread.ID, ThreadB: uuid.New()},
	}}
	enqueuer := &fakeEnqueuer{}

	o := newTestOrchestrator(store, conflicts, enqueuer, now)
	if _, err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	o.WaitForEnqueues()

	// The conflicted thread drops from MEDIUM to LOW and is ignored;
	// the unconflicted one still gets its follow-up.
	if len(enqueuer.followUps) != 1 || enqueuer.followUps[0] != other.ID {
		t.Errorf("follow-ups = %v, want only the unconflicted thread", enqueuer.followUps)
	}

	ignored, _ := store.finalSummary["ignored"].([]map[string]any)
	if len(ignored) != 1 {
		t.Fatalf("ignored = %v, want 1 entry", store.finalSummary["ignored"])
	}
	if ignored[0]["reason"] != "Priority was LOW" {
		t.Errorf("ignored reason = %v, want %q", ignored[0]["reason"], "Priority was LOW")
	}
	if ignored[0]["threadId"] != thread.ID.String() {
		t.Errorf("ignored thread = %v, want %s", ignored[0]["threadId"], thread.ID)
	}
}

func TestRunFreshThreadIsIgnored(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	last := now.Add(-2 * time.Hour)
	thread := repository.Thread{
		ID:                 uuid.New(),
		Status:             repository.ThreadStatusActive,
		LastBrandMessageAt: &last,
	}
	store := &fakeStore{threads: []repository.Thread{thread}}
	enqueuer := &fakeEnqueuer{}

	o := newTestOrchestrator(store, &fakeConflicts{}, enqueuer, now)
	if _, err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	o.WaitForEnqueues()

	// Fresh thread: urgency 20, closing 50, risk 20 -> score 22, LOW
	// with action reply_now. No decision table row matches.
	if len(enqueuer.replies)+len(enqueuer.followUps) != 0 {
		t.Errorf("expected no enqueues, got replies=%v followUps=%v", enqueuer.replies, enqueuer.followUps)
	}
	ignored, _ := store.finalSummary["ignored"].([]map[string]any)
	if len(ignored) != 1 || ignored[0]["reason"] != "Priority was LOW" {
		t.Errorf("ignored = %v", store.finalSummary["ignored"])
	}
}

func TestRunFailureIsRecordedNotReturned(t *testing.T) {
	store := &fakeStore{threadErr: errors.New("database gone")}
	o := newTestOrchestrator(store, &fakeConflicts{}, &fakeEnqueuer{}, time.Now())

	run, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() must swallow pass failures, got %v", err)
	}
	if run.Status != repository.RunStatusFailed {
		t.Errorf("run status = %s, want failed", run.Status)
	}
	if store.finalStatus != repository.RunStatusFailed {
		t.Errorf("stored status = %s, want failed", store.finalStatus)
	}
	if _, ok := store.finalSummary["error"]; !ok {
		t.Errorf("summary = %v, want an error entry", store.finalSummary)
	}
}

func TestRunCreatesAuditRowBeforeScoring(t *testing.T) {
	store := &fakeStore{threadErr: errors.New("boom")}
	o := newTestOrchestrator(store, &fakeConflicts{}, &fakeEnqueuer{}, time.Now())

	_, _ = o.Run(context.Background())
	if !store.createdRun {
		t.Error("expected run row to exist even though the pass failed")
	}
}

func TestRunEmptyBatchCompletes(t *testing.T) {
	store := &fakeStore{}
	o := newTestOrchestrator(store, &fakeConflicts{}, &fakeEnqueuer{}, time.Now())

	run, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if run.Status != repository.RunStatusCompleted {
		t.Errorf("run status = %s, want completed", run.Status)
	}
	if got := store.finalSummary["conflicts"]; got != 0 {
		t.Errorf("conflicts = %v, want 0", got)
	}
}
