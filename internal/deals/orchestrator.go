// Package deals wires the deal-thread subsystem together: module
// registration, event handlers and the negotiation orchestrator.
package deals

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"agencydesk_backend/internal/deals/health"
	"agencydesk_backend/internal/deals/ports"
	"agencydesk_backend/internal/deals/repository"
	"agencydesk_backend/platform/logger"
)

// orchestratorStore is the repository slice the run loop needs.
type orchestratorStore interface {
	CreateRun(ctx context.Context, runContext map[string]any) (repository.AgentRun, error)
	FinalizeRun(ctx context.Context, runID uuid.UUID, status string, summary, runContext map[string]any) error
	ListActiveThreads(ctx context.Context) ([]repository.Thread, error)
	ListInsightsForDeals(ctx context.Context, dealIDs []uuid.UUID) (map[uuid.UUID]repository.Insight, error)
	GetNegotiation(ctx context.Context, dealID uuid.UUID) (repository.Negotiation, error)
}

// Orchestrator runs one scoring pass over all active threads and hands
// decisions to the downstream engines. Callers must guarantee
// non-overlapping passes; nothing in here prevents double-enqueue when
// two passes run concurrently.
type Orchestrator struct {
	store     orchestratorStore
	conflicts ports.ConflictDetector
	enqueuer  ports.ActionEnqueuer
	log       *logger.Logger
	now       func() time.Time
	wg        sync.WaitGroup
}

func NewOrchestrator(store orchestratorStore, conflicts ports.ConflictDetector, enqueuer ports.ActionEnqueuer, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		store:     store,
		conflicts: conflicts,
		enqueuer:  enqueuer,
		log:       log,
		now:       time.Now,
	}
}

type decision struct {
	ThreadID uuid.UUID
	Priority health.Priority
	Action   health.Action
	Score    float64
}

const scoringConcurrency = 8

// Run executes one orchestrator pass. The audit row is created before
// any other side effect and always finalized: a failing pass marks the
// run failed and returns it, never an error the scheduler would crash
// on. Only the inability to create the audit row itself is reported as
// an error.
func (o *Orchestrator) Run(ctx context.Context) (repository.AgentRun, error) {
	run, err := o.store.CreateRun(ctx, map[string]any{"startedBy": "orchestrator"})
	if err != nil {
		return repository.AgentRun{}, fmt.Errorf("creating run record: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			o.failRun(ctx, run.ID, fmt.Sprintf("panic: %v", r))
		}
	}()

	summary, runContext, err := o.pass(ctx, run.ID)
	if err != nil {
		o.failRun(ctx, run.ID, err.Error())
		run.Status = repository.RunStatusFailed
		return run, nil
	}

	if err := o.store.FinalizeRun(ctx, run.ID, repository.RunStatusCompleted, summary, runContext); err != nil {
		o.log.Error("finalizing orchestrator run failed", "run_id", run.ID.String(), "error", err)
	}
	run.Status = repository.RunStatusCompleted
	run.Summary = summary
	if run.Context == nil {
		run.Context = map[string]any{}
	}
	for k, v := range runContext {
		run.Context[k] = v
	}
	return run, nil
}

func (o *Orchestrator) failRun(ctx context.Context, runID uuid.UUID, message string) {
	o.log.OrchestratorRun(runID.String(), repository.RunStatusFailed, 0, 0, 0)
	if err := o.store.FinalizeRun(ctx, runID, repository.RunStatusFailed, map[string]any{"error": message}, nil); err != nil {
		o.log.Error("marking orchestrator run failed", "run_id", runID.String(), "error", err)
	}
}

func (o *Orchestrator) pass(ctx context.Context, runID uuid.UUID) (summary, runContext map[string]any, err error) {
	threads, err := o.store.ListActiveThreads(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("loading active threads: %w", err)
	}

	dealIDs := make([]uuid.UUID, len(threads))
	for i, t := range threads {
		dealIDs[i] = t.ID
	}
	insights, err := o.store.ListInsightsForDeals(ctx, dealIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("loading insights: %w", err)
	}

	// Conflicts are cross-thread: one detector call over the whole
	// batch, then filtered per thread during scoring.
	conflicts, err := o.conflicts.DetectGlobal(ctx, threads)
	if err != nil {
		return nil, nil, fmt.Errorf("detecting conflicts: %w", err)
	}

	decisions := make([]decision, len(threads))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scoringConcurrency)
	for i, thread := range threads {
		g.Go(func() error {
			d, err := o.score(gctx, thread, insights, conflicts)
			if err != nil {
				return err
			}
			decisions[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("scoring threads: %w", err)
	}

	actions := make([]map[string]any, 0)
	ignored := make([]map[string]any, 0)
	for _, d := range decisions {
		switch {
		case d.Priority == health.PriorityHigh && d.Action == health.ActionReplyNow:
			o.fireAndForget(d.ThreadID, "ENQUEUE_REPLY", o.enqueuer.EnqueueReply)
			actions = append(actions, map[string]any{
				"threadId": d.ThreadID.String(), "action": "ENQUEUE_REPLY",
			})
		case d.Priority == health.PriorityMedium && d.Action == health.ActionFollowUp:
			o.fireAndForget(d.ThreadID, "ENQUEUE_FOLLOW_UP", o.enqueuer.EnqueueFollowUp)
			actions = append(actions, map[string]any{
				"threadId": d.ThreadID.String(), "action": "ENQUEUE_FOLLOW_UP",
			})
		default:
			ignored = append(ignored, map[string]any{
				"threadId": d.ThreadID.String(),
				"reason":   fmt.Sprintf("Priority was %s", d.Priority),
			})
		}
	}

	o.log.OrchestratorRun(runID.String(), repository.RunStatusCompleted,
		len(threads), len(actions), len(ignored))

	summary = map[string]any{
		"actions":   actions,
		"conflicts": len(conflicts),
		"ignored":   ignored,
	}
	return summary, map[string]any{"threadCount": len(threads)}, nil
}

func (o *Orchestrator) score(ctx context.Context, thread repository.Thread, insights map[uuid.UUID]repository.Insight, conflicts []ports.Conflict) (decision, error) {
	input := health.Input{
		LastBrandMessageAt: thread.LastBrandMessageAt,
		Now:                o.now(),
	}

	if insight, ok := insights[thread.ID]; ok {
		input.Insight = toHealthInsight(insight)
	}

	negotiation, err := o.store.GetNegotiation(ctx, thread.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return decision{}, fmt.Errorf("loading negotiation for %s: %w", thread.ID, err)
	}
	if negotiation.CounterTerms != nil && negotiation.CounterTerms.Amount > 0 {
		amount := negotiation.CounterTerms.Amount
		input.DraftOfferAmount = &amount
	}

	snapshot := health.Evaluate(input)

	hasConflict := false
	for _, c := range conflicts {
		if c.Names(thread.ID) {
			hasConflict = true
			break
		}
	}

	score := health.Score(snapshot, hasConflict)
	return decision{
		ThreadID: thread.ID,
		Priority: health.Classify(score),
		Action:   snapshot.RecommendedAction,
		Score:    score,
	}, nil
}

func toHealthInsight(insight repository.Insight) *health.Insight {
	h := &health.Insight{RedFlags: insight.RedFlags}
	if insight.RecommendedRange != nil {
		h.RecommendedRange = &health.ValueRange{
			Min:   insight.RecommendedRange.Min,
			Ideal: insight.RecommendedRange.Ideal,
			Max:   insight.RecommendedRange.Max,
		}
	}
	if insight.BrandContext != nil {
		h.LikelihoodToClose = insight.BrandContext.LikelihoodToClose
	}
	return h
}

// fireAndForget hands a decision to a downstream engine without
// blocking the pass on its outcome.
func (o *Orchestrator) fireAndForget(threadID uuid.UUID, action string, enqueue func(context.Context, uuid.UUID) error) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := enqueue(ctx, threadID); err != nil {
			o.log.Error("enqueue failed",
				"thread_id", threadID.String(), "action", action, "error", err)
		}
	}()
}

// WaitForEnqueues blocks until in-flight enqueues finish. Used during
// shutdown and in tests.
func (o *Orchestrator) WaitForEnqueues() {
	o.wg.Wait()
}
