package scheduler

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"agencydesk_backend/internal/deals/repository"
	"agencydesk_backend/internal/deals/service"
	"agencydesk_backend/platform/config"
	"agencydesk_backend/platform/logger"
)

// OrchestratorRunner is the slice of the orchestrator the worker needs.
type OrchestratorRunner interface {
	Run(ctx context.Context) (repository.AgentRun, error)
	WaitForEnqueues()
}

type Worker struct {
	server       *asynq.Server
	mux          *asynq.ServeMux
	repo         *repository.Repository
	svc          *service.Service
	orchestrator OrchestratorRunner
	log          *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, pool *pgxpool.Pool, svc *service.Service, orchestrator OrchestratorRunner, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL)
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:       server,
		mux:          mux,
		repo:         repository.New(pool),
		svc:          svc,
		orchestrator: orchestrator,
		log:          log,
	}

	mux.HandleFunc(TaskOrchestratorRun, w.handleOrchestratorRun)
	mux.HandleFunc(TaskThreadRebuild, w.handleThreadRebuild)
	mux.HandleFunc(TaskSendReply, w.handleSendReply)
	mux.HandleFunc(TaskFollowUp, w.handleFollowUp)

	return w, nil
}

func (w *Worker) handleOrchestratorRun(ctx context.Context, _ *asynq.Task) error {
	run, err := w.orchestrator.Run(ctx)
	if err != nil {
		return err
	}
	w.orchestrator.WaitForEnqueues()
	w.log.Info("orchestrator run finished", "runId", run.ID, "status", run.Status)
	return nil
}

func (w *Worker) handleThreadRebuild(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseThreadRebuildPayload(task)
	if err != nil {
		return err
	}

	ownerID, err := uuid.Parse(payload.OwnerID)
	if err != nil {
		return err
	}

	count, err := w.svc.RebuildThreads(ctx, ownerID)
	if err != nil {
		return err
	}
	w.log.Info("threads rebuilt", "ownerId", ownerID, "threadCount", count)
	return nil
}

// handleSendReply drafts a reply and records it on the deal timeline
// for agent review. Nothing is sent without a human in the loop.
func (w *Worker) handleSendReply(ctx context.Context, task *asynq.Task) error {
	thread, caller, err := w.loadThreadCaller(ctx, task)
	if err != nil {
		return err
	}

	if _, err := w.svc.SuggestReply(ctx, caller, thread.ID); err != nil {
		return err
	}
	return nil
}

// handleFollowUp sends a short nudge to the brand when the thread has a
// known sender, otherwise it falls back to recording a draft.
func (w *Worker) handleFollowUp(ctx context.Context, task *asynq.Task) error {
	thread, caller, err := w.loadThreadCaller(ctx, task)
	if err != nil {
		return err
	}

	if thread.BrandEmail == nil || *thread.BrandEmail == "" {
		_, err := w.svc.SuggestReply(ctx, caller, thread.ID)
		return err
	}
	return w.svc.SendSuggestedReply(ctx, caller, thread.ID, "")
}

func (w *Worker) loadThreadCaller(ctx context.Context, task *asynq.Task) (repository.Thread, service.Caller, error) {
	payload, err := ParseDealActionPayload(task)
	if err != nil {
		return repository.Thread{}, service.Caller{}, err
	}

	threadID, err := uuid.Parse(payload.ThreadID)
	if err != nil {
		return repository.Thread{}, service.Caller{}, err
	}

	thread, err := w.repo.GetThread(ctx, threadID)
	if err != nil {
		return repository.Thread{}, service.Caller{}, err
	}
	return thread, service.Caller{UserID: thread.OwnerID}, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
