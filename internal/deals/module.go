// Package deals is the deal-flow bounded context: email ingestion,
// thread reconstruction, negotiation tracking and the orchestrator.
package deals

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"agencydesk_backend/internal/deals/agent"
	"agencydesk_backend/internal/deals/domain"
	"agencydesk_backend/internal/deals/handler"
	"agencydesk_backend/internal/deals/hydrate"
	"agencydesk_backend/internal/deals/ports"
	"agencydesk_backend/internal/deals/repository"
	"agencydesk_backend/internal/deals/service"
	"agencydesk_backend/internal/deals/threads"
	"agencydesk_backend/internal/events"
	apphttp "agencydesk_backend/internal/http"
	"agencydesk_backend/platform/config"
	"agencydesk_backend/platform/logger"
	"agencydesk_backend/platform/validator"
)

// Module is the deals bounded context implementing http.Module.
type Module struct {
	handler      *handler.Handler
	service      *service.Service
	repo         *repository.Repository
	builder      *threads.Builder
	orchestrator *Orchestrator
	contracts    ports.ContractBuilder
	log          *logger.Logger
}

// NewModule wires the deals context. The rebuild enqueuer, action
// enqueuer and mail sender are owned by the caller so the API and
// worker binaries can share this constructor.
func NewModule(
	pool *pgxpool.Pool,
	cfg *config.Config,
	bus events.Bus,
	val *validator.Validator,
	log *logger.Logger,
	rebuilds handler.RebuildEnqueuer,
	enqueuer ports.ActionEnqueuer,
	mailer ports.MailSender,
) (*Module, error) {
	repo := repository.New(pool)

	apiKey := ""
	if cfg.IsAIEnabled() {
		apiKey = cfg.GetMoonshotAPIKey()
	}

	extractor, err := agent.NewOfferExtractor(apiKey, log)
	if err != nil {
		return nil, fmt.Errorf("init offer extractor: %w", err)
	}
	insights, err := agent.NewInsightGenerator(apiKey, repo, log)
	if err != nil {
		return nil, fmt.Errorf("init insight generator: %w", err)
	}
	drafter, err := agent.NewReplyDrafter(apiKey, log)
	if err != nil {
		return nil, fmt.Errorf("init reply drafter: %w", err)
	}

	builder := threads.NewBuilder(repo, agent.NewBrandDetector(), agent.NewTalentDetector(repo), log)

	svc := service.New(service.Config{
		Repo:      repo,
		Builder:   builder,
		Hydrator:  hydrate.New(repo),
		Extractor: extractor,
		Insights:  insights,
		Drafter:   drafter,
		Mailer:    mailer,
		Bus:       bus,
		Logger:    log,
	})

	orchestrator := NewOrchestrator(repo, agent.NewConflictDetector(), enqueuer, log)

	m := &Module{
		handler:      handler.New(svc, rebuilds, orchestrator, val),
		service:      svc,
		repo:         repo,
		builder:      builder,
		orchestrator: orchestrator,
		contracts:    agent.NewContractBuilder(repo, log),
		log:          log,
	}
	return m, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "deals"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Builder returns the thread builder, used by the rebuild worker.
func (m *Module) Builder() *threads.Builder {
	return m.builder
}

// Orchestrator returns the run loop, used by the periodic worker.
func (m *Module) Orchestrator() *Orchestrator {
	return m.orchestrator
}

// RegisterRoutes mounts deals routes on the authenticated API group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.API)
}

// RegisterHandlers subscribes to domain events.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.NegotiationResolvedName, m)
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.NegotiationResolved:
		return m.onNegotiationResolved(ctx, e)
	default:
		return nil
	}
}

// onNegotiationResolved advances the owning thread past the negotiation
// and, on acceptance, kicks off contract preparation. A failed contract
// trigger is recorded on the timeline instead of failing the event.
func (m *Module) onNegotiationResolved(ctx context.Context, e events.NegotiationResolved) error {
	target := domain.StageContractSent
	if e.Outcome == "declined" {
		target = domain.StageClosedLost
	}

	oldStage, err := m.repo.AdvanceThreadStage(ctx, e.ThreadID, target)
	switch {
	case errors.Is(err, repository.ErrStageNotAdvanced):
		// Already at or beyond the target stage.
	case err != nil:
		return fmt.Errorf("advance thread stage: %w", err)
	default:
		if tlErr := m.repo.AddTimelineEntry(ctx, repository.AddTimelineParams{
			DealID:  e.ThreadID,
			OwnerID: e.OwnerID,
			Type:    repository.EventStageChanged,
			Message: fmt.Sprintf("Stage changed from %s to %s", oldStage, target),
			Metadata: map[string]any{
				"oldStage": string(oldStage),
				"newStage": string(target),
			},
		}); tlErr != nil {
			m.log.Error("failed to record stage change", "threadId", e.ThreadID, "error", tlErr)
		}
	}

	if e.Outcome != "accepted" {
		return nil
	}

	if err := m.contracts.Build(ctx, e.ThreadID); err != nil {
		m.log.Error("contract trigger failed", "threadId", e.ThreadID, "error", err)
		if tlErr := m.repo.AddTimelineEntry(ctx, repository.AddTimelineParams{
			DealID:   e.ThreadID,
			OwnerID:  e.OwnerID,
			Type:     repository.EventContractTriggerFailed,
			Message:  fmt.Sprintf("Contract preparation failed: %v", err),
			Metadata: map[string]any{"error": err.Error()},
		}); tlErr != nil {
			m.log.Error("failed to record contract trigger failure", "threadId", e.ThreadID, "error", tlErr)
		}
	}
	return nil
}

// Compile-time checks.
var (
	_ apphttp.Module = (*Module)(nil)
	_ events.Handler = (*Module)(nil)
)
