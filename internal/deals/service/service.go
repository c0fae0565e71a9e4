// Package service implements the deals module's operations on top of
// the repository, the collaborator ports and the event bus.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"agencydesk_backend/internal/deals/domain"
	"agencydesk_backend/internal/deals/hydrate"
	"agencydesk_backend/internal/deals/ports"
	"agencydesk_backend/internal/deals/repository"
	"agencydesk_backend/internal/deals/stage"
	"agencydesk_backend/internal/deals/threads"
	"agencydesk_backend/internal/events"
	"agencydesk_backend/platform/apperr"
	"agencydesk_backend/platform/logger"
)

type Service struct {
	repo      *repository.Repository
	builder   *threads.Builder
	hydrator  *hydrate.Hydrator
	extractor ports.OfferExtractor
	insights  ports.InsightGenerator
	drafter   ports.ReplyDrafter
	mailer    ports.MailSender
	bus       events.Bus
	log       *logger.Logger
}

type Config struct {
	Repo      *repository.Repository
	Builder   *threads.Builder
	Hydrator  *hydrate.Hydrator
	Extractor ports.OfferExtractor
	Insights  ports.InsightGenerator
	Drafter   ports.ReplyDrafter
	Mailer    ports.MailSender
	Bus       events.Bus
	Logger    *logger.Logger
}

func New(cfg Config) *Service {
	return &Service{
		repo:      cfg.Repo,
		builder:   cfg.Builder,
		hydrator:  cfg.Hydrator,
		extractor: cfg.Extractor,
		insights:  cfg.Insights,
		drafter:   cfg.Drafter,
		mailer:    cfg.Mailer,
		bus:       cfg.Bus,
		log:       cfg.Logger,
	}
}

// Caller identifies the authenticated user for authorization checks.
type Caller struct {
	UserID  uuid.UUID
	IsAdmin bool
}

func (s *Service) authorizeThread(thread repository.Thread, caller Caller) error {
	if caller.IsAdmin || thread.OwnerID == caller.UserID {
		return nil
	}
	return apperr.Forbidden("you do not have access to this deal")
}

// IngestEmailParams is one inbound email handed to the module.
type IngestEmailParams struct {
	OwnerID    uuid.UUID
	Subject    string
	Snippet    string
	Body       string
	FromAddr   string
	ToAddr     string
	ReceivedAt time.Time
}

// IngestEmail stores an inbound email and keeps the matching thread's
// stage current. A missing thread is not an error: the email waits for
// the next rebuild.
func (s *Service) IngestEmail(ctx context.Context, params IngestEmailParams) (repository.IngestedEmail, error) {
	if params.ReceivedAt.IsZero() {
		params.ReceivedAt = time.Now().UTC()
	}

	email, err := s.repo.InsertEmail(ctx, repository.InsertEmailParams{
		OwnerID:    params.OwnerID,
		Subject:    params.Subject,
		Snippet:    params.Snippet,
		Body:       params.Body,
		FromAddr:   params.FromAddr,
		ToAddr:     params.ToAddr,
		ReceivedAt: params.ReceivedAt,
	})
	if err != nil {
		return repository.IngestedEmail{}, apperr.Wrap(apperr.KindInternal, "failed to store email", err)
	}

	s.log.EmailIngested(params.OwnerID.String(), params.Subject)
	s.bus.Publish(ctx, events.EmailIngested{
		BaseEvent: events.NewBaseEvent(),
		EmailID:   email.ID,
		OwnerID:   params.OwnerID,
		Subject:   params.Subject,
	})

	if err := s.UpdateThreadStage(ctx, params.OwnerID, email); err != nil {
		s.log.Warn("stage update after ingest failed",
			"owner_id", params.OwnerID.String(), "error", err)
	}

	return email, nil
}

// UpdateThreadStage locates the email's thread by the builder's
// grouping rule and advances its stage when the email signals a
// strictly later one. Later emails that look "earlier" never regress
// the stage; the guard is a single conditional update.
func (s *Service) UpdateThreadStage(ctx context.Context, ownerID uuid.UUID, email repository.IngestedEmail) error {
	key := domain.NewGroupKey(email.Subject, email.FromAddr)
	thread, err := s.repo.FindThreadByGroupKey(ctx, ownerID, key)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("locating thread: %w", err)
	}

	if key.BrandEmail != "" {
		if err := s.repo.TouchLastBrandMessage(ctx, thread.ID, email.ReceivedAt); err != nil {
			s.log.Warn("recording brand message time failed",
				"thread_id", thread.ID.String(), "error", err)
		}
	}

	inferred := stage.Infer(stage.Email{
		Subject: email.Subject,
		Snippet: email.Snippet,
		Body:    email.Body,
	})

	oldStage, err := s.repo.AdvanceThreadStage(ctx, thread.ID, inferred)
	if errors.Is(err, repository.ErrStageNotAdvanced) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("advancing stage: %w", err)
	}

	s.recordStageChange(ctx, thread.ID, thread.OwnerID, oldStage, inferred)
	return nil
}

func (s *Service) recordStageChange(ctx context.Context, threadID, ownerID uuid.UUID, oldStage, newStage domain.Stage) {
	if err := s.repo.AddTimelineEntry(ctx, repository.AddTimelineParams{
		DealID:  threadID,
		OwnerID: ownerID,
		Type:    repository.EventStageChanged,
		Message: fmt.Sprintf("Deal moved from %s to %s", oldStage, newStage),
		Metadata: map[string]any{
			"oldStage": string(oldStage),
			"newStage": string(newStage),
		},
	}); err != nil {
		s.log.Warn("timeline write failed", "thread_id", threadID.String(), "error", err)
	}

	s.bus.Publish(ctx, events.StageChanged{
		BaseEvent: events.NewBaseEvent(),
		ThreadID:  threadID,
		OwnerID:   ownerID,
		OldStage:  string(oldStage),
		NewStage:  string(newStage),
	})
}

// RebuildThreads runs a full destructive resync for one owner.
func (s *Service) RebuildThreads(ctx context.Context, ownerID uuid.UUID) (int, error) {
	count, err := s.builder.Rebuild(ctx, ownerID)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "thread rebuild failed", err)
	}
	return count, nil
}

// ThreadView is a hydrated thread for read paths.
type ThreadView struct {
	Thread repository.Thread
	Talent []hydrate.Person
	Agents []hydrate.Person
}

func (s *Service) hydrateViews(ctx context.Context, threadList []repository.Thread) ([]ThreadView, error) {
	assignments, err := s.hydrator.Assignments(ctx, threadList)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to resolve assignments", err)
	}

	views := make([]ThreadView, 0, len(threadList))
	for _, t := range threadList {
		a := assignments[t.ID]
		views = append(views, ThreadView{Thread: t, Talent: a.Talent, Agents: a.Agents})
	}
	return views, nil
}

// GetThreads lists the caller's own threads, hydrated.
func (s *Service) GetThreads(ctx context.Context, ownerID uuid.UUID) ([]ThreadView, error) {
	threadList, err := s.repo.ListThreadsByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list threads", err)
	}
	return s.hydrateViews(ctx, threadList)
}

// GetThread loads one thread, hydrated, with its member emails.
func (s *Service) GetThread(ctx context.Context, caller Caller, threadID uuid.UUID) (ThreadView, []repository.ThreadEmail, error) {
	thread, err := s.repo.GetThread(ctx, threadID)
	if errors.Is(err, repository.ErrNotFound) {
		return ThreadView{}, nil, apperr.NotFound("deal thread not found")
	}
	if err != nil {
		return ThreadView{}, nil, apperr.Wrap(apperr.KindInternal, "failed to load thread", err)
	}
	if err := s.authorizeThread(thread, caller); err != nil {
		return ThreadView{}, nil, err
	}

	views, err := s.hydrateViews(ctx, []repository.Thread{thread})
	if err != nil {
		return ThreadView{}, nil, err
	}

	emails, err := s.repo.ListThreadEmails(ctx, threadID)
	if err != nil {
		return ThreadView{}, nil, apperr.Wrap(apperr.KindInternal, "failed to load thread emails", err)
	}
	return views[0], emails, nil
}

// ListDealsFilters mirrors the query surface of the deals listing.
type ListDealsFilters struct {
	Stage  domain.Stage
	Status string
	Brand  string
}

// ListDeals returns deals visible to the caller. Non-admin callers only
// see threads that name them as an agent; the restriction is applied in
// the query.
func (s *Service) ListDeals(ctx context.Context, caller Caller, filters ListDealsFilters) ([]ThreadView, error) {
	if filters.Stage != "" && !filters.Stage.IsKnown() {
		return nil, apperr.Validation(fmt.Sprintf("unknown stage %q", filters.Stage))
	}

	threadList, err := s.repo.ListDealsWithFilters(ctx, repository.DealFilters{
		UserID:  caller.UserID,
		IsAdmin: caller.IsAdmin,
		Stage:   filters.Stage,
		Status:  filters.Status,
		Brand:   filters.Brand,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list deals", err)
	}
	return s.hydrateViews(ctx, threadList)
}

// UpdateAssociations replaces the talent/agent assignments of a thread.
func (s *Service) UpdateAssociations(ctx context.Context, caller Caller, threadID uuid.UUID, talentIDs, agentIDs []uuid.UUID) (repository.Thread, error) {
	thread, err := s.repo.GetThread(ctx, threadID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Thread{}, apperr.NotFound("deal thread not found")
	}
	if err != nil {
		return repository.Thread{}, apperr.Wrap(apperr.KindInternal, "failed to load thread", err)
	}
	if err := s.authorizeThread(thread, caller); err != nil {
		return repository.Thread{}, err
	}

	updated, err := s.repo.UpdateAssociations(ctx, threadID, talentIDs, agentIDs)
	if err != nil {
		return repository.Thread{}, apperr.Wrap(apperr.KindInternal, "failed to update associations", err)
	}
	return updated, nil
}
