package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"agencydesk_backend/internal/deals/domain"
	"agencydesk_backend/internal/deals/repository"
	"agencydesk_backend/internal/events"
	"agencydesk_backend/platform/apperr"
)

func (s *Service) loadAuthorizedThread(ctx context.Context, caller Caller, dealID uuid.UUID) (repository.Thread, error) {
	thread, err := s.repo.GetThread(ctx, dealID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Thread{}, apperr.NotFound("deal not found")
	}
	if err != nil {
		return repository.Thread{}, apperr.Wrap(apperr.KindInternal, "failed to load deal", err)
	}
	if err := s.authorizeThread(thread, caller); err != nil {
		return repository.Thread{}, err
	}
	return thread, nil
}

// ExtractOffer runs offer extraction on the deal's latest email and
// records the result as the negotiation's current offer.
func (s *Service) ExtractOffer(ctx context.Context, caller Caller, dealID uuid.UUID) (repository.Negotiation, error) {
	thread, err := s.loadAuthorizedThread(ctx, caller, dealID)
	if err != nil {
		return repository.Negotiation{}, err
	}

	count, err := s.repo.CountThreadEmails(ctx, dealID)
	if err != nil {
		return repository.Negotiation{}, apperr.Wrap(apperr.KindInternal, "failed to inspect thread emails", err)
	}
	if count == 0 {
		return repository.Negotiation{}, apperr.Validation("deal has no emails to extract an offer from")
	}

	latest, err := s.repo.LatestThreadEmail(ctx, dealID)
	if err != nil {
		return repository.Negotiation{}, apperr.Wrap(apperr.KindInternal, "failed to load latest email", err)
	}

	terms, err := s.extractor.Extract(ctx, latest.Body)
	if err != nil {
		return repository.Negotiation{}, apperr.Wrap(apperr.KindInternal, "offer extraction failed", err)
	}

	negotiation, err := s.appendEntry(ctx, thread, domain.HistoryEntry{
		Type:  domain.EntryOfferReceived,
		Terms: &terms,
		Date:  time.Now().UTC(),
	}, true)
	if err != nil {
		return repository.Negotiation{}, err
	}

	s.addTimeline(ctx, thread, repository.EventOfferExtracted,
		fmt.Sprintf("Offer extracted: %s %.2f", terms.Currency, terms.Amount),
		map[string]any{"amount": terms.Amount, "currency": terms.Currency})
	s.refreshInsightQuietly(ctx, dealID)
	return negotiation, nil
}

// ProposeCounter records a counter-offer. A counter without a prior
// offer on the table is invalid.
func (s *Service) ProposeCounter(ctx context.Context, caller Caller, dealID uuid.UUID, terms domain.OfferTerms) (repository.Negotiation, error) {
	thread, err := s.loadAuthorizedThread(ctx, caller, dealID)
	if err != nil {
		return repository.Negotiation{}, err
	}

	negotiation, err := s.appendEntry(ctx, thread, domain.HistoryEntry{
		Type:  domain.EntryCounterSent,
		Terms: &terms,
		Date:  time.Now().UTC(),
	}, false)
	if err != nil {
		return repository.Negotiation{}, err
	}

	s.addTimeline(ctx, thread, repository.EventCounterProposed,
		fmt.Sprintf("Counter proposed: %s %.2f", terms.Currency, terms.Amount),
		map[string]any{"amount": terms.Amount, "currency": terms.Currency})
	s.refreshInsightQuietly(ctx, dealID)
	return negotiation, nil
}

// AcceptOffer resolves the negotiation as accepted. The thread's stage
// advance and the contract trigger happen in the NegotiationResolved
// handler, keeping the state machine itself free of cross-writes.
func (s *Service) AcceptOffer(ctx context.Context, caller Caller, dealID uuid.UUID) (repository.Negotiation, error) {
	return s.resolve(ctx, caller, dealID, domain.EntryAccepted)
}

// DeclineOffer resolves the negotiation as declined; the handler closes
// the thread as lost.
func (s *Service) DeclineOffer(ctx context.Context, caller Caller, dealID uuid.UUID) (repository.Negotiation, error) {
	return s.resolve(ctx, caller, dealID, domain.EntryDeclined)
}

func (s *Service) resolve(ctx context.Context, caller Caller, dealID uuid.UUID, entryType string) (repository.Negotiation, error) {
	thread, err := s.loadAuthorizedThread(ctx, caller, dealID)
	if err != nil {
		return repository.Negotiation{}, err
	}

	negotiation, err := s.appendEntry(ctx, thread, domain.HistoryEntry{
		Type: entryType,
		Date: time.Now().UTC(),
	}, false)
	if err != nil {
		return repository.Negotiation{}, err
	}

	eventType := repository.EventOfferAccepted
	message := "Offer accepted"
	outcome := string(domain.NegotiationAccepted)
	if entryType == domain.EntryDeclined {
		eventType = repository.EventOfferDeclined
		message = "Offer declined"
		outcome = string(domain.NegotiationDeclined)
	}
	s.addTimeline(ctx, thread, eventType, message, nil)
	s.refreshInsightQuietly(ctx, dealID)

	s.bus.Publish(ctx, events.NegotiationResolved{
		BaseEvent: events.NewBaseEvent(),
		DealID:    dealID,
		ThreadID:  thread.ID,
		OwnerID:   thread.OwnerID,
		Outcome:   outcome,
	})
	return negotiation, nil
}

func (s *Service) appendEntry(ctx context.Context, thread repository.Thread, entry domain.HistoryEntry, allowCreate bool) (repository.Negotiation, error) {
	negotiation, err := s.repo.AppendEntry(ctx, repository.AppendEntryParams{
		DealID:      thread.ID,
		OwnerID:     thread.OwnerID,
		Entry:       entry,
		AllowCreate: allowCreate,
	})
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Negotiation{}, apperr.NotFound("no negotiation exists for this deal yet")
	}
	if errors.Is(err, domain.ErrInvalidTransition) {
		return repository.Negotiation{}, apperr.Conflict(err.Error())
	}
	if err != nil {
		return repository.Negotiation{}, apperr.Wrap(apperr.KindInternal, "failed to record negotiation step", err)
	}
	return negotiation, nil
}

func (s *Service) addTimeline(ctx context.Context, thread repository.Thread, eventType, message string, metadata map[string]any) {
	if err := s.repo.AddTimelineEntry(ctx, repository.AddTimelineParams{
		DealID:   thread.ID,
		OwnerID:  thread.OwnerID,
		Type:     eventType,
		Message:  message,
		Metadata: metadata,
	}); err != nil {
		s.log.Warn("timeline write failed", "deal_id", thread.ID.String(), "error", err)
	}
}

// History returns the negotiation history and the deal's timeline.
func (s *Service) History(ctx context.Context, caller Caller, dealID uuid.UUID) (repository.Negotiation, []repository.DealEvent, error) {
	thread, err := s.loadAuthorizedThread(ctx, caller, dealID)
	if err != nil {
		return repository.Negotiation{}, nil, err
	}

	negotiation, err := s.repo.GetNegotiation(ctx, dealID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return repository.Negotiation{}, nil, apperr.Wrap(apperr.KindInternal, "failed to load negotiation", err)
	}

	timeline, err := s.repo.ListTimeline(ctx, thread.ID)
	if err != nil {
		return repository.Negotiation{}, nil, apperr.Wrap(apperr.KindInternal, "failed to load timeline", err)
	}
	return negotiation, timeline, nil
}
