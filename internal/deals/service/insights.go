package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"agencydesk_backend/internal/deals/repository"
	"agencydesk_backend/platform/apperr"
)

// RefreshInsight regenerates and persists negotiation intelligence for
// the deal, and returns the stored insight.
func (s *Service) RefreshInsight(ctx context.Context, caller Caller, dealID uuid.UUID) (repository.Insight, error) {
	if _, err := s.loadAuthorizedThread(ctx, caller, dealID); err != nil {
		return repository.Insight{}, err
	}

	insight, err := s.insights.Generate(ctx, dealID)
	if err != nil {
		return repository.Insight{}, apperr.Wrap(apperr.KindInternal, "insight generation failed", err)
	}
	return insight, nil
}

// GetInsight returns the stored insight for the deal.
func (s *Service) GetInsight(ctx context.Context, caller Caller, dealID uuid.UUID) (repository.Insight, error) {
	if _, err := s.loadAuthorizedThread(ctx, caller, dealID); err != nil {
		return repository.Insight{}, err
	}

	insight, err := s.repo.GetInsight(ctx, dealID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Insight{}, apperr.NotFound("no insight exists for this deal yet")
	}
	if err != nil {
		return repository.Insight{}, apperr.Wrap(apperr.KindInternal, "failed to load insight", err)
	}
	return insight, nil
}

// refreshInsightQuietly keeps the stored insight in step with the
// negotiation. Failures are logged, never surfaced to the caller.
func (s *Service) refreshInsightQuietly(ctx context.Context, dealID uuid.UUID) {
	if _, err := s.insights.Generate(ctx, dealID); err != nil {
		s.log.Warn("insight refresh failed", "deal_id", dealID.String(), "error", err)
	}
}
