package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"agencydesk_backend/internal/deals/repository"
	"agencydesk_backend/platform/apperr"
)

const maxRunListLimit = 100

// ListRuns returns the most recent orchestrator runs, newest first.
func (s *Service) ListRuns(ctx context.Context, limit int) ([]repository.AgentRun, error) {
	if limit < 1 {
		limit = 20
	}
	if limit > maxRunListLimit {
		limit = maxRunListLimit
	}

	runs, err := s.repo.ListRecentRuns(ctx, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list runs", err)
	}
	return runs, nil
}

// GetRun returns one orchestrator run by id.
func (s *Service) GetRun(ctx context.Context, runID uuid.UUID) (repository.AgentRun, error) {
	run, err := s.repo.GetRun(ctx, runID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.AgentRun{}, apperr.NotFound("run not found")
	}
	if err != nil {
		return repository.AgentRun{}, apperr.Wrap(apperr.KindInternal, "failed to load run", err)
	}
	return run, nil
}
