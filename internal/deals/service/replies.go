package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"agencydesk_backend/internal/deals/repository"
	"agencydesk_backend/platform/apperr"
)

// SuggestReply drafts a reply to the thread's latest brand message and
// records the draft on the timeline.
func (s *Service) SuggestReply(ctx context.Context, caller Caller, dealID uuid.UUID) (string, error) {
	thread, err := s.loadAuthorizedThread(ctx, caller, dealID)
	if err != nil {
		return "", err
	}

	latest, err := s.repo.LatestThreadEmail(ctx, dealID)
	if errors.Is(err, repository.ErrNotFound) {
		return "", apperr.Validation("deal has no emails to reply to")
	}
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "failed to load latest email", err)
	}

	draft, err := s.drafter.Draft(ctx, thread, latest)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "reply drafting failed", err)
	}

	s.addTimeline(ctx, thread, repository.EventReplySuggested,
		"Reply drafted", map[string]any{"draft": draft})
	return draft, nil
}

// SendSuggestedReply sends the given body (or a fresh draft when empty)
// to the thread's brand address.
func (s *Service) SendSuggestedReply(ctx context.Context, caller Caller, dealID uuid.UUID, body string) error {
	thread, err := s.loadAuthorizedThread(ctx, caller, dealID)
	if err != nil {
		return err
	}
	if thread.BrandEmail == nil || *thread.BrandEmail == "" {
		return apperr.Validation("deal thread has no brand email address")
	}

	if body == "" {
		body, err = s.SuggestReply(ctx, caller, dealID)
		if err != nil {
			return err
		}
	}

	subject := fmt.Sprintf("Re: %s", thread.SubjectRoot)
	if err := s.mailer.Send(ctx, *thread.BrandEmail, subject, body); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to send reply", err)
	}

	s.addTimeline(ctx, thread, repository.EventReplySent,
		fmt.Sprintf("Reply sent to %s", *thread.BrandEmail),
		map[string]any{"to": *thread.BrandEmail, "subject": subject})
	return nil
}
