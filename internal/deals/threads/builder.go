// Package threads reconstructs coherent deal threads out of the raw
// ingested email stream.
package threads

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"agencydesk_backend/internal/deals/domain"
	"agencydesk_backend/internal/deals/ports"
	"agencydesk_backend/internal/deals/repository"
	"agencydesk_backend/internal/deals/stage"
	"agencydesk_backend/platform/logger"
)

// Group is one reconstructed thread candidate. Emails are ordered by
// receipt time ascending; the last one is the representative.
type Group struct {
	Key    domain.GroupKey
	Emails []repository.IngestedEmail
}

// Representative returns the group's latest email.
func (g Group) Representative() repository.IngestedEmail {
	return g.Emails[len(g.Emails)-1]
}

// GroupEmails buckets emails by (subject root, lowercased sender).
// Emails without a sender group by subject root alone. Input order is
// preserved both across groups (by first appearance) and within each
// group, so the function is deterministic for a fixed input.
func GroupEmails(emails []repository.IngestedEmail) []Group {
	index := make(map[domain.GroupKey]int)
	groups := make([]Group, 0)
	for _, email := range emails {
		key := domain.NewGroupKey(email.Subject, email.FromAddr)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Key: key})
		}
		groups[i].Emails = append(groups[i].Emails, email)
	}
	return groups
}

type Builder struct {
	repo   *repository.Repository
	brands ports.BrandDetector
	talent ports.TalentDetector
	log    *logger.Logger
}

func NewBuilder(repo *repository.Repository, brands ports.BrandDetector, talent ports.TalentDetector, log *logger.Logger) *Builder {
	return &Builder{repo: repo, brands: brands, talent: talent, log: log}
}

// Rebuild performs a full destructive resync of one owner's threads.
// Detection runs per group before any write; a collaborator failure
// aborts the whole rebuild and the previous thread set stays intact.
// Callers must serialize rebuilds per owner.
func (b *Builder) Rebuild(ctx context.Context, ownerID uuid.UUID) (int, error) {
	emails, err := b.repo.ListOwnerEmails(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("loading owner emails: %w", err)
	}

	groups := GroupEmails(emails)
	newThreads := make([]repository.NewThread, 0, len(groups))

	for _, group := range groups {
		rep := group.Representative()

		brand, found, err := b.brands.Detect(ctx, rep)
		if err != nil {
			return 0, fmt.Errorf("brand detection for %q: %w", group.Key.SubjectRoot, err)
		}
		talentIDs, err := b.talent.DetectForEmail(ctx, rep)
		if err != nil {
			return 0, fmt.Errorf("talent detection for %q: %w", group.Key.SubjectRoot, err)
		}

		t := repository.NewThread{
			SubjectRoot: group.Key.SubjectRoot,
			Stage: stage.Infer(stage.Email{
				Subject: rep.Subject,
				Snippet: rep.Snippet,
				Body:    rep.Body,
			}),
			TalentIDs: talentIDs,
			AgentIDs:  []uuid.UUID{ownerID},
		}
		if found {
			t.BrandID = brand.ID
			if brand.Name != "" {
				name := brand.Name
				t.BrandName = &name
			}
		}
		if group.Key.BrandEmail != "" {
			email := group.Key.BrandEmail
			t.BrandEmail = &email
			received := rep.ReceivedAt
			t.LastBrandMessageAt = &received
		}

		for _, e := range group.Emails {
			t.Members = append(t.Members, repository.NewThreadMember{
				EmailID:    e.ID,
				Subject:    e.Subject,
				Snippet:    e.Snippet,
				ReceivedAt: e.ReceivedAt,
			})
		}
		newThreads = append(newThreads, t)
	}

	if err := b.repo.ReplaceOwnerThreads(ctx, ownerID, newThreads); err != nil {
		return 0, fmt.Errorf("replacing owner threads: %w", err)
	}

	b.log.Info("deal threads rebuilt",
		"owner_id", ownerID.String(),
		"emails", len(emails),
		"threads", len(newThreads))
	return len(newThreads), nil
}
