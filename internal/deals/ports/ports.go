// Package ports declares the external collaborator contracts the deals
// module consumes. Implementations live in the agent, scheduler and
// email packages.
package ports

import (
	"context"

	"github.com/google/uuid"

	"agencydesk_backend/internal/deals/domain"
	"agencydesk_backend/internal/deals/repository"
)

// Brand is a detected counterparty on a thread.
type Brand struct {
	ID    *uuid.UUID
	Name  string
	Email string
}

// Conflict is a detected overlap between two active threads. Produced
// per orchestrator pass and consumed only within that pass.
type Conflict struct {
	ThreadA uuid.UUID
	ThreadB uuid.UUID
	Brand   string
	Reason  string
}

// Names reports whether the conflict involves the given thread.
func (c Conflict) Names(threadID uuid.UUID) bool {
	return c.ThreadA == threadID || c.ThreadB == threadID
}

// BrandDetector identifies the brand behind an email, if any.
type BrandDetector interface {
	Detect(ctx context.Context, email repository.IngestedEmail) (Brand, bool, error)
}

// TalentDetector resolves which roster talent an email concerns.
type TalentDetector interface {
	DetectForEmail(ctx context.Context, email repository.IngestedEmail) ([]uuid.UUID, error)
}

// ConflictDetector scans a whole batch of threads at once. Conflicts
// are cross-thread; per-thread detection would be meaningless.
type ConflictDetector interface {
	DetectGlobal(ctx context.Context, threads []repository.Thread) ([]Conflict, error)
}

// InsightGenerator produces negotiation intelligence for one deal.
type InsightGenerator interface {
	Generate(ctx context.Context, dealID uuid.UUID) (repository.Insight, error)
}

// OfferExtractor parses structured offer terms out of an email body.
type OfferExtractor interface {
	Extract(ctx context.Context, body string) (domain.OfferTerms, error)
}

// ContractBuilder triggers contract preparation for a thread. Callers
// treat it as fire-and-forget; failures are recorded, not propagated.
type ContractBuilder interface {
	Build(ctx context.Context, threadID uuid.UUID) error
}

// ActionEnqueuer hands orchestrator decisions to the downstream reply
// and follow-up engines.
type ActionEnqueuer interface {
	EnqueueReply(ctx context.Context, threadID uuid.UUID) error
	EnqueueFollowUp(ctx context.Context, threadID uuid.UUID) error
}

// ReplyDrafter produces a suggested reply for a thread.
type ReplyDrafter interface {
	Draft(ctx context.Context, thread repository.Thread, latest repository.IngestedEmail) (string, error)
}

// MailSender delivers an outbound reply.
type MailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}
