package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"agencydesk_backend/internal/deals/domain"
	"agencydesk_backend/internal/deals/repository"
	"agencydesk_backend/platform/logger"
)

type contractStore interface {
	GetThread(ctx context.Context, threadID uuid.UUID) (repository.Thread, error)
	GetNegotiation(ctx context.Context, dealID uuid.UUID) (repository.Negotiation, error)
	AddTimelineEntry(ctx context.Context, params repository.AddTimelineParams) error
}

// ContractBuilder drafts a contract summary from the final agreed terms
// and records it on the deal timeline.
type ContractBuilder struct {
	store contractStore
	log   *logger.Logger
}

func NewContractBuilder(store contractStore, log *logger.Logger) *ContractBuilder {
	return &ContractBuilder{store: store, log: log}
}

func (b *ContractBuilder) Build(ctx context.Context, threadID uuid.UUID) error {
	thread, err := b.store.GetThread(ctx, threadID)
	if err != nil {
		return fmt.Errorf("load thread: %w", err)
	}
	negotiation, err := b.store.GetNegotiation(ctx, threadID)
	if err != nil {
		return fmt.Errorf("load negotiation: %w", err)
	}

	// The counter supersedes the original offer when one was made.
	terms := negotiation.OfferTerms
	if negotiation.CounterTerms != nil {
		terms = negotiation.CounterTerms
	}
	if terms == nil {
		return fmt.Errorf("negotiation for thread %s has no terms", threadID)
	}

	brand := "the brand"
	if thread.BrandName != nil && *thread.BrandName != "" {
		brand = *thread.BrandName
	}

	err = b.store.AddTimelineEntry(ctx, repository.AddTimelineParams{
		DealID:  thread.ID,
		OwnerID: thread.OwnerID,
		Type:    repository.EventContractDrafted,
		Message: fmt.Sprintf("Contract draft prepared for %s", brand),
		Metadata: map[string]any{
			"currency":     terms.Currency,
			"amount":       terms.Amount,
			"deliverables": describeDeliverables(terms.Deliverables),
			"usageRights":  terms.UsageRights,
			"exclusivity":  terms.Exclusivity,
		},
	})
	if err != nil {
		return fmt.Errorf("record contract draft: %w", err)
	}

	b.log.Info("contract draft prepared", "threadId", thread.ID, "amount", terms.Amount, "currency", terms.Currency)
	return nil
}

func describeDeliverables(deliverables []domain.Deliverable) []string {
	out := make([]string, 0, len(deliverables))
	for _, d := range deliverables {
		out = append(out, fmt.Sprintf("%dx %s", d.Quantity, strings.ReplaceAll(d.Type, "_", " ")))
	}
	return out
}
