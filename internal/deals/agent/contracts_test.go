package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"agencydesk_backend/internal/deals/domain"
	"agencydesk_backend/internal/deals/repository"
	"agencydesk_backend/platform/logger"
)

type fakeContractStore struct {
	thread      repository.Thread
	negotiation repository.Negotiation
	entries     []repository.AddTimelineParams
	timelineErr error
}

func (f *fakeContractStore) GetThread(_ context.Context, _ uuid.UUID) (repository.Thread, error) {
	return f.thread, nil
}

func (f *fakeContractStore) GetNegotiation(_ context.Context, _ uuid.UUID) (repository.Negotiation, error) {
	return f.negotiation, nil
}

func (f *fakeContractStore) AddTimelineEntry(_ context.Context, params repository.AddTimelineParams) error {
	if f.timelineErr != nil {
		return f.timelineErr
	}
	f.entries = append(f.entries, params)
	return nil
}

func contractThread() repository.Thread {
	name := "Acme"
	return repository.Thread{ID: uuid.New(), OwnerID: uuid.New(), BrandName: &name}
}

func TestContractBuilderUsesOfferTerms(t *testing.T) {
	store := &fakeContractStore{
		thread: contractThread(),
		negotiation: repository.Negotiation{
			Status:     domain.NegotiationAccepted,
			OfferTerms: &domain.OfferTerms{Currency: "EUR", Amount: 5000},
		},
	}
	b := NewContractBuilder(store, logger.New("development"))

	if err := b.Build(context.Background(), store.thread.ID); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(store.entries) != 1 {
		t.Fatalf("timeline entries = %d, want 1", len(store.entries))
	}
	entry := store.entries[0]
	if entry.Type != repository.EventContractDrafted {
		t.Errorf("entry type = %q, want %q", entry.Type, repository.EventContractDrafted)
	}
	if got := entry.Metadata["amount"]; got != float64(5000) {
		t.Errorf("amount = %v, want 5000", got)
	}
}

func TestContractBuilderCounterSupersedesOffer(t *testing.T) {
	store := &fakeContractStore{
		thread: contractThread(),
		negotiation: repository.Negotiation{
			Status:       domain.NegotiationAccepted,
			OfferTerms:   &domain.OfferTerms{Currency: "EUR", Amount: 5000},
			CounterTerms: &domain.OfferTerms{Currency: "EUR", Amount: 6500},
		},
	}
	b := NewContractBuilder(store, logger.New("development"))

	if err := b.Build(context.Background(), store.thread.ID); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if got := store.entries[0].Metadata["amount"]; got != float64(6500) {
		t.Errorf("amount = %v, want counter amount 6500", got)
	}
}

func TestContractBuilderNoTermsFails(t *testing.T) {
	store := &fakeContractStore{
		thread:      contractThread(),
		negotiation: repository.Negotiation{Status: domain.NegotiationOpen},
	}
	b := NewContractBuilder(store, logger.New("development"))

	if err := b.Build(context.Background(), store.thread.ID); err == nil {
		t.Fatal("Build() with no terms should fail")
	}
	if len(store.entries) != 0 {
		t.Errorf("timeline entries = %d, want 0", len(store.entries))
	}
}

func TestContractBuilderTimelineFailureSurfaces(t *testing.T) {
	store := &fakeContractStore{
		thread: contractThread(),
		negotiation: repository.Negotiation{
			Status:     domain.NegotiationAccepted,
			OfferTerms: &domain.OfferTerms{Currency: "EUR", Amount: 5000},
		},
		timelineErr: errors.New("write failed"),
	}
	b := NewContractBuilder(store, logger.New("development"))

	if err := b.Build(context.Background(), store.thread.ID); err == nil {
		t.Fatal("Build() should surface the timeline write failure")
	}
}
