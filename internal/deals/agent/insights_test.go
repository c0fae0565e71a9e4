package agent

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"agencydesk_backend/internal/deals/domain"
	"agencydesk_backend/internal/deals/repository"
	"agencydesk_backend/platform/logger"
)

type fakeInsightStore struct {
	thread      repository.Thread
	negotiation repository.Negotiation
	stored      *repository.Insight
}

func (f *fakeInsightStore) GetThread(_ context.Context, _ uuid.UUID) (repository.Thread, error) {
	return f.thread, nil
}

func (f *fakeInsightStore) GetNegotiation(_ context.Context, _ uuid.UUID) (repository.Negotiation, error) {
	if f.negotiation.DealID == uuid.Nil {
		return repository.Negotiation{}, repository.ErrNotFound
	}
	return f.negotiation, nil
}

func (f *fakeInsightStore) UpsertInsight(_ context.Context, insight repository.Insight) error {
	f.stored = &insight
	return nil
}

func newFallbackGenerator(t *testing.T, store *fakeInsightStore) *InsightGenerator {
	t.Helper()
	g, err := NewInsightGenerator("", store, logger.New("development"))
	if err != nil {
		t.Fatalf("NewInsightGenerator: %v", err)
	}
	return g
}

func TestInsightGeneratorPersistsEstimateFromLatestOffer(t *testing.T) {
	dealID := uuid.New()
	store := &fakeInsightStore{
		thread: repository.Thread{ID: dealID},
		negotiation: repository.Negotiation{
			DealID: dealID,
			Status: domain.NegotiationOfferReceived,
			History: []domain.HistoryEntry{
				{Type: domain.EntryOfferReceived, Terms: &domain.OfferTerms{Currency: "EUR", Amount: 4000}},
			},
		},
	}
	g := newFallbackGenerator(t, store)

	insight, err := g.Generate(context.Background(), dealID)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if store.stored == nil {
		t.Fatal("insight was not persisted")
	}
	if insight.RecommendedRange == nil {
		t.Fatal("recommended range missing")
	}
	if insight.RecommendedRange.Min != 3200 || insight.RecommendedRange.Ideal != 4000 || insight.RecommendedRange.Max != 5000 {
		t.Errorf("range = %+v, want 3200/4000/5000", *insight.RecommendedRange)
	}
	if insight.BrandContext == nil || insight.BrandContext.LikelihoodToClose == nil {
		t.Fatal("likelihood missing")
	}
	if got := *insight.BrandContext.LikelihoodToClose; got != 50 {
		t.Errorf("likelihood = %d, want 50", got)
	}
	if store.stored.DealID != dealID {
		t.Errorf("stored deal = %s, want %s", store.stored.DealID, dealID)
	}
}

func TestInsightGeneratorLikelihoodByStatus(t *testing.T) {
	tests := []struct {
		name   string
		status domain.NegotiationStatus
		want   int
	}{
		{"counter sent", domain.NegotiationCounterSent, 60},
		{"accepted", domain.NegotiationAccepted, 100},
		{"declined", domain.NegotiationDeclined, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dealID := uuid.New()
			store := &fakeInsightStore{
				thread:      repository.Thread{ID: dealID},
				negotiation: repository.Negotiation{DealID: dealID, Status: tt.status},
			}
			g := newFallbackGenerator(t, store)

			insight, err := g.Generate(context.Background(), dealID)
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			if got := *insight.BrandContext.LikelihoodToClose; got != tt.want {
				t.Errorf("likelihood = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestInsightGeneratorWithoutNegotiation(t *testing.T) {
	dealID := uuid.New()
	store := &fakeInsightStore{thread: repository.Thread{ID: dealID}}
	g := newFallbackGenerator(t, store)

	insight, err := g.Generate(context.Background(), dealID)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if insight.RecommendedRange != nil {
		t.Error("no offer on record should produce no range")
	}
	if store.stored == nil {
		t.Fatal("insight was not persisted")
	}
}
