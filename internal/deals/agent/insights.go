package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"agencydesk_backend/internal/deals/domain"
	"agencydesk_backend/internal/deals/repository"
	"agencydesk_backend/platform/logger"
)

type insightStore interface {
	GetThread(ctx context.Context, id uuid.UUID) (repository.Thread, error)
	GetNegotiation(ctx context.Context, dealID uuid.UUID) (repository.Negotiation, error)
	UpsertInsight(ctx context.Context, insight repository.Insight) error
}

// InsightGenerator produces negotiation intelligence for a deal. The AI
// path asks the model for a full assessment; without a key (or on
// failure) a deterministic estimate from the negotiation history is
// stored instead, so scoring always has something to work with.
type InsightGenerator struct {
	ai   *oneShot
	repo insightStore
	log  *logger.Logger
}

const insightInstruction = `You advise talent agents on brand deal negotiations.
Given a deal summary, respond with a single JSON object and nothing else:
{"recommendedRange": {"min": number, "ideal": number, "max": number},
 "likelihoodToClose": number between 0 and 100,
 "redFlags": [string],
 "finalScript": string}`

func NewInsightGenerator(apiKey string, repo insightStore, log *logger.Logger) (*InsightGenerator, error) {
	g := &InsightGenerator{repo: repo, log: log}
	if apiKey == "" {
		return g, nil
	}
	ai, err := newOneShot(apiKey, "negotiation_insights",
		"Analyzes brand deal negotiations and recommends value ranges and tactics.",
		insightInstruction)
	if err != nil {
		return nil, err
	}
	g.ai = ai
	return g, nil
}

// Generate computes, persists and returns the insight for one deal.
func (g *InsightGenerator) Generate(ctx context.Context, dealID uuid.UUID) (repository.Insight, error) {
	thread, err := g.repo.GetThread(ctx, dealID)
	if err != nil {
		return repository.Insight{}, fmt.Errorf("loading thread: %w", err)
	}

	negotiation, err := g.repo.GetNegotiation(ctx, dealID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return repository.Insight{}, fmt.Errorf("loading negotiation: %w", err)
	}

	insight := g.fallbackInsight(dealID, negotiation)
	if g.ai != nil {
		if aiInsight, err := g.generateWithAI(ctx, dealID, thread, negotiation); err == nil {
			insight = aiInsight
		} else {
			g.log.Warn("ai insight generation failed, using estimate",
				"deal_id", dealID.String(), "error", err)
		}
	}

	if err := g.repo.UpsertInsight(ctx, insight); err != nil {
		return repository.Insight{}, fmt.Errorf("storing insight: %w", err)
	}
	return insight, nil
}

type aiInsightPayload struct {
	RecommendedRange  *repository.RecommendedRange `json:"recommendedRange"`
	LikelihoodToClose *int                         `json:"likelihoodToClose"`
	RedFlags          []string                     `json:"redFlags"`
	FinalScript       string                       `json:"finalScript"`
}

func (g *InsightGenerator) generateWithAI(ctx context.Context, dealID uuid.UUID, thread repository.Thread, negotiation repository.Negotiation) (repository.Insight, error) {
	prompt := buildInsightPrompt(thread, negotiation)
	output, err := g.ai.Generate(ctx, prompt)
	if err != nil {
		return repository.Insight{}, err
	}

	raw, ok := extractJSON(output)
	if !ok {
		return repository.Insight{}, fmt.Errorf("no JSON in model output")
	}

	var payload aiInsightPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return repository.Insight{}, fmt.Errorf("decoding model output: %w", err)
	}

	return repository.Insight{
		DealID:           dealID,
		RecommendedRange: payload.RecommendedRange,
		BrandContext:     &repository.BrandContext{LikelihoodToClose: payload.LikelihoodToClose},
		RedFlags:         payload.RedFlags,
		FinalScript:      payload.FinalScript,
	}, nil
}

func buildInsightPrompt(thread repository.Thread, negotiation repository.Negotiation) string {
	brand := "unknown brand"
	if thread.BrandName != nil {
		brand = *thread.BrandName
	}
	prompt := fmt.Sprintf("Deal with %s, stage %s.\n", brand, thread.Stage)
	if offer := domain.LatestOffer(negotiation.History); offer != nil {
		prompt += fmt.Sprintf("Latest terms on the table: %s %.2f with %d deliverables.\n",
			offer.Currency, offer.Amount, len(offer.Deliverables))
	}
	prompt += fmt.Sprintf("Negotiation steps so far: %d.\nAssess this deal.", len(negotiation.History))
	return prompt
}

// fallbackInsight derives a coarse estimate from the latest offer: a
// band around the quoted amount and a neutral closing likelihood.
func (g *InsightGenerator) fallbackInsight(dealID uuid.UUID, negotiation repository.Negotiation) repository.Insight {
	insight := repository.Insight{DealID: dealID}

	if offer := domain.LatestOffer(negotiation.History); offer != nil && offer.Amount > 0 {
		insight.RecommendedRange = &repository.RecommendedRange{
			Min:   offer.Amount * 0.8,
			Ideal: offer.Amount,
			Max:   offer.Amount * 1.25,
		}
	}

	likelihood := 50
	switch negotiation.Status {
	case domain.NegotiationCounterSent:
		likelihood = 60
	case domain.NegotiationAccepted:
		likelihood = 100
	case domain.NegotiationDeclined:
		likelihood = 0
	}
	insight.BrandContext = &repository.BrandContext{LikelihoodToClose: &likelihood}
	return insight
}
