package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// RecommendedRange is the insight's suggested deal value band.
type RecommendedRange struct {
	Min   float64 `json:"min"`
	Ideal float64 `json:"ideal"`
	Max   float64 `json:"max"`
}

// BrandContext is what the insight knows about the counterparty.
type BrandContext struct {
	LikelihoodToClose *int   `json:"likelihoodToClose,omitempty"`
	Notes             string `json:"notes,omitempty"`
}

// Insight is the persisted negotiation intelligence for one deal.
type Insight struct {
	DealID           uuid.UUID
	RecommendedRange *RecommendedRange
	BrandContext     *BrandContext
	RedFlags         []string
	FinalScript      string
	UpdatedAt        time.Time
}

// UpsertInsight stores or replaces a deal's negotiation insight.
func (r *Repository) UpsertInsight(ctx context.Context, insight Insight) error {
	rangeJSON, err := json.Marshal(insight.RecommendedRange)
	if err != nil {
		return fmt.Errorf("encoding recommended range: %w", err)
	}
	contextJSON, err := json.Marshal(insight.BrandContext)
	if err != nil {
		return fmt.Errorf("encoding brand context: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO negotiation_insights (deal_id, recommended_range, brand_context, red_flags, final_script)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (deal_id) DO UPDATE SET
			recommended_range = EXCLUDED.recommended_range,
			brand_context = EXCLUDED.brand_context,
			red_flags = EXCLUDED.red_flags,
			final_script = EXCLUDED.final_script,
			updated_at = now()
	`, insight.DealID, rangeJSON, contextJSON, redFlagsOrEmpty(insight.RedFlags), insight.FinalScript)
	return err
}

// GetInsight loads the insight for one deal.
func (r *Repository) GetInsight(ctx context.Context, dealID uuid.UUID) (Insight, error) {
	var insight Insight
	var rangeJSON, contextJSON []byte
	err := r.pool.QueryRow(ctx, `
		SELECT deal_id, recommended_range, brand_context, red_flags, final_script, updated_at
		FROM negotiation_insights
		WHERE deal_id = $1
	`, dealID).Scan(&insight.DealID, &rangeJSON, &contextJSON, &insight.RedFlags,
		&insight.FinalScript, &insight.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Insight{}, ErrNotFound
	}
	if err != nil {
		return Insight{}, err
	}
	if err := decodeInsightJSON(&insight, rangeJSON, contextJSON); err != nil {
		return Insight{}, err
	}
	return insight, nil
}

// ListInsightsForDeals returns the latest insight per deal id.
func (r *Repository) ListInsightsForDeals(ctx context.Context, dealIDs []uuid.UUID) (map[uuid.UUID]Insight, error) {
	if len(dealIDs) == 0 {
		return map[uuid.UUID]Insight{}, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT deal_id, recommended_range, brand_context, red_flags, final_script, updated_at
		FROM negotiation_insights
		WHERE deal_id = ANY($1)
	`, dealIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	insights := make(map[uuid.UUID]Insight, len(dealIDs))
	for rows.Next() {
		var insight Insight
		var rangeJSON, contextJSON []byte
		if err := rows.Scan(&insight.DealID, &rangeJSON, &contextJSON, &insight.RedFlags,
			&insight.FinalScript, &insight.UpdatedAt); err != nil {
			return nil, err
		}
		if err := decodeInsightJSON(&insight, rangeJSON, contextJSON); err != nil {
			return nil, err
		}
		insights[insight.DealID] = insight
	}
	return insights, rows.Err()
}

func decodeInsightJSON(insight *Insight, rangeJSON, contextJSON []byte) error {
	if len(rangeJSON) > 0 {
		if err := json.Unmarshal(rangeJSON, &insight.RecommendedRange); err != nil {
			return fmt.Errorf("decoding recommended range: %w", err)
		}
	}
	if len(contextJSON) > 0 {
		if err := json.Unmarshal(contextJSON, &insight.BrandContext); err != nil {
			return fmt.Errorf("decoding brand context: %w", err)
		}
	}
	return nil
}

func redFlagsOrEmpty(flags []string) []string {
	if flags == nil {
		return []string{}
	}
	return flags
}
