package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"agencydesk_backend/internal/deals/domain"
)

type Negotiation struct {
	DealID       uuid.UUID
	OwnerID      uuid.UUID
	Status       domain.NegotiationStatus
	OfferTerms   *domain.OfferTerms
	CounterTerms *domain.OfferTerms
	History      []domain.HistoryEntry
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// GetNegotiation loads the negotiation for a deal.
func (r *Repository) GetNegotiation(ctx context.Context, dealID uuid.UUID) (Negotiation, error) {
	return r.getNegotiation(ctx, r.pool, dealID, false)
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *Repository) getNegotiation(ctx context.Context, q queryRower, dealID uuid.UUID, forUpdate bool) (Negotiation, error) {
	query := `
		SELECT deal_id, owner_id, status, offer_terms, counter_terms, history, created_at, updated_at
		FROM deal_negotiations
		WHERE deal_id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var n Negotiation
	var offerJSON, counterJSON, historyJSON []byte
	err := q.QueryRow(ctx, query, dealID).Scan(
		&n.DealID, &n.OwnerID, &n.Status, &offerJSON, &counterJSON, &historyJSON,
		&n.CreatedAt, &n.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Negotiation{}, ErrNotFound
	}
	if err != nil {
		return Negotiation{}, err
	}

	if len(offerJSON) > 0 {
		if err := json.Unmarshal(offerJSON, &n.OfferTerms); err != nil {
			return Negotiation{}, fmt.Errorf("decoding offer terms: %w", err)
		}
	}
	if len(counterJSON) > 0 {
		if err := json.Unmarshal(counterJSON, &n.CounterTerms); err != nil {
			return Negotiation{}, fmt.Errorf("decoding counter terms: %w", err)
		}
	}
	if len(historyJSON) > 0 {
		if err := json.Unmarshal(historyJSON, &n.History); err != nil {
			return Negotiation{}, fmt.Errorf("decoding history: %w", err)
		}
	}
	return n, nil
}

// AppendEntryParams describes one negotiation step.
type AppendEntryParams struct {
	DealID  uuid.UUID
	OwnerID uuid.UUID
	Entry   domain.HistoryEntry
	// AllowCreate lets a first offer create the row; every other step
	// requires an existing negotiation.
	AllowCreate bool
}

// AppendEntry appends one history entry under a row lock, validating
// the transition against the replayed status. The stored status always
// matches what replaying the stored history produces.
func (r *Repository) AppendEntry(ctx context.Context, params AppendEntryParams) (Negotiation, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Negotiation{}, fmt.Errorf("beginning negotiation transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	existing, err := r.getNegotiation(ctx, tx, params.DealID, true)
	created := false
	if errors.Is(err, ErrNotFound) {
		if !params.AllowCreate {
			return Negotiation{}, ErrNotFound
		}
		existing = Negotiation{DealID: params.DealID, OwnerID: params.OwnerID}
		created = true
	} else if err != nil {
		return Negotiation{}, err
	}

	status, err := domain.ReplayHistory(existing.History)
	if err != nil {
		return Negotiation{}, fmt.Errorf("stored history is inconsistent: %w", err)
	}
	if !domain.CanTransition(status, params.Entry.Type) {
		return Negotiation{}, fmt.Errorf("appending %s from status %s: %w",
			params.Entry.Type, status, domain.ErrInvalidTransition)
	}

	history := append(existing.History, params.Entry)
	newStatus, err := domain.ReplayHistory(history)
	if err != nil {
		return Negotiation{}, err
	}

	offerTerms := existing.OfferTerms
	counterTerms := existing.CounterTerms
	switch params.Entry.Type {
	case domain.EntryOfferReceived:
		offerTerms = params.Entry.Terms
	case domain.EntryCounterSent:
		counterTerms = params.Entry.Terms
	}

	historyJSON, err := json.Marshal(history)
	if err != nil {
		return Negotiation{}, fmt.Errorf("encoding history: %w", err)
	}
	offerJSON, err := marshalTerms(offerTerms)
	if err != nil {
		return Negotiation{}, err
	}
	counterJSON, err := marshalTerms(counterTerms)
	if err != nil {
		return Negotiation{}, err
	}

	var updated Negotiation
	if created {
		_, err = tx.Exec(ctx, `
			INSERT INTO deal_negotiations (deal_id, owner_id, status, offer_terms, counter_terms, history)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, params.DealID, params.OwnerID, newStatus, offerJSON, counterJSON, historyJSON)
	} else {
		_, err = tx.Exec(ctx, `
			UPDATE deal_negotiations
			SET status = $2, offer_terms = $3, counter_terms = $4, history = $5, updated_at = now()
			WHERE deal_id = $1
		`, params.DealID, newStatus, offerJSON, counterJSON, historyJSON)
	}
	if err != nil {
		return Negotiation{}, fmt.Errorf("writing negotiation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Negotiation{}, err
	}

	updated = existing
	updated.Status = newStatus
	updated.OfferTerms = offerTerms
	updated.CounterTerms = counterTerms
	updated.History = history
	return updated, nil
}

func marshalTerms(terms *domain.OfferTerms) ([]byte, error) {
	if terms == nil {
		return nil, nil
	}
	data, err := json.Marshal(terms)
	if err != nil {
		return nil, fmt.Errorf("encoding offer terms: %w", err)
	}
	return data, nil
}
