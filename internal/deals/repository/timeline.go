package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Timeline event types written by this module.
const (
	EventEmailIngested         = "email_ingested"
	EventStageChanged          = "stage_changed"
	EventOfferExtracted        = "offer_extracted"
	EventCounterProposed       = "counter_proposed"
	EventOfferAccepted         = "offer_accepted"
	EventOfferDeclined         = "offer_declined"
	EventReplySuggested        = "reply_suggested"
	EventReplySent             = "reply_sent"
	EventContractDrafted       = "contract_drafted"
	EventContractTriggerFailed = "contract_trigger_failed"
)

type DealEvent struct {
	ID        uuid.UUID
	DealID    uuid.UUID
	OwnerID   uuid.UUID
	Type      string
	Message   string
	Metadata  map[string]any
	CreatedAt time.Time
}

type AddTimelineParams struct {
	DealID   uuid.UUID
	OwnerID  uuid.UUID
	Type     string
	Message  string
	Metadata map[string]any
}

// AddTimelineEntry records one human-readable event on the deal.
func (r *Repository) AddTimelineEntry(ctx context.Context, params AddTimelineParams) error {
	metadataJSON, err := json.Marshal(params.Metadata)
	if err != nil {
		return fmt.Errorf("encoding event metadata: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO deal_events (deal_id, owner_id, type, message, metadata)
		VALUES ($1, $2, $3, $4, $5)
	`, params.DealID, params.OwnerID, params.Type, truncateMessage(params.Message), metadataJSON)
	return err
}

// ListTimeline returns the deal's events, newest first.
func (r *Repository) ListTimeline(ctx context.Context, dealID uuid.UUID) ([]DealEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, deal_id, owner_id, type, message, metadata, created_at
		FROM deal_events
		WHERE deal_id = $1
		ORDER BY created_at DESC
	`, dealID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]DealEvent, 0)
	for rows.Next() {
		var e DealEvent
		var metadataJSON []byte
		if err := rows.Scan(&e.ID, &e.DealID, &e.OwnerID, &e.Type, &e.Message,
			&metadataJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &e.Metadata); err != nil {
				return nil, fmt.Errorf("decoding event metadata: %w", err)
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

const maxMessageLength = 500

func truncateMessage(message string) string {
	if len(message) <= maxMessageLength {
		return message
	}
	return message[:maxMessageLength-3] + "..."
}
