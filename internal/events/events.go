// Package events defines the domain events exchanged between modules.
package events

import (
	"github.com/google/uuid"

	"agencydesk_backend/platform/events"
)

// Re-export the platform bus types so modules only import this package.
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

var NewBaseEvent = events.NewBaseEvent

// Event names.
const (
	EmailIngestedName       = "deals.email_ingested"
	StageChangedName        = "deals.stage_changed"
	NegotiationResolvedName = "deals.negotiation_resolved"
)

// EmailIngested fires after a raw inbound email has been persisted.
type EmailIngested struct {
	BaseEvent
	EmailID uuid.UUID
	OwnerID uuid.UUID
	Subject string
}

func (EmailIngested) EventName() string { return EmailIngestedName }

// StageChanged fires when a deal thread's pipeline stage advances.
type StageChanged struct {
	BaseEvent
	ThreadID uuid.UUID
	OwnerID  uuid.UUID
	OldStage string
	NewStage string
}

func (StageChanged) EventName() string { return StageChangedName }

// NegotiationResolved fires when a negotiation reaches accepted or
// declined. Subscribers advance the owning thread and, for accepted
// outcomes, kick off contract preparation.
type NegotiationResolved struct {
	BaseEvent
	DealID   uuid.UUID
	ThreadID uuid.UUID
	OwnerID  uuid.UUID
	Outcome  string // "accepted" or "declined"
}

func (NegotiationResolved) EventName() string { return NegotiationResolvedName }
