package domain

import (
	"errors"
	"fmt"
	"time"
)

// NegotiationStatus is derived by replaying a negotiation's history; it
// is never stored independently.
type NegotiationStatus string

const (
	// NegotiationOpen is the status of a negotiation with no history yet.
	NegotiationOpen          NegotiationStatus = "open"
	NegotiationOfferReceived NegotiationStatus = "offer_received"
	NegotiationCounterSent   NegotiationStatus = "counter_sent"
	NegotiationAccepted      NegotiationStatus = "accepted"
	NegotiationDeclined      NegotiationStatus = "declined"
)

// IsTerminal reports whether the negotiation is resolved.
func (s NegotiationStatus) IsTerminal() bool {
	return s == NegotiationAccepted || s == NegotiationDeclined
}

// History entry types. Each entry records one step of the negotiation.
const (
	EntryOfferReceived = "offer_received"
	EntryCounterSent   = "counter_sent"
	EntryAccepted      = "accepted"
	EntryDeclined      = "declined"
)

// Deliverable is one unit of work in an offer.
type Deliverable struct {
	Type     string `json:"type"`
	Quantity int    `json:"quantity"`
	Notes    string `json:"notes,omitempty"`
}

// OfferTerms captures the commercial terms of an offer or counter.
type OfferTerms struct {
	Currency     string        `json:"currency"`
	Amount       float64       `json:"amount"`
	Deliverables []Deliverable `json:"deliverables,omitempty"`
	UsageRights  string        `json:"usageRights,omitempty"`
	Exclusivity  string        `json:"exclusivity,omitempty"`
	Deadline     string        `json:"deadline,omitempty"`
	Notes        string        `json:"notes,omitempty"`
}

// HistoryEntry is one append-only negotiation step. Terms are present
// for offers and counters, absent for accept/decline.
type HistoryEntry struct {
	Type  string      `json:"type"`
	Terms *OfferTerms `json:"terms,omitempty"`
	Date  time.Time   `json:"date"`
}

// ErrInvalidTransition is returned when a negotiation step is not legal
// from the current status.
var ErrInvalidTransition = errors.New("invalid negotiation transition")

// statusAfter maps an entry type to the status it produces.
var statusAfter = map[string]NegotiationStatus{
	EntryOfferReceived: NegotiationOfferReceived,
	EntryCounterSent:   NegotiationCounterSent,
	EntryAccepted:      NegotiationAccepted,
	EntryDeclined:      NegotiationDeclined,
}

// CanTransition reports whether appending an entry of the given type is
// legal from the current status. A fresh offer may restart from
// offer_received or counter_sent; resolved negotiations accept nothing.
func CanTransition(current NegotiationStatus, entryType string) bool {
	if current.IsTerminal() {
		return false
	}
	switch entryType {
	case EntryOfferReceived:
		return current == NegotiationOpen || current == NegotiationOfferReceived || current == NegotiationCounterSent
	case EntryCounterSent, EntryAccepted, EntryDeclined:
		return current == NegotiationOfferReceived || current == NegotiationCounterSent
	default:
		return false
	}
}

// ReplayHistory derives the negotiation status by replaying entries in
// order, validating every step. This is the single source of truth for
// status; callers must not cache it across writes.
func ReplayHistory(entries []HistoryEntry) (NegotiationStatus, error) {
	status := NegotiationOpen
	for i, entry := range entries {
		if !CanTransition(status, entry.Type) {
			return status, fmt.Errorf("replaying entry %d (%s) from status %s: %w",
				i, entry.Type, status, ErrInvalidTransition)
		}
		status = statusAfter[entry.Type]
	}
	return status, nil
}

// LatestOffer returns the terms of the most recent offer or counter in
// the history, or nil when none exist.
func LatestOffer(entries []HistoryEntry) *OfferTerms {
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Terms != nil {
			return entries[i].Terms
		}
	}
	return nil
}
