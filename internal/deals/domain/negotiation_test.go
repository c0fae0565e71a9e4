package domain

import (
	"errors"
	"testing"
	"time"
)

func entry(entryType string, amount float64) HistoryEntry {
	e := HistoryEntry{Type: entryType, Date: time.Now()}
	if entryType == EntryOfferReceived || entryType == EntryCounterSent {
		e.Terms = &OfferTerms{Currency: "EUR", Amount: amount}
	}
	return e
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name      string
		current   NegotiationStatus
		entryType string
		want      bool
	}{
		{"first offer", NegotiationOpen, EntryOfferReceived, true},
		{"revised offer", NegotiationOfferReceived, EntryOfferReceived, true},
		{"offer after counter", NegotiationCounterSent, EntryOfferReceived, true},
		{"counter after offer", NegotiationOfferReceived, EntryCounterSent, true},
		{"counter after counter", NegotiationCounterSent, EntryCounterSent, true},
		{"counter with nothing on table", NegotiationOpen, EntryCounterSent, false},
		{"accept with nothing on table", NegotiationOpen, EntryAccepted, false},
		{"accept offer", NegotiationOfferReceived, EntryAccepted, true},
		{"accept after counter", NegotiationCounterSent, EntryAccepted, true},
		{"decline offer", NegotiationOfferReceived, EntryDeclined, true},
		{"offer after accepted", NegotiationAccepted, EntryOfferReceived, false},
		{"counter after declined", NegotiationDeclined, EntryCounterSent, false},
		{"accept after accepted", NegotiationAccepted, EntryAccepted, false},
		{"unknown entry type", NegotiationOfferReceived, "renegotiate", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransition(tt.current, tt.entryType); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.current, tt.entryType, got, tt.want)
			}
		})
	}
}

func TestReplayHistory(t *testing.T) {
	tests := []struct {
		name    string
		entries []HistoryEntry
		want    NegotiationStatus
		wantErr bool
	}{
		{"empty history", nil, NegotiationOpen, false},
		{"single offer", []HistoryEntry{entry(EntryOfferReceived, 1000)}, NegotiationOfferReceived, false},
		{
			"offer counter accept",
			[]HistoryEntry{entry(EntryOfferReceived, 1000), entry(EntryCounterSent, 1500), entry(EntryAccepted, 0)},
			NegotiationAccepted, false,
		},
		{
			"back and forth then decline",
			[]HistoryEntry{
				entry(EntryOfferReceived, 1000),
				entry(EntryCounterSent, 1500),
				entry(EntryOfferReceived, 1200),
				entry(EntryDeclined, 0),
			},
			NegotiationDeclined, false,
		},
		{
			"entry after terminal is rejected",
			[]HistoryEntry{entry(EntryOfferReceived, 1000), entry(EntryAccepted, 0), entry(EntryCounterSent, 900)},
			NegotiationAccepted, true,
		},
		{
			"counter before any offer is rejected",
			[]HistoryEntry{entry(EntryCounterSent, 900)},
			NegotiationOpen, true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReplayHistory(tt.entries)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ReplayHistory() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("expected ErrInvalidTransition, got %v", err)
			}
			if got != tt.want {
				t.Errorf("ReplayHistory() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestLatestOffer(t *testing.T) {
	entries := []HistoryEntry{
		entry(EntryOfferReceived, 1000),
		entry(EntryCounterSent, 1500),
		entry(EntryAccepted, 0),
	}
	terms := LatestOffer(entries)
	if terms == nil || terms.Amount != 1500 {
		t.Fatalf("expected latest terms amount 1500, got %+v", terms)
	}

	if LatestOffer(nil) != nil {
		t.Error("expected nil terms for empty history")
	}
}
