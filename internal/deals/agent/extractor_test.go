package agent

import (
	"context"
	"testing"

	"agencydesk_backend/platform/logger"
)

func testExtractor(t *testing.T) *OfferExtractor {
	t.Helper()
	e, err := NewOfferExtractor("", logger.New("development"))
	if err != nil {
		t.Fatalf("NewOfferExtractor() error = %v", err)
	}
	return e
}

func TestExtractAmounts(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		wantAmount   float64
		wantCurrency string
	}{
		{"euro symbol", "We can offer €5,000 for the campaign.", 5000, "EUR"},
		{"dollar symbol", "Budget is $3000 total.", 3000, "USD"},
		{"k suffix", "We have around $3.5k to spend.", 3500, "USD"},
		{"spelled out", "Our budget is 4000 euros.", 4000, "EUR"},
		{"pounds", "We could go to £2,500.", 2500, "GBP"},
		{"largest figure wins", "€500 per story, €6,000 for the full package.", 6000, "EUR"},
		{"no amount", "Would love to collaborate sometime!", 0, "EUR"},
	}

	e := testExtractor(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			terms, err := e.Extract(context.Background(), tt.body)
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if terms.Amount != tt.wantAmount {
				t.Errorf("amount = %v, want %v", terms.Amount, tt.wantAmount)
			}
			if terms.Currency != tt.wantCurrency {
				t.Errorf("currency = %q, want %q", terms.Currency, tt.wantCurrency)
			}
		})
	}
}

func TestExtractDeliverables(t *testing.T) {
	e := testExtractor(t)
	terms, err := e.Extract(context.Background(),
		"We'd like 2 instagram posts and 3 stories for €4,000, with exclusivity during the campaign.")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if len(terms.Deliverables) != 2 {
		t.Fatalf("deliverables = %+v, want 2 entries", terms.Deliverables)
	}
	if terms.Deliverables[0].Type != "instagram_post" || terms.Deliverables[0].Quantity != 2 {
		t.Errorf("first deliverable = %+v", terms.Deliverables[0])
	}
	if terms.Deliverables[1].Type != "instagram_story" || terms.Deliverables[1].Quantity != 3 {
		t.Errorf("second deliverable = %+v", terms.Deliverables[1])
	}
	if terms.Exclusivity == "" {
		t.Error("expected exclusivity to be flagged")
	}
}

func TestNormalizeCurrency(t *testing.T) {
	tests := []struct{ in, want string }{
		{"€", "EUR"},
		{"usd", "USD"},
		{"Pounds", "GBP"},
		{"", "EUR"},
		{"chf", "CHF"},
	}
	for _, tt := range tests {
		if got := normalizeCurrency(tt.in); got != tt.want {
			t.Errorf("normalizeCurrency(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeDeliverable(t *testing.T) {
	tests := []struct{ in, want string }{
		{"IG Post", "instagram_post"},
		{"reel", "instagram_reel"},
		{"TikTok", "tiktok_video"},
		{"podcast mention", "podcast_mention"},
	}
	for _, tt := range tests {
		if got := normalizeDeliverable(tt.in); got != tt.want {
			t.Errorf("normalizeDeliverable(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
