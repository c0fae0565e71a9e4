package agent

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"agencydesk_backend/internal/deals/domain"
	"agencydesk_backend/platform/logger"
)

// OfferExtractor parses structured offer terms from an email body. With
// an API key it asks the model first; the regex parser is both the
// fallback and the no-key path.
type OfferExtractor struct {
	ai  *oneShot
	log *logger.Logger
}

const extractorInstruction = `You extract commercial offer terms from brand emails to talent agents.
Respond with a single JSON object and nothing else:
{"currency": "EUR|USD|GBP", "amount": number, "deliverables": [{"type": string, "quantity": number, "notes": string}], "usageRights": string, "exclusivity": string, "deadline": string, "notes": string}
Use empty strings and 0 for anything the email does not state.`

func NewOfferExtractor(apiKey string, log *logger.Logger) (*OfferExtractor, error) {
	e := &OfferExtractor{log: log}
	if apiKey == "" {
		return e, nil
	}
	ai, err := newOneShot(apiKey, "offer_extractor",
		"Extracts structured offer terms from negotiation emails.",
		extractorInstruction)
	if err != nil {
		return nil, err
	}
	e.ai = ai
	return e, nil
}

// Extract returns the offer terms found in the body. It never fails on
// unparseable content: an email with no recognizable terms produces a
// zero-amount offer.
func (e *OfferExtractor) Extract(ctx context.Context, body string) (domain.OfferTerms, error) {
	if e.ai != nil {
		terms, err := e.extractWithAI(ctx, body)
		if err == nil {
			return terms, nil
		}
		e.log.Warn("ai offer extraction failed, using parser", "error", err)
	}
	return parseOffer(body), nil
}

func (e *OfferExtractor) extractWithAI(ctx context.Context, body string) (domain.OfferTerms, error) {
	output, err := e.ai.Generate(ctx, "Extract the offer terms from this email:\n\n"+body)
	if err != nil {
		return domain.OfferTerms{}, err
	}

	raw, ok := extractJSON(output)
	if !ok {
		return parseOffer(body), nil
	}

	var terms domain.OfferTerms
	if err := json.Unmarshal([]byte(raw), &terms); err != nil {
		return domain.OfferTerms{}, err
	}
	terms.Currency = normalizeCurrency(terms.Currency)
	for i := range terms.Deliverables {
		terms.Deliverables[i].Type = normalizeDeliverable(terms.Deliverables[i].Type)
	}
	return terms, nil
}

var currencyAliases = map[string]string{
	"€": "EUR", "eur": "EUR", "euro": "EUR", "euros": "EUR",
	"$": "USD", "usd": "USD", "dollar": "USD", "dollars": "USD",
	"£": "GBP", "gbp": "GBP", "pound": "GBP", "pounds": "GBP",
}

func normalizeCurrency(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if canonical, ok := currencyAliases[key]; ok {
		return canonical
	}
	if raw == "" {
		return "EUR"
	}
	return strings.ToUpper(raw)
}

var deliverableAliases = map[string]string{
	"ig post":        "instagram_post",
	"instagram post": "instagram_post",
	"post":           "instagram_post",
	"reel":           "instagram_reel",
	"ig reel":        "instagram_reel",
	"story":          "instagram_story",
	"stories":        "instagram_story",
	"tiktok":         "tiktok_video",
	"tiktok video":   "tiktok_video",
	"youtube video":  "youtube_video",
	"yt video":       "youtube_video",
}

func normalizeDeliverable(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if canonical, ok := deliverableAliases[key]; ok {
		return canonical
	}
	return strings.ReplaceAll(key, " ", "_")
}

// amountPattern matches figures like "€5,000", "$3.5k", "4000 euros".
var amountPattern = regexp.MustCompile(`(?i)([€$£]|eur|usd|gbp)?\s*([0-9][0-9.,]*)\s*(k)?\s*(euros?|dollars?|pounds?)?`)

var deliverablePattern = regexp.MustCompile(`(?i)(\d+)\s*x?\s*(instagram post|ig post|reel|ig reel|story|stories|tiktok video|tiktok|youtube video|yt video|post)`)

// parseOffer is the deterministic extraction path.
func parseOffer(body string) domain.OfferTerms {
	terms := domain.OfferTerms{Currency: "EUR"}

	if amount, currency, ok := parseAmount(body); ok {
		terms.Amount = amount
		terms.Currency = currency
	}

	for _, match := range deliverablePattern.FindAllStringSubmatch(body, -1) {
		quantity, err := strconv.Atoi(match[1])
		if err != nil || quantity <= 0 {
			continue
		}
		terms.Deliverables = append(terms.Deliverables, domain.Deliverable{
			Type:     normalizeDeliverable(match[2]),
			Quantity: quantity,
		})
	}

	lower := strings.ToLower(body)
	if strings.Contains(lower, "exclusiv") {
		terms.Exclusivity = "mentioned"
	}
	if strings.Contains(lower, "usage rights") || strings.Contains(lower, "usage period") {
		terms.UsageRights = "mentioned"
	}

	return terms
}

// parseAmount returns the largest monetary figure in the text. Brands
// often restate smaller per-item fees; the total is what matters.
func parseAmount(text string) (float64, string, bool) {
	var best float64
	currency := "EUR"
	found := false

	for _, match := range amountPattern.FindAllStringSubmatch(text, -1) {
		if match[1] == "" && match[4] == "" {
			continue
		}
		raw := strings.ReplaceAll(match[2], ",", "")
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		if strings.EqualFold(match[3], "k") {
			value *= 1000
		}
		if value > best {
			best = value
			currency = currencyFromMatch(match)
			found = true
		}
	}

	return best, currency, found
}

func currencyFromMatch(match []string) string {
	if match[1] != "" {
		return normalizeCurrency(match[1])
	}
	if match[4] != "" {
		return normalizeCurrency(match[4])
	}
	return "EUR"
}
