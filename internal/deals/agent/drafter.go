package agent

import (
	"context"
	"fmt"

	"agencydesk_backend/internal/deals/repository"
	"agencydesk_backend/platform/logger"
)

// ReplyDrafter suggests a reply for the latest brand message on a
// thread. Template-based without an API key.
type ReplyDrafter struct {
	ai  *oneShot
	log *logger.Logger
}

const drafterInstruction = `You draft short, professional email replies on behalf of a talent agent
negotiating brand deals. Reply with the email body only, no subject line,
no commentary.`

func NewReplyDrafter(apiKey string, log *logger.Logger) (*ReplyDrafter, error) {
	d := &ReplyDrafter{log: log}
	if apiKey == "" {
		return d, nil
	}
	ai, err := newOneShot(apiKey, "reply_drafter",
		"Drafts negotiation reply emails for talent agents.",
		drafterInstruction)
	if err != nil {
		return nil, err
	}
	d.ai = ai
	return d, nil
}

func (d *ReplyDrafter) Draft(ctx context.Context, thread repository.Thread, latest repository.IngestedEmail) (string, error) {
	if d.ai != nil {
		prompt := fmt.Sprintf("Deal stage: %s.\nLatest message from the brand:\n\n%s\n\nDraft a reply.",
			thread.Stage, latest.Body)
		draft, err := d.ai.Generate(ctx, prompt)
		if err == nil && draft != "" {
			return draft, nil
		}
		if err != nil {
			d.log.Warn("ai reply drafting failed, using template", "error", err)
		}
	}

	brand := "there"
	if thread.BrandName != nil {
		brand = *thread.BrandName
	}
	return fmt.Sprintf(
		"Hi %s,\n\nThanks for your message regarding %q. We're reviewing the details and will come back to you shortly with our thoughts.\n\nBest regards",
		brand, latest.Subject), nil
}
