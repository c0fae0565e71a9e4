// Package stage classifies a single email into a pipeline stage. The
// classifier is pure and deterministic: same email, same stage.
package stage

import (
	"strings"

	"agencydesk_backend/internal/deals/domain"
)

// stageSignals lists keyword markers per stage, checked from the top of
// the pipeline down so the most advanced matching stage wins.
var stageSignals = []struct {
	stage    domain.Stage
	keywords []string
}{
	{domain.StageClosedLost, []string{
		"not moving forward", "decided to pass", "going another direction",
		"cancel the collaboration", "deal is off",
	}},
	{domain.StageClosedWon, []string{
		"payment received", "all wrapped up", "campaign complete",
	}},
	{domain.StagePaymentSent, []string{
		"payment sent", "payment has been processed", "invoice paid", "wire sent",
	}},
	{domain.StageApproved, []string{
		"content approved", "approved for posting", "sign-off", "signed off",
	}},
	{domain.StageContentSubmitted, []string{
		"draft attached", "first draft", "submitted the content", "content for review",
	}},
	{domain.StageLive, []string{
		"is now live", "went live", "post is live", "published the",
	}},
	{domain.StageContractSent, []string{
		"contract attached", "agreement attached", "docusign", "please sign",
		"sent the contract",
	}},
	{domain.StagePendingContract, []string{
		"send over the contract", "drafting the agreement", "legal review",
		"prepare the contract",
	}},
	{domain.StageNegotiating, []string{
		"budget", "our rate", "counter", "offer", "fee would be",
		"usage rights", "exclusivity", "pricing",
	}},
	{domain.StageBriefReceived, []string{
		"brief", "deliverables", "campaign details", "scope of work", "timeline for the campaign",
	}},
}

// Email is the minimal shape the classifier inspects.
type Email struct {
	Subject string
	Snippet string
	Body    string
}

// Infer maps one email to a pipeline stage. Emails matching no signal
// are new leads.
func Infer(email Email) domain.Stage {
	text := strings.ToLower(email.Subject + "\n" + email.Snippet + "\n" + email.Body)
	for _, signal := range stageSignals {
		for _, keyword := range signal.keywords {
			if strings.Contains(text, keyword) {
				return signal.stage
			}
		}
	}
	return domain.StageNewLead
}
