// Package domain holds the pure deal-pipeline types and rules. It has
// no dependencies on storage or transport.
package domain

// Stage is a deal thread's position in the pipeline.
type Stage string

const (
	StageNewLead          Stage = "NEW_LEAD"
	StageBriefReceived    Stage = "BRIEF_RECEIVED"
	StageNegotiating      Stage = "NEGOTIATING"
	StagePendingContract  Stage = "PENDING_CONTRACT"
	StageContractSent     Stage = "CONTRACT_SENT"
	StageLive             Stage = "LIVE"
	StageContentSubmitted Stage = "CONTENT_SUBMITTED"
	StageApproved         Stage = "APPROVED"
	StagePaymentSent      Stage = "PAYMENT_SENT"
	StageClosedWon        Stage = "CLOSED_WON"
	StageClosedLost       Stage = "CLOSED_LOST"
)

// stageRanks orders the pipeline. Both terminal stages share the top
// rank, so neither can replace the other once reached.
var stageRanks = map[Stage]int{
	StageNewLead:          1,
	StageBriefReceived:    2,
	StageNegotiating:      3,
	StagePendingContract:  4,
	StageContractSent:     5,
	StageLive:             6,
	StageContentSubmitted: 7,
	StageApproved:         8,
	StagePaymentSent:      9,
	StageClosedWon:        10,
	StageClosedLost:       10,
}

// Rank returns the stage's pipeline rank, or 0 for unknown stages.
func (s Stage) Rank() int {
	return stageRanks[s]
}

// IsKnown reports whether s is a recognized pipeline stage.
func (s Stage) IsKnown() bool {
	_, ok := stageRanks[s]
	return ok
}

// IsTerminal reports whether s closes the thread.
func (s Stage) IsTerminal() bool {
	return s == StageClosedWon || s == StageClosedLost
}

// CanAdvanceTo reports whether moving from s to next is a forward move.
// Stages never move backwards and terminal stages never change.
func (s Stage) CanAdvanceTo(next Stage) bool {
	if !next.IsKnown() {
		return false
	}
	if s.IsTerminal() {
		return false
	}
	return next.Rank() > s.Rank()
}
