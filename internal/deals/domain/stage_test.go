package domain

import "testing"

func TestStageRanksAreMonotonic(t *testing.T) {
	ordered := []Stage{
		StageNewLead,
		StageBriefReceived,
		StageNegotiating,
		StagePendingContract,
		StageContractSent,
		StageLive,
		StageContentSubmitted,
		StageApproved,
		StagePaymentSent,
	}
	for i := 1; i < len(ordered); i++ {
		if ordered[i].Rank() <= ordered[i-1].Rank() {
			t.Errorf("expected %s rank > %s rank, got %d <= %d",
				ordered[i], ordered[i-1], ordered[i].Rank(), ordered[i-1].Rank())
		}
	}
}

func TestTerminalStagesShareTopRank(t *testing.T) {
	if StageClosedWon.Rank() != StageClosedLost.Rank() {
		t.Errorf("terminal stages must share a rank, got %d and %d",
			StageClosedWon.Rank(), StageClosedLost.Rank())
	}
	if StageClosedWon.Rank() <= StagePaymentSent.Rank() {
		t.Errorf("terminal rank %d must exceed PAYMENT_SENT rank %d",
			StageClosedWon.Rank(), StagePaymentSent.Rank())
	}
}

func TestCanAdvanceTo(t *testing.T) {
	tests := []struct {
		name string
		from Stage
		to   Stage
		want bool
	}{
		{"forward move", StageNewLead, StageNegotiating, true},
		{"adjacent forward", StageNegotiating, StagePendingContract, true},
		{"backward move", StageContractSent, StageNegotiating, false},
		{"same stage", StageNegotiating, StageNegotiating, false},
		{"into terminal", StagePaymentSent, StageClosedWon, true},
		{"out of closed won", StageClosedWon, StageClosedLost, false},
		{"out of closed lost", StageClosedLost, StageClosedWon, false},
		{"unknown target", StageNewLead, Stage("SHIPPED"), false},
		{"skip stages", StageNewLead, StagePaymentSent, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanAdvanceTo(tt.to); got != tt.want {
				t.Errorf("CanAdvanceTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestIsKnown(t *testing.T) {
	if !StageBriefReceived.IsKnown() {
		t.Error("BRIEF_RECEIVED should be known")
	}
	if Stage("NOT_A_STAGE").IsKnown() {
		t.Error("unrecognized stage should not be known")
	}
}
