package stage

import (
	"testing"

	"agencydesk_backend/internal/deals/domain"
)

func TestInfer(t *testing.T) {
	tests := []struct {
		name  string
		email Email
		want  domain.Stage
	}{
		{
			"no signals",
			Email{Subject: "Hello!", Body: "Love your work, would you be interested in a chat?"},
			domain.StageNewLead,
		},
		{
			"brief in subject",
			Email{Subject: "Campaign brief for Q4", Body: "See attached."},
			domain.StageBriefReceived,
		},
		{
			"budget talk",
			Email{Subject: "Re: Collab", Body: "Our budget for this is 5k, does that work?"},
			domain.StageNegotiating,
		},
		{
			"contract attached",
			Email{Subject: "Agreement", Body: "Contract attached, please sign by Friday."},
			domain.StageContractSent,
		},
		{
			"payment confirmation",
			Email{Subject: "Re: invoice", Body: "Payment sent this morning."},
			domain.StagePaymentSent,
		},
		{
			"decline",
			Email{Subject: "Re: Collab", Body: "We've decided to pass on this one, sorry."},
			domain.StageClosedLost,
		},
		{
			"most advanced signal wins",
			Email{Subject: "Re: budget", Body: "Budget agreed. Contract attached, please sign."},
			domain.StageContractSent,
		},
		{
			"case insensitive",
			Email{Subject: "CONTRACT ATTACHED"},
			domain.StageContractSent,
		},
		{
			"snippet is inspected",
			Email{Subject: "Update", Snippet: "the post is live now"},
			domain.StageLive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Infer(tt.email); got != tt.want {
				t.Errorf("Infer() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestInferIsDeterministic(t *testing.T) {
	email := Email{Subject: "Re: Collab", Body: "Our budget is 5k and the brief is attached."}
	first := Infer(email)
	for i := 0; i < 10; i++ {
		if got := Infer(email); got != first {
			t.Fatalf("Infer() not deterministic: %s then %s", first, got)
		}
	}
}
