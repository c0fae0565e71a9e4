package health

import (
	"math"
	"testing"
	"time"
)

func floatEq(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEvaluateStaleThreadWithoutInsight(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	last := now.Add(-50 * time.Hour)

	h := Evaluate(Input{LastBrandMessageAt: &last, Now: now})

	if !floatEq(h.StalenessScore, 50) {
		t.Errorf("staleness = %v, want 50", h.StalenessScore)
	}
	if !floatEq(h.UrgencyScore, 90) {
		t.Errorf("urgency = %v, want 90", h.UrgencyScore)
	}
	if !floatEq(h.ValueScore, 0) {
		t.Errorf("value = %v, want 0", h.ValueScore)
	}
	if !floatEq(h.ClosingLikelihood, 50) {
		t.Errorf("closing = %v, want 50", h.ClosingLikelihood)
	}
	if !floatEq(h.RiskLevel, 20) {
		t.Errorf("risk = %v, want 20", h.RiskLevel)
	}
	if h.RecommendedAction != ActionFollowUp {
		t.Errorf("action = %s, want follow_up", h.RecommendedAction)
	}

	score := Score(h, false)
	if !floatEq(score, 43) {
		t.Errorf("score = %v, want 43", score)
	}
	if Classify(score) != PriorityMedium {
		t.Errorf("priority = %s, want MEDIUM", Classify(score))
	}
}

func TestScoreConflictPenalty(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	last := now.Add(-50 * time.Hour)
	h := Evaluate(Input{LastBrandMessageAt: &last, Now: now})

	score := Score(h, true)
	if !floatEq(score, 13) {
		t.Errorf("score with conflict = %v, want 13", score)
	}
	if Classify(score) != PriorityLow {
		t.Errorf("priority = %s, want LOW", Classify(score))
	}
}

func TestEvaluateDefaults(t *testing.T) {
	h := Evaluate(Input{Now: time.Now()})

	if h.StalenessScore != 0 {
		t.Errorf("staleness without last message = %v, want 0", h.StalenessScore)
	}
	if h.UrgencyScore != 20 {
		t.Errorf("urgency = %v, want 20", h.UrgencyScore)
	}
	if h.RecommendedAction != ActionReplyNow {
		t.Errorf("action = %s, want reply_now", h.RecommendedAction)
	}
}

func TestEvaluateStalenessClamp(t *testing.T) {
	now := time.Now()
	last := now.Add(-300 * time.Hour)
	h := Evaluate(Input{LastBrandMessageAt: &last, Now: now})
	if h.StalenessScore != 100 {
		t.Errorf("staleness = %v, want clamped 100", h.StalenessScore)
	}

	future := now.Add(2 * time.Hour)
	h = Evaluate(Input{LastBrandMessageAt: &future, Now: now})
	if h.StalenessScore != 0 {
		t.Errorf("staleness with future timestamp = %v, want 0", h.StalenessScore)
	}
}

func TestEvaluateValueFallbackChain(t *testing.T) {
	ideal := &Insight{RecommendedRange: &ValueRange{Min: 1000, Ideal: 5000, Max: 9000}}
	draft := 3200.0

	tests := []struct {
		name  string
		input Input
		want  float64
	}{
		{"insight ideal wins", Input{Insight: ideal, DraftOfferAmount: &draft}, 5000},
		{"draft offer fallback", Input{DraftOfferAmount: &draft}, 3200},
		{"insight without range falls through", Input{Insight: &Insight{}, DraftOfferAmount: &draft}, 3200},
		{"nothing available", Input{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.input.Now = time.Now()
			if got := Evaluate(tt.input).ValueScore; !floatEq(got, tt.want) {
				t.Errorf("value = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateInsightFields(t *testing.T) {
	likelihood := 85
	h := Evaluate(Input{
		Insight: &Insight{
			LikelihoodToClose: &likelihood,
			RedFlags:          []string{"payment terms unclear"},
		},
		Now: time.Now(),
	})
	if !floatEq(h.ClosingLikelihood, 85) {
		t.Errorf("closing = %v, want 85", h.ClosingLikelihood)
	}
	if !floatEq(h.RiskLevel, 80) {
		t.Errorf("risk with red flags = %v, want 80", h.RiskLevel)
	}
}

func TestClassifyStrictThresholds(t *testing.T) {
	tests := []struct {
		score float64
		want  Priority
	}{
		{75.00, PriorityMedium},
		{75.01, PriorityHigh},
		{40.00, PriorityLow},
		{40.01, PriorityMedium},
		{10.00, PriorityIgnore},
		{10.01, PriorityLow},
		{-5, PriorityIgnore},
		{100, PriorityHigh},
	}

	for _, tt := range tests {
		if got := Classify(tt.score); got != tt.want {
			t.Errorf("Classify(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}
