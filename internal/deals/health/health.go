// Package health scores deal threads for attention allocation. All
// functions are pure and total: missing data degrades the score via
// explicit defaults rather than failing.
package health

import "time"

// Recommended actions. The evaluator only emits ReplyNow and FollowUp;
// Wait and Decline exist so the decision policy accepts them from
// future evaluators.
type Action string

const (
	ActionReplyNow Action = "reply_now"
	ActionFollowUp Action = "follow_up"
	ActionWait     Action = "wait"
	ActionDecline  Action = "decline"
)

// Priority labels.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
	PriorityIgnore Priority = "IGNORE"
)

// ValueRange is an insight's suggested deal value band.
type ValueRange struct {
	Min   float64
	Ideal float64
	Max   float64
}

// Insight is the evaluator's view of a deal's intelligence data.
type Insight struct {
	RecommendedRange  *ValueRange
	LikelihoodToClose *int
	RedFlags          []string
}

// Input is everything Evaluate needs about one thread.
type Input struct {
	LastBrandMessageAt *time.Time
	Insight            *Insight
	DraftOfferAmount   *float64
	Now                time.Time
}

// Health is the transient scored snapshot of one thread. It is never
// persisted; every orchestrator pass recomputes it.
type Health struct {
	UrgencyScore      float64
	StalenessScore    float64
	ValueScore        float64
	ClosingLikelihood float64
	RiskLevel         float64
	RecommendedAction Action
}

const (
	stalenessCap       = 100.0
	staleThresholdHrs  = 48.0
	defaultLikelihood  = 50.0
	urgentScore        = 90.0
	calmScore          = 20.0
	riskyScore         = 80.0
	safeScore          = 20.0
)

// Evaluate computes a thread's health snapshot.
func Evaluate(in Input) Health {
	h := Health{
		ClosingLikelihood: defaultLikelihood,
		RiskLevel:         safeScore,
	}

	if in.LastBrandMessageAt != nil {
		hours := in.Now.Sub(*in.LastBrandMessageAt).Hours()
		h.StalenessScore = clamp(hours, 0, stalenessCap)
	}

	switch {
	case in.Insight != nil && in.Insight.RecommendedRange != nil:
		h.ValueScore = in.Insight.RecommendedRange.Ideal
	case in.DraftOfferAmount != nil:
		h.ValueScore = *in.DraftOfferAmount
	}

	if h.StalenessScore > staleThresholdHrs {
		h.UrgencyScore = urgentScore
		h.RecommendedAction = ActionFollowUp
	} else {
		h.UrgencyScore = calmScore
		h.RecommendedAction = ActionReplyNow
	}

	if in.Insight != nil {
		if in.Insight.LikelihoodToClose != nil {
			h.ClosingLikelihood = float64(*in.Insight.LikelihoodToClose)
		}
		if len(in.Insight.RedFlags) > 0 {
			h.RiskLevel = riskyScore
		}
	}

	return h
}

const conflictPenalty = 30.0

// Score combines a health snapshot into a single priority score. The
// 0.001 value weight assumes deal values quoted in major currency
// units; minor-unit inputs would distort the ranking.
func Score(h Health, hasConflict bool) float64 {
	score := h.UrgencyScore*0.30 +
		h.ValueScore*0.001 +
		h.ClosingLikelihood*0.40 -
		h.RiskLevel*0.20
	if hasConflict {
		score -= conflictPenalty
	}
	return score
}

// Classify maps a score to a priority label. Thresholds are strict.
func Classify(score float64) Priority {
	switch {
	case score > 75:
		return PriorityHigh
	case score > 40:
		return PriorityMedium
	case score > 10:
		return PriorityLow
	default:
		return PriorityIgnore
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
