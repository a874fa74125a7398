package models

// BiasScore is one named behavioral-bias risk percentage. The scores are
// independent risk indicators, not a partition; they need not sum to 100.
type BiasScore struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Color string  `json:"color"`
}

// TimelinePoint is one day's sample of the emotional trend series.
type TimelinePoint struct {
	Date       string  `json:"date"` // YYYY-MM-DD
	Emotional  float64 `json:"emotional"`
	Fomo       float64 `json:"fomo"`
	Confidence float64 `json:"confidence"`
}

// BehavioralMetrics is the derived, ephemeral result of one metrics
// computation over a set of trades. It is recomputed in full on every call
// and never persisted by the engine itself.
type BehavioralMetrics struct {
	TotalTrades        int             `json:"totalTrades"`
	WinRate            float64         `json:"winRate"`
	TotalProfit        float64         `json:"totalProfit"`
	EmotionalBalance   float64         `json:"emotionalBalance"`
	FomoRisk           float64         `json:"fomoRisk"`
	DecisionConfidence float64         `json:"decisionConfidence"`
	BiasBreakdown      []BiasScore     `json:"biasData"`
	EmotionalTimeline  []TimelinePoint `json:"emotionalData"`
	Insights           []string        `json:"insights,omitempty"`
}
