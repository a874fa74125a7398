package metrics

import (
	"math"
	"sort"
	"time"

	"github.com/username/mindfolio/backend/src/models"
	"github.com/username/mindfolio/backend/src/utils"
)

// Gap below which two volume-escalating trades count as a FOMO pair.
const fomoPairGap = 30 * time.Minute

// Neutral samples for timeline days without trades, so the series always
// has one point per day.
const (
	neutralEmotional  = 67
	neutralFomo       = 34
	neutralConfidence = 78
)

// Engine computes behavioral metrics from a set of trades. Compute is a
// pure full recompute on every call; the only injected dependency is the
// clock, which anchors the emotional timeline window.
type Engine struct {
	now func() time.Time
}

func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// Compute derives the full set of behavioral metrics from trades. Safe to
// call repeatedly; an empty input yields zeroed rates, never NaN.
func (e *Engine) Compute(trades []models.Trade) models.BehavioralMetrics {
	m := models.BehavioralMetrics{
		TotalTrades: len(trades),
	}

	wins := 0
	for _, t := range trades {
		m.TotalProfit += t.Profit
		if t.Profit > 0 {
			wins++
		}
	}
	if len(trades) > 0 {
		m.WinRate = utils.RoundFloat(100*float64(wins)/float64(len(trades)), 0)
	}

	m.EmotionalBalance = utils.RoundFloat(emotionalBalance(trades), 0)
	m.FomoRisk = utils.RoundFloat(fomoRisk(trades), 0)
	m.DecisionConfidence = utils.RoundFloat(decisionConfidence(trades), 0)
	m.BiasBreakdown = biasBreakdown(m.FomoRisk)
	m.EmotionalTimeline = e.emotionalTimeline(trades)
	m.Insights = buildInsights(trades, m.WinRate, m.FomoRisk)
	return m
}

// emotionalBalance blends profitability with a consistency term derived
// from the dispersion of profit: 0.6*profitability + 0.4*consistency,
// scaled to 0-100.
func emotionalBalance(trades []models.Trade) float64 {
	if len(trades) == 0 {
		return 0
	}
	wins := 0
	for _, t := range trades {
		if t.Profit > 0 {
			wins++
		}
	}
	profitability := float64(wins) / float64(len(trades))
	return (profitability*0.6 + profitConsistency(trades)*0.4) * 100
}

// profitConsistency maps the coefficient of variation of profit to [0,1]:
// lower dispersion relative to the mean means steadier results. Fewer than
// two trades count as fully consistent; a zero mean as fully inconsistent.
func profitConsistency(trades []models.Trade) float64 {
	if len(trades) < 2 {
		return 1
	}
	var mean float64
	for _, t := range trades {
		mean += t.Profit
	}
	mean /= float64(len(trades))
	if mean == 0 {
		return 0
	}

	var variance float64
	for _, t := range trades {
		variance += (t.Profit - mean) * (t.Profit - mean)
	}
	variance /= float64(len(trades))

	return utils.Clamp01(1 - math.Sqrt(variance)/math.Abs(mean))
}

// fomoRisk counts pairs of time-adjacent trades less than 30 minutes apart
// where the later trade's volume exceeds the earlier's, as a fraction of
// all trades.
func fomoRisk(trades []models.Trade) float64 {
	if len(trades) == 0 {
		return 0
	}
	sorted := sortedByDate(trades)
	pairs := 0
	for i := 1; i < len(sorted); i++ {
		gap := sorted[i].Date.Sub(sorted[i-1].Date)
		if gap < fomoPairGap && sorted[i].Volume > sorted[i-1].Volume {
			pairs++
		}
	}
	return math.Min(100*float64(pairs)/float64(len(trades)), 100)
}

// decisionConfidence blends win rate with normalized average absolute
// profit: 0.7*winRate + 0.3*min(avgAbsProfit/100, 1), scaled to 0-100.
func decisionConfidence(trades []models.Trade) float64 {
	if len(trades) == 0 {
		return 0
	}
	wins := 0
	var absSum float64
	for _, t := range trades {
		if t.Profit > 0 {
			wins++
		}
		absSum += math.Abs(t.Profit)
	}
	winFrac := float64(wins) / float64(len(trades))
	avgAbs := absSum / float64(len(trades))
	return (winFrac*0.7 + math.Min(avgAbs/100, 1)*0.3) * 100
}

// biasBreakdown returns the fixed bias categories. Only FOMO is derived
// from the trade data; the remaining weights are heuristic constants shown
// for orientation, each an independent risk score.
func biasBreakdown(fomoRisk float64) []models.BiasScore {
	return []models.BiasScore{
		{Name: "FOMO", Value: utils.RoundFloat(fomoRisk, 0), Color: "#ef4444"},
		{Name: "Overconfidence", Value: 25, Color: "#f97316"},
		{Name: "Panic Selling", Value: 20, Color: "#eab308"},
		{Name: "Anchoring", Value: 15, Color: "#22c55e"},
		{Name: "Confirmation Bias", Value: 10, Color: "#3b82f6"},
	}
}

// emotionalTimeline recomputes the per-day scores over the last five
// calendar days. Days without trades get neutral defaults rather than a
// gap in the series.
func (e *Engine) emotionalTimeline(trades []models.Trade) []models.TimelinePoint {
	today := e.now()
	points := make([]models.TimelinePoint, 0, 5)

	for i := 4; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		dayKey := day.Format("2006-01-02")

		var dayTrades []models.Trade
		for _, t := range trades {
			if t.Date.Format("2006-01-02") == dayKey {
				dayTrades = append(dayTrades, t)
			}
		}

		point := models.TimelinePoint{
			Date:       dayKey,
			Emotional:  neutralEmotional,
			Fomo:       neutralFomo,
			Confidence: neutralConfidence,
		}
		if len(dayTrades) > 0 {
			point.Emotional = utils.RoundFloat(emotionalBalance(dayTrades), 0)
			point.Fomo = utils.RoundFloat(fomoRisk(dayTrades), 0)
			point.Confidence = utils.RoundFloat(decisionConfidence(dayTrades), 0)
		}
		points = append(points, point)
	}
	return points
}

func sortedByDate(trades []models.Trade) []models.Trade {
	sorted := make([]models.Trade, len(trades))
	copy(sorted, trades)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	return sorted
}
