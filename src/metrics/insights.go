package metrics

import "github.com/username/mindfolio/backend/src/models"

// buildInsights derives short advisory strings from the computed scores.
// Rule based, no model behind it; the remote analysis service produces a
// richer set when it is available.
func buildInsights(trades []models.Trade, winRate, fomoRisk float64) []string {
	if len(trades) == 0 {
		return nil
	}

	var insights []string

	if winRate < 40 {
		insights = append(insights, "Your win rate is below 40%. Consider reviewing your trading strategy and risk management.")
	} else if winRate > 70 {
		insights = append(insights, "Excellent win rate! You're demonstrating strong trading discipline.")
	}

	if fomoRisk > 50 {
		insights = append(insights, "High FOMO risk detected. You're making rapid consecutive trades which may indicate emotional decision-making.")
	}

	var totalProfit float64
	for _, t := range trades {
		totalProfit += t.Profit
	}
	if totalProfit/float64(len(trades)) > 0 {
		insights = append(insights, "Overall profitable trading performance. Focus on scaling winning strategies.")
	} else {
		insights = append(insights, "Consider reducing position sizes and focusing on high-probability setups.")
	}

	return insights
}
