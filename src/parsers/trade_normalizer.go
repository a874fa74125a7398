package parsers

import (
	"strconv"
	"strings"
	"time"

	"github.com/username/mindfolio/backend/src/models"
	"github.com/username/mindfolio/backend/src/utils"
)

// Diagnostics reports what the normalizer silently tolerated while mapping
// one file, so callers can build a useful error message instead of
// guessing why a file produced no trades.
type Diagnostics struct {
	TotalRows     int
	DroppedRows   int // tokenizer arity mismatches plus rows missing required fields
	DateFallbacks int // rows whose date could not be parsed and got ingestion-time now
	Headers       []string
}

// TradeNormalizer maps tokenized rows to validated trades.
type TradeNormalizer struct {
	now func() time.Time
}

func NewTradeNormalizer() *TradeNormalizer {
	return &TradeNormalizer{now: time.Now}
}

// MapRow maps one row to a trade. A row is accepted only when date,
// symbol, action, volume and price all resolve through the field matcher;
// profit is optional and defaults to 0. The returned flag reports
// acceptance.
func (n *TradeNormalizer) MapRow(row RawRow) (models.Trade, bool) {
	trade, _, ok := n.mapRow(row)
	return trade, ok
}

func (n *TradeNormalizer) mapRow(row RawRow) (models.Trade, bool, bool) {
	date, okDate := FindField(row, DateAliases)
	symbol, okSymbol := FindField(row, SymbolAliases)
	action, okAction := FindField(row, ActionAliases)
	volume, okVolume := FindField(row, VolumeAliases)
	price, okPrice := FindField(row, PriceAliases)
	if !okDate || !okSymbol || !okAction || !okVolume || !okPrice {
		return models.Trade{}, false, false
	}

	profit, okProfit := FindField(row, ProfitAliases)
	if !okProfit {
		profit = "0"
	}

	parsedDate, dateParsed := utils.ParseTradeDate(date)
	if !dateParsed {
		// Lossy fallback: the persisted date no longer reflects the source
		// file. Counted in Diagnostics so it is at least visible.
		parsedDate = n.now()
	}

	profitVal := parseFloatOrZero(profit)
	volumeVal := parseFloatOrZero(volume)

	trade := models.Trade{
		Date:       parsedDate,
		Symbol:     symbol,
		Action:     normalizeAction(action),
		Volume:     volumeVal,
		Price:      parseFloatOrZero(price),
		Profit:     profitVal,
		Emotion:    detectEmotion(profitVal),
		Confidence: calculateConfidence(profitVal, volumeVal),
	}
	return trade, !dateParsed, true
}

// MapRows maps a tokenized file to trades, silently omitting rows that
// fail the required-field check. The omission counts and the headers seen
// are returned alongside for diagnostics.
func (n *TradeNormalizer) MapRows(result TokenizeResult) ([]models.Trade, Diagnostics) {
	diag := Diagnostics{
		TotalRows:   len(result.Rows) + result.DroppedRows,
		DroppedRows: result.DroppedRows,
		Headers:     result.Headers,
	}

	var trades []models.Trade
	for _, row := range result.Rows {
		trade, dateFellBack, ok := n.mapRow(row)
		if !ok {
			diag.DroppedRows++
			continue
		}
		if dateFellBack {
			diag.DateFallbacks++
		}
		trades = append(trades, trade)
	}
	return trades, diag
}

// normalizeAction classifies a broker's action cell as buy or sell. There
// is no "unknown" outcome: anything that does not look like a buy is a
// sell.
func normalizeAction(action string) string {
	normalized := strings.ToLower(strings.TrimSpace(action))
	if strings.Contains(normalized, "buy") || strings.Contains(normalized, "long") || normalized == "b" {
		return models.ActionBuy
	}
	return models.ActionSell
}

func detectEmotion(profit float64) string {
	switch {
	case profit > 0:
		return models.EmotionConfident
	case profit < 0:
		return models.EmotionFrustrated
	default:
		return models.EmotionNeutral
	}
}

// calculateConfidence scores a trade 0-100 from its profit/volume ratio.
// Winning trades are capped at 100, the rest floored at 0. A volume of
// zero or less is treated as 1 for this formula only, to keep the score
// finite.
func calculateConfidence(profit, volume float64) float64 {
	if volume <= 0 {
		volume = 1
	}
	score := 50 + (profit/volume)*10
	if profit > 0 {
		if score > 100 {
			return 100
		}
		return score
	}
	if score < 0 {
		return 0
	}
	return score
}

func parseFloatOrZero(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}
