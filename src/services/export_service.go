package services

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/username/mindfolio/backend/src/models"
	"github.com/username/mindfolio/backend/src/security/validation"
)

var exportCSVHeaders = []string{
	"id", "statement_id", "trade_date", "symbol", "action",
	"volume", "price", "profit", "emotion", "confidence", "notes",
}

type exportServiceImpl struct {
	tradingData TradingDataService
}

func NewExportService(tradingData TradingDataService) ExportService {
	return &exportServiceImpl{tradingData: tradingData}
}

// ExportTrades serializes all of the user's trades as pretty-printed JSON
// or CSV, named trading-data-<ISO-date>.<ext>.
func (s *exportServiceImpl) ExportTrades(userID int64, format string) ([]byte, string, string, error) {
	trades, err := s.tradingData.GetTrades(userID)
	if err != nil {
		return nil, "", "", err
	}
	if trades == nil {
		trades = []models.Trade{}
	}

	datePart := time.Now().Format("2006-01-02")
	switch format {
	case "csv":
		data := renderTradesCSV(trades)
		return data, fmt.Sprintf("trading-data-%s.csv", datePart), "text/csv", nil
	case "", "json":
		data, err := json.MarshalIndent(trades, "", "  ")
		if err != nil {
			return nil, "", "", fmt.Errorf("error marshaling trades for export: %w", err)
		}
		return data, fmt.Sprintf("trading-data-%s.json", datePart), "application/json", nil
	default:
		return nil, "", "", fmt.Errorf("%w: unsupported export format '%s'", validation.ErrValidationFailed, format)
	}
}

// renderTradesCSV writes a header row plus one row per trade, quoting
// values that contain commas and defusing spreadsheet formula prefixes.
func renderTradesCSV(trades []models.Trade) []byte {
	var b strings.Builder
	b.WriteString(strings.Join(exportCSVHeaders, ","))
	b.WriteString("\n")

	for _, t := range trades {
		cells := []string{
			strconv.FormatInt(t.ID, 10),
			exportCSVCell(t.StatementID),
			t.Date.Format(time.RFC3339),
			exportCSVCell(t.Symbol),
			t.Action,
			formatFloat(t.Volume),
			formatFloat(t.Price),
			formatFloat(t.Profit),
			exportCSVCell(t.Emotion),
			formatFloat(t.Confidence),
			exportCSVCell(t.Notes),
		}
		b.WriteString(strings.Join(cells, ","))
		b.WriteString("\n")
	}
	return []byte(b.String())
}

func exportCSVCell(value string) string {
	value = validation.SanitizeForFormulaInjection(value)
	if strings.Contains(value, ",") {
		return `"` + value + `"`
	}
	return value
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
