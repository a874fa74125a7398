package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/username/mindfolio/backend/src/logger"
	"github.com/username/mindfolio/backend/src/services"
	"github.com/username/mindfolio/backend/src/utils"
)

type MetricsHandler struct {
	tradingData services.TradingDataService
}

func NewMetricsHandler(tradingData services.TradingDataService) *MetricsHandler {
	return &MetricsHandler{tradingData: tradingData}
}

// HandleGetMetrics returns the behavioral metrics computed from the
// user's persisted trades, served from the report cache when warm.
func (h *MetricsHandler) HandleGetMetrics(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	computed, err := h.tradingData.GetMetrics(userID)
	if err != nil {
		logger.L.Error("Error computing behavioral metrics", "userID", userID, "error", err)
		utils.SendJSONError(w, "Error computing behavioral metrics", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(computed); err != nil {
		logger.L.Error("Error generating JSON response for metrics", "userID", userID, "error", err)
	}
}
