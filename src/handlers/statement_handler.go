package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/username/mindfolio/backend/src/logger"
	"github.com/username/mindfolio/backend/src/models"
	"github.com/username/mindfolio/backend/src/services"
	"github.com/username/mindfolio/backend/src/utils"
)

type StatementHandler struct {
	tradingData services.TradingDataService
}

func NewStatementHandler(tradingData services.TradingDataService) *StatementHandler {
	return &StatementHandler{tradingData: tradingData}
}

// HandleGetStatements lists the user's uploaded statements newest first,
// including failed ones, which stay queryable for audit.
func (h *StatementHandler) HandleGetStatements(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	statements, err := h.tradingData.GetStatements(userID)
	if err != nil {
		logger.L.Error("Error retrieving statements", "userID", userID, "error", err)
		utils.SendJSONError(w, "Error retrieving uploaded statements", http.StatusInternalServerError)
		return
	}
	if statements == nil {
		statements = []models.UploadedStatement{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(statements); err != nil {
		logger.L.Error("Error generating JSON response for statements", "userID", userID, "error", err)
	}
}
