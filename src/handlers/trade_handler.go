package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/username/mindfolio/backend/src/logger"
	"github.com/username/mindfolio/backend/src/models"
	"github.com/username/mindfolio/backend/src/services"
	"github.com/username/mindfolio/backend/src/utils"
)

type TradeHandler struct {
	tradingData   services.TradingDataService
	exportService services.ExportService
}

func NewTradeHandler(tradingData services.TradingDataService, exportService services.ExportService) *TradeHandler {
	return &TradeHandler{
		tradingData:   tradingData,
		exportService: exportService,
	}
}

// HandleGetTrades lists the user's trades newest first, with ETag support
// so the journal view can poll cheaply.
func (h *TradeHandler) HandleGetTrades(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	trades, err := h.tradingData.GetTrades(userID)
	if err != nil {
		logger.L.Error("Error retrieving trades", "userID", userID, "error", err)
		utils.SendJSONError(w, "Error retrieving trades", http.StatusInternalServerError)
		return
	}
	if trades == nil {
		trades = []models.Trade{}
	}

	w.Header().Set("Cache-Control", "no-cache, private")
	if etag, etagErr := utils.GenerateETag(trades); etagErr == nil && etag != "" {
		quotedETag := fmt.Sprintf("\"%s\"", etag)
		w.Header().Set("ETag", quotedETag)
		for _, clientETag := range strings.Split(r.Header.Get("If-None-Match"), ",") {
			if strings.TrimSpace(clientETag) == quotedETag {
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(trades); err != nil {
		logger.L.Error("Error generating JSON response for trades", "userID", userID, "error", err)
	}
}

func (h *TradeHandler) HandleDeleteAllTrades(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	if err := h.tradingData.DeleteAllTrades(userID); err != nil {
		logger.L.Error("Error deleting trades", "userID", userID, "error", err)
		utils.SendJSONError(w, "Error deleting trades", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "all trades deleted"})
}

// HandleUpdateTradeNotes saves a journal note on one trade.
func (h *TradeHandler) HandleUpdateTradeNotes(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	tradeID, err := strconv.ParseInt(chi.URLParam(r, "tradeID"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, "Invalid trade id", http.StatusBadRequest)
		return
	}

	var body struct {
		Notes string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.tradingData.UpdateTradeNotes(userID, tradeID, body.Notes); err != nil {
		logger.L.Warn("Error updating trade notes", "userID", userID, "tradeID", tradeID, "error", err)
		utils.SendJSONError(w, "Trade not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "notes updated"})
}

// HandleExport streams the user's trades as a JSON or CSV download.
func (h *TradeHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	format := r.URL.Query().Get("format")
	data, filename, contentType, err := h.exportService.ExportTrades(userID, format)
	if err != nil {
		logger.L.Error("Error exporting trades", "userID", userID, "format", format, "error", err)
		utils.SendJSONError(w, "Failed to export data", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logger.L.Error("Error writing export response", "userID", userID, "error", err)
	}
}
