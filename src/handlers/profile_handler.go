package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/username/mindfolio/backend/src/logger"
	"github.com/username/mindfolio/backend/src/services"
	"github.com/username/mindfolio/backend/src/utils"
)

// Questionnaire payloads are free-form but bounded.
const maxQuestionnaireBytes = 64 * 1024

type ProfileHandler struct {
	tradingData services.TradingDataService
}

func NewProfileHandler(tradingData services.TradingDataService) *ProfileHandler {
	return &ProfileHandler{tradingData: tradingData}
}

func (h *ProfileHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	profile, err := h.tradingData.GetProfile(userID)
	if err != nil {
		logger.L.Error("Error retrieving profile", "userID", userID, "error", err)
		utils.SendJSONError(w, "Error retrieving profile", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(profile); err != nil {
		logger.L.Error("Error generating JSON response for profile", "userID", userID, "error", err)
	}
}

// HandleSaveQuestionnaire stores the psychological-profile answers as an
// opaque JSON document and flips the profile's completion flag.
func (h *ProfileHandler) HandleSaveQuestionnaire(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxQuestionnaireBytes+1))
	if err != nil || len(body) == 0 || len(body) > maxQuestionnaireBytes {
		utils.SendJSONError(w, "Invalid or oversized questionnaire payload", http.StatusBadRequest)
		return
	}
	if !json.Valid(body) {
		utils.SendJSONError(w, "Questionnaire payload must be valid JSON", http.StatusBadRequest)
		return
	}

	if err := h.tradingData.SaveQuestionnaire(userID, body); err != nil {
		logger.L.Error("Error saving questionnaire", "userID", userID, "error", err)
		utils.SendJSONError(w, "Error saving questionnaire", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "questionnaire saved"})
}

func (h *ProfileHandler) HandleGetQuestionnaire(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	questionnaire, err := h.tradingData.GetQuestionnaire(userID)
	if err != nil {
		logger.L.Error("Error retrieving questionnaire", "userID", userID, "error", err)
		utils.SendJSONError(w, "Error retrieving questionnaire", http.StatusInternalServerError)
		return
	}
	if questionnaire == nil {
		utils.SendJSONError(w, "No questionnaire responses found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(questionnaire); err != nil {
		logger.L.Error("Error generating JSON response for questionnaire", "userID", userID, "error", err)
	}
}
