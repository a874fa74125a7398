package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/username/mindfolio/backend/src/config"
	"github.com/username/mindfolio/backend/src/logger"
	"github.com/username/mindfolio/backend/src/security/validation"
	"github.com/username/mindfolio/backend/src/services"
	"github.com/username/mindfolio/backend/src/utils"
)

type UploadHandler struct {
	ingestionService services.IngestionService
}

func NewUploadHandler(service services.IngestionService) *UploadHandler {
	return &UploadHandler{ingestionService: service}
}

// HandleUpload ingests one statement file from a multipart form. Errors
// from the pipeline are classified into short user-facing messages; the
// full error only goes to the log.
func (h *UploadHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(config.Cfg.MaxUploadSizeBytes); err != nil {
		logger.L.Warn("Failed to parse multipart form or request too large", "userID", userID, "error", err, "limit", config.Cfg.MaxUploadSizeBytes)
		utils.SendJSONError(w, fmt.Sprintf("Failed to parse form or request too large (max %d MB)", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		logger.L.Warn("Failed to retrieve file from request", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to retrieve file from request. Ensure 'file' field is used.", http.StatusBadRequest)
		return
	}
	defer file.Close()

	logger.L.Info("Processing upload request", "userID", userID, "filename", fileHeader.Filename)
	result, err := h.ingestionService.ProcessUpload(r.Context(), userID, services.UploadInput{
		Filename:    fileHeader.Filename,
		Size:        fileHeader.Size,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Reader:      file,
	})
	if err != nil {
		h.sendUploadError(w, userID, fileHeader.Filename, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		logger.L.Error("Error encoding JSON response for upload result", "userID", userID, "error", err)
	}
}

func (h *UploadHandler) sendUploadError(w http.ResponseWriter, userID int64, filename string, err error) {
	switch {
	case errors.Is(err, validation.ErrValidationFailed):
		logger.L.Warn("Upload rejected by validation", "userID", userID, "filename", filename, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrNoTrades):
		logger.L.Warn("Upload produced no trades", "userID", userID, "filename", filename, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrParsingFailed):
		logger.L.Warn("Upload failed during CSV parsing", "userID", userID, "filename", filename, "error", err)
		utils.SendJSONError(w, fmt.Sprintf("Error parsing CSV file: %v", err), http.StatusBadRequest)
	case errors.Is(err, services.ErrExtractionFailed),
		errors.Is(err, services.ErrNoReadableText),
		errors.Is(err, services.ErrWhitespaceOnlyText):
		logger.L.Warn("Upload failed during PDF extraction", "userID", userID, "filename", filename, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, services.ErrDuplicateEntry):
		logger.L.Warn("Upload rejected as duplicate", "userID", userID, "filename", filename, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, services.ErrPersistenceFailed):
		logger.L.Error("Upload failed to persist", "userID", userID, "filename", filename, "error", err)
		utils.SendJSONError(w, "Failed to save your statement. Please try again later.", http.StatusInternalServerError)
	default:
		logger.L.Error("Internal error processing upload", "userID", userID, "filename", filename, "error", err)
		utils.SendJSONError(w, "An internal error occurred while processing the file. Please try again later.", http.StatusInternalServerError)
	}
}
