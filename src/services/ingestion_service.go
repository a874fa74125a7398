package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/username/mindfolio/backend/src/database"
	"github.com/username/mindfolio/backend/src/extraction"
	"github.com/username/mindfolio/backend/src/logger"
	"github.com/username/mindfolio/backend/src/metrics"
	"github.com/username/mindfolio/backend/src/models"
	"github.com/username/mindfolio/backend/src/parsers"
	"github.com/username/mindfolio/backend/src/security/validation"
	"github.com/username/mindfolio/backend/src/utils"
)

type ingestionServiceImpl struct {
	normalizer     *parsers.TradeNormalizer
	extractor      extraction.TextExtractor
	analysisClient AnalysisClient
	engine         *metrics.Engine
	tradingData    TradingDataService
	maxUploadBytes int64
	reportCache    *cache.Cache
}

func NewIngestionService(
	normalizer *parsers.TradeNormalizer,
	extractor extraction.TextExtractor,
	analysisClient AnalysisClient,
	engine *metrics.Engine,
	tradingData TradingDataService,
	maxUploadBytes int64,
	reportCache *cache.Cache,
) IngestionService {
	return &ingestionServiceImpl{
		normalizer:     normalizer,
		extractor:      extractor,
		analysisClient: analysisClient,
		engine:         engine,
		tradingData:    tradingData,
		maxUploadBytes: maxUploadBytes,
		reportCache:    reportCache,
	}
}

// ProcessUpload runs one statement through the full ingestion flow:
// validate, create the statement record, branch on file kind, persist,
// trigger best-effort analysis and update the statement status. Failures
// after the record exists mark it failed with a message and leave it
// queryable for audit; nothing is retried automatically.
func (s *ingestionServiceImpl) ProcessUpload(ctx context.Context, userID int64, input UploadInput) (*IngestResult, error) {
	startTime := time.Now()
	logger.L.Info("ProcessUpload START", "userID", userID, "filename", input.Filename, "size", input.Size)

	kind, err := validation.ClassifyUploadFile(input.Filename, input.ContentType)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateFileSize(input.Size, s.maxUploadBytes); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(input.Reader, s.maxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: could not read upload: %v", ErrParsingFailed, err)
	}
	if int64(len(data)) > s.maxUploadBytes {
		return nil, fmt.Errorf("%w: file size must be less than %d MB",
			validation.ErrValidationFailed, s.maxUploadBytes/(1024*1024))
	}

	// Early content checks happen before any statement record exists, so
	// a rejected file leaves no partial state behind.
	switch kind {
	case validation.FileKindCSV:
		if err := validation.ValidateCSVMinRows(string(data)); err != nil {
			return nil, err
		}
	case validation.FileKindPDF:
		if err := validation.ValidatePDFMagicBytes(data); err != nil {
			return nil, err
		}
	}

	statementID := uuid.NewString()
	if err := s.createStatement(statementID, userID, input, string(kind)); err != nil {
		return nil, err
	}
	s.setStatementStatus(statementID, models.StatusProcessing, "")

	var result *IngestResult
	switch kind {
	case validation.FileKindPDF:
		result, err = s.ingestPDF(ctx, userID, statementID, data)
	default:
		result, err = s.ingestCSV(ctx, userID, statementID, string(data))
	}
	if err != nil {
		s.setStatementStatus(statementID, models.StatusFailed, err.Error())
		return nil, err
	}

	s.setStatementStatus(statementID, models.StatusCompleted, "")
	s.markProfileUploaded(userID)
	s.tradingData.InvalidateUserCache(userID)

	logger.L.Info("ProcessUpload END", "userID", userID, "statementID", statementID,
		"fileKind", kind, "duration", time.Since(startTime))
	return result, nil
}

// ingestCSV tokenizes and normalizes the file, persists the resulting
// trades and asks the remote collaborator for an analysis, falling back to
// a locally computed summary when it is absent or failing.
func (s *ingestionServiceImpl) ingestCSV(ctx context.Context, userID int64, statementID, text string) (*IngestResult, error) {
	tokenized := parsers.Tokenize(text)
	trades, diag := s.normalizer.MapRows(tokenized)
	logger.L.Info("CSV normalized", "statementID", statementID, "trades", len(trades),
		"droppedRows", diag.DroppedRows, "dateFallbacks", diag.DateFallbacks)

	if len(trades) == 0 {
		return nil, fmt.Errorf("%w. Detected columns: %s. Required columns: %s. Please check your CSV for correct column names",
			ErrNoTrades,
			strings.Join(diag.Headers, ", "),
			strings.Join(parsers.RequiredFieldNames, ", "))
	}

	if err := s.insertTrades(userID, statementID, trades); err != nil {
		return nil, err
	}

	analysis, err := s.analysisClient.Analyze(ctx, userID, statementID)
	analysisType := "comprehensive"
	if err != nil || analysis == nil {
		logger.L.Warn("Remote analysis unavailable, using local summary",
			"statementID", statementID, "error", err)
		analysis = s.localSummary(trades)
		analysisType = "local_summary"
	}
	s.saveAnalysis(userID, statementID, analysisType, analysis)

	return &IngestResult{
		StatementID: statementID,
		FileKind:    validation.FileKindCSV,
		TradeCount:  len(trades),
		Analysis:    analysis,
		Insights:    analysis.Insights,
		Diagnostics: &diag,
	}, nil
}

// ingestPDF delegates to the extraction collaborator and persists the raw
// lines. The three failure shapes map to three distinct errors because
// they mean different things to the user: engine broken, scanned image, or
// blank export.
func (s *ingestionServiceImpl) ingestPDF(ctx context.Context, userID int64, statementID string, data []byte) (*IngestResult, error) {
	lines, err := s.extractor.ExtractTextLines(ctx, data)
	if err != nil || lines == nil {
		logger.L.Error("PDF extraction subsystem failure", "statementID", statementID, "error", err)
		return nil, fmt.Errorf("%w: the PDF engine could not process this file", ErrExtractionFailed)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w. Check if it's scanned or export a fresh copy", ErrNoReadableText)
	}
	allBlank := true
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			allBlank = false
			break
		}
	}
	if allBlank {
		return nil, fmt.Errorf("%w. Try a new export", ErrWhitespaceOnlyText)
	}

	payload, err := json.Marshal(map[string]interface{}{
		"raw_text":    lines,
		"total_lines": len(lines),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	if err := s.insertAnalysisRow(userID, statementID, "pdf_raw_text", string(payload)); err != nil {
		return nil, err
	}

	return &IngestResult{
		StatementID: statementID,
		FileKind:    validation.FileKindPDF,
		RawText:     lines,
		TotalLines:  len(lines),
		Insights: []string{
			fmt.Sprintf("Extracted %d lines of text from your PDF.", len(lines)),
			"No structured trade parsing applied. Please analyze lines manually.",
		},
	}, nil
}

func (s *ingestionServiceImpl) createStatement(statementID string, userID int64, input UploadInput, fileKind string) error {
	_, err := database.DB.Exec(
		`INSERT INTO uploaded_statements (id, user_id, filename, file_size, file_type, processing_status) VALUES (?, ?, ?, ?, ?, ?)`,
		statementID, userID, input.Filename, input.Size, fileKind, models.StatusPending)
	if err != nil {
		logger.L.Error("Failed to create statement record", "userID", userID, "error", err)
		return fmt.Errorf("%w: could not create statement record", ErrPersistenceFailed)
	}
	return nil
}

// setStatementStatus is best-effort: a failed status write is logged, not
// surfaced, so it cannot mask the error that caused it.
func (s *ingestionServiceImpl) setStatementStatus(statementID, status, errorMessage string) {
	_, err := database.DB.Exec(
		`UPDATE uploaded_statements SET processing_status = ?, error_message = ? WHERE id = ?`,
		status, nullableString(errorMessage), statementID)
	if err != nil {
		logger.L.Error("Failed to update statement status", "statementID", statementID,
			"status", status, "error", err)
	}
}

func (s *ingestionServiceImpl) insertTrades(userID int64, statementID string, trades []models.Trade) error {
	dbTx, err := database.DB.Begin()
	if err != nil {
		return fmt.Errorf("%w: error beginning database transaction: %v", ErrPersistenceFailed, err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.Prepare(`INSERT INTO trades (user_id, statement_id, trade_date, symbol, action, volume, price, profit, emotion, confidence, hash_id) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: error preparing insert statement: %v", ErrPersistenceFailed, err)
	}
	defer stmt.Close()

	for _, t := range trades {
		_, err := stmt.Exec(userID, statementID, t.Date.Format(time.RFC3339), t.Symbol, t.Action,
			t.Volume, t.Price, t.Profit, t.Emotion, t.Confidence, tradeHash(userID, t))
		if err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "unique constraint failed") {
				return fmt.Errorf("%w: these trades appear to have been uploaded already", ErrDuplicateEntry)
			}
			return fmt.Errorf("%w: error inserting trade (symbol %s): %v", ErrPersistenceFailed, t.Symbol, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("%w: error committing trades: %v", ErrPersistenceFailed, err)
	}
	return nil
}

func (s *ingestionServiceImpl) saveAnalysis(userID int64, statementID, analysisType string, analysis *models.BehavioralMetrics) {
	payload, err := json.Marshal(analysis)
	if err != nil {
		logger.L.Error("Failed to marshal analysis payload", "statementID", statementID, "error", err)
		return
	}
	if err := s.insertAnalysisRow(userID, statementID, analysisType, string(payload)); err != nil {
		// Analysis persistence is best-effort, like the analysis itself.
		logger.L.Warn("Failed to persist analysis", "statementID", statementID, "error", err)
	}
}

func (s *ingestionServiceImpl) insertAnalysisRow(userID int64, statementID, analysisType, payload string) error {
	_, err := database.DB.Exec(
		`INSERT INTO trading_analysis (user_id, statement_id, analysis_type, analysis_data) VALUES (?, ?, ?, ?)`,
		userID, statementID, analysisType, payload)
	if err != nil {
		return fmt.Errorf("%w: error saving analysis: %v", ErrPersistenceFailed, err)
	}
	return nil
}

// localSummary is the minimal fallback when the remote analysis
// collaborator is absent or failing.
func (s *ingestionServiceImpl) localSummary(trades []models.Trade) *models.BehavioralMetrics {
	wins := 0
	for _, t := range trades {
		if t.Profit > 0 {
			wins++
		}
	}
	winRate := 0.0
	if len(trades) > 0 {
		winRate = float64(wins) / float64(len(trades)) * 100
	}
	return &models.BehavioralMetrics{
		TotalTrades: len(trades),
		WinRate:     utils.RoundFloat(winRate, 0),
		Insights:    []string{"Analysis completed successfully"},
	}
}

func (s *ingestionServiceImpl) markProfileUploaded(userID int64) {
	_, err := database.DB.Exec(`INSERT INTO profiles (user_id, has_uploaded_statement) VALUES (?, TRUE)
		ON CONFLICT(user_id) DO UPDATE SET has_uploaded_statement = TRUE, updated_at = CURRENT_TIMESTAMP`, userID)
	if err != nil {
		logger.L.Error("Failed to mark profile as having uploaded a statement", "userID", userID, "error", err)
	}
}

// tradeHash fingerprints a trade's content for the per-user uniqueness
// constraint, so re-uploading the same statement is caught as a duplicate.
func tradeHash(userID int64, t models.Trade) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d|%s|%s|%s|%g|%g|%g", userID, t.Date.Format(time.RFC3339), t.Symbol, t.Action, t.Volume, t.Price, t.Profit)
	return hex.EncodeToString(h.Sum(nil))
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
