package services

import (
	"context"
	"encoding/json"
	"io"

	"github.com/username/mindfolio/backend/src/models"
	"github.com/username/mindfolio/backend/src/parsers"
	"github.com/username/mindfolio/backend/src/security/validation"
)

// UploadInput carries one file upload into the ingestion pipeline. The
// owner id is passed explicitly; the pipeline holds no session state.
type UploadInput struct {
	Filename    string
	Size        int64
	ContentType string
	Reader      io.Reader
}

// IngestResult is what a completed ingestion reports back to the caller.
type IngestResult struct {
	StatementID string                     `json:"statementId"`
	FileKind    validation.FileKind        `json:"fileKind"`
	TradeCount  int                        `json:"tradeCount"`
	Analysis    *models.BehavioralMetrics  `json:"analysis,omitempty"`
	RawText     []string                   `json:"rawText,omitempty"`
	TotalLines  int                        `json:"totalLines,omitempty"`
	Insights    []string                   `json:"insights,omitempty"`
	Diagnostics *parsers.Diagnostics       `json:"diagnostics,omitempty"`
}

// IngestionService is the statement ingestion orchestrator.
type IngestionService interface {
	ProcessUpload(ctx context.Context, userID int64, input UploadInput) (*IngestResult, error)
}

// AnalysisClient is the remote analysis collaborator. Absence or failure
// must never abort an ingestion; callers fall back to a local summary.
type AnalysisClient interface {
	Analyze(ctx context.Context, userID int64, statementID string) (*models.BehavioralMetrics, error)
}

// TradingDataService serves persisted trades and everything derived from
// them.
type TradingDataService interface {
	GetTrades(userID int64) ([]models.Trade, error)
	GetMetrics(userID int64) (models.BehavioralMetrics, error)
	GetStatements(userID int64) ([]models.UploadedStatement, error)
	DeleteAllTrades(userID int64) error
	UpdateTradeNotes(userID, tradeID int64, notes string) error

	GetProfile(userID int64) (models.Profile, error)
	SaveQuestionnaire(userID int64, responses json.RawMessage) error
	GetQuestionnaire(userID int64) (*models.QuestionnaireResponse, error)

	InvalidateUserCache(userID int64)
}

// ExportService serializes a user's trades for download.
type ExportService interface {
	ExportTrades(userID int64, format string) (data []byte, filename string, contentType string, err error)
}
