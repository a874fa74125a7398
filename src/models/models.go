package models

import "time"

// Trade action values. Every normalized trade is classified as one of the
// two; there is no "unknown" action.
const (
	ActionBuy  = "buy"
	ActionSell = "sell"
)

// Emotion tags derived from the sign of a trade's profit.
const (
	EmotionConfident  = "confident"
	EmotionFrustrated = "frustrated"
	EmotionNeutral    = "neutral"
)

// Statement processing statuses.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Trade is one normalized buy/sell event derived from a statement row.
type Trade struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	StatementID string    `json:"statement_id,omitempty"`
	Date        time.Time `json:"trade_date"`
	Symbol      string    `json:"symbol"`
	Action      string    `json:"action"`
	Volume      float64   `json:"volume"`
	Price       float64   `json:"price"`
	Profit      float64   `json:"profit"`
	Emotion     string    `json:"emotion,omitempty"`
	Confidence  float64   `json:"confidence"`
	Notes       string    `json:"notes,omitempty"`
}

// UploadedStatement is one uploaded broker export file and its processing
// record. It is owned and mutated only by the ingestion service.
type UploadedStatement struct {
	ID               string    `json:"id"`
	UserID           int64     `json:"user_id"`
	Filename         string    `json:"filename"`
	FileSize         int64     `json:"file_size"`
	FileType         string    `json:"file_type"`
	ProcessingStatus string    `json:"processing_status"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	UploadDate       time.Time `json:"upload_date"`
}

// Profile is the per-user record kept alongside the external identity
// provider's account.
type Profile struct {
	UserID                    int64  `json:"user_id"`
	Email                     string `json:"email"`
	Name                      string `json:"name"`
	HasCompletedQuestionnaire bool   `json:"has_completed_questionnaire"`
	HasUploadedStatement      bool   `json:"has_uploaded_statement"`
}

// TradingAnalysis is a stored analysis result for a statement, either the
// remote collaborator's output or the local fallback summary.
type TradingAnalysis struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	StatementID  string    `json:"statement_id,omitempty"`
	AnalysisType string    `json:"analysis_type"`
	AnalysisData string    `json:"analysis_data"` // JSON payload, stored verbatim
	CreatedAt    time.Time `json:"created_at"`
}

// QuestionnaireResponse holds a user's psychological-profile answers as a
// free-form JSON document.
type QuestionnaireResponse struct {
	UserID      int64     `json:"user_id"`
	Responses   string    `json:"responses"` // JSON payload
	CompletedAt time.Time `json:"completed_at"`
}
