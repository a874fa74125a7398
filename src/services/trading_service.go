package services

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/mindfolio/backend/src/database"
	"github.com/username/mindfolio/backend/src/logger"
	"github.com/username/mindfolio/backend/src/metrics"
	"github.com/username/mindfolio/backend/src/models"
)

const (
	ckUserMetrics = "agg_behavioral_metrics_user_%d"
)

type tradingDataServiceImpl struct {
	engine      *metrics.Engine
	reportCache *cache.Cache
	cacheExpiry time.Duration
}

func NewTradingDataService(engine *metrics.Engine, reportCache *cache.Cache, cacheExpiry time.Duration) TradingDataService {
	return &tradingDataServiceImpl{
		engine:      engine,
		reportCache: reportCache,
		cacheExpiry: cacheExpiry,
	}
}

// GetTrades returns the user's trades, newest first.
func (s *tradingDataServiceImpl) GetTrades(userID int64) ([]models.Trade, error) {
	rows, err := database.DB.Query(`SELECT id, user_id, statement_id, trade_date, symbol, action, volume, price, profit, emotion, confidence, notes
		FROM trades WHERE user_id = ? ORDER BY trade_date DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying trades for userID %d: %w", userID, err)
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		trade, scanErr := scanTrade(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("error scanning trade row for userID %d: %w", userID, scanErr)
		}
		trades = append(trades, trade)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over trade rows for userID %d: %w", userID, err)
	}
	logger.L.Debug("DB trade fetch complete", "userID", userID, "tradeCount", len(trades))
	return trades, nil
}

// GetMetrics computes behavioral metrics from the user's persisted trades,
// cached until the next upload invalidates it.
func (s *tradingDataServiceImpl) GetMetrics(userID int64) (models.BehavioralMetrics, error) {
	cacheKey := fmt.Sprintf(ckUserMetrics, userID)
	if cached, found := s.reportCache.Get(cacheKey); found {
		logger.L.Debug("Cache hit for behavioral metrics", "userID", userID)
		return cached.(models.BehavioralMetrics), nil
	}

	trades, err := s.GetTrades(userID)
	if err != nil {
		return models.BehavioralMetrics{}, err
	}

	computed := s.engine.Compute(trades)
	s.reportCache.Set(cacheKey, computed, s.cacheExpiry)
	logger.L.Info("Computed behavioral metrics", "userID", userID, "totalTrades", computed.TotalTrades)
	return computed, nil
}

func (s *tradingDataServiceImpl) GetStatements(userID int64) ([]models.UploadedStatement, error) {
	rows, err := database.DB.Query(`SELECT id, user_id, filename, file_size, file_type, processing_status, error_message, upload_date
		FROM uploaded_statements WHERE user_id = ? ORDER BY upload_date DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying statements for userID %d: %w", userID, err)
	}
	defer rows.Close()

	var statements []models.UploadedStatement
	for rows.Next() {
		var st models.UploadedStatement
		var errorMessage sql.NullString
		var uploadDate string
		if scanErr := rows.Scan(&st.ID, &st.UserID, &st.Filename, &st.FileSize, &st.FileType,
			&st.ProcessingStatus, &errorMessage, &uploadDate); scanErr != nil {
			return nil, fmt.Errorf("error scanning statement row for userID %d: %w", userID, scanErr)
		}
		st.ErrorMessage = errorMessage.String
		st.UploadDate = parseStoredTimestamp(uploadDate)
		statements = append(statements, st)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over statement rows for userID %d: %w", userID, err)
	}
	return statements, nil
}

func (s *tradingDataServiceImpl) DeleteAllTrades(userID int64) error {
	_, err := database.DB.Exec(`DELETE FROM trades WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("error deleting trades for userID %d: %w", userID, err)
	}
	s.InvalidateUserCache(userID)
	logger.L.Info("Deleted all trades", "userID", userID)
	return nil
}

func (s *tradingDataServiceImpl) UpdateTradeNotes(userID, tradeID int64, notes string) error {
	res, err := database.DB.Exec(`UPDATE trades SET notes = ? WHERE id = ? AND user_id = ?`, notes, tradeID, userID)
	if err != nil {
		return fmt.Errorf("error updating notes for trade %d: %w", tradeID, err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("trade %d not found for userID %d", tradeID, userID)
	}
	return nil
}

func (s *tradingDataServiceImpl) GetProfile(userID int64) (models.Profile, error) {
	var p models.Profile
	err := database.DB.QueryRow(`SELECT user_id, email, name, has_completed_questionnaire, has_uploaded_statement
		FROM profiles WHERE user_id = ?`, userID).
		Scan(&p.UserID, &p.Email, &p.Name, &p.HasCompletedQuestionnaire, &p.HasUploadedStatement)
	if err == sql.ErrNoRows {
		// A user without a profile row yet simply has the default flags.
		return models.Profile{UserID: userID}, nil
	}
	if err != nil {
		return models.Profile{}, fmt.Errorf("error querying profile for userID %d: %w", userID, err)
	}
	return p, nil
}

func (s *tradingDataServiceImpl) SaveQuestionnaire(userID int64, responses json.RawMessage) error {
	_, err := database.DB.Exec(`INSERT INTO questionnaire_responses (user_id, responses, completed_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id) DO UPDATE SET responses = excluded.responses, completed_at = CURRENT_TIMESTAMP`,
		userID, string(responses))
	if err != nil {
		return fmt.Errorf("error saving questionnaire for userID %d: %w", userID, err)
	}

	_, err = database.DB.Exec(`INSERT INTO profiles (user_id, has_completed_questionnaire) VALUES (?, TRUE)
		ON CONFLICT(user_id) DO UPDATE SET has_completed_questionnaire = TRUE, updated_at = CURRENT_TIMESTAMP`, userID)
	if err != nil {
		logger.L.Error("Failed to mark profile questionnaire flag", "userID", userID, "error", err)
	}
	return nil
}

func (s *tradingDataServiceImpl) GetQuestionnaire(userID int64) (*models.QuestionnaireResponse, error) {
	var q models.QuestionnaireResponse
	var completedAt string
	err := database.DB.QueryRow(`SELECT user_id, responses, completed_at FROM questionnaire_responses WHERE user_id = ?`, userID).
		Scan(&q.UserID, &q.Responses, &completedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error querying questionnaire for userID %d: %w", userID, err)
	}
	q.CompletedAt = parseStoredTimestamp(completedAt)
	return &q, nil
}

// InvalidateUserCache clears the user's cached aggregates so the next read
// recomputes from the store.
func (s *tradingDataServiceImpl) InvalidateUserCache(userID int64) {
	s.reportCache.Delete(fmt.Sprintf(ckUserMetrics, userID))
	logger.L.Info("Invalidated metrics cache for user", "userID", userID)
}

func scanTrade(rows *sql.Rows) (models.Trade, error) {
	var t models.Trade
	var statementID sql.NullString
	var emotion sql.NullString
	var notes sql.NullString
	var tradeDate string
	err := rows.Scan(&t.ID, &t.UserID, &statementID, &tradeDate, &t.Symbol, &t.Action,
		&t.Volume, &t.Price, &t.Profit, &emotion, &t.Confidence, &notes)
	if err != nil {
		return models.Trade{}, err
	}
	t.StatementID = statementID.String
	t.Emotion = emotion.String
	t.Notes = notes.String
	t.Date = parseStoredTimestamp(tradeDate)
	return t, nil
}

// parseStoredTimestamp reads the formats sqlite hands back: RFC3339 for
// values we wrote ourselves, the CURRENT_TIMESTAMP format for defaults.
func parseStoredTimestamp(value string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05Z07:00"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	logger.L.Warn("Unparseable stored timestamp", "value", value)
	return time.Time{}
}
