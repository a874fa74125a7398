package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/username/mindfolio/backend/src/logger"
	"github.com/username/mindfolio/backend/src/models"
)

// httpAnalysisClient calls the remote analysis function with a statement
// id and decodes the returned metrics. Every failure path returns an error
// the ingestion service treats as non-fatal.
type httpAnalysisClient struct {
	baseURL    string
	httpClient http.Client
}

func NewAnalysisClient(baseURL string, timeout time.Duration) AnalysisClient {
	return &httpAnalysisClient{
		baseURL:    baseURL,
		httpClient: http.Client{Timeout: timeout},
	}
}

func (c *httpAnalysisClient) Analyze(ctx context.Context, userID int64, statementID string) (*models.BehavioralMetrics, error) {
	if c.baseURL == "" {
		return nil, ErrAnalysisUnavailable
	}

	body, err := json.Marshal(map[string]interface{}{
		"statementId": statementID,
		"userId":      userID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnalysisUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnalysisUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnalysisUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: analysis service returned status %d", ErrAnalysisUnavailable, resp.StatusCode)
	}

	var analysis models.BehavioralMetrics
	if err := json.NewDecoder(resp.Body).Decode(&analysis); err != nil {
		return nil, fmt.Errorf("%w: invalid analysis response: %v", ErrAnalysisUnavailable, err)
	}

	logger.L.Debug("Remote analysis received", "statementID", statementID, "totalTrades", analysis.TotalTrades)
	return &analysis, nil
}
