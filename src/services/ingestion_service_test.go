package services

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/mindfolio/backend/src/database"
	"github.com/username/mindfolio/backend/src/logger"
	"github.com/username/mindfolio/backend/src/metrics"
	"github.com/username/mindfolio/backend/src/models"
	"github.com/username/mindfolio/backend/src/parsers"
	"github.com/username/mindfolio/backend/src/security/validation"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	database.InitDB(":memory:")
	// The pool must stay on one connection or each new connection would see
	// its own empty in-memory database.
	database.DB.SetMaxOpenConns(1)
	os.Exit(m.Run())
}

type stubAnalysisClient struct {
	analysis *models.BehavioralMetrics
	err      error
}

func (s *stubAnalysisClient) Analyze(ctx context.Context, userID int64, statementID string) (*models.BehavioralMetrics, error) {
	return s.analysis, s.err
}

type stubExtractor struct {
	lines []string
	err   error
}

func (s *stubExtractor) ExtractTextLines(ctx context.Context, data []byte) ([]string, error) {
	return s.lines, s.err
}

func newTestIngestion(t *testing.T, extractor *stubExtractor, analysis *stubAnalysisClient) (IngestionService, TradingDataService) {
	t.Helper()
	reportCache := cache.New(time.Minute, time.Minute)
	tradingData := NewTradingDataService(metrics.NewEngine(), reportCache, time.Minute)
	svc := NewIngestionService(
		parsers.NewTradeNormalizer(), extractor, analysis,
		metrics.NewEngine(), tradingData, 1024*1024, reportCache,
	)
	return svc, tradingData
}

func csvUpload(text string) UploadInput {
	return UploadInput{
		Filename:    "statement.csv",
		Size:        int64(len(text)),
		ContentType: "text/csv",
		Reader:      strings.NewReader(text),
	}
}

const sampleCSV = "Date,Symbol,Type,Volume,Price,Profit\n" +
	"2024-03-01 10:00:00,EURUSD,buy,1,1.1,50\n" +
	"2024-03-01 11:00:00,EURUSD,sell,1,1.2,-20\n"

func TestProcessUploadCSVEndToEnd(t *testing.T) {
	const userID = 101
	svc, tradingData := newTestIngestion(t,
		&stubExtractor{},
		&stubAnalysisClient{err: ErrAnalysisUnavailable})

	result, err := svc.ProcessUpload(context.Background(), userID, csvUpload(sampleCSV))
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if result.FileKind != validation.FileKindCSV || result.TradeCount != 2 {
		t.Errorf("unexpected result: %+v", result)
	}
	if result.Analysis == nil || result.Analysis.WinRate != 50 {
		t.Errorf("local summary expected with 50%% win rate, got %+v", result.Analysis)
	}
	if len(result.Insights) == 0 {
		t.Error("expected fallback insights")
	}
	if result.Diagnostics == nil || result.Diagnostics.TotalRows != 2 {
		t.Errorf("unexpected diagnostics: %+v", result.Diagnostics)
	}

	trades, err := tradingData.GetTrades(userID)
	if err != nil {
		t.Fatalf("GetTrades failed: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("expected 2 persisted trades, got %d", len(trades))
	}
	// Newest first.
	if trades[0].Action != models.ActionSell || trades[1].Action != models.ActionBuy {
		t.Errorf("trade ordering wrong: %q then %q", trades[0].Action, trades[1].Action)
	}

	statements, err := tradingData.GetStatements(userID)
	if err != nil || len(statements) != 1 {
		t.Fatalf("expected 1 statement, got %d (err %v)", len(statements), err)
	}
	if statements[0].ProcessingStatus != models.StatusCompleted {
		t.Errorf("statement status = %q, want %q", statements[0].ProcessingStatus, models.StatusCompleted)
	}

	profile, err := tradingData.GetProfile(userID)
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if !profile.HasUploadedStatement {
		t.Error("profile upload flag not set")
	}
}

func TestProcessUploadDuplicateTrades(t *testing.T) {
	const userID = 102
	svc, tradingData := newTestIngestion(t,
		&stubExtractor{},
		&stubAnalysisClient{err: ErrAnalysisUnavailable})

	if _, err := svc.ProcessUpload(context.Background(), userID, csvUpload(sampleCSV)); err != nil {
		t.Fatalf("first upload failed: %v", err)
	}
	_, err := svc.ProcessUpload(context.Background(), userID, csvUpload(sampleCSV))
	if !errors.Is(err, ErrDuplicateEntry) {
		t.Fatalf("expected duplicate error on re-upload, got %v", err)
	}

	statements, _ := tradingData.GetStatements(userID)
	if len(statements) != 2 {
		t.Fatalf("expected 2 statement records, got %d", len(statements))
	}
	var failed *models.UploadedStatement
	for i := range statements {
		if statements[i].ProcessingStatus == models.StatusFailed {
			failed = &statements[i]
		}
	}
	if failed == nil {
		t.Fatalf("no failed statement recorded for the retry: %+v", statements)
	}
	if failed.ErrorMessage == "" {
		t.Error("failed statement should carry an error message")
	}
}

func TestProcessUploadNoMappableColumns(t *testing.T) {
	const userID = 103
	svc, tradingData := newTestIngestion(t,
		&stubExtractor{},
		&stubAnalysisClient{err: ErrAnalysisUnavailable})

	text := "Foo,Bar\n1,2\n"
	_, err := svc.ProcessUpload(context.Background(), userID, csvUpload(text))
	if !errors.Is(err, ErrNoTrades) {
		t.Fatalf("expected no-trades error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Foo, Bar") {
		t.Errorf("error should list detected columns: %v", err)
	}
	if !strings.Contains(err.Error(), "Date, Symbol, Action, Volume, Price") {
		t.Errorf("error should list required columns: %v", err)
	}

	statements, _ := tradingData.GetStatements(userID)
	if len(statements) != 1 || statements[0].ProcessingStatus != models.StatusFailed {
		t.Errorf("statement should exist and be failed: %+v", statements)
	}
}

func TestProcessUploadHeaderOnlyCSV(t *testing.T) {
	const userID = 104
	svc, tradingData := newTestIngestion(t,
		&stubExtractor{},
		&stubAnalysisClient{err: ErrAnalysisUnavailable})

	_, err := svc.ProcessUpload(context.Background(), userID, csvUpload("Date,Symbol\n"))
	if !errors.Is(err, validation.ErrValidationFailed) {
		t.Fatalf("expected validation error, got %v", err)
	}

	// Rejected before any statement record exists.
	statements, _ := tradingData.GetStatements(userID)
	if len(statements) != 0 {
		t.Errorf("header-only CSV must not leave a statement record: %+v", statements)
	}
}

func TestProcessUploadOversized(t *testing.T) {
	const userID = 105
	reportCache := cache.New(time.Minute, time.Minute)
	tradingData := NewTradingDataService(metrics.NewEngine(), reportCache, time.Minute)
	svc := NewIngestionService(
		parsers.NewTradeNormalizer(), &stubExtractor{},
		&stubAnalysisClient{err: ErrAnalysisUnavailable},
		metrics.NewEngine(), tradingData, 16, reportCache,
	)

	_, err := svc.ProcessUpload(context.Background(), userID, csvUpload(sampleCSV))
	if !errors.Is(err, validation.ErrValidationFailed) {
		t.Fatalf("expected size validation error, got %v", err)
	}
}

func TestProcessUploadRejectsUnknownType(t *testing.T) {
	svc, _ := newTestIngestion(t,
		&stubExtractor{},
		&stubAnalysisClient{err: ErrAnalysisUnavailable})

	input := UploadInput{
		Filename:    "malware.exe",
		Size:        4,
		ContentType: "application/octet-stream",
		Reader:      strings.NewReader("data"),
	}
	_, err := svc.ProcessUpload(context.Background(), 106, input)
	if !errors.Is(err, validation.ErrValidationFailed) {
		t.Fatalf("expected validation error for unknown type, got %v", err)
	}
}

func pdfUpload(data []byte) UploadInput {
	return UploadInput{
		Filename:    "report.pdf",
		Size:        int64(len(data)),
		ContentType: "application/pdf",
		Reader:      strings.NewReader(string(data)),
	}
}

func TestProcessUploadPDF(t *testing.T) {
	const userID = 107
	svc, tradingData := newTestIngestion(t,
		&stubExtractor{lines: []string{"Statement of Account", "EURUSD buy 1.0"}},
		&stubAnalysisClient{err: ErrAnalysisUnavailable})

	result, err := svc.ProcessUpload(context.Background(), userID, pdfUpload([]byte("%PDF-1.4 content")))
	if err != nil {
		t.Fatalf("PDF upload failed: %v", err)
	}
	if result.FileKind != validation.FileKindPDF || result.TotalLines != 2 {
		t.Errorf("unexpected result: %+v", result)
	}
	if len(result.RawText) != 2 || result.RawText[0] != "Statement of Account" {
		t.Errorf("raw text not returned: %v", result.RawText)
	}

	var analysisType string
	err = database.DB.QueryRow(
		`SELECT analysis_type FROM trading_analysis WHERE user_id = ? AND statement_id = ?`,
		userID, result.StatementID).Scan(&analysisType)
	if err != nil {
		t.Fatalf("analysis row not persisted: %v", err)
	}
	if analysisType != "pdf_raw_text" {
		t.Errorf("analysis_type = %q, want pdf_raw_text", analysisType)
	}

	statements, _ := tradingData.GetStatements(userID)
	if len(statements) != 1 || statements[0].ProcessingStatus != models.StatusCompleted {
		t.Errorf("statement should be completed: %+v", statements)
	}
}

func TestProcessUploadPDFFailureShapes(t *testing.T) {
	cases := []struct {
		name      string
		extractor *stubExtractor
		wantErr   error
	}{
		{"engine failure", &stubExtractor{err: errors.New("boom")}, ErrExtractionFailed},
		{"nil lines", &stubExtractor{lines: nil}, ErrExtractionFailed},
		{"no text", &stubExtractor{lines: []string{}}, ErrNoReadableText},
		{"whitespace only", &stubExtractor{lines: []string{"  ", "\t"}}, ErrWhitespaceOnlyText},
	}

	for i, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			svc, _ := newTestIngestion(t, c.extractor,
				&stubAnalysisClient{err: ErrAnalysisUnavailable})
			userID := int64(200 + i)
			_, err := svc.ProcessUpload(context.Background(), userID, pdfUpload([]byte("%PDF-1.4")))
			if !errors.Is(err, c.wantErr) {
				t.Errorf("got %v, want %v", err, c.wantErr)
			}
		})
	}
}

func TestProcessUploadPDFBadMagicBytes(t *testing.T) {
	svc, tradingData := newTestIngestion(t,
		&stubExtractor{lines: []string{"text"}},
		&stubAnalysisClient{err: ErrAnalysisUnavailable})

	const userID = 108
	_, err := svc.ProcessUpload(context.Background(), userID, pdfUpload([]byte("MZ not a pdf")))
	if !errors.Is(err, validation.ErrValidationFailed) {
		t.Fatalf("expected validation error for bad signature, got %v", err)
	}
	statements, _ := tradingData.GetStatements(userID)
	if len(statements) != 0 {
		t.Errorf("rejected PDF must not leave a statement record: %+v", statements)
	}
}

func TestProcessUploadRemoteAnalysisPreferred(t *testing.T) {
	const userID = 109
	remote := &models.BehavioralMetrics{TotalTrades: 2, WinRate: 50, Insights: []string{"remote insight"}}
	svc, _ := newTestIngestion(t, &stubExtractor{}, &stubAnalysisClient{analysis: remote})

	result, err := svc.ProcessUpload(context.Background(), userID, csvUpload(sampleCSV))
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if result.Analysis != remote {
		t.Error("remote analysis should be used when the collaborator succeeds")
	}
	if len(result.Insights) != 1 || result.Insights[0] != "remote insight" {
		t.Errorf("remote insights not surfaced: %v", result.Insights)
	}

	var analysisType string
	if err := database.DB.QueryRow(
		`SELECT analysis_type FROM trading_analysis WHERE user_id = ?`, userID).Scan(&analysisType); err != nil {
		t.Fatalf("analysis row not persisted: %v", err)
	}
	if analysisType != "comprehensive" {
		t.Errorf("analysis_type = %q, want comprehensive", analysisType)
	}
}

func TestTradeNotesReadBackAfterUpdate(t *testing.T) {
	const userID = 111
	svc, tradingData := newTestIngestion(t,
		&stubExtractor{},
		&stubAnalysisClient{err: ErrAnalysisUnavailable})

	if _, err := svc.ProcessUpload(context.Background(), userID, csvUpload(sampleCSV)); err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	trades, err := tradingData.GetTrades(userID)
	if err != nil || len(trades) == 0 {
		t.Fatalf("GetTrades failed: %v (%d trades)", err, len(trades))
	}
	if trades[0].Notes != "" {
		t.Fatalf("fresh trade should have no notes, got %q", trades[0].Notes)
	}

	const note = "chased the breakout, sized up too fast"
	if err := tradingData.UpdateTradeNotes(userID, trades[0].ID, note); err != nil {
		t.Fatalf("UpdateTradeNotes failed: %v", err)
	}

	trades, err = tradingData.GetTrades(userID)
	if err != nil {
		t.Fatalf("GetTrades failed: %v", err)
	}
	if trades[0].Notes != note {
		t.Errorf("saved note not read back: got %q, want %q", trades[0].Notes, note)
	}
}

func TestLocalSummaryRoundsWinRate(t *testing.T) {
	svc := &ingestionServiceImpl{}

	trades := []models.Trade{{Profit: 10}, {Profit: -5}, {Profit: -3}}
	if got := svc.localSummary(trades).WinRate; got != 33 {
		t.Errorf("WinRate = %v, want 33", got)
	}

	trades = []models.Trade{{Profit: 10}, {Profit: 5}, {Profit: -3}}
	if got := svc.localSummary(trades).WinRate; got != 67 {
		t.Errorf("WinRate = %v, want 67", got)
	}

	if got := svc.localSummary(nil).WinRate; got != 0 {
		t.Errorf("WinRate with no trades = %v, want 0", got)
	}
}

func TestMetricsCacheInvalidatedAfterUpload(t *testing.T) {
	const userID = 110
	svc, tradingData := newTestIngestion(t,
		&stubExtractor{},
		&stubAnalysisClient{err: ErrAnalysisUnavailable})

	before, err := tradingData.GetMetrics(userID)
	if err != nil {
		t.Fatalf("GetMetrics failed: %v", err)
	}
	if before.TotalTrades != 0 {
		t.Fatalf("expected no trades before upload, got %d", before.TotalTrades)
	}

	if _, err := svc.ProcessUpload(context.Background(), userID, csvUpload(sampleCSV)); err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	after, err := tradingData.GetMetrics(userID)
	if err != nil {
		t.Fatalf("GetMetrics failed: %v", err)
	}
	if after.TotalTrades != 2 {
		t.Errorf("cache not invalidated: TotalTrades = %d, want 2", after.TotalTrades)
	}
}
