package services

import "errors"

// Sentinel errors for the ingestion pipeline. Handlers translate these
// into short user-facing messages; the wrapped detail is only logged.
var (
	// ErrParsingFailed covers CSV tokenization problems.
	ErrParsingFailed = errors.New("statement parsing failed")

	// ErrNoTrades means a CSV produced zero trades; its message carries
	// the detected and required column names for self-diagnosis.
	ErrNoTrades = errors.New("no valid trades found in file")

	// PDF extraction outcomes. Three distinct errors because they call
	// for different remediation by the user.
	ErrExtractionFailed   = errors.New("pdf text extraction failed")
	ErrNoReadableText     = errors.New("no readable text found in pdf")
	ErrWhitespaceOnlyText = errors.New("pdf text contains only blank lines")

	// Persistence outcomes, distinguished by constraint-violation
	// signature sniffing on the store's error message.
	ErrDuplicateEntry    = errors.New("duplicate or invalid entry")
	ErrPersistenceFailed = errors.New("failed to save data")

	// ErrAnalysisUnavailable marks the remote analysis collaborator as
	// absent or failing. Never fatal to ingestion.
	ErrAnalysisUnavailable = errors.New("remote analysis unavailable")
)
