package validation

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/username/mindfolio/backend/src/logger"
)

var ErrValidationFailed = fmt.Errorf("validation failed")

// FileKind is the upload branch selected during validation.
type FileKind string

const (
	FileKindCSV FileKind = "csv"
	FileKindPDF FileKind = "pdf"
)

// MIME types accepted for statement uploads, keyed to the kind they imply.
// Spreadsheet exports frequently arrive as vnd.ms-excel or plain text.
var allowedContentTypes = map[string]FileKind{
	"text/csv":                 FileKindCSV,
	"application/csv":          FileKindCSV,
	"application/vnd.ms-excel": FileKindCSV,
	"text/plain":               FileKindCSV,
	"application/pdf":          FileKindPDF,
}

// ClassifyUploadFile decides whether an upload is CSV-like or PDF-like
// from its declared MIME type and filename extension. Anything else is a
// validation error.
func ClassifyUploadFile(filename, contentType string) (FileKind, error) {
	lowerName := strings.ToLower(filename)
	if strings.HasSuffix(lowerName, ".pdf") {
		return FileKindPDF, nil
	}
	if strings.HasSuffix(lowerName, ".csv") {
		return FileKindCSV, nil
	}
	normalized := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	if kind, ok := allowedContentTypes[normalized]; ok {
		return kind, nil
	}
	logger.L.Warn("Disallowed upload file type", "filename", filename, "contentType", contentType)
	return "", fmt.Errorf("%w: file must be a CSV or PDF", ErrValidationFailed)
}

// ValidateFileSize enforces the upload cap.
func ValidateFileSize(size, maxBytes int64) error {
	if size > maxBytes {
		return fmt.Errorf("%w: file size must be less than %d MB", ErrValidationFailed, maxBytes/(1024*1024))
	}
	return nil
}

// ValidatePDFMagicBytes checks the %PDF- signature so a renamed binary
// does not reach the extraction engine.
func ValidatePDFMagicBytes(data []byte) error {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return fmt.Errorf("%w: file content is not a valid PDF", ErrValidationFailed)
	}
	return nil
}

// ValidateCSVMinRows is the best-effort early check that a CSV has a
// header plus at least one data line.
func ValidateCSVMinRows(text string) error {
	count := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			count++
			if count >= 2 {
				return nil
			}
		}
	}
	return fmt.Errorf("%w: CSV file must contain at least one data row", ErrValidationFailed)
}
