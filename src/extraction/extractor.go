// Package extraction turns uploaded PDF bytes into trimmed text lines.
// The ingestion service treats it as a black box: it either gets lines or
// an error, and never reconstructs line-level structure itself.
package extraction

import (
	"context"

	"github.com/username/mindfolio/backend/src/logger"
)

// TextExtractor is the extraction capability. Implementations must return
// trimmed, non-empty lines in document order, or an error when the engine
// itself fails. An empty (non-nil) slice means the document had no
// readable text.
type TextExtractor interface {
	ExtractTextLines(ctx context.Context, data []byte) ([]string, error)
}

// NewExtractor selects the extraction implementation. A positive worker
// count gets the bounded pool for responsiveness under concurrent uploads;
// zero falls back to synchronous in-process extraction.
func NewExtractor(workers int) TextExtractor {
	if workers > 0 {
		logger.L.Info("Using pooled PDF extraction", "workers", workers)
		return NewWorkerPool(NewPDFExtractor(), workers)
	}
	logger.L.Info("Using synchronous PDF extraction")
	return NewPDFExtractor()
}
