package parsers

import "strings"

// TokenizeResult is the output of tokenizing one CSV file.
type TokenizeResult struct {
	Headers     []string
	Rows        []RawRow
	DroppedRows int // data rows whose column count did not match the header
}

// Tokenize splits raw CSV text into ordered rows of trimmed header/value
// pairs. The first non-blank line is the header. Data rows whose token
// count differs from the header's are dropped, not surfaced as errors;
// the drop count is reported for diagnostics.
func Tokenize(text string) TokenizeResult {
	var result TokenizeResult

	lines := strings.Split(text, "\n")
	nonBlank := lines[:0]
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			nonBlank = append(nonBlank, line)
		}
	}
	if len(nonBlank) == 0 {
		return result
	}

	headers := splitCSVLine(nonBlank[0])
	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
	}
	result.Headers = headers

	for _, line := range nonBlank[1:] {
		values := splitCSVLine(line)
		if len(values) != len(headers) {
			result.DroppedRows++
			continue
		}
		row := make(RawRow, len(headers))
		for i, h := range headers {
			row[i] = Cell{Key: h, Value: strings.TrimSpace(values[i])}
		}
		result.Rows = append(result.Rows, row)
	}
	return result
}

// splitCSVLine splits one line on commas, treating commas inside double
// quotes as literal characters. Doubled quotes inside quoted fields are
// not un-escaped; brokers we have seen do not produce them.
func splitCSVLine(line string) []string {
	var tokens []string
	var current strings.Builder
	inQuotes := false

	for _, ch := range line {
		switch {
		case ch == '"':
			inQuotes = !inQuotes
		case ch == ',' && !inQuotes:
			tokens = append(tokens, current.String())
			current.Reset()
		default:
			current.WriteRune(ch)
		}
	}
	tokens = append(tokens, current.String())
	return tokens
}
