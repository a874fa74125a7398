package utils

import (
	"strings"
	"time"
)

// Layouts commonly seen in broker exports, tried in order.
var tradeDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02-01-2006 15:04:05",
	"02-01-2006",
	"01/02/2006 15:04:05",
	"01/02/2006",
	"2006.01.02 15:04:05",
	"2006.01.02",
}

// ParseTradeDate attempts a generic date-time parse of a statement cell.
// The boolean reports whether the value was actually parsed; callers decide
// how to handle unparseable input instead of getting a silent default.
func ParseTradeDate(value string) (time.Time, bool) {
	s := strings.TrimSpace(value)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range tradeDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
