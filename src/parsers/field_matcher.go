package parsers

import "strings"

// Canonical trade fields and the broker column names they are matched
// against. Aliases are tried in order; the first alias with a matching
// header wins, so put the most specific names first.
var (
	DateAliases   = []string{"Date", "Time", "DateTime", "Open Time", "Close Time"}
	SymbolAliases = []string{"Symbol", "Instrument", "Pair"}
	ActionAliases = []string{"Type", "Action", "Side", "Buy/Sell"}
	VolumeAliases = []string{"Volume", "Size", "Quantity", "Lots"}
	PriceAliases  = []string{"Price", "Open Price", "Close Price", "Entry Price"}
	ProfitAliases = []string{"Profit", "P&L", "PnL", "Net P&L"}
)

// RequiredFieldNames are the canonical columns a row must resolve before it
// becomes a trade. Used verbatim in the zero-trades error message.
var RequiredFieldNames = []string{"Date", "Symbol", "Action", "Volume", "Price"}

// normalizeFieldName lowercases a header or alias and strips every
// non-alphanumeric character, so "P/L ($)" and "pl" compare equal.
func normalizeFieldName(s string) string {
	var b strings.Builder
	for _, ch := range strings.ToLower(s) {
		if (ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9') {
			b.WriteRune(ch)
		}
	}
	return b.String()
}

// fieldNamesMatch reports whether a normalized header and alias refer to
// the same column: equal, or one contained in the other. The containment
// is deliberate tolerance for broker naming ("Vol" vs "Volume"); false
// positives on short fragments are an accepted tradeoff.
func fieldNamesMatch(header, alias string) bool {
	if header == "" || alias == "" {
		return false
	}
	return header == alias ||
		strings.Contains(header, alias) ||
		strings.Contains(alias, header)
}

// FindField resolves one canonical field against a row. Aliases are tried
// in the caller's priority order; for each alias the row's headers are
// scanned in insertion order and the first matching header's value is
// returned. Header order only disambiguates several headers matching the
// same alias.
func FindField(row RawRow, aliases []string) (string, bool) {
	for _, alias := range aliases {
		normAlias := normalizeFieldName(alias)
		for _, cell := range row {
			if fieldNamesMatch(normalizeFieldName(cell.Key), normAlias) {
				return cell.Value, true
			}
		}
	}
	return "", false
}
