package parsers

// Cell is one header/value pair from a statement row.
type Cell struct {
	Key   string
	Value string
}

// RawRow is an ordered association of column header to cell value for one
// data row. Order matters: the field matcher scans headers in the order
// they appeared in the file, which is part of the matching contract, so a
// plain map would not do.
type RawRow []Cell

// Get returns the value for an exact header key.
func (r RawRow) Get(key string) (string, bool) {
	for _, c := range r {
		if c.Key == key {
			return c.Value, true
		}
	}
	return "", false
}

// Keys returns the headers in row order.
func (r RawRow) Keys() []string {
	keys := make([]string, len(r))
	for i, c := range r {
		keys[i] = c.Key
	}
	return keys
}
