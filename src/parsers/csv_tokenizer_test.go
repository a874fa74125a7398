package parsers

import "testing"

func TestTokenizeQuotedCommas(t *testing.T) {
	result := Tokenize("Symbol,Notes,Price\nEURUSD,\"entry, then add\",1.1")

	if len(result.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(result.Rows))
	}
	notes, ok := result.Rows[0].Get("Notes")
	if !ok {
		t.Fatal("Notes column not found in row")
	}
	if notes != "entry, then add" {
		t.Errorf("quoted comma not preserved, got %q", notes)
	}
}

func TestTokenizeDropsArityMismatches(t *testing.T) {
	result := Tokenize("a,b,c\n1,2,3\n1,2\n1,2,3,4\n4,5,6")

	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 kept rows, got %d", len(result.Rows))
	}
	if result.DroppedRows != 2 {
		t.Errorf("expected 2 dropped rows, got %d", result.DroppedRows)
	}
}

func TestTokenizeSkipsBlankLinesAndTrims(t *testing.T) {
	result := Tokenize("\n  Date , Symbol \n\n 2024-01-02 , EURUSD \n\n")

	if len(result.Headers) != 2 || result.Headers[0] != "Date" || result.Headers[1] != "Symbol" {
		t.Fatalf("headers not trimmed: %v", result.Headers)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(result.Rows))
	}
	symbol, _ := result.Rows[0].Get("Symbol")
	if symbol != "EURUSD" {
		t.Errorf("value not trimmed, got %q", symbol)
	}
}

func TestTokenizeEmptyInput(t *testing.T) {
	result := Tokenize("   \n\n")
	if result.Headers != nil || result.Rows != nil || result.DroppedRows != 0 {
		t.Errorf("expected zero result for blank input, got %+v", result)
	}
}

func TestTokenizePreservesColumnOrder(t *testing.T) {
	result := Tokenize("c,a,b\n3,1,2")

	keys := result.Rows[0].Keys()
	want := []string{"c", "a", "b"}
	for i, k := range want {
		if keys[i] != k {
			t.Fatalf("column order lost: got %v, want %v", keys, want)
		}
	}
}
