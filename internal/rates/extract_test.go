package rates

import (
	"errors"
	"strings"
	"testing"
)

func expectedCost(desi, carrier int) float64 {
	return float64(40+desi+carrier) + float64(carrier*5)/100
}

func TestParseTable_FullDocument(t *testing.T) {
	table, err := ParseTable(rateText(101), DefaultRowLimit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(table) != 101 {
		t.Fatalf("expected 101 rows, got %d", len(table))
	}
	for d, row := range table {
		if row.Desi != d {
			t.Fatalf("row %d has desi %d", d, row.Desi)
		}
		if got := len(row.Values()); got != 11 {
			t.Fatalf("row %d has %d values, want 11", d, got)
		}
		for c, v := range row.Costs {
			if v != expectedCost(d, c) {
				t.Errorf("desi %d carrier %d: want %v got %v", d, c, expectedCost(d, c), v)
			}
		}
	}
}

func TestParseTable_DiscardsRowsPastLimit(t *testing.T) {
	// 105 rows plus a trailing partial group: everything past row 100 goes.
	text := rateText(105) + "1,00 2,00 3,00"
	table, err := ParseTable(text, DefaultRowLimit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(table) != 101 {
		t.Fatalf("expected 101 rows, got %d", len(table))
	}
	if table[100].Desi != 100 {
		t.Fatalf("expected last desi 100, got %d", table[100].Desi)
	}
}

func TestParseTable_ConfigurableLimit(t *testing.T) {
	table, err := ParseTable(rateText(20), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(table) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(table))
	}
}

func TestParseTable_FirstRowPrefixStrip(t *testing.T) {
	// The text layer renders desi 0 followed by 5,00 as "05,00".
	text := "05,00 6,50 7,25 8,00 9,75 10,10 11,20 12,30 13,40 14,50"
	table, err := ParseTable(text, DefaultRowLimit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(table) != 1 {
		t.Fatalf("expected 1 row, got %d", len(table))
	}
	want := []float64{5.00, 6.50, 7.25, 8.00, 9.75, 10.10, 11.20, 12.30, 13.40, 14.50}
	row := table[0]
	if row.Desi != 0 {
		t.Errorf("expected desi 0, got %d", row.Desi)
	}
	for i, w := range want {
		if row.Costs[i] != w {
			t.Errorf("column %d: want %v got %v", i, w, row.Costs[i])
		}
	}
}

func TestParseTable_StripUsesRowIndexWidth(t *testing.T) {
	table, err := ParseTable(rateText(12), DefaultRowLimit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// desi 10 and 11 carry two leaked digits.
	for _, d := range []int{9, 10, 11} {
		if table[d].Costs[0] != expectedCost(d, 0) {
			t.Errorf("desi %d: want %v got %v", d, expectedCost(d, 0), table[d].Costs[0])
		}
	}
}

func TestParseTable_PartialTrailingGroup(t *testing.T) {
	text := rateText(2) + "1,00 2,00 3,00"
	_, err := ParseTable(text, DefaultRowLimit)
	if !errors.Is(err, ErrMalformedRow) {
		t.Fatalf("expected ErrMalformedRow, got %v", err)
	}
}

func TestParseTable_FirstPriceWithoutLeakedDesi(t *testing.T) {
	text := "5,00 6,50 7,25 8,00 9,75 10,10 11,20 12,30 13,40 14,50"
	table, err := ParseTable(text, DefaultRowLimit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(table) != 1 {
		t.Fatalf("expected 1 row, got %d", len(table))
	}
	want := []any{0, 5.00, 6.50, 7.25, 8.00, 9.75, 10.10, 11.20, 12.30, 13.40, 14.50}
	got := table[0].Values()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("value %d: want %v got %v", i, want[i], got[i])
		}
	}
}

func TestStripDesiPrefix(t *testing.T) {
	cases := []struct {
		price string
		desi  int
		want  string
	}{
		{"05,00", 0, "5,00"},
		{"5,00", 0, "5,00"},
		{"1045,90", 10, "45,90"},
		{"0,50", 0, "0,50"},
		{"745,00", 3, "745,00"},
	}
	for _, tc := range cases {
		if got := stripDesiPrefix(tc.price, tc.desi); got != tc.want {
			t.Errorf("stripDesiPrefix(%q, %d): want %q got %q", tc.price, tc.desi, tc.want, got)
		}
	}
}

func TestParseTable_NoPrices(t *testing.T) {
	if _, err := ParseTable("Güncel Kargo Fiyatları\nDesi Aras MNG", DefaultRowLimit); !errors.Is(err, ErrNoRows) {
		t.Fatalf("expected ErrNoRows, got %v", err)
	}
}

func TestParseTablePDF_ConcatenatesPages(t *testing.T) {
	lines := strings.SplitAfter(rateText(4), "\n")
	path := writeTextPDF(t, lines[0]+lines[1], lines[2]+lines[3])

	table, err := ParseTablePDF(path, DefaultRowLimit)
	if err != nil {
		t.Fatalf("ParseTablePDF: %v", err)
	}
	if len(table) != 4 {
		t.Fatalf("expected 4 rows across both pages, got %d", len(table))
	}
	for d, row := range table {
		if row.Costs[0] != expectedCost(d, 0) || row.Costs[9] != expectedCost(d, 9) {
			t.Errorf("desi %d: unexpected costs %v", d, row.Costs)
		}
	}
}

func TestExtractText_NotAPDF(t *testing.T) {
	if _, err := ExtractText("testdata-does-not-exist.pdf"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
