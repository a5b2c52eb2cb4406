package export

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/bher20/shipratemanager/pkg/shipping"
)

func sampleTable() shipping.Table {
	var t shipping.Table
	for d := 0; d < 3; d++ {
		row := shipping.Row{Desi: d}
		for c := range row.Costs {
			row.Costs[c] = float64(d*10+c) + 0.5
		}
		t = append(t, row)
	}
	return t
}

func TestWriteWorkbook(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteWorkbook(&buf, sampleTable(), "2023-08-01 09:48:39 +0300"); err != nil {
		t.Fatalf("WriteWorkbook failed: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(costsSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header + 3 rows, got %d", len(rows))
	}
	if rows[0][0] != "desi" || rows[0][1] != "aras" || rows[0][10] != "horoz" {
		t.Errorf("unexpected header %v", rows[0])
	}
	if rows[2][0] != "1" || rows[2][1] != "10.5" {
		t.Errorf("unexpected row for desi 1: %v", rows[2])
	}

	lc, err := f.GetCellValue(infoSheet, "B1")
	if err != nil {
		t.Fatal(err)
	}
	if lc != "2023-08-01 09:48:39 +0300" {
		t.Errorf("unexpected last_changed %q", lc)
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "rates.xlsx")
	if err := WriteFile(path, sampleTable(), "x"); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open written file: %v", err)
	}
	f.Close()
}
