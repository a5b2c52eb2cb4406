package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/bher20/shipratemanager/pkg/shipping"
)

const (
	costsSheet = "shipping_costs"
	infoSheet  = "info"
)

// WriteWorkbook renders table as an xlsx workbook: one header row of desi
// plus carrier keys, one row per desi, and an info sheet with lastChanged.
func WriteWorkbook(w io.Writer, table shipping.Table, lastChanged string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", costsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := []interface{}{"desi"}
	for _, key := range shipping.CarrierKeys() {
		header = append(header, key)
	}
	if err := f.SetSheetRow(costsSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	if err := f.SetRowStyle(costsSheet, 1, 1, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	if err := f.SetPanes(costsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	for i, row := range table {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := row.Values()
		if err := f.SetSheetRow(costsSheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", row.Desi, err)
		}
	}

	if _, err := f.NewSheet(infoSheet); err != nil {
		return fmt.Errorf("create info sheet: %w", err)
	}
	info := [][]interface{}{
		{"last_changed", lastChanged},
		{"rows", len(table)},
	}
	for i, r := range info {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(infoSheet, cell, &r); err != nil {
			return fmt.Errorf("write info: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// WriteFile writes the workbook to path, creating parent directories.
func WriteFile(path string, table shipping.Table, lastChanged string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteWorkbook(out, table, lastChanged); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
