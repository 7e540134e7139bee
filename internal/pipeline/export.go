package pipeline

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"tally/internal"
)

func ExportRowsToXLSX(rows []internal.ItemExportRow, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{
		"line_no", "matched_text", "item_id", "item_name", "unit_price",
		"quantity", "ocr_quantity", "confidence", "tier", "line_price", "line_total",
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, row := range rows {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, row.LineNo)
		set(2, row.MatchedText)
		set(3, row.ItemID)
		set(4, row.ItemName)
		set(5, row.UnitPrice)
		set(6, row.Quantity)
		set(7, row.OCRQuantity)
		set(8, row.Confidence)
		set(9, row.Tier)
		set(10, derefFloat(row.LinePrice))
		set(11, float64(row.Quantity)*row.UnitPrice)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func derefFloat(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}
