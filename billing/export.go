/*
export.go - Excel invoice workbook.

One sheet per billed destination: addressee block, one dated detail
line per day, then subtotal, tax, and total rows. Streamed to the
caller so the HTTP layer can serve it as a download without a temp
file.
*/
package billing

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

var detailHeader = []string{"日付", "品目", "本数", "単価(税込)", "金額(税込)"}

const lineItemName = "タンク貸出料"

// WriteInvoice renders the statement as an .xlsx workbook.
func WriteInvoice(stmt Statement, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if len(stmt.Lines) == 0 {
		name := fmt.Sprintf("請求 %s", stmt.Month)
		if err := f.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("name invoice sheet: %w", err)
		}
		if err := f.SetCellValue(name, "A1", fmt.Sprintf("%s 請求対象なし", stmt.Month)); err != nil {
			return err
		}
		if _, err := f.WriteTo(w); err != nil {
			return fmt.Errorf("write workbook: %w", err)
		}
		return nil
	}

	for i, line := range stmt.Lines {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", line.Destination); err != nil {
				return fmt.Errorf("name invoice sheet: %w", err)
			}
		} else if _, err := f.NewSheet(line.Destination); err != nil {
			return fmt.Errorf("add invoice sheet: %w", err)
		}
		if err := writeDestination(f, stmt.Month, line); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// writeDestination fills one destination's sheet.
func writeDestination(f *excelize.File, month string, line Line) error {
	name := line.Destination
	set := func(col, row int, v interface{}) error {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		return f.SetCellValue(name, cell, v)
	}

	if err := set(1, 1, fmt.Sprintf("%s 御中", line.FormalName)); err != nil {
		return err
	}
	if err := set(1, 2, fmt.Sprintf("請求対象: %s", month)); err != nil {
		return err
	}
	for i, h := range detailHeader {
		if err := set(i+1, 4, h); err != nil {
			return err
		}
	}

	row := 5
	for _, d := range line.Details {
		values := []interface{}{
			d.Date,
			lineItemName,
			d.Count,
			line.UnitPrice.InexactFloat64(),
			d.Amount.InexactFloat64(),
		}
		for i, v := range values {
			if err := set(i+1, row, v); err != nil {
				return err
			}
		}
		row++
	}

	row++
	totals := []struct {
		label string
		value float64
	}{
		{"小計(税抜)", line.Total.Sub(line.Tax).InexactFloat64()},
		{"内消費税", line.Tax.InexactFloat64()},
		{"合計(税込)", line.Total.InexactFloat64()},
	}
	for _, t := range totals {
		if err := set(1, row, t.label); err != nil {
			return err
		}
		if err := set(5, row, t.value); err != nil {
			return err
		}
		row++
	}

	if err := f.SetColWidth(name, "A", "B", 18); err != nil {
		return err
	}
	return f.SetColWidth(name, "C", "E", 14)
}
