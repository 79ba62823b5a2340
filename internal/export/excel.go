package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// WriteWorkbook renders one sheet per table, header row first, rows in the
// table's canonical order.
func WriteWorkbook(path string, tables []Table) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, tbl := range tables {
		sheet := tbl.Spec.Title
		if i == 0 {
			// Rename the default sheet rather than leaving an empty one.
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return fmt.Errorf("rename sheet %q: %w", sheet, err)
			}
		} else {
			if _, err := f.NewSheet(sheet); err != nil {
				return fmt.Errorf("create sheet %q: %w", sheet, err)
			}
		}

		header := make([]any, len(tbl.Spec.Columns))
		for c, col := range tbl.Spec.Columns {
			header[c] = col
		}
		if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
			return fmt.Errorf("write header for %q: %w", sheet, err)
		}

		for r, row := range tbl.Rows {
			values := make([]any, len(tbl.Spec.Columns))
			for c, col := range tbl.Spec.Columns {
				values[c] = cell(row, col)
			}
			start, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return fmt.Errorf("address row %d of %q: %w", r+2, sheet, err)
			}
			if err := f.SetSheetRow(sheet, start, &values); err != nil {
				return fmt.Errorf("write row %d of %q: %w", r+2, sheet, err)
			}
		}
	}

	return f.SaveAs(path)
}
