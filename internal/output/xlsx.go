package output

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/myspacecornelius/leadscout/internal/lead"
)

const sheetName = "Leads"

// writeXLSX mirrors the master CSV as a spreadsheet for people who triage
// leads outside the pipeline.
func writeXLSX(path string, leads []*lead.Lead) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	head := make([]any, len(header))
	for i, h := range header {
		head[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &head); err != nil {
		return fmt.Errorf("write sheet header: %w", err)
	}

	for i, l := range leads {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("sheet cell: %w", err)
		}
		cols := row(l)
		vals := make([]any, len(cols))
		for j, c := range cols {
			vals[j] = c
		}
		// Keep the score numeric so the sheet sorts properly.
		vals[11] = int(l.Score)
		if err := f.SetSheetRow(sheetName, cell, &vals); err != nil {
			return fmt.Errorf("write sheet row: %w", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save spreadsheet: %w", err)
	}
	return nil
}
