package service

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const wageSheet = "Wages"

var wageHeadings = []string{
	"Worker", "Billable Entries", "Billable Wages", "Non-billable Entries",
	"Non-billable Wages", "Total Wages", "Quantity Worked",
}

// ExportWorkerWages renders the per-worker wage summary as an XLSX workbook
func (s *wageService) ExportWorkerWages(ctx context.Context, r DateRange, departmentID string) ([]byte, error) {
	summaries, err := s.CalculateAllWorkersWages(ctx, r, departmentID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", wageSheet); err != nil {
		return nil, fmt.Errorf("failed to prepare workbook: %w", err)
	}

	for i, h := range wageHeadings {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(wageSheet, cell, h); err != nil {
			return nil, fmt.Errorf("failed to write heading: %w", err)
		}
	}

	for i, w := range summaries {
		row := []interface{}{
			w.WorkerName,
			w.BillableEntries,
			w.TotalBillableWages.InexactFloat64(),
			w.NonBillableEntries,
			w.TotalNonBillableWages.InexactFloat64(),
			w.TotalWages.InexactFloat64(),
			w.TotalQuantityWorked,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(wageSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row for %s: %w", w.WorkerName, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}
	return buf.Bytes(), nil
}
