package export

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const statementSheet = "STATEMENTS"

// XLSXWriter implements StatementWriter by writing a local .xlsx workbook.
type XLSXWriter struct {
	path string
}

// NewXLSXWriter creates an XLSXWriter that writes the workbook to path.
func NewXLSXWriter(path string) *XLSXWriter {
	return &XLSXWriter{path: path}
}

// Write builds a fresh workbook with one STATEMENTS sheet and saves it,
// replacing any previous file at the same path.
func (w *XLSXWriter) Write(ctx context.Context, rows []StatementRow) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(statementSheet)
	if err != nil {
		return fmt.Errorf("creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("removing default sheet: %w", err)
	}

	header := []any{
		"Product", "Status", "Cycle", "Holder",
		"Units", "Rolled Units", "Principal",
		"Coupon Owed", "Option Owed", "Coupon bps", "Maturity",
	}
	if err := f.SetSheetRow(statementSheet, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("resolving cell: %w", err)
		}
		values := []any{
			row.Product, row.Status, row.CycleID, row.Holder,
			row.Units, row.RolledUnits, toFloat(row.Principal),
			toFloat(row.CouponOwed), toFloat(row.OptionOwed),
			row.CouponBps, row.MaturityDate.UTC().Format("2006-01-02"),
		}
		if err := f.SetSheetRow(statementSheet, cell, &values); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		_ = f.SetRowStyle(statementSheet, 1, 1, style)
	}

	if err := f.SaveAs(w.path); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	return nil
}
