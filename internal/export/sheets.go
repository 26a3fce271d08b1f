package export

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"
)

// SheetsWriter implements StatementWriter using the Google Sheets API.
type SheetsWriter struct {
	spreadsheetID string
	svc           *sheets.Service
}

// NewSheetsWriter creates a SheetsWriter authenticated with a service account JSON.
func NewSheetsWriter(ctx context.Context, spreadsheetID, credentialsJSON string) (*SheetsWriter, error) {
	creds, err := google.CredentialsFromJSON(
		ctx,
		[]byte(credentialsJSON),
		sheets.SpreadsheetsScope,
	)
	if err != nil {
		return nil, fmt.Errorf("parsing google credentials: %w", err)
	}

	svc, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}

	return &SheetsWriter{spreadsheetID: spreadsheetID, svc: svc}, nil
}

// Write ensures the STATEMENTS sheet exists, then clears and rewrites it.
func (w *SheetsWriter) Write(ctx context.Context, rows []StatementRow) error {
	if err := w.ensureSheets(ctx, statementSheet); err != nil {
		return err
	}

	values := buildStatementValues(rows)

	_, err := w.svc.Spreadsheets.Values.BatchClear(
		w.spreadsheetID,
		&sheets.BatchClearValuesRequest{
			Ranges: []string{statementSheet + "!A:K"},
		},
	).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clearing sheet: %w", err)
	}

	_, err = w.svc.Spreadsheets.Values.BatchUpdate(
		w.spreadsheetID,
		&sheets.BatchUpdateValuesRequest{
			ValueInputOption: "USER_ENTERED",
			Data: []*sheets.ValueRange{
				{Range: statementSheet + "!A1", Values: values},
			},
		},
	).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("writing sheet: %w", err)
	}

	return nil
}

// buildStatementValues builds the STATEMENTS sheet data.
// Columns: Product | Status | Cycle | Holder | Units | Rolled | Principal | Coupon | Option | bps | Maturity
func buildStatementValues(rows []StatementRow) [][]any {
	data := make([][]any, 0, len(rows)+1)
	data = append(data, []any{
		"Product", "Status", "Cycle", "Holder",
		"Units", "Rolled Units", "Principal",
		"Coupon Owed", "Option Owed", "Coupon bps", "Maturity",
	})

	for _, row := range rows {
		data = append(data, []any{
			row.Product, row.Status, row.CycleID, row.Holder,
			row.Units, row.RolledUnits, toFloat(row.Principal),
			toFloat(row.CouponOwed), toFloat(row.OptionOwed),
			row.CouponBps, row.MaturityDate.UTC().Format("2006-01-02"),
		})
	}

	return data
}

// ensureSheets creates any of the named sheets that do not already exist.
func (w *SheetsWriter) ensureSheets(ctx context.Context, names ...string) error {
	spreadsheet, err := w.svc.Spreadsheets.Get(w.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("getting spreadsheet metadata: %w", err)
	}

	existing := make(map[string]bool, len(spreadsheet.Sheets))
	for _, s := range spreadsheet.Sheets {
		existing[s.Properties.Title] = true
	}

	var requests []*sheets.Request
	for _, name := range names {
		if !existing[name] {
			requests = append(requests, &sheets.Request{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: name},
				},
			})
		}
	}

	if len(requests) == 0 {
		return nil
	}

	_, err = w.svc.Spreadsheets.BatchUpdate(
		w.spreadsheetID,
		&sheets.BatchUpdateSpreadsheetRequest{Requests: requests},
	).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("creating sheets: %w", err)
	}

	return nil
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
