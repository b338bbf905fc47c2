package ledger

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"stocktake/internal/config"
)

// SheetsLedger implements Ledger against the Google Sheets API.
type SheetsLedger struct {
	svc           *sheets.Service
	spreadsheetID string
	sheetName     string
	log           *zap.Logger
}

// NewSheetsLedger builds a ledger backed by the configured spreadsheet,
// authenticating with the service-account credentials file.
func NewSheetsLedger(ctx context.Context, cfg config.SheetConfig, log *zap.Logger) (*SheetsLedger, error) {
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(cfg.CredentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build sheets service: %w", err)
	}
	return newSheetsLedger(svc, cfg.SpreadsheetID, cfg.SheetName, log), nil
}

func newSheetsLedger(svc *sheets.Service, spreadsheetID, sheetName string, log *zap.Logger) *SheetsLedger {
	if sheetName == "" {
		sheetName = "Sheet1"
	}
	return &SheetsLedger{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		log:           log,
	}
}

// EnsureHeader reads the first row and rewrites it only when it differs from
// Header. Calling it against an already-correct sheet performs no write.
func (l *SheetsLedger) EnsureHeader(ctx context.Context) error {
	readRange := fmt.Sprintf("%s!A1:%c1", l.sheetName, rune('A'+len(Header)-1))
	resp, err := l.svc.Spreadsheets.Values.Get(l.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to read header row: %w", err)
	}

	if headerMatches(resp.Values) {
		return nil
	}

	headerRow := make([]interface{}, len(Header))
	for i, h := range Header {
		headerRow[i] = h
	}
	_, err = l.svc.Spreadsheets.Values.
		Update(l.spreadsheetID, l.sheetName+"!A1", &sheets.ValueRange{Values: [][]interface{}{headerRow}}).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}
	l.log.Info("sheet header row written", zap.Strings("header", Header))
	return nil
}

// Append adds one row below the existing data.
func (l *SheetsLedger) Append(ctx context.Context, row Row) error {
	vr := &sheets.ValueRange{Values: [][]interface{}{row.values()}}
	resp, err := l.svc.Spreadsheets.Values.
		Append(l.spreadsheetID, l.sheetName+"!A1", vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append row: %w", err)
	}

	var cells int64
	if resp.Updates != nil {
		cells = resp.Updates.UpdatedCells
	}
	l.log.Debug("row appended", zap.Int64("cells", cells))
	return nil
}

// headerMatches reports whether the sheet's first row equals Header. Sheets
// returns cell values as interface{}; comparison goes through fmt.Sprint.
func headerMatches(values [][]interface{}) bool {
	if len(values) == 0 || len(values[0]) != len(Header) {
		return false
	}
	for i, v := range values[0] {
		if fmt.Sprint(v) != Header[i] {
			return false
		}
	}
	return true
}
