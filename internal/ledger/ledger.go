// Package ledger appends inventory rows to the spreadsheet-backed ledger.
package ledger

import "context"

// Header is the fixed first row of the inventory sheet. The column set is
// frozen; Row and Header must stay in lockstep.
var Header = []string{
	"Timestamp",
	"Discord User",
	"Client Name",
	"Make",
	"Model",
	"Serial Number",
	"Part Number",
	"MAC Address",
	"Image URL",
}

// Row is one appended inventory line. Constructed immediately before the
// append call and not retained afterwards.
type Row struct {
	Timestamp    string
	User         string
	ClientName   string
	Make         string
	Model        string
	SerialNumber string
	PartNumber   string
	MACAddress   string
	ImageURL     string
}

func (r Row) values() []interface{} {
	return []interface{}{
		r.Timestamp,
		r.User,
		r.ClientName,
		r.Make,
		r.Model,
		r.SerialNumber,
		r.PartNumber,
		r.MACAddress,
		r.ImageURL,
	}
}

// Ledger is the persistence contract the ingestion coordinator depends on.
// Append succeeds or fails as a whole; there are no partial-row semantics.
type Ledger interface {
	// EnsureHeader makes the first sheet row equal Header, writing it only
	// when it differs. Performed once at startup.
	EnsureHeader(ctx context.Context) error
	// Append adds one row to the end of the sheet.
	Append(ctx context.Context, row Row) error
}
