// Package device holds the data model shared by the extraction pipeline:
// the raw candidate records decoded from model output, the reconciled item
// records written to the ledger, and the error records that stand in for an
// image when nothing usable could be extracted.
package device

import "strings"

// Unknown is the canonical placeholder for any field that could not be
// determined. Reconciled items never carry an empty field; missing data is
// always represented as this sentinel.
const Unknown = "unknown"

// RawItem is one candidate record as decoded from the model's JSON output.
// All fields are free text and optional; dp_n and vpn are the vendor-specific
// part-number fields used as secondary make/model signals.
type RawItem struct {
	Make         string `json:"make"`
	Model        string `json:"model"`
	SerialNumber string `json:"serial_number"`
	PartNumber   string `json:"part_number"`
	DPN          string `json:"dp_n"`
	VPN          string `json:"vpn"`
	MACAddress   string `json:"mac_address"`
}

// Item is the finished record for one physical item. Every field is either a
// concrete value or Unknown.
type Item struct {
	Make         string
	Model        string
	SerialNumber string
	PartNumber   string
	MACAddress   string
}

// ErrorRecord describes why an image produced no items. Snippet carries a
// truncated piece of the offending raw output where one exists.
type ErrorRecord struct {
	Reason  string
	Snippet string
}

// Result is the outcome of processing one image: a non-empty ordered list of
// items, or exactly one error record. An empty item list is never produced.
type Result struct {
	Items []Item
	Err   *ErrorRecord
}

// IsUnknown reports whether a raw field value carries no information: empty,
// whitespace, or a case-insensitive "n/a"/"unknown". A bare "NA" is kept as a
// concrete value; it occurs as a serial and part-number fragment.
func IsUnknown(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "n/a", Unknown:
		return true
	}
	return false
}

// Canonical trims a raw field value, collapsing uninformative values to the
// Unknown sentinel.
func Canonical(s string) string {
	if IsUnknown(s) {
		return Unknown
	}
	return strings.TrimSpace(s)
}
