package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawRow is one spreadsheet row as exported: column header to untyped cell value.
// Cell values are float64 for numeric cells, string for text cells and nil for
// explicitly empty cells.
type RawRow map[string]any

// Clone returns a shallow copy of the row.
func (r RawRow) Clone() RawRow {
	out := make(RawRow, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// IsEmpty reports whether the row has no headers or only missing values.
func (r RawRow) IsEmpty() bool {
	for _, v := range r {
		if !IsMissing(v) {
			return false
		}
	}
	return true
}

// IsMissing reports whether a raw cell value carries no data.
func IsMissing(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		for _, c := range val {
			if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// UnknownParty is used for driver and client when the source column is absent.
const UnknownParty = "Unknown"

// CanonicalRecord is a fully normalized billing row, safe for aggregation and storage.
type CanonicalRecord struct {
	Date        time.Time
	Amount      decimal.Decimal
	Raw         RawRow
	ID          string
	BatchID     string
	Driver      string
	Client      string
	Department  string
	Month       string // display key, e.g. "feb 2026"
	MonthIndex  string // sortable key, e.g. "2026-02"
	WeekKey     string // display key, e.g. "Semana 7 - 2026"
	Fingerprint string
	ISOWeek     int
	ISOYear     int
}

// DateKey returns the record date as YYYY-MM-DD.
func (r *CanonicalRecord) DateKey() string {
	return r.Date.Format("2006-01-02")
}
