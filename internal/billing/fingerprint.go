package billing

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Fingerprint derives the dedup key {date}_{driver}_{client}_{amount}, lowercased
// with every whitespace run collapsed to one underscore. Unicode spaces count,
// so a non-breaking space from a spreadsheet export folds like a plain one.
// Two rows with the same date, driver, client and amount share a fingerprint;
// that collision is the duplicate signal.
func Fingerprint(date time.Time, driver, client string, amount decimal.Decimal) string {
	key := strings.Join([]string{
		date.Format("2006-01-02"),
		driver,
		client,
		amount.String(),
	}, "_")
	key = cases.Lower(language.Spanish).String(key)
	return strings.Join(strings.Fields(key), "_")
}
