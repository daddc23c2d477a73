package billing

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrUnrecognizedDate is returned when no date rule yields a valid calendar date.
var ErrUnrecognizedDate = errors.New("unrecognized date")

// DateRule identifies which encoding a raw date cell was read as.
type DateRule int

// Date rules. RuleUnrecognized is reported on failure.
const (
	RuleUnrecognized DateRule = iota
	RuleNumericSerial
	RuleNumericText
	RuleISOText
	RuleSlashDelimited
)

func (r DateRule) String() string {
	switch r {
	case RuleNumericSerial:
		return "numeric_serial"
	case RuleNumericText:
		return "numeric_text"
	case RuleISOText:
		return "iso_text"
	case RuleSlashDelimited:
		return "slash_delimited"
	default:
		return "unrecognized"
	}
}

// excelEpoch is serial day 0. Starting at 1899-12-30 absorbs the spreadsheet
// 1900 leap-year bug for every serial after February 1900.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// unixEpochSerial is the serial of 1970-01-01.
const unixEpochSerial = 25569

const secondsPerDay = 24 * 60 * 60

// maxSerial is 9999-12-31, the last date spreadsheet tools can represent.
const maxSerial = 2958465

type dateRule struct {
	apply func(v any) (time.Time, bool)
	kind  DateRule
}

// dateRules is the precedence order: the first rule yielding a valid date wins.
var dateRules = []dateRule{
	{kind: RuleNumericSerial, apply: fromNumericSerial},
	{kind: RuleNumericText, apply: fromNumericText},
	{kind: RuleISOText, apply: fromCalendarText},
	{kind: RuleSlashDelimited, apply: fromSlashDelimited},
}

// DateRules returns the rule precedence order.
func DateRules() []DateRule {
	out := make([]DateRule, len(dateRules))
	for i, r := range dateRules {
		out[i] = r.kind
	}
	return out
}

// NormalizeDate converts a raw cell value into a calendar date at UTC midnight.
// It never substitutes a fallback; callers pick the failure policy.
func NormalizeDate(v any) (time.Time, DateRule, error) {
	for _, rule := range dateRules {
		if d, ok := rule.apply(v); ok {
			return d, rule.kind, nil
		}
	}
	return time.Time{}, RuleUnrecognized, fmt.Errorf("%w: %v", ErrUnrecognizedDate, v)
}

// SerialToDate converts a spreadsheet serial day count to a calendar date.
func SerialToDate(serial float64) (time.Time, bool) {
	if math.IsNaN(serial) || math.IsInf(serial, 0) || math.Abs(serial) > maxSerial {
		return time.Time{}, false
	}
	// Half-up rounding, the same direction for negative serials as positive ones.
	days := int(math.Floor(serial + 0.5))
	return excelEpoch.AddDate(0, 0, days), true
}

// DateToSerial is the inverse of SerialToDate for whole days.
func DateToSerial(d time.Time) int {
	return unixEpochSerial + int(civilDate(d).Unix()/secondsPerDay)
}

func fromNumericSerial(v any) (time.Time, bool) {
	serial, ok := numericValue(v)
	if !ok {
		return time.Time{}, false
	}
	return SerialToDate(serial)
}

func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case decimal.Decimal:
		return n.InexactFloat64(), true
	default:
		return 0, false
	}
}

var digitsOnly = regexp.MustCompile(`^[0-9]+$`)

func fromNumericText(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	s = strings.TrimSpace(s)
	if !digitsOnly.MatchString(s) {
		return time.Time{}, false
	}
	serial, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return SerialToDate(float64(serial))
}

// calendarLayouts are unambiguous textual formats. Slash forms with the day
// or month first are deliberately absent; they belong to the slash rule.
var calendarLayouts = []string{
	"2006-01-02",
	"2006-1-2",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
	"2006/1/2",
	"2006.01.02",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	"02-Jan-2006",
	"Mon Jan 2 2006",
	time.RFC1123,
	time.RFC1123Z,
	time.ANSIC,
}

func fromCalendarText(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range calendarLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civilDate(t), true
		}
	}
	return time.Time{}, false
}

func fromSlashDelimited(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok || !strings.Contains(s, "/") {
		return time.Time{}, false
	}
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return time.Time{}, false
	}

	day, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return time.Time{}, false
	}
	month, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return time.Time{}, false
	}
	// Exports sometimes append a time of day after the year.
	yearField := strings.Fields(parts[2])
	if len(yearField) == 0 {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(yearField[0])
	if err != nil {
		return time.Time{}, false
	}
	if len(yearField[0]) <= 2 {
		year += 2000
	}

	if year < 1 || year > 9999 || month < 1 || month > 12 || day < 1 || day > daysIn(time.Month(month), year) {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// civilDate drops the time of day and zone, keeping the calendar date as written.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
