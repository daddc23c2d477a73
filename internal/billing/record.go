package billing

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/carga/internal/model"
	"github.com/shopspring/decimal"
)

// Builder turns a validated row into a canonical record.
type Builder struct {
	resolver   *Resolver
	weekYear   WeekYearPolicy
	department string
}

// NewBuilder creates a record builder. department, when set, tags every record
// and takes precedence over a department column.
func NewBuilder(resolver *Resolver, weekYear WeekYearPolicy, department string) *Builder {
	return &Builder{resolver: resolver, weekYear: weekYear, department: strings.TrimSpace(department)}
}

// ResolveDate finds and normalizes the row's date cell.
func (b *Builder) ResolveDate(row model.RawRow) (time.Time, DateRule, error) {
	raw, ok := b.resolver.Resolve(row, FieldDate)
	if !ok {
		return time.Time{}, RuleUnrecognized, fmt.Errorf("%w: no date column", ErrUnrecognizedDate)
	}
	return NormalizeDate(raw)
}

// Build derives the canonical record for a row dated date.
func (b *Builder) Build(row model.RawRow, date time.Time) model.CanonicalRecord {
	date = civilDate(date)
	driver := b.text(row, FieldDriver, model.UnknownParty)
	client := b.text(row, FieldClient, model.UnknownParty)

	amount := decimal.Zero
	if raw, ok := b.resolver.Resolve(row, FieldAmount); ok {
		amount = ParseAmount(raw)
	}

	department := b.department
	if department == "" {
		department = b.text(row, FieldDepartment, "")
	}

	p := PeriodsOf(date, b.weekYear)
	return model.CanonicalRecord{
		Date:        date,
		Amount:      amount,
		Raw:         row,
		Driver:      driver,
		Client:      client,
		Department:  department,
		Month:       p.Month,
		MonthIndex:  p.MonthIndex,
		WeekKey:     p.WeekKey,
		ISOWeek:     p.Week,
		ISOYear:     p.WeekYear,
		Fingerprint: Fingerprint(date, driver, client, amount),
	}
}

func (b *Builder) text(row model.RawRow, f Field, fallback string) string {
	raw, ok := b.resolver.Resolve(row, f)
	if !ok {
		return fallback
	}
	if s := cellText(raw); s != "" {
		return s
	}
	return fallback
}

// cellText renders a cell as trimmed text. Whole floats print without a fraction.
func cellText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

// ParseAmount reads a money cell. Text accepts "1234.5", "1234,5" and
// "1.234,50", with an optional euro sign. Anything unparsable is zero.
func ParseAmount(v any) decimal.Decimal {
	if d, ok := v.(decimal.Decimal); ok {
		return d
	}
	if f, ok := numericValue(v); ok {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return decimal.Zero
		}
		return decimal.NewFromFloat(f)
	}
	s, ok := v.(string)
	if !ok {
		return decimal.Zero
	}

	s = strings.TrimSpace(strings.NewReplacer("€", "", "EUR", "", " ", "", "\u00a0", "").Replace(s))
	switch {
	case strings.Contains(s, ",") && strings.Contains(s, "."):
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			// 1.234,50
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			// 1,234.50
			s = strings.ReplaceAll(s, ",", "")
		}
	case strings.Contains(s, ","):
		s = strings.Replace(s, ",", ".", 1)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
