package billing

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Veraticus/carga/internal/model"
)

// WeekYearPolicy selects which year goes into the week display key.
type WeekYearPolicy string

const (
	// WeekYearISO labels a week with its ISO week-year, so 2025-12-29 is
	// "Semana 1 - 2026".
	WeekYearISO WeekYearPolicy = "iso"
	// WeekYearCalendar labels a week with the calendar year of the date, as
	// older dashboards did; 2025-12-29 becomes "Semana 1 - 2025".
	WeekYearCalendar WeekYearPolicy = "calendar"
)

// ParseWeekYearPolicy converts a configuration value into a WeekYearPolicy.
func ParseWeekYearPolicy(s string) (WeekYearPolicy, error) {
	switch p := WeekYearPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case WeekYearISO, WeekYearCalendar:
		return p, nil
	case "":
		return WeekYearISO, nil
	default:
		return "", fmt.Errorf("invalid week year policy %q (want iso or calendar)", s)
	}
}

const weekDuration = 7 * 24 * time.Hour

// ISOWeek returns the ISO-8601 week number and week-year of a date.
// Week 1 is the week holding the year's first Thursday.
func ISOWeek(date time.Time) (week, year int) {
	d := civilDate(date)

	// Move to the Thursday of the date's own Monday-based week.
	dayNr := (int(d.Weekday()) + 6) % 7
	thursday := d.AddDate(0, 0, 3-dayNr)

	firstThursday := time.Date(thursday.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	if firstThursday.Weekday() != time.Thursday {
		offset := (int(time.Thursday) - int(firstThursday.Weekday()) + 7) % 7
		firstThursday = time.Date(thursday.Year(), time.January, 1+offset, 0, 0, 0, 0, time.UTC)
	}

	week = 1 + int(math.Ceil(float64(thursday.Sub(firstThursday))/float64(weekDuration)))
	return week, thursday.Year()
}

// spanishMonths are the short month names used in month display keys.
var spanishMonths = [12]string{
	"ene", "feb", "mar", "abr", "may", "jun",
	"jul", "ago", "sep", "oct", "nov", "dic",
}

// MonthKey returns the display key for a date's month, e.g. "feb 2026".
func MonthKey(date time.Time) string {
	return fmt.Sprintf("%s %d", spanishMonths[date.Month()-1], date.Year())
}

// MonthIndex returns the sortable key for a date's month, e.g. "2026-02".
func MonthIndex(date time.Time) string {
	return date.Format("2006-01")
}

// WeekKey returns the week display key, e.g. "Semana 7 - 2026".
func WeekKey(date time.Time, policy WeekYearPolicy) string {
	week, isoYear := ISOWeek(date)
	year := isoYear
	if policy == WeekYearCalendar {
		year = date.Year()
	}
	return fmt.Sprintf("Semana %d - %d", week, year)
}

// Periods bundles every period key derived from one date.
type Periods struct {
	Month      string
	MonthIndex string
	WeekKey    string
	Week       int
	WeekYear   int
}

// PeriodsOf derives the month and week keys of a date.
func PeriodsOf(date time.Time, policy WeekYearPolicy) Periods {
	week, isoYear := ISOWeek(date)
	return Periods{
		Month:      MonthKey(date),
		MonthIndex: MonthIndex(date),
		WeekKey:    WeekKey(date, policy),
		Week:       week,
		WeekYear:   isoYear,
	}
}

func monthRef(r *model.CanonicalRecord) model.PeriodRef {
	return model.PeriodRef{Index: r.MonthIndex, Year: r.Date.Year(), Num: int(r.Date.Month())}
}

func weekRef(r *model.CanonicalRecord) model.PeriodRef {
	return model.PeriodRef{
		Index: fmt.Sprintf("%04d-W%02d", r.ISOYear, r.ISOWeek),
		Year:  r.ISOYear,
		Num:   r.ISOWeek,
	}
}
