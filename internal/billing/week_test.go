package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestISOWeek_MatchesStandardLibrary(t *testing.T) {
	for d := day(1999, 12, 1); d.Before(day(2041, 1, 31)); d = d.AddDate(0, 0, 1) {
		wantYear, wantWeek := d.ISOWeek()
		week, year := ISOWeek(d)
		require.Equal(t, wantWeek, week, "week of %s", d.Format("2006-01-02"))
		require.Equal(t, wantYear, year, "year of %s", d.Format("2006-01-02"))
	}
}

func TestWeekKey(t *testing.T) {
	tests := []struct {
		name   string
		policy WeekYearPolicy
		want   string
		date   [3]int
	}{
		{name: "mid february", date: [3]int{2026, 2, 13}, policy: WeekYearISO, want: "Semana 7 - 2026"},
		{name: "monday before new year iso", date: [3]int{2025, 12, 29}, policy: WeekYearISO, want: "Semana 1 - 2026"},
		{name: "monday before new year calendar", date: [3]int{2025, 12, 29}, policy: WeekYearCalendar, want: "Semana 1 - 2025"},
		{name: "week 53 iso", date: [3]int{2027, 1, 1}, policy: WeekYearISO, want: "Semana 53 - 2026"},
		{name: "week 53 calendar", date: [3]int{2027, 1, 1}, policy: WeekYearCalendar, want: "Semana 53 - 2027"},
		{name: "first thursday", date: [3]int{2026, 1, 1}, policy: WeekYearISO, want: "Semana 1 - 2026"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := day(tt.date[0], monthOf(tt.date[1]), tt.date[2])
			assert.Equal(t, tt.want, WeekKey(d, tt.policy))
		})
	}
}

func TestMonthKey(t *testing.T) {
	want := []string{"ene", "feb", "mar", "abr", "may", "jun", "jul", "ago", "sep", "oct", "nov", "dic"}
	for i, abbr := range want {
		d := day(2026, monthOf(i+1), 15)
		assert.Equal(t, abbr+" 2026", MonthKey(d))
		assert.Equal(t, d.Format("2006-01"), MonthIndex(d))
	}
}

func TestPeriodsOf(t *testing.T) {
	p := PeriodsOf(day(2026, 2, 13), WeekYearISO)
	assert.Equal(t, Periods{
		Month:      "feb 2026",
		MonthIndex: "2026-02",
		WeekKey:    "Semana 7 - 2026",
		Week:       7,
		WeekYear:   2026,
	}, p)
}

func TestParseWeekYearPolicy(t *testing.T) {
	p, err := ParseWeekYearPolicy("")
	require.NoError(t, err)
	assert.Equal(t, WeekYearISO, p)

	p, err = ParseWeekYearPolicy(" Calendar ")
	require.NoError(t, err)
	assert.Equal(t, WeekYearCalendar, p)

	_, err = ParseWeekYearPolicy("fiscal")
	assert.Error(t, err)
}
