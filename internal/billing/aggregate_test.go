package billing

import (
	"testing"
	"time"

	"github.com/Veraticus/carga/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord(date time.Time, driver, client, amount, department string) model.CanonicalRecord {
	b := NewBuilder(NewResolver(DefaultSynonyms()), WeekYearISO, department)
	return b.Build(model.RawRow{"Conductor": driver, "Nomb.Cliente": client, "Euros": amount}, date)
}

func sampleRecords() []model.CanonicalRecord {
	return []model.CanonicalRecord{
		testRecord(day(2026, 1, 5), "Ana", "Cliente A", "100", "Norte"),
		testRecord(day(2026, 1, 20), "Luis", "Cliente B", "40.5", "Sur"),
		testRecord(day(2026, 2, 2), "Ana", "Cliente B", "60", "Norte"),
		testRecord(day(2026, 2, 13), "Marta", "Cliente A", "25.25", "Norte"),
		testRecord(day(2025, 12, 29), "Luis", "Cliente C", "10", "Sur"),
	}
}

func TestAggregate_Totals(t *testing.T) {
	s := Aggregate(sampleRecords())

	assert.Equal(t, 5, s.Records)
	assert.True(t, decimal.RequireFromString("235.75").Equal(s.Total))
	assert.True(t, decimal.NewFromInt(160).Equal(s.ByDriver["Ana"].Total))
	assert.Equal(t, 2, s.ByDriver["Ana"].Count)
	assert.True(t, decimal.RequireFromString("100.5").Equal(s.ByClient["Cliente B"].Total))
	assert.True(t, decimal.RequireFromString("140.5").Equal(s.ByMonth["ene 2026"]))
	assert.True(t, decimal.NewFromInt(10).Equal(s.ByWeek["Semana 1 - 2026"]))
	assert.Equal(t, model.PeriodRef{Index: "2025-12", Year: 2025, Num: 12}, s.MonthRefs["dic 2025"])
}

func TestAggregate_Filters(t *testing.T) {
	records := sampleRecords()

	tests := []struct {
		name      string
		filters   []Filter
		wantTotal string
		wantCount int
	}{
		{name: "no filter", wantTotal: "235.75", wantCount: 5},
		{name: "month", filters: []Filter{ByMonth("feb 2026")}, wantTotal: "85.25", wantCount: 2},
		{name: "week", filters: []Filter{ByWeek("Semana 7 - 2026")}, wantTotal: "25.25", wantCount: 1},
		{name: "department", filters: []Filter{ByDepartment("Sur")}, wantTotal: "50.5", wantCount: 2},
		{name: "date range inclusive", filters: []Filter{ByDateRange(day(2026, 1, 5), day(2026, 2, 2))}, wantTotal: "200.5", wantCount: 3},
		{name: "open start", filters: []Filter{ByDateRange(time.Time{}, day(2026, 1, 5))}, wantTotal: "110", wantCount: 2},
		{name: "open end", filters: []Filter{ByDateRange(day(2026, 2, 13), time.Time{})}, wantTotal: "25.25", wantCount: 1},
		{name: "time of day ignored", filters: []Filter{ByDateRange(day(2026, 2, 13).Add(18*time.Hour), time.Time{})}, wantTotal: "25.25", wantCount: 1},
		{name: "drivers", filters: []Filter{ByDrivers("Ana", "Marta")}, wantTotal: "185.25", wantCount: 3},
		{name: "repeated driver counted once", filters: []Filter{ByDrivers("Ana", "Ana", "Marta")}, wantTotal: "185.25", wantCount: 3},
		{name: "no drivers matches nothing", filters: []Filter{ByDrivers()}, wantTotal: "0", wantCount: 0},
		{name: "combined", filters: []Filter{ByDepartment("Norte"), ByMonth("ene 2026")}, wantTotal: "100", wantCount: 1},
		{name: "nothing matches", filters: []Filter{ByMonth("mar 2026")}, wantTotal: "0", wantCount: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Aggregate(records, tt.filters...)
			assert.True(t, decimal.RequireFromString(tt.wantTotal).Equal(s.Total), "total %s", s.Total)
			assert.Equal(t, tt.wantCount, s.Records)
		})
	}
}

func TestFold_Idempotent(t *testing.T) {
	records := sampleRecords()
	assert.True(t, Fold(records).Equal(Fold(records)))
}

func TestMerge_MatchesSingleFold(t *testing.T) {
	records := sampleRecords()
	for split := 0; split <= len(records); split++ {
		merged := Merge(Fold(records[:split]), Fold(records[split:]))
		assert.True(t, Fold(records).Equal(merged), "split at %d", split)
	}
}

func TestMerge_Associative(t *testing.T) {
	records := sampleRecords()
	a, b, c := Fold(records[:1]), Fold(records[1:3]), Fold(records[3:])

	left := Merge(Merge(a, b), c)
	right := Merge(a, Merge(b, c))
	assert.True(t, left.Equal(right))
}

func TestMerge_LeavesInputsAlone(t *testing.T) {
	a := Fold(sampleRecords()[:2])
	before := Fold(sampleRecords()[:2])

	_ = Merge(a, Fold(sampleRecords()[2:]))

	assert.True(t, before.Equal(a))
}

func TestMerge_EmptyIsIdentity(t *testing.T) {
	s := Fold(sampleRecords())
	assert.True(t, s.Equal(Merge(s, model.NewSummary())))
	assert.True(t, s.Equal(Merge(model.NewSummary(), s)))
}

func TestSummary_Ordering(t *testing.T) {
	s := Aggregate(sampleRecords())

	drivers := s.RankedDrivers()
	require.Len(t, drivers, 3)
	assert.Equal(t, []string{"Ana", "Luis", "Marta"}, []string{drivers[0].Name, drivers[1].Name, drivers[2].Name})

	months := s.MonthTotals()
	require.Len(t, months, 3)
	assert.Equal(t, []string{"dic 2025", "ene 2026", "feb 2026"}, []string{months[0].Key, months[1].Key, months[2].Key})

	weeks := s.WeekTotals()
	require.NotEmpty(t, weeks)
	assert.Equal(t, "Semana 1 - 2026", weeks[0].Key)
}

func TestAggregate_CalendarWeekLabelsKeepEarliestRef(t *testing.T) {
	b := NewBuilder(NewResolver(DefaultSynonyms()), WeekYearCalendar, "")
	row := model.RawRow{"Conductor": "Ana", "Nomb.Cliente": "X", "Euros": "1"}
	records := []model.CanonicalRecord{
		b.Build(row, day(2025, 1, 1)),
		b.Build(row, day(2025, 12, 29)),
	}
	require.Equal(t, records[0].WeekKey, records[1].WeekKey)

	s := Fold(records)
	assert.Equal(t, "2025-W01", s.WeekRefs["Semana 1 - 2025"].Index)
	assert.Equal(t, 2, s.Records)
}
