package model

import (
	"sort"

	"github.com/shopspring/decimal"
)

// EntityTotal is the running total and record count for one driver or client.
type EntityTotal struct {
	Total decimal.Decimal
	Count int
}

// Add returns the sum of two entity totals.
func (e EntityTotal) Add(o EntityTotal) EntityTotal {
	return EntityTotal{Total: e.Total.Add(o.Total), Count: e.Count + o.Count}
}

// PeriodRef is the sortable identity behind a month or week display key.
type PeriodRef struct {
	Index string // YYYY-MM for months, YYYY-Www for weeks
	Year  int
	Num   int
}

// Summary is the aggregated view over a set of canonical records.
// Summaries are snapshots: nothing mutates a Summary after it is returned.
type Summary struct {
	Total    decimal.Decimal
	ByDriver map[string]EntityTotal
	ByClient map[string]EntityTotal
	ByMonth  map[string]decimal.Decimal
	ByWeek   map[string]decimal.Decimal

	// Sort keys for the month and week display keys present in ByMonth/ByWeek.
	MonthRefs map[string]PeriodRef
	WeekRefs  map[string]PeriodRef

	Records int
}

// NewSummary returns an empty summary, the identity element for merging.
func NewSummary() Summary {
	return Summary{
		Total:     decimal.Zero,
		ByDriver:  make(map[string]EntityTotal),
		ByClient:  make(map[string]EntityTotal),
		ByMonth:   make(map[string]decimal.Decimal),
		ByWeek:    make(map[string]decimal.Decimal),
		MonthRefs: make(map[string]PeriodRef),
		WeekRefs:  make(map[string]PeriodRef),
	}
}

// Equal reports whether two summaries hold the same values.
// Decimals are compared numerically so 150.5 equals 150.50.
func (s Summary) Equal(o Summary) bool {
	if s.Records != o.Records || !s.Total.Equal(o.Total) {
		return false
	}
	if !entityMapsEqual(s.ByDriver, o.ByDriver) || !entityMapsEqual(s.ByClient, o.ByClient) {
		return false
	}
	if !decimalMapsEqual(s.ByMonth, o.ByMonth) || !decimalMapsEqual(s.ByWeek, o.ByWeek) {
		return false
	}
	return refMapsEqual(s.MonthRefs, o.MonthRefs) && refMapsEqual(s.WeekRefs, o.WeekRefs)
}

func entityMapsEqual(a, b map[string]EntityTotal) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || av.Count != bv.Count || !av.Total.Equal(bv.Total) {
			return false
		}
	}
	return true
}

func decimalMapsEqual(a, b map[string]decimal.Decimal) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !av.Equal(bv) {
			return false
		}
	}
	return true
}

func refMapsEqual(a, b map[string]PeriodRef) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		if bv, ok := b[k]; !ok || av != bv {
			return false
		}
	}
	return true
}

// RankedEntity is one row of a ranked driver or client table.
type RankedEntity struct {
	Name string
	EntityTotal
}

// RankedDrivers returns drivers ordered by total descending, then by name.
func (s Summary) RankedDrivers() []RankedEntity {
	return rank(s.ByDriver)
}

// RankedClients returns clients ordered by total descending, then by name.
func (s Summary) RankedClients() []RankedEntity {
	return rank(s.ByClient)
}

func rank(m map[string]EntityTotal) []RankedEntity {
	out := make([]RankedEntity, 0, len(m))
	for name, total := range m {
		out = append(out, RankedEntity{Name: name, EntityTotal: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// PeriodTotal is the total for one month or week display key.
type PeriodTotal struct {
	Key   string
	Total decimal.Decimal
	PeriodRef
}

// MonthTotals returns the per-month totals in chronological order.
func (s Summary) MonthTotals() []PeriodTotal {
	return periodTotals(s.ByMonth, s.MonthRefs)
}

// WeekTotals returns the per-week totals in chronological order.
func (s Summary) WeekTotals() []PeriodTotal {
	return periodTotals(s.ByWeek, s.WeekRefs)
}

func periodTotals(totals map[string]decimal.Decimal, refs map[string]PeriodRef) []PeriodTotal {
	out := make([]PeriodTotal, 0, len(totals))
	for key, total := range totals {
		out = append(out, PeriodTotal{Key: key, Total: total, PeriodRef: refs[key]})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Index != out[j].Index {
			return out[i].Index < out[j].Index
		}
		return out[i].Key < out[j].Key
	})
	return out
}
