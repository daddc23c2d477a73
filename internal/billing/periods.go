package billing

import (
	"sort"

	"github.com/Veraticus/carga/internal/model"
	"github.com/samber/lo"
)

// PeriodCount is a month or week display key with the number of records in it.
type PeriodCount struct {
	Key   string
	Count int
	model.PeriodRef
}

// AvailableMonths lists the month keys present in records, newest first.
func AvailableMonths(records []model.CanonicalRecord) []PeriodCount {
	counts := make(map[string]*PeriodCount)
	for i := range records {
		r := &records[i]
		pc, ok := counts[r.Month]
		if !ok {
			pc = &PeriodCount{Key: r.Month, PeriodRef: monthRef(r)}
			counts[r.Month] = pc
		}
		pc.Count++
	}

	out := lo.MapToSlice(counts, func(_ string, pc *PeriodCount) PeriodCount { return *pc })
	sort.Slice(out, func(i, j int) bool { return out[i].Index > out[j].Index })
	return out
}

// AvailableWeeks lists the week keys present in records, oldest first. A non-empty
// monthKey restricts the listing to weeks with records in that month.
func AvailableWeeks(records []model.CanonicalRecord, monthKey string) []PeriodCount {
	counts := make(map[string]*PeriodCount)
	for i := range records {
		r := &records[i]
		if monthKey != "" && r.Month != monthKey {
			continue
		}
		ref := weekRef(r)
		pc, ok := counts[r.WeekKey]
		if !ok {
			pc = &PeriodCount{Key: r.WeekKey, PeriodRef: ref}
			counts[r.WeekKey] = pc
		} else if ref.Index < pc.Index {
			pc.PeriodRef = ref
		}
		pc.Count++
	}

	out := lo.MapToSlice(counts, func(_ string, pc *PeriodCount) PeriodCount { return *pc })
	sort.Slice(out, func(i, j int) bool {
		if out[i].Index != out[j].Index {
			return out[i].Index < out[j].Index
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// Drivers lists the distinct drivers in records, sorted by name.
func Drivers(records []model.CanonicalRecord) []string {
	names := lo.Uniq(lo.Map(records, func(r model.CanonicalRecord, _ int) string { return r.Driver }))
	sort.Strings(names)
	return names
}

// CompareDrivers totals the selected drivers side by side, highest total first.
// Selected drivers without records appear with a zero total.
func CompareDrivers(records []model.CanonicalRecord, drivers []string) []model.RankedEntity {
	if len(drivers) == 0 {
		return nil
	}
	summary := Aggregate(records, ByDrivers(drivers...))
	for _, d := range lo.Uniq(drivers) {
		if _, ok := summary.ByDriver[d]; !ok {
			summary.ByDriver[d] = model.EntityTotal{}
		}
	}
	return summary.RankedDrivers()
}
