package billing

import (
	"time"

	"github.com/Veraticus/carga/internal/model"
	"github.com/samber/lo"
)

// Filter selects canonical records for re-aggregation.
type Filter func(model.CanonicalRecord) bool

// ByMonth keeps records whose month display key equals key.
func ByMonth(key string) Filter {
	return func(r model.CanonicalRecord) bool { return r.Month == key }
}

// ByWeek keeps records whose week display key equals key.
func ByWeek(key string) Filter {
	return func(r model.CanonicalRecord) bool { return r.WeekKey == key }
}

// ByDepartment keeps records tagged with the given department.
func ByDepartment(tag string) Filter {
	return func(r model.CanonicalRecord) bool { return r.Department == tag }
}

// ByDateRange keeps records dated within [from, to]. A zero bound is open.
func ByDateRange(from, to time.Time) Filter {
	from, to = civilOrZero(from), civilOrZero(to)
	return func(r model.CanonicalRecord) bool {
		if !from.IsZero() && r.Date.Before(from) {
			return false
		}
		if !to.IsZero() && r.Date.After(to) {
			return false
		}
		return true
	}
}

// ByDrivers keeps records of the named drivers.
func ByDrivers(names ...string) Filter {
	set := lo.SliceToMap(names, func(n string) (string, struct{}) { return n, struct{}{} })
	return func(r model.CanonicalRecord) bool {
		_, ok := set[r.Driver]
		return ok
	}
}

func civilOrZero(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return civilDate(t)
}

// Apply returns the records matching every filter, in input order.
func Apply(records []model.CanonicalRecord, filters ...Filter) []model.CanonicalRecord {
	if len(filters) == 0 {
		return records
	}
	return lo.Filter(records, func(r model.CanonicalRecord, _ int) bool {
		for _, f := range filters {
			if !f(r) {
				return false
			}
		}
		return true
	})
}

// Aggregate filters then folds records into a summary.
func Aggregate(records []model.CanonicalRecord, filters ...Filter) model.Summary {
	return Fold(Apply(records, filters...))
}

// Fold sums records into a fresh summary. The accumulator is created here and
// never escapes until the fold ends, so the step function may update it.
func Fold(records []model.CanonicalRecord) model.Summary {
	return lo.Reduce(records, accumulate, model.NewSummary())
}

func accumulate(acc model.Summary, r model.CanonicalRecord, _ int) model.Summary {
	acc.Records++
	acc.Total = acc.Total.Add(r.Amount)

	one := model.EntityTotal{Total: r.Amount, Count: 1}
	acc.ByDriver[r.Driver] = acc.ByDriver[r.Driver].Add(one)
	acc.ByClient[r.Client] = acc.ByClient[r.Client].Add(one)

	acc.ByMonth[r.Month] = acc.ByMonth[r.Month].Add(r.Amount)
	acc.ByWeek[r.WeekKey] = acc.ByWeek[r.WeekKey].Add(r.Amount)

	putRef(acc.MonthRefs, r.Month, monthRef(&r))
	putRef(acc.WeekRefs, r.WeekKey, weekRef(&r))

	return acc
}

// putRef keeps the earliest ref when one display key covers two periods, which
// only happens with calendar-year week labels around New Year.
func putRef(refs map[string]model.PeriodRef, key string, ref model.PeriodRef) {
	if cur, ok := refs[key]; ok && cur.Index <= ref.Index {
		return
	}
	refs[key] = ref
}

// Merge combines two summaries into a new one without touching either input.
// Merge(Fold(a), Fold(b)) equals Fold(a ++ b).
func Merge(a, b model.Summary) model.Summary {
	out := model.NewSummary()
	out.Records = a.Records + b.Records
	out.Total = a.Total.Add(b.Total)

	for _, s := range []model.Summary{a, b} {
		for k, v := range s.ByDriver {
			out.ByDriver[k] = out.ByDriver[k].Add(v)
		}
		for k, v := range s.ByClient {
			out.ByClient[k] = out.ByClient[k].Add(v)
		}
		for k, v := range s.ByMonth {
			out.ByMonth[k] = out.ByMonth[k].Add(v)
		}
		for k, v := range s.ByWeek {
			out.ByWeek[k] = out.ByWeek[k].Add(v)
		}
		for k, v := range s.MonthRefs {
			putRef(out.MonthRefs, k, v)
		}
		for k, v := range s.WeekRefs {
			putRef(out.WeekRefs, k, v)
		}
	}

	return out
}
