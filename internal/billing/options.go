package billing

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DatePolicy decides what happens to a row whose date cannot be normalized.
type DatePolicy string

const (
	// DateReject turns an unparseable date into a row-level validation error.
	DateReject DatePolicy = "reject"
	// DateFallbackNow keeps the row and dates it with the pipeline clock.
	DateFallbackNow DatePolicy = "fallback_now"
)

// ParseDatePolicy converts a configuration value into a DatePolicy.
func ParseDatePolicy(s string) (DatePolicy, error) {
	switch p := DatePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case DateReject, DateFallbackNow:
		return p, nil
	case "":
		return DateReject, nil
	default:
		return "", fmt.Errorf("invalid date policy %q (want reject or fallback_now)", s)
	}
}

// DedupPolicy decides what happens to rows sharing a fingerprint.
type DedupPolicy string

const (
	// DedupAllow keeps every row.
	DedupAllow DedupPolicy = "allow"
	// DedupMerge keeps the first row and silently counts the rest.
	DedupMerge DedupPolicy = "merge"
	// DedupReject reports every later row as a validation error.
	DedupReject DedupPolicy = "reject"
)

// ParseDedupPolicy converts a configuration value into a DedupPolicy.
func ParseDedupPolicy(s string) (DedupPolicy, error) {
	switch p := DedupPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case DedupAllow, DedupMerge, DedupReject:
		return p, nil
	case "":
		return DedupAllow, nil
	default:
		return "", fmt.Errorf("invalid dedup policy %q (want allow, merge or reject)", s)
	}
}

// DefaultCompanySignals are substrings that betray a company name in the driver column.
func DefaultCompanySignals() []string {
	return []string{"s.l.", "s.l.u", "s.a.", "s.coop", "sociedad", "logistica", "transport"}
}

// DefaultRequiredFields is the validation order for required columns.
func DefaultRequiredFields() []Field {
	return []Field{FieldDate, FieldAmount, FieldDriver, FieldClient}
}

// Options configures the ingestion pipeline.
type Options struct {
	Now            func() time.Time
	Synonyms       SynonymTable
	DatePolicy     DatePolicy
	WeekYear       WeekYearPolicy
	Dedup          DedupPolicy
	Department     string
	CompanySignals []string
	RequiredFields []Field
	HeaderRows     int
}

// DefaultOptions returns the options matching the office spreadsheet exports.
func DefaultOptions() Options {
	return Options{
		Now:            time.Now,
		Synonyms:       DefaultSynonyms(),
		DatePolicy:     DateReject,
		WeekYear:       WeekYearISO,
		Dedup:          DedupAllow,
		CompanySignals: DefaultCompanySignals(),
		RequiredFields: DefaultRequiredFields(),
		HeaderRows:     1,
	}
}

// Validate checks that the options are usable.
func (o *Options) Validate() error {
	var errs []error

	if _, err := ParseDatePolicy(string(o.DatePolicy)); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseWeekYearPolicy(string(o.WeekYear)); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseDedupPolicy(string(o.Dedup)); err != nil {
		errs = append(errs, err)
	}
	if o.HeaderRows < 0 {
		errs = append(errs, errors.New("header rows cannot be negative"))
	}
	for _, f := range o.RequiredFields {
		if f == FieldDepartment {
			errs = append(errs, errors.New("department cannot be a required field"))
			continue
		}
		if len(o.Synonyms[f]) == 0 {
			errs = append(errs, fmt.Errorf("required field %q has no header synonyms", f))
		}
	}
	for _, f := range []Field{FieldDate, FieldAmount} {
		if len(o.Synonyms[f]) == 0 {
			errs = append(errs, fmt.Errorf("field %q has no header synonyms", f))
		}
	}

	return errors.Join(errs...)
}
