package billing

import (
	"fmt"
	"time"

	"github.com/Veraticus/carga/internal/model"
)

// Pipeline validates a batch of raw rows and normalizes the accepted ones.
type Pipeline struct {
	validator *Validator
	builder   *Builder
	now       func() time.Time
	opts      Options
}

// NewPipeline builds a pipeline from options.
func NewPipeline(opts Options) (*Pipeline, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid billing options: %w", err)
	}
	if opts.DatePolicy == "" {
		opts.DatePolicy = DateReject
	}
	if opts.WeekYear == "" {
		opts.WeekYear = WeekYearISO
	}
	if opts.Dedup == "" {
		opts.Dedup = DedupAllow
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	resolver := NewResolver(opts.Synonyms)
	return &Pipeline{
		validator: NewValidator(resolver, opts.RequiredFields, opts.CompanySignals),
		builder:   NewBuilder(resolver, opts.WeekYear, opts.Department),
		now:       now,
		opts:      opts,
	}, nil
}

// DatePolicy reports the active date failure policy.
func (p *Pipeline) DatePolicy() DatePolicy {
	return p.opts.DatePolicy
}

// DedupPolicy reports the active duplicate policy.
func (p *Pipeline) DedupPolicy() DedupPolicy {
	return p.opts.Dedup
}

// Ingest runs a batch. Row-level problems become validation errors; the batch
// always runs to the end.
func (p *Pipeline) Ingest(rows []model.RawRow) model.IngestResult {
	return p.IngestAgainst(rows, nil)
}

// IngestAgainst runs a batch treating the given fingerprints as already stored,
// so the dedup policy also applies across uploads.
func (p *Pipeline) IngestAgainst(rows []model.RawRow, existing map[string]struct{}) model.IngestResult {
	result := model.IngestResult{
		Accepted: make([]model.CanonicalRecord, 0, len(rows)),
		Errors:   []model.ValidationError{},
	}

	seen := make(map[string]struct{}, len(existing)+len(rows))
	for fp := range existing {
		seen[fp] = struct{}{}
	}

	for i, row := range rows {
		rowNumber := i + 1 + p.opts.HeaderRows

		v := p.validator.Validate(row, rowNumber)
		switch v.Verdict {
		case VerdictSkipped:
			result.Skipped++
			continue
		case VerdictRejected:
			result.Errors = append(result.Errors, *v.Error)
			continue
		}

		date, _, err := p.builder.ResolveDate(v.Row)
		if err != nil {
			if p.opts.DatePolicy == DateReject {
				result.Errors = append(result.Errors, model.ValidationError{
					RowNumber: rowNumber,
					Code:      model.ReasonInvalidDate,
					Reason:    fmt.Sprintf("invalid date (column %q)", p.opts.Synonyms.Primary(FieldDate)),
				})
				continue
			}
			date = p.now()
		}

		record := p.builder.Build(v.Row, date)

		if p.opts.Dedup != DedupAllow {
			if _, dup := seen[record.Fingerprint]; dup {
				if p.opts.Dedup == DedupMerge {
					result.Duplicates++
					continue
				}
				result.Errors = append(result.Errors, model.ValidationError{
					RowNumber: rowNumber,
					Code:      model.ReasonDuplicate,
					Reason:    fmt.Sprintf("duplicate record %s", record.Fingerprint),
				})
				continue
			}
			seen[record.Fingerprint] = struct{}{}
		}

		result.Accepted = append(result.Accepted, record)
	}

	return result
}
