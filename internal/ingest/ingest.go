// Package ingest runs an upload end to end: read the rows, validate and
// normalize them, drop duplicates already stored, then persist the accepted
// records chunk by chunk.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/carga/internal/billing"
	"github.com/Veraticus/carga/internal/common"
	"github.com/Veraticus/carga/internal/model"
	"github.com/Veraticus/carga/internal/service"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Report is what an upload produced, for display and auditing.
type Report struct {
	Summary  model.Summary
	BatchID  string
	Source   string
	Outcome  model.IngestOutcome
	Failures []model.WriteFailure
	Result   model.IngestResult
	Rows     int
	Written  int
}

// FailedRows is the number of accepted rows lost to write failures.
func (r *Report) FailedRows() int {
	return lo.SumBy(r.Failures, func(f model.WriteFailure) int { return f.Rows })
}

// Service orchestrates uploads against a store.
type Service struct {
	store      service.Storage
	pipeline   *billing.Pipeline
	now        func() time.Time
	newID      func() string
	department string
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the clock used for batch timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides batch ID generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// WithDepartment records the department tag on upload batches.
func WithDepartment(tag string) Option {
	return func(s *Service) { s.department = tag }
}

// NewService creates an ingestion service.
func NewService(store service.Storage, pipeline *billing.Pipeline, opts ...Option) *Service {
	s := &Service{
		store:    store,
		pipeline: pipeline,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Import reads src and ingests its rows.
func (s *Service) Import(ctx context.Context, src service.RowSource, progress service.SaveProgress) (*Report, error) {
	rows, err := src.ReadRows(ctx)
	if err != nil {
		return nil, common.NewUserError(fmt.Sprintf("could not read %s", src.Name()), err)
	}
	return s.ImportRows(ctx, src.Name(), rows, progress)
}

// ImportRows ingests rows already read from source. Row problems and chunk
// write failures are reported in the Report; the error return is kept for
// failures that stop the upload as a whole.
func (s *Service) ImportRows(ctx context.Context, source string, rows []model.RawRow, progress service.SaveProgress) (*Report, error) {
	report := &Report{
		BatchID: s.newID(),
		Source:  source,
		Rows:    len(rows),
	}

	result, err := s.validate(ctx, rows)
	if err != nil {
		return nil, err
	}
	for i := range result.Accepted {
		result.Accepted[i].BatchID = report.BatchID
	}
	report.Result = result
	report.Summary = billing.Fold(result.Accepted)

	common.LogInfo("Validated upload", common.Fields{
		"source":     source,
		"rows":       len(rows),
		"accepted":   len(result.Accepted),
		"errors":     len(result.Errors),
		"skipped":    result.Skipped,
		"duplicates": result.Duplicates,
	})

	if len(result.Accepted) > 0 {
		written, failures, saveErr := s.store.SaveRecords(ctx, result.Accepted, progress)
		if saveErr != nil {
			return nil, fmt.Errorf("failed to save records: %w", saveErr)
		}
		report.Written = written
		report.Failures = failures
	}
	report.Outcome = Classify(report)

	batch := &model.UploadBatch{
		ID:         report.BatchID,
		Source:     source,
		Department: s.department,
		CreatedAt:  s.now(),
		Accepted:   len(result.Accepted),
		Rejected:   len(result.Errors),
		Written:    report.Written,
		Failed:     report.FailedRows(),
	}
	if err := s.store.SaveBatch(ctx, batch); err != nil {
		// The records are stored; losing the audit row is not worth failing the upload.
		common.LogError(err, "Failed to record upload batch", common.Fields{"batch": batch.ID})
	}

	common.LogInfo("Stored upload", common.Fields{
		"batch":   report.BatchID,
		"written": report.Written,
		"failed":  report.FailedRows(),
		"outcome": string(report.Outcome),
	})
	return report, nil
}

// validate runs the pipeline. Under a dedup policy other than allow, a first
// pass finds the candidate fingerprints so the store can say which of them
// it already holds.
func (s *Service) validate(ctx context.Context, rows []model.RawRow) (model.IngestResult, error) {
	if s.pipeline.DedupPolicy() == billing.DedupAllow {
		return s.pipeline.Ingest(rows), nil
	}

	candidates := s.pipeline.Ingest(rows)
	fingerprints := lo.Map(candidates.Accepted, func(r model.CanonicalRecord, _ int) string { return r.Fingerprint })

	existing, err := s.store.FingerprintsExist(ctx, fingerprints)
	if err != nil {
		return model.IngestResult{}, fmt.Errorf("failed to look up stored fingerprints: %w", err)
	}
	return s.pipeline.IngestAgainst(rows, existing), nil
}

// Classify derives the upload outcome: empty when nothing was valid,
// problems when a chunk failed to write, partial when rows were rejected,
// success otherwise.
func Classify(r *Report) model.IngestOutcome {
	switch {
	case len(r.Result.Accepted) == 0:
		return model.OutcomeEmpty
	case len(r.Failures) > 0:
		return model.OutcomeProblems
	case len(r.Result.Errors) > 0:
		return model.OutcomePartial
	default:
		return model.OutcomeSuccess
	}
}
