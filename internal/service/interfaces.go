// Package service defines the interfaces shared by carga's components.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/carga/internal/model"
)

// RecordFilter narrows record queries. Zero fields do not filter.
type RecordFilter struct {
	From       time.Time
	To         time.Time
	Month      string
	Week       string
	Department string
	BatchID    string
	Drivers    []string
	Limit      int
}

// SaveProgress is called after every chunk with the rows attempted so far.
type SaveProgress func(done, total int)

// Storage defines the contract for the persistence layer.
type Storage interface {
	// Record operations. SaveRecords commits in independent chunks and
	// reports chunks that failed instead of rolling back earlier ones.
	SaveRecords(ctx context.Context, records []model.CanonicalRecord, progress SaveProgress) (int, []model.WriteFailure, error)
	ListRecords(ctx context.Context, filter RecordFilter) ([]model.CanonicalRecord, error)
	CountRecords(ctx context.Context, filter RecordFilter) (int, error)
	FingerprintsExist(ctx context.Context, fingerprints []string) (map[string]struct{}, error)

	// Destructive operations return the number of records removed.
	DeleteByMonth(ctx context.Context, monthKey string) (int64, error)
	DeleteByWeek(ctx context.Context, weekKey string) (int64, error)
	DeleteBatch(ctx context.Context, batchID string) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)

	// Upload audit.
	SaveBatch(ctx context.Context, batch *model.UploadBatch) error
	ListBatches(ctx context.Context, limit int) ([]model.UploadBatch, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RowSource yields the raw rows of one upload.
type RowSource interface {
	Name() string
	ReadRows(ctx context.Context) ([]model.RawRow, error)
}

// ReportWriter publishes a summary somewhere outside the database.
type ReportWriter interface {
	Write(ctx context.Context, summary model.Summary, period ReportPeriod) error
}

// ReportPeriod describes what a published summary covers.
type ReportPeriod struct {
	Label      string
	Department string
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
