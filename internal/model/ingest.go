package model

import (
	"fmt"
	"time"
)

// ReasonCode classifies why a row was rejected.
type ReasonCode string

// Rejection reasons, in the order the validator checks them.
const (
	ReasonMissingDate   ReasonCode = "missing_date"
	ReasonMissingAmount ReasonCode = "missing_amount"
	ReasonMissingDriver ReasonCode = "missing_driver"
	ReasonMissingClient ReasonCode = "missing_client"
	ReasonColumnSwap    ReasonCode = "column_swap"
	ReasonInvalidDate   ReasonCode = "invalid_date"
	ReasonDuplicate     ReasonCode = "duplicate"
)

// ValidationError is a row-level problem reported back to the operator.
type ValidationError struct {
	Reason    string
	Code      ReasonCode
	RowNumber int
}

func (e ValidationError) String() string {
	return fmt.Sprintf("row %d: %s", e.RowNumber, e.Reason)
}

// IngestResult is the pure outcome of running a batch through the pipeline.
type IngestResult struct {
	Accepted   []CanonicalRecord
	Errors     []ValidationError
	Skipped    int // entirely empty rows
	Duplicates int // rows collapsed by the merge dedup policy
}

// WriteFailure is a chunk the persistence layer could not commit. Chunk is 1-based.
type WriteFailure struct {
	Err   error
	Chunk int
	Rows  int
}

func (f WriteFailure) String() string {
	return fmt.Sprintf("chunk %d (%d rows): %v", f.Chunk, f.Rows, f.Err)
}

// IngestOutcome summarizes an upload for the operator.
type IngestOutcome string

// Upload outcomes.
const (
	OutcomeSuccess  IngestOutcome = "success"
	OutcomePartial  IngestOutcome = "partial"
	OutcomeProblems IngestOutcome = "problems"
	OutcomeEmpty    IngestOutcome = "empty"
)

// UploadBatch records one upload for auditing.
type UploadBatch struct {
	CreatedAt  time.Time
	ID         string
	Source     string
	Department string
	Accepted   int
	Rejected   int
	Written    int
	Failed     int
}
