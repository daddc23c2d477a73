// Package storage provides the data persistence layer for carga.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/carga/internal/model"
)

// Validation errors.
var (
	ErrNilContext    = errors.New("context cannot be nil")
	ErrEmptyString   = errors.New("string parameter cannot be empty")
	ErrNilParameter  = errors.New("parameter cannot be nil")
	ErrInvalidRecord = errors.New("invalid billing record")
	ErrInvalidRange  = errors.New("start date must be before end date")
	ErrInvalidBatch  = errors.New("invalid upload batch")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateRecord checks the fields every stored record needs.
func validateRecord(r *model.CanonicalRecord) error {
	if r == nil {
		return fmt.Errorf("%w: record", ErrNilParameter)
	}
	if r.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidRecord)
	}
	if r.Fingerprint == "" {
		return fmt.Errorf("%w: missing fingerprint", ErrInvalidRecord)
	}
	if r.Month == "" || r.WeekKey == "" {
		return fmt.Errorf("%w: missing period keys", ErrInvalidRecord)
	}
	return nil
}

// validateBatch checks an upload batch before it is stored.
func validateBatch(b *model.UploadBatch) error {
	if b == nil {
		return fmt.Errorf("%w: batch", ErrNilParameter)
	}
	if strings.TrimSpace(b.ID) == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidBatch)
	}
	if b.Accepted < 0 || b.Rejected < 0 || b.Written < 0 || b.Failed < 0 {
		return fmt.Errorf("%w: negative counts", ErrInvalidBatch)
	}
	return nil
}
