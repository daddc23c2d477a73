package billing

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/Veraticus/carga/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Verdict is the validator's decision for one row.
type Verdict int

// Verdicts.
const (
	VerdictAccepted Verdict = iota
	VerdictSkipped
	VerdictRejected
)

// Validation is the result of validating one row. Row is set when accepted,
// Error when rejected, neither when skipped.
type Validation struct {
	Row     model.RawRow
	Error   *model.ValidationError
	Verdict Verdict
}

var missingReasons = map[Field]model.ReasonCode{
	FieldDate:   model.ReasonMissingDate,
	FieldAmount: model.ReasonMissingAmount,
	FieldDriver: model.ReasonMissingDriver,
	FieldClient: model.ReasonMissingClient,
}

// Validator enforces required columns and flags driver/client column swaps.
type Validator struct {
	resolver *Resolver
	required []Field
	signals  []string
}

// NewValidator creates a validator. Signals are matched accent- and case-insensitively.
func NewValidator(resolver *Resolver, required []Field, signals []string) *Validator {
	folded := make([]string, 0, len(signals))
	for _, s := range signals {
		if f := foldText(s); f != "" {
			folded = append(folded, f)
		}
	}
	return &Validator{
		resolver: resolver,
		required: append([]Field(nil), required...),
		signals:  folded,
	}
}

// Validate checks one row. rowNumber is the 1-based position reported to the operator.
func (v *Validator) Validate(row model.RawRow, rowNumber int) Validation {
	if row.IsEmpty() {
		return Validation{Verdict: VerdictSkipped}
	}

	for _, f := range v.required {
		if _, ok := v.resolver.Resolve(row, f); ok {
			continue
		}
		code, ok := missingReasons[f]
		if !ok {
			continue
		}
		return v.reject(rowNumber, code, fmt.Sprintf("missing %s (column %q)", f, v.resolver.synonyms.Primary(f)))
	}

	if driver, ok := v.resolver.Resolve(row, FieldDriver); ok {
		if signal, swapped := v.companySignal(cellText(driver)); swapped {
			return v.reject(rowNumber, model.ReasonColumnSwap, fmt.Sprintf(
				"driver %q looks like a company (%q); driver and client columns may be swapped",
				cellText(driver), signal))
		}
	}

	return Validation{Verdict: VerdictAccepted, Row: sanitize(row)}
}

func (v *Validator) reject(rowNumber int, code model.ReasonCode, reason string) Validation {
	return Validation{
		Verdict: VerdictRejected,
		Error:   &model.ValidationError{RowNumber: rowNumber, Code: code, Reason: reason},
	}
}

func (v *Validator) companySignal(driver string) (string, bool) {
	folded := foldText(driver)
	for _, s := range v.signals {
		if strings.Contains(folded, s) {
			return s, true
		}
	}
	return "", false
}

// sanitize copies the row, trimming text cells and making blank cells an explicit nil.
func sanitize(row model.RawRow) model.RawRow {
	out := make(model.RawRow, len(row))
	for k, val := range row {
		switch s := val.(type) {
		case string:
			if t := strings.TrimSpace(s); t != "" {
				out[k] = t
			} else {
				out[k] = nil
			}
		default:
			out[k] = val
		}
	}
	return out
}

// foldText lowercases and strips diacritics so "LOGÍSTICA" matches "logistica".
func foldText(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return cases.Fold().String(strings.TrimSpace(stripped))
}
