// Package billing turns spreadsheet billing rows into canonical records and
// folds them into summaries. Everything in this package is pure: no I/O, no
// logging, no global state.
package billing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Veraticus/carga/internal/model"
	"golang.org/x/text/cases"
)

// Field is a canonical semantic field of a billing row.
type Field string

// Canonical fields.
const (
	FieldDate       Field = "date"
	FieldDriver     Field = "driver"
	FieldClient     Field = "client"
	FieldAmount     Field = "amount"
	FieldDepartment Field = "department"
)

// Fields lists every canonical field.
func Fields() []Field {
	return []Field{FieldDate, FieldDriver, FieldClient, FieldAmount, FieldDepartment}
}

// ParseField converts a configuration name into a Field.
func ParseField(name string) (Field, error) {
	f := Field(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Fields() {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown field %q", name)
}

// SynonymTable lists, per canonical field, the header names operators use for it.
// Order matters: earlier synonyms win when a row carries several of them.
type SynonymTable map[Field][]string

// DefaultSynonyms returns the header synonyms seen in the office exports.
func DefaultSynonyms() SynonymTable {
	return SynonymTable{
		FieldDate:       {"F.Carga", "Fecha", "Fecha Carga", "F. Carga"},
		FieldDriver:     {"Conductor", "Chofer", "Driver"},
		FieldClient:     {"Nomb.Cliente", "Cliente", "Nombre Cliente"},
		FieldAmount:     {"Euros", "Importe", "Total", "EUROS"},
		FieldDepartment: {"Departamento", "Dpto", "Delegacion"},
	}
}

// Clone returns a deep copy of the table.
func (t SynonymTable) Clone() SynonymTable {
	out := make(SynonymTable, len(t))
	for f, names := range t {
		out[f] = append([]string(nil), names...)
	}
	return out
}

// Primary returns the first configured header for a field, used in operator messages.
func (t SynonymTable) Primary(f Field) string {
	if names := t[f]; len(names) > 0 {
		return names[0]
	}
	return string(f)
}

// Resolver maps variant column headers to canonical fields.
type Resolver struct {
	synonyms SynonymTable
}

// NewResolver creates a resolver over the given synonym table.
func NewResolver(synonyms SynonymTable) *Resolver {
	return &Resolver{synonyms: synonyms.Clone()}
}

// Synonyms returns the table the resolver was built with.
func (r *Resolver) Synonyms() SynonymTable {
	return r.synonyms.Clone()
}

// Resolve returns the first non-missing value for a field. Exact header
// matches are tried first, synonym by synonym; then each synonym is compared
// case-insensitively against the headers present in the row.
func (r *Resolver) Resolve(row model.RawRow, f Field) (any, bool) {
	header, ok := r.Header(row, f)
	if !ok {
		return nil, false
	}
	return row[header], true
}

// Header returns the row header that Resolve would read for a field.
func (r *Resolver) Header(row model.RawRow, f Field) (string, bool) {
	names := r.synonyms[f]

	for _, name := range names {
		if v, ok := row[name]; ok && !model.IsMissing(v) {
			return name, true
		}
	}

	// Sorted so two headers folding to the same synonym resolve the same way every time.
	headers := make([]string, 0, len(row))
	for h := range row {
		headers = append(headers, h)
	}
	sort.Strings(headers)

	for _, name := range names {
		want := foldHeader(name)
		for _, h := range headers {
			if foldHeader(h) == want && !model.IsMissing(row[h]) {
				return h, true
			}
		}
	}

	return "", false
}

func foldHeader(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}
