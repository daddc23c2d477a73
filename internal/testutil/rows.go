package testutil

import "github.com/Veraticus/carga/internal/model"

// Headers used by the office spreadsheet exports.
const (
	HeaderDate       = "F.Carga"
	HeaderDriver     = "Conductor"
	HeaderClient     = "Nomb.Cliente"
	HeaderAmount     = "Euros"
	HeaderDepartment = "Departamento"
)

// RowBuilder assembles raw spreadsheet rows fluently.
//
//	rows := testutil.NewRows().
//		Add(46066.0, "Ana", "Cliente A", 100.0).
//		Add("13/02/2026", "Luis", "Cliente B", "50,25").
//		Without(testutil.HeaderAmount).
//		Build()
type RowBuilder struct {
	rows []model.RawRow
}

// NewRows starts an empty row builder.
func NewRows() *RowBuilder {
	return &RowBuilder{}
}

// Add appends a row with the four required columns.
func (b *RowBuilder) Add(date any, driver, client string, amount any) *RowBuilder {
	b.rows = append(b.rows, model.RawRow{
		HeaderDate:   date,
		HeaderDriver: driver,
		HeaderClient: client,
		HeaderAmount: amount,
	})
	return b
}

// AddRaw appends a row as given.
func (b *RowBuilder) AddRaw(row model.RawRow) *RowBuilder {
	b.rows = append(b.rows, row)
	return b
}

// AddBlank appends an empty row, as spreadsheets leave between blocks.
func (b *RowBuilder) AddBlank() *RowBuilder {
	b.rows = append(b.rows, model.RawRow{})
	return b
}

// With sets a cell on the last row.
func (b *RowBuilder) With(header string, value any) *RowBuilder {
	if len(b.rows) > 0 {
		b.rows[len(b.rows)-1][header] = value
	}
	return b
}

// Without removes a column from the last row.
func (b *RowBuilder) Without(header string) *RowBuilder {
	if len(b.rows) > 0 {
		delete(b.rows[len(b.rows)-1], header)
	}
	return b
}

// Build returns copies of the rows.
func (b *RowBuilder) Build() []model.RawRow {
	out := make([]model.RawRow, len(b.rows))
	for i, r := range b.rows {
		out[i] = r.Clone()
	}
	return out
}

// OfficeExport is a small upload mixing serial and text dates with one row
// missing its amount and one company in the driver column.
func OfficeExport() []model.RawRow {
	return NewRows().
		Add(46066.0, "Juan Pérez", "Cliente A", 150.5).
		Add("13/02/2026", "Ana López", "Cliente B", "49,50").
		Add("2026-02-16", "Juan Pérez", "Cliente B", 100.0).
		AddBlank().
		Add(46070.0, "Ana López", "Cliente A", nil).Without(HeaderAmount).
		Add(46071.0, "Transportes Norte S.L.", "Ana López", 80.0).
		Build()
}
