package sheetio

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Veraticus/carga/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestFormatOf(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{path: "enero.xlsx", want: FormatXLSX},
		{path: "ENERO.XLS", want: FormatXLS},
		{path: "/tmp/cargas.csv", want: FormatCSV},
		{path: "cargas.pdf", wantErr: true},
		{path: "cargas", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatOf(tt.path)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRows(t *testing.T) {
	grid := [][]string{
		{"F.Carga", "Conductor", "Nomb.Cliente", "Euros", ""},
		{"46066", "Ana", "Cliente A", "150.5", "ignored"},
		{"13/02/2026", " Luis ", "", "1.234,50"},
		{"", "", ""},
		{"46067", "Marta", "Cliente B", "-3", "x", "extra"},
		{"", ""},
		{},
	}

	rows, err := Rows(grid, 1)
	require.NoError(t, err)
	require.Len(t, rows, 4, "trailing blank rows dropped, inner blank kept")

	assert.Equal(t, model.RawRow{"F.Carga": 46066.0, "Conductor": "Ana", "Nomb.Cliente": "Cliente A", "Euros": 150.5}, rows[0])
	assert.Equal(t, model.RawRow{"F.Carga": "13/02/2026", "Conductor": "Luis", "Euros": "1.234,50"}, rows[1])
	assert.True(t, rows[2].IsEmpty())
	assert.Equal(t, -3.0, rows[3]["Euros"])
}

func TestRows_HeaderOffset(t *testing.T) {
	grid := [][]string{
		{"Informe de cargas"},
		{"Fecha", "Chofer"},
		{"46066", "Ana"},
	}

	rows, err := Rows(grid, 2)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Ana", rows[0]["Chofer"])

	_, err = Rows(grid[:1], 2)
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestCellValue(t *testing.T) {
	tests := []struct {
		want any
		in   string
	}{
		{in: "46066", want: 46066.0},
		{in: " 12.5 ", want: 12.5},
		{in: "-7", want: -7.0},
		{in: "12,5", want: "12,5"},
		{in: "1.234.5", want: "1.234.5"},
		{in: "1e5", want: "1e5"},
		{in: "Ana", want: "Ana"},
		{in: "-", want: "-"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, cellValue(tt.in))
		})
	}
}

func TestRead_CSV(t *testing.T) {
	tests := []struct {
		name  string
		input string
		comma rune
	}{
		{name: "comma", input: "F.Carga,Conductor,Euros\n46066,Ana,10\n"},
		{name: "semicolon sniffed", input: "F.Carga;Conductor;Euros\n46066;Ana;10\n"},
		{name: "bom", input: "\xef\xbb\xbfF.Carga,Conductor,Euros\r\n46066,Ana,10\r\n"},
		{name: "explicit tab", input: "F.Carga\tConductor\tEuros\n46066\tAna\t10\n", comma: '\t'},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := Read(strings.NewReader(tt.input), FormatCSV, Options{Comma: tt.comma})
			require.NoError(t, err)
			require.Len(t, rows, 1)
			assert.Equal(t, model.RawRow{"F.Carga": 46066.0, "Conductor": "Ana", "Euros": 10.0}, rows[0])
		})
	}
}

func TestRead_UnknownFormat(t *testing.T) {
	_, err := Read(strings.NewReader(""), Format("ods"), Options{})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestOpen_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cargas.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"F.Carga", "Conductor", "Nomb.Cliente", "Euros"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{46066, "Ana", "Cliente A", 150.5}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"13/02/2026", "Luis", "Cliente B", "40,25"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	rows, err := File{Path: path}.ReadRows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 46066.0, rows[0]["F.Carga"])
	assert.Equal(t, 150.5, rows[0]["Euros"])
	assert.Equal(t, "13/02/2026", rows[1]["F.Carga"])
	assert.Equal(t, "40,25", rows[1]["Euros"])
}

func TestOpen_XLSXNamedSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cargas.xlsx")

	f := excelize.NewFile()
	_, err := f.NewSheet("Norte")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Norte", "A1", &[]any{"Fecha", "Chofer"}))
	require.NoError(t, f.SetSheetRow("Norte", "A2", &[]any{"2026-02-13", "Ana"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	rows, err := Open(path, Options{Sheet: "Norte"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Ana", rows[0]["Chofer"])
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.csv"), Options{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFile_Name(t *testing.T) {
	assert.Equal(t, "enero.csv", File{Path: "/data/uploads/enero.csv"}.Name())
}

func TestFile_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := File{Path: "x.csv"}.ReadRows(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
