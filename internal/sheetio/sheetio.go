// Package sheetio reads billing spreadsheets into raw rows keyed by header.
package sheetio

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Veraticus/carga/internal/model"
	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"
)

// Format is a supported spreadsheet file format.
type Format string

// Supported formats.
const (
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
	FormatCSV  Format = "csv"
)

// ErrUnsupportedFormat is returned for files that are not xlsx, xls or csv.
var ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")

// ErrNoHeader is returned when the sheet has fewer rows than the header needs.
var ErrNoHeader = errors.New("spreadsheet has no header row")

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".xls":
		return FormatXLS, nil
	case ".csv", ".txt":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Options controls how a sheet becomes rows.
type Options struct {
	// Sheet names the worksheet to read. Empty means the first one.
	Sheet string
	// HeaderRows is the number of rows above the data; the last of them holds
	// the column headers. Zero is treated as one.
	HeaderRows int
	// Comma is the CSV delimiter. Zero sniffs ';' or ',' from the first line.
	Comma rune
}

func (o Options) headerRows() int {
	if o.HeaderRows < 1 {
		return 1
	}
	return o.HeaderRows
}

// File is a spreadsheet on disk.
type File struct {
	Path string
	Opts Options
}

// Name returns the file's base name.
func (f File) Name() string {
	return filepath.Base(f.Path)
}

// ReadRows opens and parses the file.
func (f File) ReadRows(ctx context.Context) ([]model.RawRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Open(f.Path, f.Opts)
}

// Open reads the spreadsheet at path, choosing the parser by extension.
func Open(path string, opts Options) ([]model.RawRow, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	fh, err := os.Open(path) //nolint:gosec // operator-supplied upload path
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = fh.Close() }()

	rows, err := Read(fh, format, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	return rows, nil
}

// Read parses a spreadsheet stream in the given format.
func Read(r io.Reader, format Format, opts Options) ([]model.RawRow, error) {
	var (
		grid [][]string
		err  error
	)
	switch format {
	case FormatXLSX:
		grid, err = readXLSX(r, opts.Sheet)
	case FormatXLS:
		grid, err = readXLS(r, opts.Sheet)
	case FormatCSV:
		grid, err = readCSV(r, opts.Comma)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	return Rows(grid, opts.headerRows())
}

func readXLSX(r io.Reader, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New("workbook has no sheets")
		}
		sheet = sheets[0]
	}
	// Raw values keep date cells as serial numbers instead of locale-formatted text.
	grid, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return grid, nil
}

func readXLS(r io.Reader, sheet string) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	book, err := xls.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open legacy workbook: %w", err)
	}

	sheets := book.GetSheets()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	idx := 0
	if sheet != "" {
		idx = -1
		for i := range sheets {
			if sheets[i].GetName() == sheet {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("sheet %q not found", sheet)
		}
	}

	s, err := book.GetSheet(idx)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %d: %w", idx, err)
	}
	var grid [][]string
	for _, row := range s.GetRows() {
		var cells []string
		for _, col := range row.GetCols() {
			cells = append(cells, col.GetString())
		}
		grid = append(grid, cells)
	}
	return grid, nil
}

func readCSV(r io.Reader, comma rune) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	if comma == 0 {
		comma = sniffComma(data)
	}
	cr.Comma = comma

	grid, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	return grid, nil
}

// sniffComma picks ';' when the first line has more semicolons than commas,
// as Spanish-locale exports do.
func sniffComma(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}

// Rows turns a cell grid into raw rows. The row at headerRows-1 names the
// columns; every later row becomes one RawRow. Blank cells are left out,
// numeric cells become float64, everything else is trimmed text. Fully blank
// rows are kept so row numbers line up with the sheet.
func Rows(grid [][]string, headerRows int) ([]model.RawRow, error) {
	if headerRows < 1 {
		headerRows = 1
	}
	if len(grid) < headerRows {
		return nil, ErrNoHeader
	}

	header := grid[headerRows-1]
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.TrimSpace(h)
	}

	data := grid[headerRows:]
	// Trailing blank rows are sheet padding, not data.
	for len(data) > 0 && blankRow(data[len(data)-1]) {
		data = data[:len(data)-1]
	}

	rows := make([]model.RawRow, 0, len(data))
	for _, cells := range data {
		row := make(model.RawRow, len(names))
		for i, cell := range cells {
			if i >= len(names) || names[i] == "" {
				continue
			}
			if strings.TrimSpace(cell) == "" {
				continue
			}
			row[names[i]] = cellValue(cell)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// cellValue mirrors what spreadsheet readers hand back: plain decimal numbers
// as numbers, anything else as trimmed text.
func cellValue(cell string) any {
	s := strings.TrimSpace(cell)
	if numericCell(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return s
}

func numericCell(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '-' || s[0] == '+' {
		s = s[1:]
	}
	digits, dots := 0, 0
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
			digits++
		case c == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}
