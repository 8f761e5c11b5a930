// Package sources reads spreadsheet files into header-addressed string tables.
package sources

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported source format")
	ErrSheetNotFound     = errors.New("sheet not found")
	ErrEmptySheet        = errors.New("sheet has no header row")
)

// Table is a sheet's header row plus its data rows, cells as raw text.
// Workbook dates arrive as Excel serial numbers, which only holds when
// Workbook is set.
type Table struct {
	Source   string
	Sheet    string
	Workbook bool
	Header   []string
	Rows     [][]string

	index map[string]int
}

// Read loads path based on its extension. sheet is ignored for CSV files and
// defaults to the first sheet of a workbook.
func Read(ctx context.Context, path, sheet string) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return readWorkbook(path, sheet)
	case ".csv":
		return readCSV(path)
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
}

func readWorkbook(path, sheet string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%s: %w", path, ErrSheetNotFound)
		}
		sheet = sheets[0]
	} else if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("%s: %q: %w", path, sheet, ErrSheetNotFound)
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q of %s: %w", sheet, path, err)
	}

	t, err := newTable(path, sheet, rows)
	if err != nil {
		return nil, err
	}
	t.Workbook = true
	return t, nil
}

func readCSV(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var rows [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv %s: %w", path, err)
		}
		rows = append(rows, record)
	}

	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}

	return newTable(path, "", rows)
}

func newTable(source, sheet string, rows [][]string) (*Table, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", source, ErrEmptySheet)
	}

	header := make([]string, len(rows[0]))
	index := make(map[string]int, len(header))
	for i, name := range rows[0] {
		header[i] = strings.TrimSpace(name)
		if _, dup := index[header[i]]; !dup && header[i] != "" {
			index[header[i]] = i
		}
	}
	if len(index) == 0 {
		return nil, fmt.Errorf("%s: %w", source, ErrEmptySheet)
	}

	data := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		data = append(data, row)
	}

	return &Table{
		Source: source,
		Sheet:  sheet,
		Header: header,
		Rows:   data,
		index:  index,
	}, nil
}

// Column returns the position of the named header cell.
func (t *Table) Column(name string) (int, bool) {
	i, ok := t.index[strings.TrimSpace(name)]
	return i, ok
}

// Missing lists the names that have no header cell.
func (t *Table) Missing(names ...string) []string {
	var missing []string
	for _, name := range names {
		if _, ok := t.Column(name); !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// Cell returns the trimmed value at row/col; short rows read as empty.
func (t *Table) Cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
