package pipeline

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Workbook wraps a multi-sheet spreadsheet. Sheets in these government
// exports carry merged title rows above the data, so callers index the raw
// cell grid with their own fixed header-row offset.
type Workbook struct {
	file *excelize.File
	path string
}

// OpenWorkbook opens an xlsx workbook for reading
func OpenWorkbook(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	return &Workbook{file: f, path: path}, nil
}

// Rows returns the raw cell grid of a sheet. Rows can be ragged: trailing
// empty cells are not padded, so callers must bounds-check column indexes.
func (w *Workbook) Rows(sheet string) ([][]string, error) {
	rows, err := w.file.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s of %s: %w", sheet, w.path, err)
	}
	return rows, nil
}

// SheetExists reports whether the workbook contains the named sheet
func (w *Workbook) SheetExists(sheet string) bool {
	idx, err := w.file.GetSheetIndex(sheet)
	return err == nil && idx >= 0
}

// Close releases the underlying file
func (w *Workbook) Close() error {
	return w.file.Close()
}

// Cell returns the trimmed cell at (row, col) in a grid, or "" when the row
// is too short
func Cell(rows [][]string, row, col int) string {
	if row >= len(rows) || col >= len(rows[row]) {
		return ""
	}
	return strings.TrimSpace(rows[row][col])
}
