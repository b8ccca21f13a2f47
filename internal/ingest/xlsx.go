package ingest

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/xuri/excelize/v2"
)

// LoadWorkbook reads the first worksheet of an xlsx file into the neutral
// grid, including bold flags from cell styles.
func LoadWorkbook(path string) (*Sheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()
	return LoadWorkbookReader(f)
}

// LoadWorkbookBytes reads an in-memory xlsx payload.
func LoadWorkbookBytes(content []byte) (*Sheet, error) {
	return LoadWorkbookReader(bytes.NewReader(content))
}

// LoadWorkbookReader reads an xlsx stream.
func LoadWorkbookReader(r io.Reader) (*Sheet, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse workbook: %w", err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	name := sheets[0]

	rows, err := wb.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from %q: %w", name, err)
	}

	sheet := &Sheet{Rows: make([][]Cell, len(rows))}
	styleBold := map[int]bool{}

	for ri, row := range rows {
		cells := make([]Cell, len(row))
		for ci, text := range row {
			cell := Cell{Text: text}
			if text != "" {
				if bold, ok := cellBold(wb, name, ci+1, ri+1, styleBold); ok && bold {
					cell.Bold = true
					sheet.HasBoldInfo = true
				}
			}
			cells[ci] = cell
		}
		sheet.Rows[ri] = cells
	}
	return sheet, nil
}

// cellBold resolves the bold flag of one cell, memoizing per style id since
// exports reuse a handful of styles across thousands of cells.
func cellBold(wb *excelize.File, sheet string, col, row int, cache map[int]bool) (bool, bool) {
	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return false, false
	}
	styleID, err := wb.GetCellStyle(sheet, axis)
	if err != nil {
		return false, false
	}
	if bold, ok := cache[styleID]; ok {
		return bold, true
	}
	style, err := wb.GetStyle(styleID)
	if err != nil || style == nil {
		return false, false
	}
	bold := style.Font != nil && style.Font.Bold
	cache[styleID] = bold
	return bold, true
}
