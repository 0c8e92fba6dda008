// Package models defines the data carried through a reconciliation run:
// raw spreadsheet tables, the normalized rows each source is reduced to, and
// the match records that form the final report.
package models

import (
	"math"
	"strconv"
	"strings"
)

// CellKind identifies what a spreadsheet cell held.
type CellKind int

const (
	// CellBlank is an empty cell or a cell past the end of a short row.
	CellBlank CellKind = iota
	// CellText is a string cell.
	CellText
	// CellNumber is a numeric cell.
	CellNumber
)

// Cell is one raw spreadsheet value. No type invariant holds across a column.
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
}

// TextCell builds a text cell; whitespace-only text stays text.
func TextCell(s string) Cell {
	if s == "" {
		return Cell{Kind: CellBlank}
	}
	return Cell{Kind: CellText, Text: s}
}

// NumberCell builds a numeric cell.
func NumberCell(v float64) Cell {
	return Cell{Kind: CellNumber, Number: v}
}

// IsBlank reports whether the cell holds nothing.
func (c Cell) IsBlank() bool {
	return c.Kind == CellBlank
}

// String renders the cell as text. Integral numbers render without a
// fractional part so that 77712345678 does not become "77712345678.0".
func (c Cell) String() string {
	switch c.Kind {
	case CellText:
		return c.Text
	case CellNumber:
		return FormatNumber(c.Number)
	default:
		return ""
	}
}

// FormatNumber renders v in its shortest form, using integer text for whole numbers.
func FormatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Row is one physical spreadsheet row.
type Row []Cell

// RawTable is a sheet read positionally, with no header assumed. Rows keep
// their physical order, blank rows included.
type RawTable struct {
	Source string
	Rows   []Row
}

// NumRows returns the number of physical rows.
func (t *RawTable) NumRows() int {
	return len(t.Rows)
}

// Width returns the length of the longest row.
func (t *RawTable) Width() int {
	width := 0
	for _, row := range t.Rows {
		if len(row) > width {
			width = len(row)
		}
	}
	return width
}

// Cell returns the cell at the given zero-based position, or a blank cell
// when the row is shorter than col.
func (r Row) Cell(col int) Cell {
	if col < 0 || col >= len(r) {
		return Cell{Kind: CellBlank}
	}
	return r[col]
}

// Frame is a RawTable after its preamble has been discarded and a header row
// promoted. Columns are addressed by position; Headers may contain blanks and
// duplicates.
type Frame struct {
	Source  string
	Headers []string
	Rows    []Row
	// RowNumbers holds the 1-based physical row number of each entry in Rows.
	RowNumbers []int
}

// RowNumber returns the physical row number of data row i.
func (f *Frame) RowNumber(i int) int {
	if i < 0 || i >= len(f.RowNumbers) {
		return 0
	}
	return f.RowNumbers[i]
}

// Width returns the number of addressable columns.
func (f *Frame) Width() int {
	width := len(f.Headers)
	for _, row := range f.Rows {
		if len(row) > width {
			width = len(row)
		}
	}
	return width
}

// Column returns every data cell at position col.
func (f *Frame) Column(col int) []Cell {
	cells := make([]Cell, len(f.Rows))
	for i, row := range f.Rows {
		cells[i] = row.Cell(col)
	}
	return cells
}

// ColumnText returns the trimmed text of every data cell at position col.
func (f *Frame) ColumnText(col int) []string {
	texts := make([]string, len(f.Rows))
	for i, row := range f.Rows {
		texts[i] = strings.TrimSpace(row.Cell(col).String())
	}
	return texts
}
