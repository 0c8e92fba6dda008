package fixtures

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/xuri/excelize/v2"

	"settlement-reconciliation-service/internal/models"
)

const sheetName = "Sheet1"

// NewWorkbook renders table into a single-sheet workbook. Text cells are
// stored as strings and number cells as numbers.
func NewWorkbook(table *models.RawTable) (*excelize.File, error) {
	f := excelize.NewFile()
	for i, row := range table.Rows {
		for j, cell := range row {
			if cell.IsBlank() {
				continue
			}
			axis, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				f.Close()
				return nil, err
			}
			switch cell.Kind {
			case models.CellNumber:
				err = f.SetCellFloat(sheetName, axis, cell.Number, -1, 64)
			default:
				err = f.SetCellStr(sheetName, axis, cell.Text)
			}
			if err != nil {
				f.Close()
				return nil, err
			}
		}
	}
	return f, nil
}

// WriteXLSX saves table as an .xlsx workbook at path.
func WriteXLSX(path string, table *models.RawTable) error {
	f, err := NewWorkbook(table)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.SaveAs(path)
}

// EncodeXLSX writes table as .xlsx bytes to w.
func EncodeXLSX(w io.Writer, table *models.RawTable) error {
	f, err := NewWorkbook(table)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

// WriteCSV saves table as CSV at path. Short rows are padded so every line
// has the same field count, which keeps blank preamble rows on their own line.
func WriteCSV(path string, table *models.RawTable) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	width := table.Width()
	w := csv.NewWriter(file)
	for _, row := range table.Rows {
		record := make([]string, width)
		for j := range record {
			record[j] = row.Cell(j).String()
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
