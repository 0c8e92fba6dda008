package parsers

import (
	"strings"

	"settlement-reconciliation-service/internal/models"
	"settlement-reconciliation-service/pkg/errors"
)

// PromoteHeader discards the preamble rows of table and turns the first
// remaining row into the header. Preamble indices past the end of the table
// are ignored; the table must still contain a header row afterwards.
func PromoteHeader(table *models.RawTable, preamble []int, layout string) (*models.Frame, error) {
	drop := make(map[int]bool, len(preamble))
	required := 1
	for _, r := range preamble {
		drop[r] = true
	}

	// The header is the first physical row not listed in the preamble.
	header := -1
	for i := 0; i < table.NumRows(); i++ {
		if !drop[i] {
			header = i
			break
		}
	}
	if header < 0 {
		for i := 0; drop[i]; i++ {
			required = i + 2
		}
		return nil, errors.TooFewRowsError(table.Source, layout, required, table.NumRows())
	}

	headerRow := table.Rows[header]
	headers := make([]string, len(headerRow))
	for i, c := range headerRow {
		headers[i] = strings.TrimSpace(c.String())
	}

	frame := &models.Frame{
		Source:  table.Source,
		Headers: headers,
	}
	rowNumbers := make([]int, 0, table.NumRows()-header)
	for i := header + 1; i < table.NumRows(); i++ {
		if drop[i] {
			continue
		}
		frame.Rows = append(frame.Rows, table.Rows[i])
		rowNumbers = append(rowNumbers, i+1)
	}
	frame.RowNumbers = rowNumbers
	return frame, nil
}
