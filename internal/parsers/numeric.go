package parsers

import (
	"regexp"
	"strconv"

	"settlement-reconciliation-service/internal/models"
)

var nonNumericChars = regexp.MustCompile(`[^0-9.\-]+`)

// ToNumber coerces one cell to a number. Text keeps only digits, periods and
// minus signs before parsing, which drops currency symbols, thousands
// separators and whitespace. Blank or unparsable residue yields nil.
func ToNumber(cell models.Cell) *float64 {
	switch cell.Kind {
	case models.CellNumber:
		return models.Float(cell.Number)
	case models.CellText:
		return parseNumericText(cell.Text)
	default:
		return nil
	}
}

func parseNumericText(s string) *float64 {
	cleaned := nonNumericChars.ReplaceAllString(s, "")
	if cleaned == "" {
		return nil
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &v
}

// ToNumbers applies ToNumber to a whole column.
func ToNumbers(cells []models.Cell) []*float64 {
	out := make([]*float64, len(cells))
	for i, c := range cells {
		out[i] = ToNumber(c)
	}
	return out
}
