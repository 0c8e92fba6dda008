package matcher

import (
	"settlement-reconciliation-service/internal/models"
)

// PinIndex holds the rows of one source keyed by PartnerPin, keeping the
// first eligible occurrence of each pin and remembering source order.
type PinIndex struct {
	order []string
	byPin map[string]models.NormalizedRow
	stats IndexStats
}

// IndexStats describes how a source was reduced to its index.
type IndexStats struct {
	TotalRows      int `json:"total_rows"`
	IneligibleRows int `json:"ineligible_rows"`
	InvalidPins    int `json:"invalid_pins"`
	DuplicateRows  int `json:"duplicate_rows"`
	UniquePins     int `json:"unique_pins"`
}

// NewPinIndex builds an index over rows. Rows not tagged ShouldReconcile or
// whose PartnerPin is not exactly 11 digits are skipped; later rows repeating
// an indexed pin are dropped.
func NewPinIndex(rows []models.NormalizedRow) *PinIndex {
	index := &PinIndex{
		order: make([]string, 0, len(rows)),
		byPin: make(map[string]models.NormalizedRow, len(rows)),
	}
	index.stats.TotalRows = len(rows)

	for _, row := range rows {
		switch {
		case row.ReconcileStatus != models.ShouldReconcile:
			index.stats.IneligibleRows++
		case !models.IsValidPartnerPin(row.PartnerPin):
			index.stats.InvalidPins++
		default:
			if _, exists := index.byPin[row.PartnerPin]; exists {
				index.stats.DuplicateRows++
				continue
			}
			index.byPin[row.PartnerPin] = row
			index.order = append(index.order, row.PartnerPin)
		}
	}
	index.stats.UniquePins = len(index.order)
	return index
}

// Get returns the indexed row for pin.
func (pi *PinIndex) Get(pin string) (models.NormalizedRow, bool) {
	row, ok := pi.byPin[pin]
	return row, ok
}

// Pins returns the indexed pins in source order.
func (pi *PinIndex) Pins() []string {
	return pi.order
}

// Len returns the number of indexed pins.
func (pi *PinIndex) Len() int {
	return len(pi.order)
}

// Stats returns the index statistics.
func (pi *PinIndex) Stats() IndexStats {
	return pi.stats
}
