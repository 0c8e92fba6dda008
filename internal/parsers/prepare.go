package parsers

import (
	"settlement-reconciliation-service/internal/models"
)

// Prepared is the output of a preparer: the rows that carry a PartnerPin,
// in source order, with counts describing what was read.
type Prepared struct {
	Rows    []models.NormalizedRow
	Summary models.SourceSummary
	// Columns records where each logical field was found.
	Columns map[string]Resolution
}

// Eligible returns the rows tagged ShouldReconcile.
func (p *Prepared) Eligible() []models.NormalizedRow {
	out := make([]models.NormalizedRow, 0, len(p.Rows))
	for _, r := range p.Rows {
		if r.ReconcileStatus == models.ShouldReconcile {
			out = append(out, r)
		}
	}
	return out
}

// duplicatedPins returns the PartnerPins occurring more than once among
// non-empty pins.
func duplicatedPins(pins []string) map[string]bool {
	counts := make(map[string]int, len(pins))
	for _, pin := range pins {
		if pin != "" {
			counts[pin]++
		}
	}
	dups := make(map[string]bool)
	for pin, n := range counts {
		if n > 1 {
			dups[pin] = true
		}
	}
	return dups
}

func summarize(file string, dataRows int, rows []models.NormalizedRow, dups map[string]bool) models.SourceSummary {
	summary := models.SourceSummary{
		File:          file,
		DataRows:      dataRows,
		RowsWithPin:   len(rows),
		DuplicatePins: len(dups),
	}
	for _, r := range rows {
		if r.ReconcileStatus == models.ShouldReconcile {
			summary.EligibleRows++
		}
		if !r.HasAmount() {
			summary.MissingAmount++
		}
	}
	return summary
}
