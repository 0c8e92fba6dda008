package reporter

import (
	"io"

	"github.com/xuri/excelize/v2"

	"settlement-reconciliation-service/internal/models"
)

const (
	resultsSheet = "Reconciliation"
	summarySheet = "Summary"
)

var varianceFormat = "0.000000"

// NewWorkbook renders report as a workbook: the results sheet holds one row
// per PartnerPin with AmountVariance stored as a number, left empty when
// undefined; the summary sheet holds the aggregate counts.
func (rg *ReportGenerator) NewWorkbook(report *models.Report) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		f.Close()
		return nil, err
	}

	if err := writeResultsSheet(f, rg.Records(report)); err != nil {
		f.Close()
		return nil, err
	}
	if rg.config.IncludeSummary && report.Summary != nil {
		if err := writeSummarySheet(f, report); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

func writeResultsSheet(f *excelize.File, records []models.MatchRecord) error {
	header := make([]interface{}, len(models.ReportColumns))
	for i, c := range models.ReportColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(resultsSheet, "A1", &header); err != nil {
		return err
	}

	for i, rec := range records {
		var variance interface{}
		if rec.AmountVariance != nil {
			variance = rec.AmountVariance.InexactFloat64()
		}
		row := []interface{}{
			rec.PartnerPin,
			string(rec.Classification),
			string(rec.FinalReconcileStatus),
			variance,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(resultsSheet, cell, &row); err != nil {
			return err
		}
	}

	style, err := f.NewStyle(&excelize.Style{CustomNumFmt: &varianceFormat})
	if err != nil {
		return err
	}
	if err := f.SetColStyle(resultsSheet, "D", style); err != nil {
		return err
	}
	if err := f.SetColWidth(resultsSheet, "A", "A", 14); err != nil {
		return err
	}
	return f.SetColWidth(resultsSheet, "B", "B", 72)
}

func writeSummarySheet(f *excelize.File, report *models.Report) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}
	summary := report.Summary
	rows := [][]interface{}{
		{"Run ID", report.RunID},
		{"Processed At", report.ProcessedAt.Format("2006-01-02 15:04:05")},
		{"Records", summary.TotalRecords},
	}
	for _, status := range statusOrder {
		rows = append(rows, []interface{}{string(status), summary.ByStatus[status]})
	}
	rows = append(rows,
		[]interface{}{"Net Variance", summary.NetVariance.InexactFloat64()},
		[]interface{}{"Statement rows with PartnerPin", summary.Statement.RowsWithPin},
		[]interface{}{"Settlement rows with PartnerPin", summary.Settlement.RowsWithPin},
	)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func (rg *ReportGenerator) generateXLSXReport(report *models.Report, writer io.Writer) error {
	f, err := rg.NewWorkbook(report)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(writer)
}
