package reporter

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"strings"
	"time"

	"settlement-reconciliation-service/internal/models"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// Templates returns the parsed report templates, including the
// "results-table" fragment shared with the web pages.
func Templates() *template.Template {
	return templates
}

type tableRow struct {
	Cells       []string
	StatusClass string
}

// TableData is the view model of the results table.
type TableData struct {
	Columns []string
	Rows    []tableRow
}

type statusCount struct {
	Label string
	Count int
}

type summaryData struct {
	TotalRecords int
	Statuses     []statusCount
	NetVariance  string
}

type pageData struct {
	RunID       string
	ProcessedAt string
	Summary     *summaryData
	Table       TableData
}

// NewTableData builds the results table view model for records.
func NewTableData(records []models.MatchRecord) TableData {
	data := TableData{
		Columns: models.ReportColumns,
		Rows:    make([]tableRow, len(records)),
	}
	for i, rec := range records {
		data.Rows[i] = tableRow{
			Cells:       rec.Columns(),
			StatusClass: strings.ToLower(strings.ReplaceAll(string(rec.FinalReconcileStatus), " ", "-")),
		}
	}
	return data
}

// RenderTable renders the results table fragment for embedding in a page.
func (rg *ReportGenerator) RenderTable(report *models.Report) (template.HTML, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "results-table", NewTableData(rg.Records(report))); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

func (rg *ReportGenerator) generateHTMLReport(report *models.Report, writer io.Writer) error {
	data := pageData{
		RunID:       report.RunID,
		ProcessedAt: report.ProcessedAt.Format(time.RFC1123),
		Table:       NewTableData(rg.Records(report)),
	}
	if rg.config.IncludeSummary && report.Summary != nil {
		s := &summaryData{
			TotalRecords: report.Summary.TotalRecords,
			NetVariance:  report.Summary.NetVariance.StringFixed(models.VariancePlaces),
		}
		for _, status := range statusOrder {
			s.Statuses = append(s.Statuses, statusCount{Label: string(status), Count: report.Summary.ByStatus[status]})
		}
		data.Summary = s
	}
	return templates.ExecuteTemplate(writer, "report", data)
}
