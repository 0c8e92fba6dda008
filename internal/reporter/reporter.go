// Package reporter renders reconciliation reports.
//
// Every format carries the same four columns per PartnerPin in the same
// order: PartnerPin, Classification, FinalReconcileStatus and
// AmountVariance, the variance printed with six decimal places or the <NA>
// marker when undefined.
//
// Supported output formats:
//   - Console: summary plus an aligned table for terminal display
//   - JSON: records and summary for programmatic consumption
//   - CSV: the four report columns, one line per PartnerPin
//   - HTML: a standalone page with the results table
//   - XLSX: a workbook with a results sheet and a summary sheet
//
// Example usage:
//
//	generator, err := reporter.NewReportGenerator(&reporter.ReportConfig{Format: reporter.FormatCSV})
//	err = generator.GenerateReport(report, os.Stdout)
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"settlement-reconciliation-service/internal/models"
)

// OutputFormat represents the supported report output formats.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
	FormatHTML    OutputFormat = "html"
	FormatXLSX    OutputFormat = "xlsx"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV, FormatHTML, FormatXLSX:
		return true
	default:
		return false
	}
}

// IsBinary reports whether the format should not be written to a terminal.
func (f OutputFormat) IsBinary() bool {
	return f == FormatXLSX
}

// FormatFromPath picks an output format from a file extension.
func FormatFromPath(path string) (OutputFormat, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, true
	case ".csv":
		return FormatCSV, true
	case ".html", ".htm":
		return FormatHTML, true
	case ".xlsx":
		return FormatXLSX, true
	case ".txt", ".log":
		return FormatConsole, true
	default:
		return "", false
	}
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	// IncludeSummary adds the aggregate counts to console, JSON, HTML and
	// XLSX output.
	IncludeSummary bool `json:"include_summary"`

	// StatusFilter limits the records rendered to the given statuses.
	// Empty renders every record.
	StatusFilter []models.FinalReconcileStatus `json:"status_filter,omitempty"`

	// MaxConsoleRows truncates the console table; zero means no limit.
	MaxConsoleRows int `json:"max_console_rows"`

	CSVDelimiter rune `json:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:         FormatConsole,
		IncludeSummary: true,
		MaxConsoleRows: 0,
		CSVDelimiter:   ',',
		CSVHeaders:     true,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	if c.MaxConsoleRows < 0 {
		return fmt.Errorf("max console rows cannot be negative, got %d", c.MaxConsoleRows)
	}
	if c.CSVDelimiter == 0 || c.CSVDelimiter == '"' || c.CSVDelimiter == '\n' || c.CSVDelimiter == '\r' {
		return fmt.Errorf("invalid CSV delimiter %q", c.CSVDelimiter)
	}
	for _, s := range c.StatusFilter {
		switch s {
		case models.Reconciled, models.AmountMismatch, models.MissingInStatement, models.MissingInSettlement:
		default:
			return fmt.Errorf("unknown status filter: %s", s)
		}
	}
	return nil
}

// ReportGenerator generates reconciliation reports in various formats
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a new report generator with the specified configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}
	return &ReportGenerator{config: config}, nil
}

// GenerateReport renders report to writer in the configured format
func (rg *ReportGenerator) GenerateReport(report *models.Report, writer io.Writer) error {
	if report == nil {
		return fmt.Errorf("report cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.generateConsoleReport(report, writer)
	case FormatJSON:
		return rg.generateJSONReport(report, writer)
	case FormatCSV:
		return rg.generateCSVReport(report, writer)
	case FormatHTML:
		return rg.generateHTMLReport(report, writer)
	case FormatXLSX:
		return rg.generateXLSXReport(report, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

// Records returns the records selected by the status filter, in report order.
func (rg *ReportGenerator) Records(report *models.Report) []models.MatchRecord {
	if len(rg.config.StatusFilter) == 0 {
		return report.Records
	}
	keep := make(map[models.FinalReconcileStatus]bool, len(rg.config.StatusFilter))
	for _, s := range rg.config.StatusFilter {
		keep[s] = true
	}
	out := make([]models.MatchRecord, 0, len(report.Records))
	for _, rec := range report.Records {
		if keep[rec.FinalReconcileStatus] {
			out = append(out, rec)
		}
	}
	return out
}

func (rg *ReportGenerator) generateConsoleReport(report *models.Report, writer io.Writer) error {
	fmt.Fprintf(writer, "RECONCILIATION REPORT\n")
	fmt.Fprintf(writer, "Run ID: %s\n", report.RunID)
	fmt.Fprintf(writer, "Generated: %s\n", report.ProcessedAt.Format(time.RFC3339))
	fmt.Fprintf(writer, "Processing Duration: %v\n\n", report.Duration.Round(time.Millisecond))

	if rg.config.IncludeSummary && report.Summary != nil {
		fmt.Fprintf(writer, "=== SUMMARY ===\n")
		rg.printSummary(report.Summary, writer)
		fmt.Fprintf(writer, "\n")
	}

	records := rg.Records(report)
	fmt.Fprintf(writer, "=== RESULTS ===\n")
	tw := tabwriter.NewWriter(writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(models.ReportColumns, "\t"))
	for i, rec := range records {
		if rg.config.MaxConsoleRows > 0 && i >= rg.config.MaxConsoleRows {
			fmt.Fprintf(tw, "... %d more\t\t\t\n", len(records)-i)
			break
		}
		fmt.Fprintln(tw, strings.Join(rec.Columns(), "\t"))
	}
	return tw.Flush()
}

func (rg *ReportGenerator) printSummary(summary *models.Summary, writer io.Writer) {
	fmt.Fprintf(writer, "Statement:  %d data rows, %d with PartnerPin, %d eligible\n",
		summary.Statement.DataRows, summary.Statement.RowsWithPin, summary.Statement.EligibleRows)
	fmt.Fprintf(writer, "Settlement: %d data rows, %d with PartnerPin, %d eligible\n",
		summary.Settlement.DataRows, summary.Settlement.RowsWithPin, summary.Settlement.EligibleRows)
	fmt.Fprintf(writer, "\nRecords: %d\n", summary.TotalRecords)
	for _, status := range statusOrder {
		n := summary.ByStatus[status]
		fmt.Fprintf(writer, "  %-22s %d (%.1f%%)\n", string(status)+":", n, percentage(n, summary.TotalRecords))
	}
	fmt.Fprintf(writer, "Net Variance: %s\n", summary.NetVariance.StringFixed(models.VariancePlaces))
}

var statusOrder = []models.FinalReconcileStatus{
	models.Reconciled,
	models.AmountMismatch,
	models.MissingInStatement,
	models.MissingInSettlement,
}

func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// jsonRecord renders a record with the variance as fixed-point text.
type jsonRecord struct {
	PartnerPin           string `json:"PartnerPin"`
	Classification       string `json:"Classification"`
	FinalReconcileStatus string `json:"FinalReconcileStatus"`
	AmountVariance       string `json:"AmountVariance"`
}

type jsonReport struct {
	RunID       string          `json:"run_id"`
	ProcessedAt time.Time       `json:"processed_at"`
	DurationMS  int64           `json:"duration_ms"`
	Summary     *models.Summary `json:"summary,omitempty"`
	Records     []jsonRecord    `json:"records"`
}

// NewJSONReport converts report into its JSON shape.
func (rg *ReportGenerator) NewJSONReport(report *models.Report) interface{} {
	records := rg.Records(report)
	out := jsonReport{
		RunID:       report.RunID,
		ProcessedAt: report.ProcessedAt,
		DurationMS:  report.Duration.Milliseconds(),
		Records:     make([]jsonRecord, len(records)),
	}
	if rg.config.IncludeSummary {
		out.Summary = report.Summary
	}
	for i, rec := range records {
		cols := rec.Columns()
		out.Records[i] = jsonRecord{
			PartnerPin:           cols[0],
			Classification:       cols[1],
			FinalReconcileStatus: cols[2],
			AmountVariance:       cols[3],
		}
	}
	return out
}

func (rg *ReportGenerator) generateJSONReport(report *models.Report, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(rg.NewJSONReport(report))
}

func (rg *ReportGenerator) generateCSVReport(report *models.Report, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter

	if rg.config.CSVHeaders {
		if err := csvWriter.Write(models.ReportColumns); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}
	for _, rec := range rg.Records(report) {
		if err := csvWriter.Write(rec.Columns()); err != nil {
			return fmt.Errorf("failed to write record %s: %w", rec.PartnerPin, err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

// UpdateConfiguration updates the report configuration
func (rg *ReportGenerator) UpdateConfiguration(config *ReportConfig) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid report configuration: %w", err)
	}
	rg.config = config
	return nil
}

// GetConfiguration returns the current report configuration
func (rg *ReportGenerator) GetConfiguration() *ReportConfig {
	return rg.config
}
