package config

import (
	"fmt"
	"strings"

	"settlement-reconciliation-service/internal/matcher"
	"settlement-reconciliation-service/internal/models"
	"settlement-reconciliation-service/internal/parsers"
	"settlement-reconciliation-service/internal/reconciler"
	"settlement-reconciliation-service/internal/reporter"
	"settlement-reconciliation-service/internal/server"
	"settlement-reconciliation-service/pkg/logger"
)

// CreateLoadConfig creates the loader configuration used for both input files
func CreateLoadConfig(legacyText bool) *parsers.LoadConfig {
	config := parsers.DefaultLoadConfig()
	config.DecodeLegacyText = legacyText
	return config
}

// CreateMatchingConfig creates a matching configuration with the specified tolerance
func CreateMatchingConfig(amountTolerance float64) *matcher.MatchingConfig {
	config := matcher.DefaultMatchingConfig()

	// Apply CLI overrides
	config.AmountTolerance = amountTolerance

	return config
}

// CreateReconcilerConfig creates a reconciler configuration
func CreateReconcilerConfig(amountTolerance float64, sequential, legacyText bool) (*reconciler.Config, error) {
	config := reconciler.DefaultConfig()

	config.Load = CreateLoadConfig(legacyText)
	config.Matching = CreateMatchingConfig(amountTolerance)
	config.Parallel = !sequential

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// CreateReportConfig creates a report configuration for the specified output format
func CreateReportConfig(format string, statuses []string, maxRows int) (*reporter.ReportConfig, error) {
	config := reporter.DefaultReportConfig()
	config.Format = reporter.OutputFormat(strings.ToLower(strings.TrimSpace(format)))
	config.MaxConsoleRows = maxRows

	switch config.Format {
	case reporter.FormatCSV:
		// CSV is for record data only
		config.IncludeSummary = false
	case reporter.FormatConsole, reporter.FormatJSON, reporter.FormatHTML, reporter.FormatXLSX:
		config.IncludeSummary = true
	}

	filter, err := ParseStatusFilter(statuses)
	if err != nil {
		return nil, err
	}
	config.StatusFilter = filter

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// statusAliases maps the spellings accepted on the command line to statuses.
var statusAliases = map[string]models.FinalReconcileStatus{
	"reconciled":            models.Reconciled,
	"amount-mismatch":       models.AmountMismatch,
	"mismatch":              models.AmountMismatch,
	"missing-in-statement":  models.MissingInStatement,
	"missing-in-settlement": models.MissingInSettlement,
}

// ParseStatusFilter converts CLI status names into FinalReconcileStatus values.
// Both the hyphenated form and the exact report label are accepted.
func ParseStatusFilter(values []string) ([]models.FinalReconcileStatus, error) {
	var filter []models.FinalReconcileStatus
	for _, raw := range values {
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}
		key := strings.ToLower(strings.ReplaceAll(value, " ", "-"))
		status, ok := statusAliases[key]
		if !ok {
			return nil, fmt.Errorf("unknown status %q (valid: reconciled, amount-mismatch, missing-in-statement, missing-in-settlement)", value)
		}
		filter = append(filter, status)
	}
	return filter, nil
}

// CreateLoggerConfig creates the logger configuration for the CLI. Only
// warnings reach stderr unless verbose is set.
func CreateLoggerConfig(verbose bool, format string) *logger.Config {
	config := logger.DefaultConfig()
	config.Level = logger.WarnLevel
	if verbose {
		config = logger.DebugConfig()
	}
	if format != "" {
		config.Format = logger.Format(strings.ToLower(format))
	}
	return config
}

// ResolveListenAddr picks the web server address. An explicit address wins,
// then the PORT value, then :5000.
func ResolveListenAddr(addr, port string) string {
	switch {
	case addr != "":
		return addr
	case port != "":
		return ":" + strings.TrimPrefix(port, ":")
	default:
		return ":5000"
	}
}

// CreateServerConfig creates the web server configuration
func CreateServerConfig(uploadDir string, keepUploads bool, allowOrigins []string) (*server.Config, error) {
	config := server.DefaultConfig()
	config.UploadDir = uploadDir
	config.KeepUploads = keepUploads
	config.AllowOrigins = allowOrigins

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
