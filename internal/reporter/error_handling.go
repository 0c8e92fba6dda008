package reporter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"settlement-reconciliation-service/internal/models"
	"settlement-reconciliation-service/pkg/errors"
	"settlement-reconciliation-service/pkg/logger"
)

// SafeReportGenerator wraps ReportGenerator with logging, input validation
// and a console fallback when the requested format cannot be produced.
type SafeReportGenerator struct {
	*ReportGenerator
	logger logger.Logger
}

// NewSafeReportGenerator creates a new safe report generator with error handling
func NewSafeReportGenerator(config *ReportConfig, log logger.Logger) (*SafeReportGenerator, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	generator, err := NewReportGenerator(config)
	if err != nil {
		return nil, errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"report_config",
			config,
			err,
		).WithSuggestion("check the report format and CSV delimiter settings")
	}

	return &SafeReportGenerator{
		ReportGenerator: generator,
		logger:          log.WithComponent("reporter"),
	}, nil
}

// GenerateReportSafely renders report to writer, falling back to the console
// format for text formats that fail.
func (srg *SafeReportGenerator) GenerateReportSafely(report *models.Report, writer io.Writer) error {
	srg.logger.WithFields(logger.Fields{
		"format": srg.config.Format,
		"output": getWriterDescription(writer),
	}).Debug("Starting report generation")

	if err := srg.validateInputs(report, writer); err != nil {
		srg.logger.WithError(err).Error("Report generation failed: input validation")
		return err
	}

	err := srg.GenerateReport(report, writer)
	if err == nil {
		srg.logger.WithField("records", len(srg.Records(report))).Info("Report generated")
		return nil
	}

	srg.logger.WithError(err).Warn("Primary report generation failed")
	if !srg.shouldAttemptFormatFallback() {
		return srg.wrapGenerationError(err)
	}
	return srg.generateWithFormatFallback(report, writer, err)
}

// WriteReportFile renders report into a new file at path.
func (srg *SafeReportGenerator) WriteReportFile(report *models.Report, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return srg.fileError(path, err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return srg.fileError(path, err)
	}

	if err := srg.GenerateReportSafely(report, file); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return srg.fileError(path, err)
	}

	srg.logger.WithFields(logger.Fields{
		"path":   path,
		"format": srg.config.Format,
	}).Info("Report written")
	return nil
}

func (srg *SafeReportGenerator) validateInputs(report *models.Report, writer io.Writer) error {
	if report == nil {
		return errors.ValidationError(errors.CodeMissingField, "report", nil, nil).
			WithSuggestion("run the reconciliation before generating a report")
	}
	if writer == nil {
		return errors.ValidationError(errors.CodeMissingField, "writer", nil, nil)
	}
	if srg.config.IncludeSummary && report.Summary == nil {
		return errors.ValidationError(errors.CodeMissingField, "summary", nil, nil).
			WithSuggestion("ensure the report includes a summary or disable summary output")
	}
	return nil
}

// Binary formats cannot be mixed with console text.
func (srg *SafeReportGenerator) shouldAttemptFormatFallback() bool {
	return srg.config.Format != FormatConsole && !srg.config.Format.IsBinary()
}

func (srg *SafeReportGenerator) generateWithFormatFallback(report *models.Report, writer io.Writer, originalErr error) error {
	fallbackConfig := *srg.config
	fallbackConfig.Format = FormatConsole

	srg.logger.WithField("fallback_format", FormatConsole).Info("Attempting format fallback")

	fallbackGenerator, err := NewReportGenerator(&fallbackConfig)
	if err != nil {
		return srg.wrapGenerationError(originalErr)
	}

	fmt.Fprintf(writer, "NOTE: Report generated in fallback format due to error with requested format\n")
	fmt.Fprintf(writer, "Original error: %v\n\n", originalErr)

	if err := fallbackGenerator.GenerateReport(report, writer); err != nil {
		return errors.InternalError(
			errors.CodeUnexpectedError,
			"report_fallback",
			fmt.Errorf("both primary and fallback generation failed: primary=%v, fallback=%v", originalErr, err),
		)
	}

	srg.logger.Info("Report generated successfully using format fallback")
	return nil
}

func (srg *SafeReportGenerator) fileError(path string, err error) error {
	code := errors.CodeFileCorrupted
	if os.IsPermission(err) {
		code = errors.CodeFilePermission
	}
	return errors.FileError(code, path, err).
		WithSuggestion("check that the output directory exists and is writable")
}

func (srg *SafeReportGenerator) wrapGenerationError(err error) error {
	if reconcilerErr, ok := errors.AsReconcilerError(err); ok {
		return reconcilerErr
	}

	return errors.InternalError(
		errors.CodeProcessingError,
		"report_generation",
		err,
	).WithSuggestion("check the output destination and report format settings")
}

func getWriterDescription(writer io.Writer) string {
	switch w := writer.(type) {
	case *os.File:
		if w.Name() != "" {
			return fmt.Sprintf("file:%s", w.Name())
		}
		return "file:unnamed"
	default:
		return fmt.Sprintf("writer:%T", writer)
	}
}
