package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"settlement-reconciliation-service/cmd/reconciler/config"
	"settlement-reconciliation-service/internal/models"
	"settlement-reconciliation-service/internal/reconciler"
	"settlement-reconciliation-service/internal/reporter"
	"settlement-reconciliation-service/pkg/errors"
	"settlement-reconciliation-service/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the reconcile command
var (
	statementFile   string
	settlementFile  string
	outputFormat    string
	outputFile      string
	amountTolerance float64
	statusFilter    []string
	maxRows         int
	sequential      bool
	strictEncoding  bool
	showProgress    bool
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile a partner statement against a settlement file",
	Long: `Reconcile joins a partner statement export and an internal settlement
export on PartnerPin and classifies every pin found in either file.

This command requires:
- A partner statement file (xlsx, xlsm, xls or csv)
- A settlement file (xlsx, xlsm, xls or csv)

Examples:
  # Basic reconciliation printed to the terminal
  reconciler reconcile --statement statement.xlsx --settlement settlement.xlsx

  # Write the result workbook, format taken from the extension
  reconciler reconcile -s statement.xlsx -t settlement.xls --output-file reconciliation_result.xlsx

  # Only show problems, as JSON
  reconciler reconcile -s statement.csv -t settlement.csv \
    --output-format json --status amount-mismatch,missing-in-statement,missing-in-settlement

  # Custom tolerance with progress indicators
  reconciler reconcile -s statement.xlsx -t settlement.xlsx --amount-tolerance 0.05 --progress`,

	PreRunE: validateReconcileFlags,
	RunE:    runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	// Required flags
	reconcileCmd.Flags().StringVarP(&statementFile, "statement", "s", "", "path to the partner statement file (required)")
	reconcileCmd.Flags().StringVarP(&settlementFile, "settlement", "t", "", "path to the settlement file (required)")

	// Output flags
	reconcileCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "", "output format: console, json, csv, html, xlsx (default: from --output-file extension, else console)")
	reconcileCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")
	reconcileCmd.Flags().StringSliceVar(&statusFilter, "status", []string{}, "only report these statuses: reconciled, amount-mismatch, missing-in-statement, missing-in-settlement")
	reconcileCmd.Flags().IntVar(&maxRows, "max-rows", 0, "limit the console table to this many rows (0: no limit)")

	// Matching configuration flags
	reconcileCmd.Flags().Float64VarP(&amountTolerance, "amount-tolerance", "a", 0.01, "largest absolute USD difference treated as reconciled")

	// Processing flags
	reconcileCmd.Flags().BoolVar(&sequential, "sequential", false, "prepare the two files one after the other")
	reconcileCmd.Flags().BoolVar(&strictEncoding, "strict-encoding", false, "reject CSV input that is not valid UTF-8 instead of reading it as Windows-1252")
	reconcileCmd.Flags().BoolVar(&showProgress, "progress", false, "show progress indicators")

	// Bind flags to viper
	for _, name := range []string{
		"statement", "settlement", "output-format", "output-file", "status",
		"max-rows", "amount-tolerance", "sequential", "strict-encoding", "progress",
	} {
		viper.BindPFlag(name, reconcileCmd.Flags().Lookup(name))
	}
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	// Get values from viper (allows override from config file)
	statementFile = viper.GetString("statement")
	settlementFile = viper.GetString("settlement")
	outputFormat = viper.GetString("output-format")
	outputFile = viper.GetString("output-file")
	statusFilter = viper.GetStringSlice("status")
	maxRows = viper.GetInt("max-rows")
	amountTolerance = viper.GetFloat64("amount-tolerance")
	sequential = viper.GetBool("sequential")
	strictEncoding = viper.GetBool("strict-encoding")
	showProgress = viper.GetBool("progress")

	// Validate required flags
	if statementFile == "" {
		return errors.ValidationError(errors.CodeMissingField, "statement", nil, nil).
			WithSuggestion("pass the partner statement with --statement")
	}
	if settlementFile == "" {
		return errors.ValidationError(errors.CodeMissingField, "settlement", nil, nil).
			WithSuggestion("pass the settlement file with --settlement")
	}

	// Validate file existence
	if err := validateFileExists(statementFile, "statement file"); err != nil {
		return err
	}
	if err := validateFileExists(settlementFile, "settlement file"); err != nil {
		return err
	}

	// Resolve and validate output format
	format, err := resolveOutputFormat(outputFormat, outputFile)
	if err != nil {
		return err
	}
	outputFormat = string(format)
	if format.IsBinary() && outputFile == "" {
		return errors.ConfigurationError(errors.CodeMissingConfig, "output-file", nil, nil).
			WithSuggestion("xlsx output needs --output-file")
	}

	// Validate tolerance
	if amountTolerance < 0 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "amount-tolerance", amountTolerance,
			fmt.Errorf("amount tolerance cannot be negative"))
	}
	if maxRows < 0 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "max-rows", maxRows,
			fmt.Errorf("max rows cannot be negative"))
	}
	if _, err := config.ParseStatusFilter(statusFilter); err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "status", statusFilter, err)
	}

	// Validate output file directory exists if specified
	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return errors.FileError(errors.CodeFileNotFound, dir, err).
					WithSuggestion("create the output directory first")
			}
		}
	}

	return nil
}

// resolveOutputFormat applies the explicit format, then the output file
// extension, then console.
func resolveOutputFormat(format, file string) (reporter.OutputFormat, error) {
	if format != "" {
		f := reporter.OutputFormat(format)
		if !f.IsValid() {
			return "", errors.ConfigurationError(errors.CodeInvalidConfig, "output-format", format,
				fmt.Errorf("invalid output format '%s'. Valid formats: console, json, csv, html, xlsx", format))
		}
		return f, nil
	}
	if file != "" {
		if f, ok := reporter.FormatFromPath(file); ok {
			return f, nil
		}
	}
	return reporter.FormatConsole, nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return errors.ValidationError(errors.CodeMissingField, description, nil, nil)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return errors.FileError(errors.CodeFileNotFound, filePath, err).
			WithContext("description", description)
	}
	if err != nil {
		return errors.FileError(errors.CodeFilePermission, filePath, err)
	}

	if info.IsDir() {
		return errors.FileError(errors.CodeFileCorrupted, filePath, fmt.Errorf("%s is a directory, expected a file", description)).
			WithSuggestion("pass the path of the exported file, not its folder")
	}

	// Check if file is readable
	file, err := os.Open(filePath)
	if err != nil {
		return errors.FileError(errors.CodeFilePermission, filePath, err)
	}
	file.Close()

	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	log := logger.WithComponent("cli")

	log.WithFields(logger.Fields{
		"statement":     statementFile,
		"settlement":    settlementFile,
		"output_format": outputFormat,
		"output_file":   outputFile,
	}).Debug("Starting reconciliation")

	// Create configurations
	reconcilerConfig, err := config.CreateReconcilerConfig(amountTolerance, sequential, !strictEncoding)
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "reconciler", nil, err)
	}
	reportConfig, err := config.CreateReportConfig(outputFormat, statusFilter, maxRows)
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "report", outputFormat, err)
	}

	service, err := reconciler.NewReconciliationService(reconcilerConfig)
	if err != nil {
		return err
	}

	if showProgress {
		service.AddProgressCallback(func(p reconciler.Progress) {
			fmt.Fprintf(os.Stderr, "\r[%d/%d] %-20s", p.CompletedSteps, p.TotalSteps, p.Stage)
		})
	}

	report, err := service.Process(ctx, &reconciler.ReconciliationRequest{
		StatementFile:  statementFile,
		SettlementFile: settlementFile,
	})
	if showProgress {
		fmt.Fprintln(os.Stderr) // New line after progress
	}
	if err != nil {
		return err
	}

	// Generate report
	generator, err := reporter.NewSafeReportGenerator(reportConfig, logger.GetGlobalLogger())
	if err != nil {
		return err
	}

	if outputFile != "" {
		if err := generator.WriteReportFile(report, outputFile); err != nil {
			return err
		}
	} else if err := generator.GenerateReportSafely(report, cmd.OutOrStdout()); err != nil {
		return err
	}

	printCompletion(report)
	return nil
}

// printCompletion writes a short run summary to stderr in verbose mode or
// when the report went to a file.
func printCompletion(report *models.Report) {
	if !viper.GetBool("verbose") && outputFile == "" {
		return
	}
	s := report.Summary
	fmt.Fprintf(os.Stderr, "Reconciliation %s completed in %v.\n", report.RunID, report.Duration)
	fmt.Fprintf(os.Stderr, "Statement rows: %d (%d eligible), settlement rows: %d (%d eligible).\n",
		s.Statement.DataRows, s.Statement.EligibleRows, s.Settlement.DataRows, s.Settlement.EligibleRows)
	fmt.Fprintf(os.Stderr, "%d pins: %d reconciled, %d amount mismatch, %d missing in statement, %d missing in settlement.\n",
		s.TotalRecords,
		s.ByStatus[models.Reconciled], s.ByStatus[models.AmountMismatch],
		s.ByStatus[models.MissingInStatement], s.ByStatus[models.MissingInSettlement])
	if outputFile != "" {
		fmt.Fprintf(os.Stderr, "Report written to %s.\n", outputFile)
	}
}
