package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"settlement-reconciliation-service/internal/fixtures"
	"settlement-reconciliation-service/internal/models"
	"settlement-reconciliation-service/pkg/errors"
	"settlement-reconciliation-service/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the sample command
var (
	sampleDir      string
	sampleFormat   string
	sampleScenario = fixtures.DefaultScenarioConfig()
)

// sampleCmd represents the sample command
var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Write an example statement and settlement pair",
	Long: `Sample writes statement and settlement files in the standard export
layouts with a known mix of outcomes, for trying out the reconcile and
serve commands.

Examples:
  reconciler sample --output-dir ./sample
  reconciler sample --output-dir ./sample --format csv --seed 7 --reconciled 100`,

	RunE: runSample,
}

func init() {
	rootCmd.AddCommand(sampleCmd)

	sampleCmd.Flags().StringVar(&sampleDir, "output-dir", ".", "directory to write the files to")
	sampleCmd.Flags().StringVar(&sampleFormat, "format", "xlsx", "file format: xlsx, csv")
	sampleCmd.Flags().Int64Var(&sampleScenario.Seed, "seed", sampleScenario.Seed, "random seed")
	sampleCmd.Flags().IntVar(&sampleScenario.Reconciled, "reconciled", sampleScenario.Reconciled, "pins that reconcile")
	sampleCmd.Flags().IntVar(&sampleScenario.Mismatched, "mismatched", sampleScenario.Mismatched, "pins with an amount mismatch")
	sampleCmd.Flags().IntVar(&sampleScenario.SettlementOnly, "settlement-only", sampleScenario.SettlementOnly, "pins missing from the statement")
	sampleCmd.Flags().IntVar(&sampleScenario.StatementOnly, "statement-only", sampleScenario.StatementOnly, "pins missing from the settlement file")
	sampleCmd.Flags().IntVar(&sampleScenario.CancelledDuplicates, "cancelled", sampleScenario.CancelledDuplicates, "pins paid after a cancellation")
	sampleCmd.Flags().IntVar(&sampleScenario.DollarReceived, "dollar-received", sampleScenario.DollarReceived, "excluded dollar received statement rows")

	viper.BindPFlag("output-dir", sampleCmd.Flags().Lookup("output-dir"))
}

func runSample(cmd *cobra.Command, args []string) error {
	dir := viper.GetString("output-dir")

	var write func(string, *models.RawTable) error
	switch sampleFormat {
	case "xlsx":
		write = fixtures.WriteXLSX
	case "csv":
		write = fixtures.WriteCSV
	default:
		return errors.ConfigurationError(errors.CodeInvalidConfig, "format", sampleFormat,
			fmt.Errorf("sample format must be xlsx or csv"))
	}

	scenario, err := fixtures.GenerateScenario(sampleScenario)
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "scenario", sampleScenario, err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.FileError(errors.CodeFilePermission, dir, err)
	}

	files := []struct {
		name  string
		table func(string) *models.RawTable
	}{
		{"statement." + sampleFormat, func(path string) *models.RawTable { return fixtures.StatementTable(path, scenario.Statement) }},
		{"settlement." + sampleFormat, func(path string) *models.RawTable { return fixtures.SettlementTable(path, scenario.Settlement) }},
	}
	out := cmd.OutOrStdout()
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := write(path, f.table(path)); err != nil {
			return errors.FileError(errors.CodeFilePermission, path, err)
		}
		fmt.Fprintf(out, "wrote %s\n", path)
		logger.Debugf("Wrote sample file %s", path)
	}

	counts := make(map[models.FinalReconcileStatus]int)
	for _, status := range scenario.Expected {
		counts[status]++
	}
	fmt.Fprintf(out, "expected: %d reconciled, %d amount mismatch, %d missing in statement, %d missing in settlement\n",
		counts[models.Reconciled], counts[models.AmountMismatch],
		counts[models.MissingInStatement], counts[models.MissingInSettlement])
	return nil
}
