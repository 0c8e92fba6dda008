package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"settlement-reconciliation-service/internal/fixtures"
	"settlement-reconciliation-service/internal/models"
	"settlement-reconciliation-service/internal/reconciler"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func TestRunSampleRoundTrip(t *testing.T) {
	for _, format := range []string{"xlsx", "csv"} {
		t.Run(format, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "sample")

			viper.Reset()
			viper.Set("output-dir", dir)
			sampleFormat = format
			sampleScenario = fixtures.DefaultScenarioConfig()

			cmd := &cobra.Command{}
			var out bytes.Buffer
			cmd.SetOut(&out)
			if err := runSample(cmd, nil); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(out.String(), "expected: 22 reconciled, 5 amount mismatch") {
				t.Errorf("unexpected summary: %s", out.String())
			}

			statement := filepath.Join(dir, "statement."+format)
			settlement := filepath.Join(dir, "settlement."+format)
			for _, path := range []string{statement, settlement} {
				if _, err := os.Stat(path); err != nil {
					t.Fatalf("expected %s to exist: %v", path, err)
				}
			}

			service, err := reconciler.NewReconciliationService(reconciler.DefaultConfig())
			if err != nil {
				t.Fatalf("failed to create service: %v", err)
			}
			report, err := service.Process(context.Background(), &reconciler.ReconciliationRequest{
				StatementFile:  statement,
				SettlementFile: settlement,
			})
			if err != nil {
				t.Fatalf("reconciliation of sample failed: %v", err)
			}

			scenario, _ := fixtures.GenerateScenario(fixtures.DefaultScenarioConfig())
			if len(report.Records) != len(scenario.Expected) {
				t.Fatalf("expected %d records, got %d", len(scenario.Expected), len(report.Records))
			}
			for _, rec := range report.Records {
				if want := scenario.Expected[rec.PartnerPin]; rec.FinalReconcileStatus != want {
					t.Errorf("pin %s: expected %s, got %s", rec.PartnerPin, want, rec.FinalReconcileStatus)
				}
			}
			if report.Summary.ByStatus[models.Reconciled] != 22 {
				t.Errorf("expected 22 reconciled, got %d", report.Summary.ByStatus[models.Reconciled])
			}
		})
	}
}

func TestRunSampleRejectsFormat(t *testing.T) {
	viper.Reset()
	viper.Set("output-dir", t.TempDir())
	sampleFormat = "ods"
	defer func() { sampleFormat = "xlsx" }()

	if err := runSample(&cobra.Command{}, nil); err == nil {
		t.Error("expected error for unsupported sample format")
	}
}
