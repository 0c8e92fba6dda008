package matcher

import (
	"testing"

	"settlement-reconciliation-service/internal/models"
	"settlement-reconciliation-service/pkg/errors"
)

func eligible(pin string, amount *float64) models.NormalizedRow {
	return models.NormalizedRow{PartnerPin: pin, AmountUSD: amount, ReconcileStatus: models.ShouldReconcile}
}

func reconcile(t *testing.T, settlement, statement []models.NormalizedRow) []models.MatchRecord {
	t.Helper()
	engine := NewMatchingEngine(DefaultMatchingConfig())
	engine.LoadSettlementRows(settlement)
	engine.LoadStatementRows(statement)
	result, err := engine.Reconcile()
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	return result.Records
}

func TestMatchingEngine_Reconcile(t *testing.T) {
	tests := []struct {
		name       string
		settlement []models.NormalizedRow
		statement  []models.NormalizedRow
		want       []string
	}{
		{
			name:       "within tolerance",
			settlement: []models.NormalizedRow{eligible("77712345678", models.Float(100.00))},
			statement:  []models.NormalizedRow{eligible("77712345678", models.Float(100.005))},
			want:       []string{"77712345678", string(models.PresentInBoth), string(models.Reconciled), "-0.005000"},
		},
		{
			name:       "settlement only",
			settlement: []models.NormalizedRow{eligible("22222222222", models.Float(5))},
			want:       []string{"22222222222", string(models.PresentInSettlementOnly), string(models.MissingInStatement), models.NoValue},
		},
		{
			name:      "statement only",
			statement: []models.NormalizedRow{eligible("33333333333", models.Float(5))},
			want:      []string{"33333333333", string(models.PresentInStatementOnly), string(models.MissingInSettlement), models.NoValue},
		},
		{
			name:       "tiny variance prints as zero",
			settlement: []models.NormalizedRow{eligible("77700000001", models.Float(10.0000003))},
			statement:  []models.NormalizedRow{eligible("77700000001", models.Float(10))},
			want:       []string{"77700000001", string(models.PresentInBoth), string(models.Reconciled), "0.000000"},
		},
		{
			name:       "tiny negative variance prints as zero",
			settlement: []models.NormalizedRow{eligible("77700000001", models.Float(10))},
			statement:  []models.NormalizedRow{eligible("77700000001", models.Float(10.0000003))},
			want:       []string{"77700000001", string(models.PresentInBoth), string(models.Reconciled), "0.000000"},
		},
		{
			name:       "outside tolerance",
			settlement: []models.NormalizedRow{eligible("77700000002", models.Float(100))},
			statement:  []models.NormalizedRow{eligible("77700000002", models.Float(99.98))},
			want:       []string{"77700000002", string(models.PresentInBoth), string(models.AmountMismatch), "0.020000"},
		},
		{
			name:       "missing settlement amount",
			settlement: []models.NormalizedRow{eligible("77700000003", nil)},
			statement:  []models.NormalizedRow{eligible("77700000003", models.Float(1))},
			want:       []string{"77700000003", string(models.PresentInBoth), string(models.AmountMismatch), models.NoValue},
		},
		{
			name:       "missing statement amount",
			settlement: []models.NormalizedRow{eligible("77700000004", models.Float(1))},
			statement:  []models.NormalizedRow{eligible("77700000004", nil)},
			want:       []string{"77700000004", string(models.PresentInBoth), string(models.AmountMismatch), models.NoValue},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := reconcile(t, tt.settlement, tt.statement)
			if len(records) != 1 {
				t.Fatalf("Expected 1 record, got %d", len(records))
			}
			got := records[0].Columns()
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("Column %s = %q, want %q", models.ReportColumns[i], got[i], tt.want[i])
				}
			}
		})
	}
}

func TestMatchingEngine_ToleranceUsesUnroundedVariance(t *testing.T) {
	records := reconcile(t,
		[]models.NormalizedRow{eligible("77700000001", models.Float(100.0100004))},
		[]models.NormalizedRow{eligible("77700000001", models.Float(100))},
	)
	if records[0].FinalReconcileStatus != models.AmountMismatch {
		t.Errorf("Expected %s for variance just over tolerance, got %s", models.AmountMismatch, records[0].FinalReconcileStatus)
	}
	if got := records[0].VarianceString(); got != "0.010000" {
		t.Errorf("Expected rounded variance 0.010000, got %s", got)
	}
}

func TestMatchingEngine_EmissionOrder(t *testing.T) {
	settlement := []models.NormalizedRow{
		eligible("77700000003", models.Float(1)),
		eligible("77700000001", models.Float(1)),
		eligible("77700000002", models.Float(1)),
	}
	statement := []models.NormalizedRow{
		eligible("77700000009", models.Float(1)),
		eligible("77700000002", models.Float(1)),
		eligible("77700000008", models.Float(1)),
	}

	records := reconcile(t, settlement, statement)
	want := []string{"77700000003", "77700000001", "77700000002", "77700000009", "77700000008"}
	if len(records) != len(want) {
		t.Fatalf("Expected %d records, got %d", len(want), len(records))
	}
	for i, pin := range want {
		if records[i].PartnerPin != pin {
			t.Errorf("records[%d] = %s, want %s", i, records[i].PartnerPin, pin)
		}
	}
	if records[2].Classification != models.PresentInBoth {
		t.Errorf("Expected shared pin to be present in both, got %s", records[2].Classification)
	}
}

func TestMatchingEngine_FiltersAndDeduplicates(t *testing.T) {
	settlement := []models.NormalizedRow{
		{PartnerPin: "77700000001", AmountUSD: models.Float(1), ReconcileStatus: models.ShouldNotReconcile},
		eligible("77700000002", models.Float(10)),
		eligible("77700000002", models.Float(99)),
		eligible("7770000000", models.Float(1)),
		eligible("", models.Float(1)),
	}
	statement := []models.NormalizedRow{
		eligible("77700000002", models.Float(10)),
	}

	engine := NewMatchingEngine(nil)
	engine.LoadSettlementRows(settlement)
	engine.LoadStatementRows(statement)
	result, err := engine.Reconcile()
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	if len(result.Records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(result.Records))
	}
	if result.Records[0].FinalReconcileStatus != models.Reconciled {
		t.Errorf("Expected first occurrence to be kept, got %s", result.Records[0].FinalReconcileStatus)
	}

	stats := result.SettlementStats
	if stats.IneligibleRows != 1 || stats.DuplicateRows != 1 || stats.InvalidPins != 2 || stats.UniquePins != 1 {
		t.Errorf("Unexpected settlement stats: %+v", stats)
	}
}

func TestMatchingEngine_NoInput(t *testing.T) {
	records := reconcile(t, nil, nil)
	if len(records) != 0 {
		t.Errorf("Expected no records, got %d", len(records))
	}
}

func TestMatchingEngine_Idempotent(t *testing.T) {
	settlement := []models.NormalizedRow{eligible("77700000001", models.Float(3.3)), eligible("77700000002", nil)}
	statement := []models.NormalizedRow{eligible("77700000001", models.Float(1.1)), eligible("77700000003", models.Float(2))}

	first := reconcile(t, settlement, statement)
	second := reconcile(t, settlement, statement)
	for i := range first {
		a, b := first[i].Columns(), second[i].Columns()
		for j := range a {
			if a[j] != b[j] {
				t.Errorf("Run mismatch at record %d column %d: %q vs %q", i, j, a[j], b[j])
			}
		}
	}
}

func TestMatchingConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*MatchingConfig)
		wantErr bool
	}{
		{"default", func(*MatchingConfig) {}, false},
		{"negative tolerance", func(c *MatchingConfig) { c.AmountTolerance = -1 }, true},
		{"negative snap", func(c *MatchingConfig) { c.ZeroSnapThreshold = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultMatchingConfig()
			tt.modify(config)
			if err := config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMatchingEngine_UpdateConfiguration(t *testing.T) {
	engine := NewMatchingEngine(nil)
	bad := DefaultMatchingConfig()
	bad.AmountTolerance = -1
	if err := engine.UpdateConfiguration(bad); !errors.HasCode(err, errors.CodeInvalidConfig) {
		t.Errorf("Expected %s, got %v", errors.CodeInvalidConfig, err)
	}

	relaxed := DefaultMatchingConfig()
	relaxed.AmountTolerance = 1
	if err := engine.UpdateConfiguration(relaxed); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	engine.LoadSettlementRows([]models.NormalizedRow{eligible("77700000001", models.Float(10.5))})
	engine.LoadStatementRows([]models.NormalizedRow{eligible("77700000001", models.Float(10))})
	result, _ := engine.Reconcile()
	if result.Records[0].FinalReconcileStatus != models.Reconciled {
		t.Errorf("Expected relaxed tolerance to reconcile, got %s", result.Records[0].FinalReconcileStatus)
	}
}

func TestRoundVariance(t *testing.T) {
	config := DefaultMatchingConfig()
	tests := []struct {
		input float64
		want  string
	}{
		{-0.00499999999999545, "-0.005000"},
		{0.0000004, "0.000000"},
		{-0.0000004, "0.000000"},
		{1.2345675, "1.234568"},
		{-250, "-250.000000"},
		{1.25e-05, "0.000012"},
		{2.5e-06, "0.000002"},
		{-2.5e-06, "-0.000002"},
		{3.5e-06, "0.000004"},
		{4.5e-06, "0.000004"},
	}
	for _, tt := range tests {
		if got := config.RoundVariance(tt.input).StringFixed(models.VariancePlaces); got != tt.want {
			t.Errorf("RoundVariance(%v) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestMatchingEngine_DropsUnclassifiedRows(t *testing.T) {
	engine := NewMatchingEngine(DefaultMatchingConfig())
	joined := []JoinedRow{
		{PartnerPin: "77700000001", Side: SideSettlementOnly, SettlementAmount: models.Float(5)},
		{PartnerPin: "77700000002", Side: Side(99), SettlementAmount: models.Float(5)},
		{PartnerPin: "77700000003", Side: SideStatementOnly, StatementAmount: models.Float(5)},
	}

	records := engine.classifyAll(joined)
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if records[0].PartnerPin != "77700000001" || records[1].PartnerPin != "77700000003" {
		t.Errorf("Unexpected records kept: %+v", records)
	}
	for _, r := range records {
		if !r.Classification.IsValid() {
			t.Errorf("Record %s kept with classification %q", r.PartnerPin, r.Classification)
		}
	}
}

func TestRoundVarianceRendersAtReportPrecision(t *testing.T) {
	config := DefaultMatchingConfig()
	for input, want := range map[float64]string{
		1.25e-05:  "0.000012",
		-3.5e-06:  "-0.000004",
		0.0000003: "0.000000",
	} {
		variance := config.RoundVariance(input)
		record := models.MatchRecord{AmountVariance: &variance}
		if got := record.VarianceString(); got != want {
			t.Errorf("VarianceString after RoundVariance(%v) = %s, want %s", input, got, want)
		}
	}
}
