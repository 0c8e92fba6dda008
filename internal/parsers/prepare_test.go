package parsers

import (
	"context"
	"testing"

	"settlement-reconciliation-service/internal/fixtures"
	"settlement-reconciliation-service/internal/models"
	"settlement-reconciliation-service/pkg/errors"
)

func rowsByPin(rows []models.NormalizedRow) map[string][]models.NormalizedRow {
	out := make(map[string][]models.NormalizedRow)
	for _, r := range rows {
		out[r.PartnerPin] = append(out[r.PartnerPin], r)
	}
	return out
}

func TestStatementParser_Prepare(t *testing.T) {
	parser, err := NewStatementParser(nil)
	if err != nil {
		t.Fatalf("Failed to create parser: %v", err)
	}

	table := fixtures.StatementTable("statement.xlsx", []fixtures.StatementEntry{
		{Type: "Remittance", Description: "transfer ref 77712345678", SettleAmt: fixtures.Text("$1,000.25")},
		{Type: "Remittance", Description: "XXP98765432 note", SettleAmt: fixtures.Number(50)},
		{Type: "Dollar Received", Description: "funding 77700000001", SettleAmt: fixtures.Number(10)},
		{Type: "Remittance", Description: "77700000002 first", SettleAmt: fixtures.Number(1)},
		{Type: " CANCEL ", Description: "77700000002 reversal", SettleAmt: fixtures.Number(-1)},
		{Type: "Dollar Received", Description: "dup 77700000003", SettleAmt: fixtures.Number(5)},
		{Type: "Remittance", Description: "dup 77700000003", SettleAmt: fixtures.Number(5)},
		{Type: "Remittance", Description: "no identifier here", SettleAmt: fixtures.Number(7)},
		{Type: "Remittance", Description: "bad amount 77700000004", SettleAmt: fixtures.Text("n/a")},
	})

	prepared, err := parser.Prepare(context.Background(), table)
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	if prepared.Summary.DataRows != 9 {
		t.Errorf("Expected 9 data rows, got %d", prepared.Summary.DataRows)
	}
	if prepared.Summary.RowsWithPin != 8 {
		t.Errorf("Expected 8 rows with pin, got %d", prepared.Summary.RowsWithPin)
	}
	if prepared.Summary.DuplicatePins != 2 {
		t.Errorf("Expected 2 duplicated pins, got %d", prepared.Summary.DuplicatePins)
	}

	byPin := rowsByPin(prepared.Rows)
	tests := []struct {
		pin      string
		index    int
		status   models.ReconcileStatus
		amount   *float64
		physical int
	}{
		{"77712345678", 0, models.ShouldReconcile, models.Float(1000.25), 12},
		{"77798765432", 0, models.ShouldReconcile, models.Float(50), 13},
		{"77700000001", 0, models.ShouldNotReconcile, models.Float(10), 14},
		{"77700000002", 0, models.ShouldNotReconcile, models.Float(1), 15},
		{"77700000002", 1, models.ShouldReconcile, models.Float(-1), 16},
		// duplicates are counted before the dollar received exclusion
		{"77700000003", 0, models.ShouldNotReconcile, models.Float(5), 17},
		{"77700000003", 1, models.ShouldNotReconcile, models.Float(5), 18},
		{"77700000004", 0, models.ShouldReconcile, nil, 20},
	}

	for _, tt := range tests {
		t.Run(tt.pin, func(t *testing.T) {
			rows := byPin[tt.pin]
			if len(rows) <= tt.index {
				t.Fatalf("Expected at least %d rows for %s, got %d", tt.index+1, tt.pin, len(rows))
			}
			row := rows[tt.index]
			if row.ReconcileStatus != tt.status {
				t.Errorf("Expected status %s, got %s", tt.status, row.ReconcileStatus)
			}
			if row.SourceRow != tt.physical {
				t.Errorf("Expected source row %d, got %d", tt.physical, row.SourceRow)
			}
			if (tt.amount == nil) != (row.AmountUSD == nil) {
				t.Fatalf("Expected amount %v, got %v", tt.amount, row.AmountUSD)
			}
			if tt.amount != nil && *row.AmountUSD != *tt.amount {
				t.Errorf("Expected amount %v, got %v", *tt.amount, *row.AmountUSD)
			}
		})
	}

	if res := prepared.Columns["Settle.Amt"]; !res.ByName || res.Column != 11 {
		t.Errorf("Expected Settle.Amt resolved by name at column 11, got %+v", res)
	}
}

func TestStatementParser_AmountFallbackAndMissingColumns(t *testing.T) {
	parser, _ := NewStatementParser(nil)

	t.Run("positional fallback", func(t *testing.T) {
		table := fixtures.StatementTable("statement.xlsx", []fixtures.StatementEntry{
			{Type: "Remittance", Description: "ref 77712345678", SettleAmt: fixtures.Number(12)},
		})
		table.Rows[9][11] = models.TextCell("Net")

		prepared, err := parser.Prepare(context.Background(), table)
		if err != nil {
			t.Fatalf("Prepare failed: %v", err)
		}
		res := prepared.Columns["Settle.Amt"]
		if res.ByName || res.Column != 11 {
			t.Errorf("Expected positional fallback to column 11, got %+v", res)
		}
		if *prepared.Rows[0].AmountUSD != 12 {
			t.Errorf("Expected amount 12, got %v", *prepared.Rows[0].AmountUSD)
		}
	})

	t.Run("narrow sheet", func(t *testing.T) {
		table := fixtures.StatementTable("statement.xlsx", nil)
		table.Rows[9] = table.Rows[9][:5]

		_, err := parser.Prepare(context.Background(), table)
		if !errors.HasCode(err, errors.CodeMissingColumn) {
			t.Fatalf("Expected %s, got %v", errors.CodeMissingColumn, err)
		}
	})

	t.Run("too few rows", func(t *testing.T) {
		table := fixtures.StatementTable("statement.xlsx", nil)
		table.Rows = table.Rows[:6]

		_, err := parser.Prepare(context.Background(), table)
		if !errors.HasCode(err, errors.CodeTooFewRows) {
			t.Fatalf("Expected %s, got %v", errors.CodeTooFewRows, err)
		}
	})
}

func TestSettlementParser_Prepare(t *testing.T) {
	parser, err := NewSettlementParser(nil)
	if err != nil {
		t.Fatalf("Failed to create parser: %v", err)
	}

	table := fixtures.SettlementTable("settlement.xlsx", []fixtures.SettlementEntry{
		{PartnerPin: fixtures.Number(77712345678), Action: "Paid", PayoutRoundAmt: fixtures.Number(8312.5), APIRate: fixtures.Number(83.125)},
		{PartnerPin: fixtures.Text(" 77700000001 "), Action: "Paid", PayoutRoundAmt: fixtures.Text("1,000"), APIRate: fixtures.Number(0)},
		{PartnerPin: fixtures.Text("77700000002"), Action: "Cancel", PayoutRoundAmt: fixtures.Number(10), APIRate: fixtures.Number(1)},
		{PartnerPin: fixtures.Text("77700000002"), Action: "Paid", PayoutRoundAmt: fixtures.Number(10), APIRate: fixtures.Number(1)},
		{PartnerPin: fixtures.Text("77700000003"), Action: "Cancel ", PayoutRoundAmt: fixtures.Number(10), APIRate: fixtures.Number(1)},
		{PartnerPin: fixtures.Text("77700000003"), Action: "Paid", PayoutRoundAmt: fixtures.Number(10), APIRate: fixtures.Number(1)},
		{PartnerPin: fixtures.Text("PIN 77700000004"), Action: "Cancel", PayoutRoundAmt: fixtures.Number(20), APIRate: fixtures.Text("")},
		{PartnerPin: fixtures.Text("unknown"), Action: "Paid", PayoutRoundAmt: fixtures.Number(1), APIRate: fixtures.Number(1)},
	})

	prepared, err := parser.Prepare(context.Background(), table)
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	if prepared.Summary.RowsWithPin != 7 {
		t.Errorf("Expected 7 rows with pin, got %d", prepared.Summary.RowsWithPin)
	}
	if prepared.Summary.MissingAmount != 2 {
		t.Errorf("Expected 2 rows without amount, got %d", prepared.Summary.MissingAmount)
	}

	byPin := rowsByPin(prepared.Rows)
	tests := []struct {
		name   string
		pin    string
		index  int
		status models.ReconcileStatus
		amount *float64
	}{
		{"numeric pin cell", "77712345678", 0, models.ShouldReconcile, models.Float(100)},
		{"zero rate has no amount", "77700000001", 0, models.ShouldReconcile, nil},
		{"cancelled duplicate", "77700000002", 0, models.ShouldReconcile, models.Float(10)},
		{"paid duplicate", "77700000002", 1, models.ShouldNotReconcile, models.Float(10)},
		{"action is not trimmed", "77700000003", 0, models.ShouldNotReconcile, models.Float(10)},
		{"other duplicate", "77700000003", 1, models.ShouldNotReconcile, models.Float(10)},
		{"cancel without duplicate", "77700000004", 0, models.ShouldReconcile, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := byPin[tt.pin]
			if len(rows) <= tt.index {
				t.Fatalf("Expected at least %d rows for %s, got %d", tt.index+1, tt.pin, len(rows))
			}
			row := rows[tt.index]
			if row.ReconcileStatus != tt.status {
				t.Errorf("Expected status %s, got %s", tt.status, row.ReconcileStatus)
			}
			if (tt.amount == nil) != (row.AmountUSD == nil) {
				t.Fatalf("Expected amount %v, got %v", tt.amount, row.AmountUSD)
			}
			if tt.amount != nil && *row.AmountUSD != *tt.amount {
				t.Errorf("Expected amount %v, got %v", *tt.amount, *row.AmountUSD)
			}
		})
	}

	if res := prepared.Columns["PayoutRoundAmt"]; res.Column != 10 || res.Header != "Payout Round Amt" {
		t.Errorf("Expected payout resolved to column 10, got %+v", res)
	}
	if res := prepared.Columns["APIRate"]; res.Column != 12 || !res.ByName {
		t.Errorf("Expected API rate resolved by name to column 12, got %+v", res)
	}

	eligible := prepared.Eligible()
	if len(eligible) != 4 {
		t.Errorf("Expected 4 eligible rows, got %d", len(eligible))
	}
}

func TestSettlementParser_MissingColumn(t *testing.T) {
	parser, _ := NewSettlementParser(nil)
	table := fixtures.SettlementTable("settlement.xlsx", []fixtures.SettlementEntry{
		{PartnerPin: fixtures.Text("77712345678"), Action: "Paid"},
	})
	for i := range table.Rows {
		if len(table.Rows[i]) > 11 {
			table.Rows[i] = table.Rows[i][:11]
		}
	}
	table.Rows[2][9] = models.TextCell("Amount")
	table.Rows[2][10] = models.TextCell("Local")

	_, err := parser.Prepare(context.Background(), table)
	if !errors.HasCode(err, errors.CodeMissingColumn) {
		t.Fatalf("Expected %s, got %v", errors.CodeMissingColumn, err)
	}
	rerr, _ := errors.AsReconcilerError(err)
	if rerr.Context["column"] != "APIRate" {
		t.Errorf("Expected APIRate to be reported, got %v", rerr.Context["column"])
	}
}

func TestLayoutValidation(t *testing.T) {
	layout := DefaultStatementLayout()
	layout.Preamble = append(layout.Preamble, 0)
	if err := layout.Validate(); err == nil {
		t.Error("Expected duplicate preamble row to fail validation")
	}

	settlement := DefaultSettlementLayout()
	settlement.APIRate.Name = ""
	if _, err := NewSettlementParser(settlement); !errors.HasCode(err, errors.CodeInvalidConfig) {
		t.Errorf("Expected %s, got %v", errors.CodeInvalidConfig, err)
	}
}
