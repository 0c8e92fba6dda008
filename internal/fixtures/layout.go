// Package fixtures builds statement and settlement exports in the physical
// layouts the preparers expect. It backs the package tests and the
// "reconciler sample" command.
package fixtures

import (
	"settlement-reconciliation-service/internal/models"
)

// StatementHeaders is the header row of the partner statement export.
var StatementHeaders = []string{
	"Txn Date", "Type", "Reference", "Description", "Currency", "Amount",
	"Fee", "Rate", "Branch", "Channel", "Status", "Settle.Amt",
}

// SettlementHeaders is the header row of the internal settlement export.
var SettlementHeaders = []string{
	"Date", "Batch", "Agent", "PartnerPin", "Sender", "Action",
	"Receiver", "Country", "Currency", "Payout Amt Ccy", "Payout Round Amt", "Fee", "API Rate",
}

// statementPreambleRows is the count of rows above the statement header.
const statementPreambleRows = 9

// StatementEntry is one data row of a statement export.
type StatementEntry struct {
	Type        string
	Description string
	SettleAmt   models.Cell
}

// SettlementEntry is one data row of a settlement export.
type SettlementEntry struct {
	PartnerPin     models.Cell
	Action         string
	PayoutRoundAmt models.Cell
	APIRate        models.Cell
}

// StatementTable lays entries out as a statement export: nine title rows,
// the header, a separator row, then data.
func StatementTable(source string, entries []StatementEntry) *models.RawTable {
	rows := make([]models.Row, 0, statementPreambleRows+2+len(entries))
	rows = append(rows,
		textRow("Partner Statement of Account"),
		textRow("Account", "USD Settlement"),
		textRow("Period", "2025-01-01", "2025-01-31"),
		nil,
		textRow("Opening Balance", "0.00"),
		nil,
		textRow("Generated by partner portal"),
		nil,
		nil,
	)
	rows = append(rows, textRow(StatementHeaders...))
	rows = append(rows, textRow("----------"))
	for _, e := range entries {
		row := make(models.Row, len(StatementHeaders))
		row[0] = models.TextCell("2025-01-15")
		row[1] = models.TextCell(e.Type)
		row[3] = models.TextCell(e.Description)
		row[4] = models.TextCell("USD")
		row[11] = e.SettleAmt
		rows = append(rows, row)
	}
	return &models.RawTable{Source: source, Rows: rows}
}

// SettlementTable lays entries out as a settlement export: two title rows,
// the header, then data.
func SettlementTable(source string, entries []SettlementEntry) *models.RawTable {
	rows := make([]models.Row, 0, 3+len(entries))
	rows = append(rows,
		textRow("Settlement Report"),
		textRow("Generated", "2025-02-01"),
		textRow(SettlementHeaders...),
	)
	for _, e := range entries {
		row := make(models.Row, len(SettlementHeaders))
		row[0] = models.TextCell("2025-01-15")
		row[3] = e.PartnerPin
		row[5] = models.TextCell(e.Action)
		row[8] = models.TextCell("INR")
		row[10] = e.PayoutRoundAmt
		row[12] = e.APIRate
		rows = append(rows, row)
	}
	return &models.RawTable{Source: source, Rows: rows}
}

func textRow(values ...string) models.Row {
	row := make(models.Row, len(values))
	for i, v := range values {
		row[i] = models.TextCell(v)
	}
	return row
}

// Number is shorthand for a numeric cell.
func Number(v float64) models.Cell {
	return models.NumberCell(v)
}

// Text is shorthand for a text cell.
func Text(s string) models.Cell {
	return models.TextCell(s)
}
