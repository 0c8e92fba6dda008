package parsers

import (
	"context"
	"strings"

	"settlement-reconciliation-service/internal/extractor"
	"settlement-reconciliation-service/internal/models"
	"settlement-reconciliation-service/pkg/errors"
	"settlement-reconciliation-service/pkg/logger"
)

const (
	statementTypeDollarReceived = "dollar received"
	statementTypeCancel         = "cancel"
)

// StatementParser prepares the partner statement export.
type StatementParser struct {
	layout    *StatementLayout
	extractor *extractor.Chain
	logger    logger.Logger
}

// NewStatementParser creates a new StatementParser with the given layout
func NewStatementParser(layout *StatementLayout) (*StatementParser, error) {
	if layout == nil {
		layout = DefaultStatementLayout()
	}
	if err := layout.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "statement_layout", layout, err)
	}

	return &StatementParser{
		layout:    layout,
		extractor: extractor.StatementChain(),
		logger:    logger.WithComponent("statement_parser"),
	}, nil
}

// Prepare reduces a raw statement table to normalized rows.
//
// A row is eligible when its PartnerPin is unique within the file, or when it
// is a cancellation of a duplicated PartnerPin. Rows typed "dollar received"
// are never eligible. Duplicates are counted before that exclusion applies.
func (p *StatementParser) Prepare(ctx context.Context, table *models.RawTable) (*Prepared, error) {
	frame, err := PromoteHeader(table, p.layout.Preamble, "statement")
	if err != nil {
		return nil, err
	}
	if err := requirePosition(frame, "Description", p.layout.DescriptionColumn); err != nil {
		return nil, err
	}
	if err := requirePosition(frame, "Type", p.layout.TypeColumn); err != nil {
		return nil, err
	}
	amountCol, err := ResolveColumn(frame, p.layout.Amount)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	extraction := p.extractor.Extract(frame.ColumnText(p.layout.DescriptionColumn))
	pins := extraction.Pins
	dups := duplicatedPins(pins)
	types := frame.ColumnText(p.layout.TypeColumn)
	amounts := ToNumbers(frame.Column(amountCol.Column))

	rows := make([]models.NormalizedRow, 0, len(pins))
	for i, pin := range pins {
		if pin == "" {
			continue
		}
		rows = append(rows, models.NormalizedRow{
			PartnerPin:      pin,
			AmountUSD:       amounts[i],
			ReconcileStatus: statementStatus(strings.ToLower(types[i]), dups[pin]),
			SourceRow:       frame.RowNumber(i),
		})
	}

	prepared := &Prepared{
		Rows:    rows,
		Summary: summarize(table.Source, len(frame.Rows), rows, dups),
		Columns: map[string]Resolution{
			"Description":        {Column: p.layout.DescriptionColumn, Header: headerAt(frame, p.layout.DescriptionColumn)},
			"Type":               {Column: p.layout.TypeColumn, Header: headerAt(frame, p.layout.TypeColumn)},
			p.layout.Amount.Name: amountCol,
		},
	}

	p.logger.WithFields(logger.Fields{
		"file":           table.Source,
		"data_rows":      prepared.Summary.DataRows,
		"rows_with_pin":  prepared.Summary.RowsWithPin,
		"duplicate_pins": prepared.Summary.DuplicatePins,
		"eligible_rows":  prepared.Summary.EligibleRows,
		"amount_column":  amountCol.Header,
		"amount_by_name": amountCol.ByName,
		"pin_rule_hits":  extraction.Hits,
	}).Info("Prepared statement")

	return prepared, nil
}

func statementStatus(txType string, duplicated bool) models.ReconcileStatus {
	switch {
	case txType == statementTypeDollarReceived:
		return models.ShouldNotReconcile
	case !duplicated:
		return models.ShouldReconcile
	case txType == statementTypeCancel:
		return models.ShouldReconcile
	default:
		return models.ShouldNotReconcile
	}
}
