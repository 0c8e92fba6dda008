package parsers

import (
	"context"
	"math"
	"strings"

	"settlement-reconciliation-service/internal/extractor"
	"settlement-reconciliation-service/internal/models"
	"settlement-reconciliation-service/pkg/errors"
	"settlement-reconciliation-service/pkg/logger"
)

const settlementActionCancel = "cancel"

// SettlementParser prepares the internal settlement export.
type SettlementParser struct {
	layout    *SettlementLayout
	extractor *extractor.Chain
	logger    logger.Logger
}

// NewSettlementParser creates a new SettlementParser with the given layout
func NewSettlementParser(layout *SettlementLayout) (*SettlementParser, error) {
	if layout == nil {
		layout = DefaultSettlementLayout()
	}
	if err := layout.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "settlement_layout", layout, err)
	}

	return &SettlementParser{
		layout:    layout,
		extractor: extractor.SettlementChain(),
		logger:    logger.WithComponent("settlement_parser"),
	}, nil
}

// Prepare reduces a raw settlement table to normalized rows.
//
// AmountUSD is PayoutRoundAmt divided by APIRate and has no value when either
// is missing or the rate is zero. Eligibility follows two rules applied in
// order: a cancellation of a duplicated PartnerPin is eligible, then every
// PartnerPin that is not duplicated is eligible.
func (p *SettlementParser) Prepare(ctx context.Context, table *models.RawTable) (*Prepared, error) {
	frame, err := PromoteHeader(table, p.layout.Preamble, "settlement")
	if err != nil {
		return nil, err
	}
	if err := requirePosition(frame, "PartnerPin", p.layout.PinColumn); err != nil {
		return nil, err
	}
	if err := requirePosition(frame, "Action", p.layout.StatusColumn); err != nil {
		return nil, err
	}
	payoutCol, err := ResolveColumn(frame, p.layout.PayoutRoundAmt)
	if err != nil {
		return nil, err
	}
	rateCol, err := ResolveColumn(frame, p.layout.APIRate)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pinCells := frame.Column(p.layout.PinColumn)
	pinTexts := make([]string, len(pinCells))
	for i, c := range pinCells {
		pinTexts[i] = settlementPinText(c)
	}
	extraction := p.extractor.Extract(pinTexts)
	pins := extraction.Pins
	dups := duplicatedPins(pins)

	payouts := ToNumbers(frame.Column(payoutCol.Column))
	rates := ToNumbers(frame.Column(rateCol.Column))
	actions := frame.Column(p.layout.StatusColumn)

	rows := make([]models.NormalizedRow, 0, len(pins))
	for i, pin := range pins {
		if pin == "" {
			continue
		}
		status := models.ShouldNotReconcile
		if strings.ToLower(actions[i].String()) == settlementActionCancel && dups[pin] {
			status = models.ShouldReconcile
		}
		if !dups[pin] {
			status = models.ShouldReconcile
		}
		rows = append(rows, models.NormalizedRow{
			PartnerPin:      pin,
			AmountUSD:       usdAmount(payouts[i], rates[i]),
			ReconcileStatus: status,
			SourceRow:       frame.RowNumber(i),
		})
	}

	prepared := &Prepared{
		Rows:    rows,
		Summary: summarize(table.Source, len(frame.Rows), rows, dups),
		Columns: map[string]Resolution{
			"PartnerPin":                 {Column: p.layout.PinColumn, Header: headerAt(frame, p.layout.PinColumn)},
			"Action":                     {Column: p.layout.StatusColumn, Header: headerAt(frame, p.layout.StatusColumn)},
			p.layout.PayoutRoundAmt.Name: payoutCol,
			p.layout.APIRate.Name:        rateCol,
		},
	}

	p.logger.WithFields(logger.Fields{
		"file":           table.Source,
		"data_rows":      prepared.Summary.DataRows,
		"rows_with_pin":  prepared.Summary.RowsWithPin,
		"duplicate_pins": prepared.Summary.DuplicatePins,
		"eligible_rows":  prepared.Summary.EligibleRows,
		"missing_amount": prepared.Summary.MissingAmount,
		"payout_column":  payoutCol.Header,
		"rate_column":    rateCol.Header,
		"pin_rule_hits":  extraction.Hits,
	}).Info("Prepared settlement")

	return prepared, nil
}

// settlementPinText renders a PartnerPin cell for extraction. Numeric cells
// become integer text; text cells are trimmed.
func settlementPinText(c models.Cell) string {
	switch c.Kind {
	case models.CellNumber:
		return extractor.StripTrailingZeros(c.String())
	case models.CellText:
		return strings.TrimSpace(c.Text)
	default:
		return ""
	}
}

func usdAmount(payout, rate *float64) *float64 {
	if payout == nil || rate == nil || *rate == 0 {
		return nil
	}
	amount := *payout / *rate
	if math.IsInf(amount, 0) || math.IsNaN(amount) {
		return nil
	}
	return models.Float(amount)
}
