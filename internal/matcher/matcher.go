package matcher

import (
	"math"

	"settlement-reconciliation-service/internal/models"
	"settlement-reconciliation-service/pkg/errors"
	"settlement-reconciliation-service/pkg/logger"
)

// Side says which sources a joined PartnerPin was found in.
type Side int

const (
	SideBoth Side = iota
	SideSettlementOnly
	SideStatementOnly
)

// String returns the string representation of Side
func (s Side) String() string {
	switch s {
	case SideBoth:
		return "both"
	case SideSettlementOnly:
		return "settlement_only"
	case SideStatementOnly:
		return "statement_only"
	default:
		return "unknown"
	}
}

// Classification maps a join side to its reported classification.
func (s Side) Classification() models.Classification {
	switch s {
	case SideBoth:
		return models.PresentInBoth
	case SideSettlementOnly:
		return models.PresentInSettlementOnly
	case SideStatementOnly:
		return models.PresentInStatementOnly
	default:
		return ""
	}
}

// JoinedRow is one PartnerPin of the outer join with the amounts each side carried.
type JoinedRow struct {
	PartnerPin       string
	Side             Side
	SettlementAmount *float64
	StatementAmount  *float64
}

// ReconciliationResult contains the classified records of a run.
type ReconciliationResult struct {
	Records         []models.MatchRecord `json:"records"`
	SettlementStats IndexStats           `json:"settlement_stats"`
	StatementStats  IndexStats           `json:"statement_stats"`
}

// MatchingEngine performs the PartnerPin join and classification.
type MatchingEngine struct {
	config          *MatchingConfig
	settlementIndex *PinIndex
	statementIndex  *PinIndex
	logger          logger.Logger
}

// NewMatchingEngine creates a new matching engine with the given configuration
func NewMatchingEngine(config *MatchingConfig) *MatchingEngine {
	if config == nil {
		config = DefaultMatchingConfig()
	}

	return &MatchingEngine{
		config:          config,
		settlementIndex: NewPinIndex(nil),
		statementIndex:  NewPinIndex(nil),
		logger:          logger.WithComponent("matcher"),
	}
}

// LoadSettlementRows indexes the prepared settlement rows.
func (me *MatchingEngine) LoadSettlementRows(rows []models.NormalizedRow) {
	me.settlementIndex = NewPinIndex(rows)
}

// LoadStatementRows indexes the prepared statement rows.
func (me *MatchingEngine) LoadStatementRows(rows []models.NormalizedRow) {
	me.statementIndex = NewPinIndex(rows)
}

// Reconcile joins the loaded sources and classifies every PartnerPin.
func (me *MatchingEngine) Reconcile() (*ReconciliationResult, error) {
	if err := me.config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "matching", me.config, err)
	}

	records := me.classifyAll(OuterJoin(me.settlementIndex, me.statementIndex))

	result := &ReconciliationResult{
		Records:         records,
		SettlementStats: me.settlementIndex.Stats(),
		StatementStats:  me.statementIndex.Stats(),
	}

	me.logger.WithFields(logger.Fields{
		"settlement_pins": me.settlementIndex.Len(),
		"statement_pins":  me.statementIndex.Len(),
		"records":         len(records),
	}).Info("Matching completed")

	return result, nil
}

// OuterJoin emits every settlement pin in source order, then every pin found
// only in the statement, in statement order.
func OuterJoin(settlement, statement *PinIndex) []JoinedRow {
	joined := make([]JoinedRow, 0, settlement.Len()+statement.Len())

	for _, pin := range settlement.Pins() {
		left, _ := settlement.Get(pin)
		row := JoinedRow{
			PartnerPin:       pin,
			Side:             SideSettlementOnly,
			SettlementAmount: left.AmountUSD,
		}
		if right, ok := statement.Get(pin); ok {
			row.Side = SideBoth
			row.StatementAmount = right.AmountUSD
		}
		joined = append(joined, row)
	}

	for _, pin := range statement.Pins() {
		if _, ok := settlement.Get(pin); ok {
			continue
		}
		right, _ := statement.Get(pin)
		joined = append(joined, JoinedRow{
			PartnerPin:      pin,
			Side:            SideStatementOnly,
			StatementAmount: right.AmountUSD,
		})
	}

	return joined
}

// classifyAll classifies joined rows and drops any whose side has no
// reported classification.
func (me *MatchingEngine) classifyAll(joined []JoinedRow) []models.MatchRecord {
	records := make([]models.MatchRecord, 0, len(joined))
	for _, row := range joined {
		record := me.classify(row)
		if !record.Classification.IsValid() {
			me.logger.WithFields(logger.Fields{
				"partner_pin": row.PartnerPin,
				"side":        row.Side.String(),
			}).Warn("Dropping joined row without a classification")
			continue
		}
		records = append(records, record)
	}
	return records
}

func (me *MatchingEngine) classify(row JoinedRow) models.MatchRecord {
	record := models.MatchRecord{
		PartnerPin:     row.PartnerPin,
		Classification: row.Side.Classification(),
	}

	switch row.Side {
	case SideSettlementOnly:
		record.FinalReconcileStatus = models.MissingInStatement
	case SideStatementOnly:
		record.FinalReconcileStatus = models.MissingInSettlement
	case SideBoth:
		record.FinalReconcileStatus = models.AmountMismatch
		if row.SettlementAmount == nil || row.StatementAmount == nil {
			break
		}
		raw := *row.SettlementAmount - *row.StatementAmount
		if math.IsNaN(raw) || math.IsInf(raw, 0) {
			break
		}
		variance := me.config.RoundVariance(raw)
		record.AmountVariance = &variance
		if me.config.WithinTolerance(raw) {
			record.FinalReconcileStatus = models.Reconciled
		}
	}

	return record
}

// GetConfiguration returns the current matching configuration
func (me *MatchingEngine) GetConfiguration() *MatchingConfig {
	return me.config
}

// UpdateConfiguration updates the matching configuration
func (me *MatchingEngine) UpdateConfiguration(config *MatchingConfig) error {
	if err := config.Validate(); err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "matching", config, err)
	}
	me.config = config
	return nil
}

// GetStats returns settlement and statement index statistics.
func (me *MatchingEngine) GetStats() (IndexStats, IndexStats) {
	return me.settlementIndex.Stats(), me.statementIndex.Stats()
}
