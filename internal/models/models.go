package models

import (
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

// ReconcileStatus is the eligibility flag a preparer assigns to a row. It
// decides whether the row enters the join; it is not a match result.
type ReconcileStatus string

const (
	ShouldReconcile    ReconcileStatus = "Should Reconcile"
	ShouldNotReconcile ReconcileStatus = "Should Not Reconcile"
)

// String returns the string representation of ReconcileStatus
func (s ReconcileStatus) String() string {
	return string(s)
}

// Classification records on which side(s) of the join a PartnerPin was found.
type Classification string

const (
	PresentInBoth           Classification = "Present in Both"
	PresentInSettlementOnly Classification = "Present in the Settlement File but not in the Partner Statement File"
	PresentInStatementOnly  Classification = "Not Present in the Settlement File but are present in the Statement File"
)

// IsValid checks if the classification is one of the three reported values
func (c Classification) IsValid() bool {
	switch c {
	case PresentInBoth, PresentInSettlementOnly, PresentInStatementOnly:
		return true
	default:
		return false
	}
}

// FinalReconcileStatus is the outcome reported for a PartnerPin.
type FinalReconcileStatus string

const (
	Reconciled          FinalReconcileStatus = "Reconciled"
	AmountMismatch      FinalReconcileStatus = "Amount Mismatch"
	MissingInStatement  FinalReconcileStatus = "Missing in Statement"
	MissingInSettlement FinalReconcileStatus = "Missing in Settlement"
)

// NoValue is the marker rendered for an undefined AmountVariance.
const NoValue = "<NA>"

// VariancePlaces is the number of decimal places AmountVariance is rounded
// to and rendered with.
const VariancePlaces int32 = 6

var partnerPinPattern = regexp.MustCompile(`^\d{11}$`)

// IsValidPartnerPin reports whether pin is exactly 11 decimal digits.
func IsValidPartnerPin(pin string) bool {
	return partnerPinPattern.MatchString(pin)
}

// NormalizedRow is one source row reduced to the fields the matcher uses.
type NormalizedRow struct {
	PartnerPin      string          `json:"partner_pin"`
	AmountUSD       *float64        `json:"amount_usd"`
	ReconcileStatus ReconcileStatus `json:"reconcile_status"`
	// SourceRow is the 1-based physical row the values came from.
	SourceRow int `json:"source_row"`
}

// HasAmount reports whether the source amount was numeric.
func (r *NormalizedRow) HasAmount() bool {
	return r.AmountUSD != nil
}

// String returns a string representation of the NormalizedRow
func (r *NormalizedRow) String() string {
	amount := NoValue
	if r.AmountUSD != nil {
		amount = FormatNumber(*r.AmountUSD)
	}
	return fmt.Sprintf("NormalizedRow{Pin: %s, Amount: %s, Status: %s, Row: %d}",
		r.PartnerPin, amount, r.ReconcileStatus, r.SourceRow)
}

// Float returns a pointer to v, for building optional amounts.
func Float(v float64) *float64 {
	return &v
}

// MatchRecord is one row of the reconciliation report.
type MatchRecord struct {
	PartnerPin           string               `json:"PartnerPin"`
	Classification       Classification       `json:"Classification"`
	FinalReconcileStatus FinalReconcileStatus `json:"FinalReconcileStatus"`
	// AmountVariance is settlement minus statement, rounded to six decimal
	// places. Nil unless Classification is PresentInBoth and both amounts exist.
	AmountVariance *decimal.Decimal `json:"AmountVariance"`
}

// VarianceString renders AmountVariance with six decimal places, or NoValue.
func (m *MatchRecord) VarianceString() string {
	if m.AmountVariance == nil {
		return NoValue
	}
	return m.AmountVariance.StringFixed(VariancePlaces)
}

// Columns returns the record as the four report cells.
func (m *MatchRecord) Columns() []string {
	return []string{
		m.PartnerPin,
		string(m.Classification),
		string(m.FinalReconcileStatus),
		m.VarianceString(),
	}
}

// ReportColumns are the report headers, in output order.
var ReportColumns = []string{"PartnerPin", "Classification", "FinalReconcileStatus", "AmountVariance"}

// SourceSummary counts what happened to one input file.
type SourceSummary struct {
	File          string `json:"file"`
	DataRows      int    `json:"data_rows"`
	RowsWithPin   int    `json:"rows_with_pin"`
	DuplicatePins int    `json:"duplicate_pins"`
	EligibleRows  int    `json:"eligible_rows"`
	MissingAmount int    `json:"missing_amount"`
}

// Summary holds aggregate counts for a report.
type Summary struct {
	Statement        SourceSummary                `json:"statement"`
	Settlement       SourceSummary                `json:"settlement"`
	ByClassification map[Classification]int       `json:"by_classification"`
	ByStatus         map[FinalReconcileStatus]int `json:"by_status"`
	TotalRecords     int                          `json:"total_records"`
	NetVariance      decimal.Decimal              `json:"net_variance"`
}

// NewSummary tallies records into a Summary.
func NewSummary(records []MatchRecord) *Summary {
	s := &Summary{
		ByClassification: make(map[Classification]int),
		ByStatus:         make(map[FinalReconcileStatus]int),
		TotalRecords:     len(records),
		NetVariance:      decimal.Zero,
	}
	for _, rec := range records {
		s.ByClassification[rec.Classification]++
		s.ByStatus[rec.FinalReconcileStatus]++
		if rec.AmountVariance != nil {
			s.NetVariance = s.NetVariance.Add(*rec.AmountVariance)
		}
	}
	return s
}

// Report is the complete result of one reconciliation run.
type Report struct {
	RunID       string        `json:"run_id"`
	ProcessedAt time.Time     `json:"processed_at"`
	Duration    time.Duration `json:"duration"`
	Records     []MatchRecord `json:"records"`
	Summary     *Summary      `json:"summary"`
}
