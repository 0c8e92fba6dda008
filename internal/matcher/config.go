// Package matcher joins the two prepared sources on PartnerPin and classifies
// every pin in the union.
//
// The engine works in three steps:
//  1. Eligibility filtering: only rows tagged ShouldReconcile with a valid
//     11-digit PartnerPin take part, and the first occurrence of each pin wins.
//  2. A full outer join keyed on PartnerPin, emitted in settlement order
//     followed by pins found only in the statement.
//  3. Classification and variance: pins present in both files compare
//     amounts within a fixed currency tolerance.
//
// Example usage:
//
//	engine := matcher.NewMatchingEngine(matcher.DefaultMatchingConfig())
//	engine.LoadSettlementRows(settlement)
//	engine.LoadStatementRows(statement)
//
//	result, err := engine.Reconcile()
package matcher

import (
	"fmt"

	"github.com/shopspring/decimal"

	"settlement-reconciliation-service/internal/models"
)

// MatchingConfig holds the numeric policy for amount comparison.
type MatchingConfig struct {
	// AmountTolerance is the largest absolute difference, in USD, still
	// treated as reconciled. It is compared against the unrounded variance.
	AmountTolerance float64 `json:"amount_tolerance"`

	// ZeroSnapThreshold is the magnitude under which a rounded variance is
	// reported as exactly zero.
	ZeroSnapThreshold float64 `json:"zero_snap_threshold"`
}

// DefaultMatchingConfig returns a configuration with a one cent tolerance.
func DefaultMatchingConfig() *MatchingConfig {
	return &MatchingConfig{
		AmountTolerance:   0.01,
		ZeroSnapThreshold: 0.0000005,
	}
}

// Validate checks if the matching configuration is valid
func (mc *MatchingConfig) Validate() error {
	if mc.AmountTolerance < 0 {
		return fmt.Errorf("amount tolerance cannot be negative: %f", mc.AmountTolerance)
	}
	if mc.ZeroSnapThreshold < 0 {
		return fmt.Errorf("zero snap threshold cannot be negative: %f", mc.ZeroSnapThreshold)
	}
	return nil
}

// Clone creates a deep copy of the matching configuration
func (mc *MatchingConfig) Clone() *MatchingConfig {
	clone := *mc
	return &clone
}

// WithinTolerance reports whether an unrounded variance counts as reconciled.
func (mc *MatchingConfig) WithinTolerance(variance float64) bool {
	if variance < 0 {
		variance = -variance
	}
	return variance <= mc.AmountTolerance
}

// RoundVariance rounds a variance half to even for reporting and snaps values
// that would print as negative zero to zero.
func (mc *MatchingConfig) RoundVariance(variance float64) decimal.Decimal {
	rounded := decimal.NewFromFloat(variance).RoundBank(models.VariancePlaces)
	if rounded.Abs().LessThan(decimal.NewFromFloat(mc.ZeroSnapThreshold)) {
		return decimal.Zero
	}
	return rounded
}

// String returns a human-readable representation of the configuration
func (mc *MatchingConfig) String() string {
	return fmt.Sprintf("MatchingConfig{Tolerance: %g, ZeroSnap: %g}",
		mc.AmountTolerance, mc.ZeroSnapThreshold)
}
