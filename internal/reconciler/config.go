package reconciler

import (
	"fmt"

	"settlement-reconciliation-service/internal/matcher"
	"settlement-reconciliation-service/internal/parsers"
)

// Config holds configuration options for the reconciliation service
type Config struct {
	Load       *parsers.LoadConfig
	Statement  *parsers.StatementLayout
	Settlement *parsers.SettlementLayout
	Matching   *matcher.MatchingConfig

	// Parallel prepares the two files concurrently.
	Parallel bool
}

// DefaultConfig returns a default configuration for the reconciliation service
func DefaultConfig() *Config {
	return &Config{
		Load:       parsers.DefaultLoadConfig(),
		Statement:  parsers.DefaultStatementLayout(),
		Settlement: parsers.DefaultSettlementLayout(),
		Matching:   matcher.DefaultMatchingConfig(),
		Parallel:   true,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Load == nil || c.Statement == nil || c.Settlement == nil || c.Matching == nil {
		return fmt.Errorf("load, layout and matching configuration are required")
	}
	if err := c.Load.Validate(); err != nil {
		return fmt.Errorf("load: %w", err)
	}
	if err := c.Statement.Validate(); err != nil {
		return fmt.Errorf("statement layout: %w", err)
	}
	if err := c.Settlement.Validate(); err != nil {
		return fmt.Errorf("settlement layout: %w", err)
	}
	if err := c.Matching.Validate(); err != nil {
		return fmt.Errorf("matching: %w", err)
	}
	return nil
}

// ReconciliationRequest names the two input files of one run.
type ReconciliationRequest struct {
	StatementFile  string `json:"statement_file"`
	SettlementFile string `json:"settlement_file"`
}

// Validate validates the reconciliation request
func (r *ReconciliationRequest) Validate() error {
	if r.StatementFile == "" {
		return fmt.Errorf("statement file path is required")
	}
	if r.SettlementFile == "" {
		return fmt.Errorf("settlement file path is required")
	}
	return nil
}
