package parsers

import (
	"fmt"
	"strings"
)

// FieldRequest asks for a header containing ALL of the All tokens and at
// least one of the Any tokens, after normalization. Either list may be
// empty, but not both.
type FieldRequest struct {
	All []string `json:"all,omitempty"`
	Any []string `json:"any,omitempty"`
}

// FieldSpec names a logical column: header requests tried in order, then a
// fixed zero-based physical position as the last resort.
type FieldSpec struct {
	Name     string         `json:"name"`
	Requests []FieldRequest `json:"requests"`
	Position int            `json:"position"`
}

// Validate checks if the field spec is usable
func (fs FieldSpec) Validate() error {
	if strings.TrimSpace(fs.Name) == "" {
		return fmt.Errorf("field name cannot be empty")
	}
	if fs.Position < 0 {
		return fmt.Errorf("field %s: position cannot be negative", fs.Name)
	}
	return nil
}

// StatementLayout describes the physical shape of the partner statement export.
type StatementLayout struct {
	// Preamble lists zero-based physical rows discarded before the header row.
	Preamble          []int     `json:"preamble"`
	TypeColumn        int       `json:"type_column"`
	DescriptionColumn int       `json:"description_column"`
	Amount            FieldSpec `json:"amount"`
}

// SettlementLayout describes the physical shape of the internal settlement export.
type SettlementLayout struct {
	Preamble       []int     `json:"preamble"`
	PinColumn      int       `json:"pin_column"`
	StatusColumn   int       `json:"status_column"`
	PayoutRoundAmt FieldSpec `json:"payout_round_amt"`
	APIRate        FieldSpec `json:"api_rate"`
}

// DefaultStatementLayout returns the layout agreed with the partner: rows 1-9
// and 11 are preamble, row 10 is the header, column B holds the transaction
// type, column D the description and column L the settled amount.
func DefaultStatementLayout() *StatementLayout {
	return &StatementLayout{
		Preamble:          []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 10},
		TypeColumn:        1,
		DescriptionColumn: 3,
		Amount: FieldSpec{
			Name: "Settle.Amt",
			Requests: []FieldRequest{
				{All: []string{"settle", "amt"}},
				{Any: []string{"settleamt"}},
			},
			Position: 11,
		},
	}
}

// DefaultSettlementLayout returns the internal export layout: rows 1-2 are
// preamble, row 3 is the header, column D holds the PartnerPin, column F the
// action, column K the payout round amount and column M the API rate.
func DefaultSettlementLayout() *SettlementLayout {
	return &SettlementLayout{
		Preamble:     []int{0, 1},
		PinColumn:    3,
		StatusColumn: 5,
		PayoutRoundAmt: FieldSpec{
			Name: "PayoutRoundAmt",
			Requests: []FieldRequest{
				{All: []string{"payout", "round", "amt"}},
				{All: []string{"payout", "amt"}},
			},
			Position: 10,
		},
		APIRate: FieldSpec{
			Name: "APIRate",
			Requests: []FieldRequest{
				{All: []string{"api", "rate"}},
				{Any: []string{"apirate"}},
			},
			Position: 12,
		},
	}
}

// Validate checks if the statement layout is valid
func (l *StatementLayout) Validate() error {
	if err := validatePreamble(l.Preamble); err != nil {
		return err
	}
	if l.TypeColumn < 0 || l.DescriptionColumn < 0 {
		return fmt.Errorf("column positions cannot be negative")
	}
	return l.Amount.Validate()
}

// Validate checks if the settlement layout is valid
func (l *SettlementLayout) Validate() error {
	if err := validatePreamble(l.Preamble); err != nil {
		return err
	}
	if l.PinColumn < 0 || l.StatusColumn < 0 {
		return fmt.Errorf("column positions cannot be negative")
	}
	if err := l.PayoutRoundAmt.Validate(); err != nil {
		return err
	}
	return l.APIRate.Validate()
}

func validatePreamble(rows []int) error {
	seen := make(map[int]bool, len(rows))
	for _, r := range rows {
		if r < 0 {
			return fmt.Errorf("preamble row %d cannot be negative", r)
		}
		if seen[r] {
			return fmt.Errorf("preamble row %d listed twice", r)
		}
		seen[r] = true
	}
	return nil
}

// LoadConfig holds configuration for reading spreadsheet files
type LoadConfig struct {
	// SheetIndex selects the worksheet of xlsx/xls workbooks.
	SheetIndex int `json:"sheet_index"`
	// Delimiter is the CSV field separator.
	Delimiter rune `json:"delimiter"`
	// DecodeLegacyText re-reads non UTF-8 CSV input as Windows-1252.
	DecodeLegacyText bool `json:"decode_legacy_text"`
}

// DefaultLoadConfig returns a configuration with sensible defaults
func DefaultLoadConfig() *LoadConfig {
	return &LoadConfig{
		SheetIndex:       0,
		Delimiter:        ',',
		DecodeLegacyText: true,
	}
}

// Validate checks if the load configuration is valid
func (c *LoadConfig) Validate() error {
	if c.SheetIndex < 0 {
		return fmt.Errorf("sheet index cannot be negative, got %d", c.SheetIndex)
	}
	if c.Delimiter == 0 || c.Delimiter == '\n' || c.Delimiter == '\r' || c.Delimiter == '"' {
		return fmt.Errorf("invalid CSV delimiter %q", c.Delimiter)
	}
	return nil
}
