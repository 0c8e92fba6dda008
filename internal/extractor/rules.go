package extractor

import "regexp"

// PinPrefix is the issuer prefix every PartnerPin starts with.
const PinPrefix = "777"

var (
	trailingPin      = regexp.MustCompile(`(\d{11})$`)
	prefixedCode     = regexp.MustCompile(`XXP(\d{8})`)
	issuerPin        = regexp.MustCompile(`(777\d{8})`)
	anyPin           = regexp.MustCompile(`(\d{11})`)
	exactPin         = regexp.MustCompile(`^(\d{11})$`)
	trailingFraction = regexp.MustCompile(`\.0+$`)
)

// Rule names, reported in extraction statistics.
const (
	RuleTrailing     = "trailing"
	RulePrefixedCode = "xxp_code"
	RuleIssuer       = "issuer_prefix"
	RuleAnywhere     = "anywhere"
	RuleExact        = "exact"
)

// StatementChain resolves PartnerPins from statement descriptions: an 11-digit
// run closing the text, then an XXP reference rewritten to the 777 prefix,
// then any 777 run, then any 11-digit run.
func StatementChain() *Chain {
	return NewChain("statement",
		Rule{Name: RuleTrailing, Pattern: trailingPin},
		Rule{
			Name:    RulePrefixedCode,
			Pattern: prefixedCode,
			Build: func(groups []string) string {
				return PinPrefix + groups[1]
			},
		},
		Rule{Name: RuleIssuer, Pattern: issuerPin},
		Rule{Name: RuleAnywhere, Pattern: anyPin},
	)
}

// SettlementChain resolves PartnerPins from the settlement PartnerPin column:
// an exact 11-digit value, then a trailing run, then any run.
func SettlementChain() *Chain {
	return NewChain("settlement",
		Rule{Name: RuleExact, Pattern: exactPin},
		Rule{Name: RuleTrailing, Pattern: trailingPin},
		Rule{Name: RuleAnywhere, Pattern: anyPin},
	)
}

// StripTrailingZeros removes a ".0", ".00" ... suffix left by spreadsheet
// software rendering an integer as a float.
func StripTrailingZeros(s string) string {
	return trailingFraction.ReplaceAllString(s, "")
}
