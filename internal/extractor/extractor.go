// Package extractor pulls the 11-digit PartnerPin out of free text using an
// ordered chain of pattern rules. Each rule only sees the texts that every
// earlier rule failed on, so a higher-priority match is never overwritten.
package extractor

import (
	"regexp"
	"strings"

	"settlement-reconciliation-service/internal/models"
	"settlement-reconciliation-service/pkg/logger"
)

// Rule is one pattern in a chain. Build turns the submatches of Pattern into
// a PartnerPin; when Build is nil the first capture group is used as is.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Build   func(groups []string) string
}

func (r Rule) apply(text string) (string, bool) {
	groups := r.Pattern.FindStringSubmatch(text)
	if groups == nil {
		return "", false
	}
	var pin string
	if r.Build != nil {
		pin = r.Build(groups)
	} else if len(groups) > 1 {
		pin = groups[1]
	} else {
		pin = groups[0]
	}
	if !models.IsValidPartnerPin(pin) {
		return "", false
	}
	return pin, true
}

// Chain applies rules in priority order.
type Chain struct {
	name   string
	rules  []Rule
	logger logger.Logger
}

// NewChain creates a chain trying rules in the order given.
func NewChain(name string, rules ...Rule) *Chain {
	return &Chain{
		name:   name,
		rules:  rules,
		logger: logger.WithComponent("extractor"),
	}
}

// Name returns the chain name.
func (c *Chain) Name() string {
	return c.name
}

// Rules returns the rule names in priority order.
func (c *Chain) Rules() []string {
	names := make([]string, len(c.rules))
	for i, r := range c.rules {
		names[i] = r.Name
	}
	return names
}

// Result holds one extraction pass over a column.
type Result struct {
	// Pins is aligned with the input; an empty string means no PartnerPin.
	Pins []string
	// Hits counts resolved texts per rule name.
	Hits       map[string]int
	Unresolved int
}

// Extract resolves a PartnerPin for every text. Texts are trimmed first.
func (c *Chain) Extract(texts []string) *Result {
	result := &Result{
		Pins: make([]string, len(texts)),
		Hits: make(map[string]int, len(c.rules)),
	}

	pending := make([]int, 0, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) != "" {
			pending = append(pending, i)
		}
	}

	for _, rule := range c.rules {
		if len(pending) == 0 {
			break
		}
		next := pending[:0]
		for _, i := range pending {
			if pin, ok := rule.apply(strings.TrimSpace(texts[i])); ok {
				result.Pins[i] = pin
				result.Hits[rule.Name]++
				continue
			}
			next = append(next, i)
		}
		pending = next
	}

	for _, pin := range result.Pins {
		if pin == "" {
			result.Unresolved++
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"chain":      c.name,
		"texts":      len(texts),
		"hits":       result.Hits,
		"unresolved": result.Unresolved,
	}).Debug("PartnerPin extraction finished")

	return result
}

// ExtractOne resolves a single text, returning "" when no rule matches.
func (c *Chain) ExtractOne(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	for _, rule := range c.rules {
		if pin, ok := rule.apply(text); ok {
			return pin
		}
	}
	return ""
}
